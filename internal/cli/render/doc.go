// Package render formats decoded reply frames for terminal display.
//
// Scalars render on one line with a type hint ("(integer) 4",
// "(error) ERR ...", "(nil)"); bulk strings are quoted. Aggregates
// render one element per line with right-aligned indices, and nested
// aggregates continue under their parent's index column.
//
// @req RQ-0601
// @design DS-0601
package render
