// Package metric provides Prometheus metrics for kvgate.
//
// All metrics live in a private registry under the "kvgate" namespace:
//
//   - connection gauge and total
//   - per-command execution counters and duration histograms
//   - protocol decode errors, rate-limit rejections
//   - authentication failures and transaction aborts
//
// The storage engines register their own collectors into the same
// registry. Metrics are exposed at /metrics on the admin listener.
//
// @req RQ-0702
// @design DS-0702
package metric
