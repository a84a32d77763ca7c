package repl

import (
	"os"
	"path/filepath"
	"strings"
)

const maxHistoryEntries = 1000

// History keeps the commands typed at the prompt, newest last.
type History struct {
	entries []string
	maxSize int
	file    string
}

// NewHistory creates a History backed by ~/.kvgate/history.
func NewHistory() *History {
	home, _ := os.UserHomeDir()
	return &History{
		entries: []string{},
		maxSize: maxHistoryEntries,
		file:    filepath.Join(home, ".kvgate", "history"),
	}
}

// Add records a command. Repeating the previous command adds nothing,
// and the oldest entry is dropped once maxSize is reached.
func (h *History) Add(cmd string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	if h.maxSize > 0 && len(h.entries) >= h.maxSize {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, cmd)
}

// Get returns the entry at index, 0 being the most recent.
func (h *History) Get(index int) string {
	pos := len(h.entries) - 1 - index
	if pos < 0 || pos >= len(h.entries) {
		return ""
	}
	return h.entries[pos]
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Load reads the history file, keeping only the newest maxSize lines.
// A missing file is not an error.
func (h *History) Load() error {
	raw, err := os.ReadFile(h.file)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if line != "" {
			h.entries = append(h.entries, line)
		}
	}
	if over := len(h.entries) - h.maxSize; over > 0 {
		h.entries = h.entries[over:]
	}
	return nil
}

// Save writes the history file, creating its directory if needed. The
// file can contain AUTH lines, so it is not group or world readable.
func (h *History) Save() error {
	if err := os.MkdirAll(filepath.Dir(h.file), 0700); err != nil {
		return err
	}
	var out strings.Builder
	for _, entry := range h.entries {
		out.WriteString(entry)
		out.WriteByte('\n')
	}
	return os.WriteFile(h.file, []byte(out.String()), 0600)
}
