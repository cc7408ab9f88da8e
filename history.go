// FILE: lixenwraith/propcfg/history.go
package propcfg

import "sync"

// History is the append-only log of every Delta produced by an engine
type History struct {
	mu     sync.Mutex
	deltas []*Delta
}

func (h *History) append(d *Delta) {
	h.mu.Lock()
	h.deltas = append(h.deltas, d)
	h.mu.Unlock()
}

// Deltas returns a copy of the log in order of occurrence
func (h *History) Deltas() []*Delta {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Delta(nil), h.deltas...)
}

// Len returns the number of recorded deltas
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.deltas)
}
