package service

import "sync"

const outcomeWindowSize = 50

// outcomeWindow tracks the last N submission outcomes so the failure ratio
// gauge reflects recent behavior rather than all-time totals.
type outcomeWindow struct {
	mu      sync.Mutex
	results []bool
	next    int
	filled  int
}

func newOutcomeWindow(size int) *outcomeWindow {
	if size <= 0 {
		size = outcomeWindowSize
	}
	return &outcomeWindow{results: make([]bool, size)}
}

// record adds an outcome and returns the current failure ratio.
func (w *outcomeWindow) record(success bool) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.results[w.next] = success
	w.next = (w.next + 1) % len(w.results)
	if w.filled < len(w.results) {
		w.filled++
	}

	failures := 0
	for i := 0; i < w.filled; i++ {
		if !w.results[i] {
			failures++
		}
	}
	return float64(failures) / float64(w.filled)
}
