package scheduler

import (
	"github.com/reportmill/internal/models"
)

// historyCap bounds the in-memory run history.
const historyCap = 50

// runHistory is a fixed-capacity ring of run records, newest first. Record
// pushes to the front and evicts the oldest entry once full, in O(1).
type runHistory struct {
	slots []*models.ReportRunResult
	head  int
	size  int
}

func newRunHistory(capacity int) *runHistory {
	return &runHistory{slots: make([]*models.ReportRunResult, capacity)}
}

func (h *runHistory) record(run *models.ReportRunResult) {
	h.head = (h.head - 1 + len(h.slots)) % len(h.slots)
	h.slots[h.head] = run
	if h.size < len(h.slots) {
		h.size++
	}
}

// list returns the recorded runs newest-first.
func (h *runHistory) list() []*models.ReportRunResult {
	out := make([]*models.ReportRunResult, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.slots[(h.head+i)%len(h.slots)])
	}
	return out
}

// preload seeds the ring from persisted runs, given newest-first.
func (h *runHistory) preload(runs []*models.ReportRunResult) {
	for i := len(runs) - 1; i >= 0; i-- {
		h.record(runs[i])
	}
}
