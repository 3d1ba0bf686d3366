package scheduler

import (
	"fmt"
	"testing"

	"github.com/reportmill/internal/models"
)

func TestRunHistoryCapAndOrder(t *testing.T) {
	t.Parallel()

	h := newRunHistory(historyCap)
	for i := 1; i <= 60; i++ {
		h.record(&models.ReportRunResult{ID: fmt.Sprintf("run-%d", i)})
	}

	runs := h.list()
	if len(runs) != 50 {
		t.Fatalf("expected history capped at 50, got %d", len(runs))
	}
	if runs[0].ID != "run-60" {
		t.Errorf("expected newest run first, got %s", runs[0].ID)
	}
	if runs[49].ID != "run-11" {
		t.Errorf("expected oldest surviving run to be run-11, got %s", runs[49].ID)
	}
}

func TestRunHistoryPartiallyFilled(t *testing.T) {
	t.Parallel()

	h := newRunHistory(historyCap)
	if got := h.list(); len(got) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(got))
	}

	h.record(&models.ReportRunResult{ID: "a"})
	h.record(&models.ReportRunResult{ID: "b"})

	runs := h.list()
	if len(runs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(runs))
	}
	if runs[0].ID != "b" || runs[1].ID != "a" {
		t.Errorf("expected newest-first order [b a], got [%s %s]", runs[0].ID, runs[1].ID)
	}
}

func TestRunHistoryPreload(t *testing.T) {
	t.Parallel()

	h := newRunHistory(historyCap)
	h.preload([]*models.ReportRunResult{{ID: "new"}, {ID: "old"}})

	runs := h.list()
	if len(runs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(runs))
	}
	if runs[0].ID != "new" {
		t.Errorf("expected preloaded order preserved, got %s first", runs[0].ID)
	}
}
