// Package dashboard serves backtest runs over HTTP: archived summaries from
// the JSON archive and live progress for runs still executing.
package dashboard

import (
	"sync"
	"time"
)

// RunStatus is the lifecycle of a tracked run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// RunState is a point-in-time snapshot of a tracked run.
type RunState struct {
	ID         string    `json:"id"`
	Status     RunStatus `json:"status"`
	Percent    int       `json:"percent"`
	Phase      string    `json:"phase"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Tracker keeps live run progress for the dashboard. All methods are safe
// for concurrent use; the engine's progress callback feeds Progress from the
// run goroutine while HTTP handlers read snapshots.
type Tracker struct {
	mu   sync.RWMutex
	runs map[string]*RunState
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{runs: make(map[string]*RunState)}
}

// Begin registers a run as running.
func (t *Tracker) Begin(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[id] = &RunState{ID: id, Status: StatusRunning, StartedAt: time.Now()}
}

// Progress updates a running run's percent and phase. Unknown IDs are
// ignored.
func (t *Tracker) Progress(id string, percent int, phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.runs[id]; ok && r.Status == StatusRunning {
		r.Percent = percent
		r.Phase = phase
	}
}

// Complete marks a run finished.
func (t *Tracker) Complete(id string) {
	t.finish(id, StatusCompleted, "")
}

// Fail marks a run failed with its error message.
func (t *Tracker) Fail(id string, errMsg string) {
	t.finish(id, StatusFailed, errMsg)
}

func (t *Tracker) finish(id string, status RunStatus, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.runs[id]; ok {
		r.Status = status
		r.Error = errMsg
		r.FinishedAt = time.Now()
		if status == StatusCompleted {
			r.Percent = 100
		}
	}
}

// Get returns a copy of a run's state.
func (t *Tracker) Get(id string) (RunState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.runs[id]
	if !ok {
		return RunState{}, false
	}
	return *r, true
}

// List returns snapshots of every tracked run.
func (t *Tracker) List() []RunState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RunState, 0, len(t.runs))
	for _, r := range t.runs {
		out = append(out, *r)
	}
	return out
}

// ProgressFunc adapts the tracker to the engine's progress callback shape
// for one run.
func (t *Tracker) ProgressFunc(id string) func(percent int, phase string) {
	return func(percent int, phase string) {
		t.Progress(id, percent, phase)
	}
}
