package poller

import (
	"sync"
	"time"

	"github.com/wboerner/archivar/internal/pipeline"
)

// State describes what the poller is currently doing.
type State string

const (
	StateStopped State = "stopped"
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// Status is a point-in-time snapshot of the poller.
type Status struct {
	State       State   `json:"state"`
	PauseReason string  `json:"pause_reason,omitempty"`
	LastError   *string `json:"last_error,omitempty"`

	Cycles    int64 `json:"cycles"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Skipped   int64 `json:"skipped"`

	LastCycleAt        *time.Time `json:"last_cycle_at,omitempty"`
	LastCycleDocuments int        `json:"last_cycle_documents"`
}

// tracker accumulates counters across cycles behind a single mutex.
type tracker struct {
	mu sync.Mutex
	s  Status
}

func newTracker() *tracker {
	return &tracker{s: Status{State: StateStopped}}
}

func (t *tracker) snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}

func (t *tracker) setState(state State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.State = state
	if state != StatePaused {
		t.s.PauseReason = ""
	}
}

func (t *tracker) pause(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.State = StatePaused
	t.s.PauseReason = reason
}

func (t *tracker) paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s.State == StatePaused
}

func (t *tracker) cycleStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.State = StateRunning
}

func (t *tracker) cycleFinished(documents int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	t.s.Cycles++
	t.s.LastCycleAt = &now
	t.s.LastCycleDocuments = documents

	if err != nil {
		message := err.Error()
		t.s.LastError = &message
	} else {
		t.s.LastError = nil
	}

	if t.s.State == StateRunning {
		t.s.State = StateIdle
	}
}

func (t *tracker) documentDone(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch status {
	case pipeline.StatusError:
		t.s.Failed++
	case pipeline.StatusSkipped:
		t.s.Skipped++
	default:
		t.s.Processed++
	}
}
