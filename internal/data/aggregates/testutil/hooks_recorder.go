package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/contentline-backend/internal/data/aggregates"
)

// HooksRecorder captures aggregate hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts      []string
	Retries        []string
	LockContention []string
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var (
	_ aggregates.Hooks     = (*HooksRecorder)(nil)
	_ aggregates.LockHooks = (*HooksRecorder)(nil)
)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{
		Name:     name,
		Status:   status,
		Duration: dur,
	})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, name)
}

func (h *HooksRecorder) IncLockContention(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LockContention = append(h.LockContention, name)
}

// Statuses returns the recorded status of every observation of op, in order.
func (h *HooksRecorder) Statuses(op string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, ev := range h.Operations {
		if ev.Name == op {
			out = append(out, ev.Status)
		}
	}
	return out
}
