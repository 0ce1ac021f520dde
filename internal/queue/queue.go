package queue

import (
	"sync"

	"xengage/internal/model"
)

// Queue is the client's view of the server action queue. Between
// reconciliation ticks it carries the optimistic entries appended on
// dispatch; each tick replaces it wholesale with server truth, so
// unknown server entries appear and locally-held entries the server
// dropped disappear. The client never synthesizes a running transition.
type Queue struct {
	mu      sync.Mutex
	actions []model.QueuedAction
}

func New() *Queue { return &Queue{} }

// Append adds one entry, in the order the server returned it.
func (q *Queue) Append(a model.QueuedAction) {
	q.mu.Lock()
	q.actions = append(q.actions, a)
	q.mu.Unlock()
}

// MergeServer replaces the local view with the server's.
func (q *Queue) MergeServer(server []model.QueuedAction) {
	q.mu.Lock()
	q.actions = append([]model.QueuedAction(nil), server...)
	q.mu.Unlock()
}

// Items returns a copy of the current entries.
func (q *Queue) Items() []model.QueuedAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]model.QueuedAction(nil), q.actions...)
}

// Counts returns entry counts per status.
func (q *Queue) Counts() map[model.ActionStatus]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[model.ActionStatus]int)
	for _, a := range q.actions {
		out[a.Status]++
	}
	return out
}
