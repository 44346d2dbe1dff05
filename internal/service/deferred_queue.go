package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const deferredActionTimeout = 30 * time.Second

// deferredAction is one named side effect queued during event
// processing and executed only after the database commit.
type deferredAction struct {
	name string
	fn   func(ctx context.Context)
}

// DeferredQueue collects side effects (notifications, CRM sync, audit)
// while the domain mutation is in flight and drains them after commit.
// A rolled-back transaction abandons the queue, so side effects never
// fire for state that was not persisted.
type DeferredQueue struct {
	actions []deferredAction
	log     zerolog.Logger
}

// NewDeferredQueue creates an empty queue.
func NewDeferredQueue(log zerolog.Logger) *DeferredQueue {
	return &DeferredQueue{log: log}
}

// Add appends an action. Actions run in FIFO order on Drain.
func (q *DeferredQueue) Add(name string, fn func(ctx context.Context)) {
	q.actions = append(q.actions, deferredAction{name: name, fn: fn})
}

// Len returns the number of queued actions.
func (q *DeferredQueue) Len() int {
	return len(q.actions)
}

// Drain executes every queued action in order. Each action gets its own
// timeout and panic isolation: one failing side effect never blocks or
// aborts the rest, and failures are logged, not returned. The domain
// mutation is already committed by the time Drain runs.
func (q *DeferredQueue) Drain(ctx context.Context) {
	for _, a := range q.actions {
		q.run(ctx, a)
	}
	q.actions = nil
}

func (q *DeferredQueue) run(ctx context.Context, a deferredAction) {
	actionCtx, cancel := context.WithTimeout(ctx, deferredActionTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q.log.Error().
				Str("action", a.name).
				Interface("panic", r).
				Msg("deferred action panicked")
		}
	}()

	a.fn(actionCtx)
}
