package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeferredQueue_DrainsFIFO(t *testing.T) {
	q := NewDeferredQueue(newTestLogger())

	var order []string
	q.Add("first", func(ctx context.Context) { order = append(order, "first") })
	q.Add("second", func(ctx context.Context) { order = append(order, "second") })
	q.Add("third", func(ctx context.Context) { order = append(order, "third") })

	assert.Equal(t, 3, q.Len())
	q.Drain(context.Background())

	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Zero(t, q.Len(), "drain empties the queue")
}

func TestDeferredQueue_NothingRunsBeforeDrain(t *testing.T) {
	q := NewDeferredQueue(newTestLogger())

	ran := false
	q.Add("side effect", func(ctx context.Context) { ran = true })

	assert.False(t, ran, "queued actions must not run until drained")
}

func TestDeferredQueue_PanicIsolation(t *testing.T) {
	q := NewDeferredQueue(newTestLogger())

	var order []string
	q.Add("panicking", func(ctx context.Context) { panic("boom") })
	q.Add("survivor", func(ctx context.Context) { order = append(order, "survivor") })

	assert.NotPanics(t, func() { q.Drain(context.Background()) })
	assert.Equal(t, []string{"survivor"}, order, "a panicking action must not block the rest")
}

func TestDeferredQueue_ActionsGetDeadlineContext(t *testing.T) {
	q := NewDeferredQueue(newTestLogger())

	var hasDeadline bool
	q.Add("check deadline", func(ctx context.Context) {
		_, hasDeadline = ctx.Deadline()
	})
	q.Drain(context.Background())

	assert.True(t, hasDeadline, "each action runs under its own deadline")
}

func TestDeferredQueue_AbandonedQueueNeverRuns(t *testing.T) {
	q := NewDeferredQueue(newTestLogger())

	ran := false
	q.Add("side effect", func(ctx context.Context) { ran = true })

	// Simulates the rollback path: the queue goes out of scope without
	// Drain ever being called.
	q = nil
	_ = q
	assert.False(t, ran)
}
