package pipeline

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// panicPause is how long a worker sleeps after recovering from a panic, so a
// hot panic loop cannot spin the CPU.
const panicPause = time.Second

// Worker is the generic pipeline stage: a loop bound to one input channel
// and one transform function. Every stage — translation, synthesis,
// playback — is an instance of this loop; only the transform differs.
//
// The loop never dies on its own: transform errors are logged and the next
// item is taken, panics are recovered. It exits only when ctx is cancelled
// or the input channel closes.
type Worker[T any] struct {
	name string
	in   <-chan T
	fn   func(ctx context.Context, item T) error
}

// NewWorker binds fn to the input channel in. The name labels log records.
func NewWorker[T any](name string, in <-chan T, fn func(context.Context, T) error) *Worker[T] {
	return &Worker[T]{name: name, in: in, fn: fn}
}

// Run consumes items until ctx is cancelled or the input channel closes.
func (w *Worker[T]) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-w.in:
			if !ok {
				return
			}
			w.handle(ctx, item)
		}
	}
}

func (w *Worker[T]) handle(ctx context.Context, item T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline worker panicked",
				"worker", w.name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			select {
			case <-ctx.Done():
			case <-time.After(panicPause):
			}
		}
	}()

	if err := w.fn(ctx, item); err != nil && ctx.Err() == nil {
		slog.Error("pipeline stage failed", "worker", w.name, "err", err)
	}
}

// Send blocks until out accepts item or ctx is cancelled, and reports whether
// the item was delivered. Stages hand off to the next queue through Send so
// backpressure propagates without ever busy-waiting.
func Send[T any](ctx context.Context, out chan<- T, item T) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- item:
		return true
	}
}
