package controller

import "github.com/google/uuid"

// Task is the handle for one asynchronously executing controller
// operation. The operation's events are published before the handle
// resolves, so an observer always sees the event before Wait returns.
// Tasks are not cancellable; callers wait or abandon the handle.
type Task[T any] struct {
	id     uuid.UUID
	done   chan struct{}
	result T
	err    error
}

func newTask[T any]() *Task[T] {
	return &Task[T]{id: uuid.New(), done: make(chan struct{})}
}

// ID returns the task's correlation ID.
func (t *Task[T]) ID() uuid.UUID { return t.id }

// Done is closed once the task has resolved.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Wait blocks until the task resolves and returns its outcome.
func (t *Task[T]) Wait() (T, error) {
	<-t.done
	return t.result, t.err
}

func (t *Task[T]) complete(result T, err error) {
	t.result = result
	t.err = err
	close(t.done)
}
