package executor

import (
	"github.com/joshuapare/kcore/task"
)

// Simple polls its tasks round-robin with a no-op waker until all of them
// complete. It busy-loops on pending tasks, so it is only useful for tasks
// that make progress without being woken.
type Simple struct {
	queue []*task.Task
	polls uint64
}

// NewSimple returns an empty Simple executor.
func NewSimple() *Simple {
	return &Simple{}
}

// Spawn queues t.
func (s *Simple) Spawn(t *task.Task) {
	s.queue = append(s.queue, t)
}

// Run polls until every task is done.
func (s *Simple) Run() {
	cx := task.NewContext(task.NoopWaker())
	for len(s.queue) > 0 {
		t := s.queue[0]
		s.queue = s.queue[1:]
		s.polls++
		if t.Poll(cx) == task.Pending {
			s.queue = append(s.queue, t)
		}
	}
}

// Polls returns the number of polls performed.
func (s *Simple) Polls() uint64 { return s.polls }
