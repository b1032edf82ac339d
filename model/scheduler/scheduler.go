// Package scheduler provides the deferred-task executor behind the
// controller's timers. Time is virtual: it only moves when the owner calls
// AdvanceBy/AdvanceTo, which makes every timing-dependent procedure
// deterministic under test while the owning loop decides the real pace.
package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

// TaskID names a scheduled task. The zero value is never assigned.
type TaskID uint64

// InvalidTaskID is returned when nothing was scheduled.
const InvalidTaskID TaskID = 0

type task struct {
	id       TaskID
	when     time.Time
	seq      uint64
	period   time.Duration // 0 for one-shot tasks
	fn       func()
	canceled bool
	index    int
}

// taskQueue orders by (when, seq): ties fire in insertion order.
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].when.Equal(q[j].when) {
		return q[i].seq < q[j].seq
	}
	return q[i].when.Before(q[j].when)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// Scheduler is a single-threaded deferred-task executor over a virtual
// clock. Callbacks run on the goroutine that advances the clock and may
// schedule or cancel tasks freely.
type Scheduler struct {
	mu      sync.Mutex
	now     time.Time
	nextID  TaskID
	nextSeq uint64
	queue   taskQueue
	byID    map[TaskID]*task
}

// New returns a scheduler whose clock starts at the zero time.
func New() *Scheduler {
	return NewAt(time.Time{})
}

// NewAt returns a scheduler whose clock starts at the given instant.
func NewAt(start time.Time) *Scheduler {
	return &Scheduler{
		now:  start,
		byID: make(map[TaskID]*task),
	}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule runs fn once after delay.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) TaskID {
	return s.add(delay, 0, fn)
}

// SchedulePeriodic runs fn after initial, then every period.
func (s *Scheduler) SchedulePeriodic(initial, period time.Duration, fn func()) TaskID {
	return s.add(initial, period, fn)
}

func (s *Scheduler) add(delay, period time.Duration, fn func()) TaskID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.nextSeq++
	t := &task{
		id:     s.nextID,
		when:   s.now.Add(delay),
		seq:    s.nextSeq,
		period: period,
		fn:     fn,
	}
	heap.Push(&s.queue, t)
	s.byID[t.id] = t
	return t.id
}

// Cancel drops a pending task. Unknown ids are ignored; a callback already
// dispatched is not rolled back.
func (s *Scheduler) Cancel(id TaskID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return
	}
	t.canceled = true
	delete(s.byID, id)
}

// Pending returns the number of live scheduled tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// AdvanceBy moves the clock forward by d, firing every task that comes due
// on the way, in (time, insertion) order.
func (s *Scheduler) AdvanceBy(d time.Duration) {
	s.AdvanceTo(s.Now().Add(d))
}

// AdvanceTo moves the clock forward to target. Tasks scheduled by fired
// callbacks run in the same pass when they come due at or before target.
func (s *Scheduler) AdvanceTo(target time.Time) {
	for {
		t := s.popDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	s.mu.Lock()
	if target.After(s.now) {
		s.now = target
	}
	s.mu.Unlock()
}

// popDue removes and returns the earliest task due at or before target,
// advancing the clock to its fire time, or nil when none is due.
func (s *Scheduler) popDue(target time.Time) *task {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) > 0 {
		t := s.queue[0]
		if t.canceled {
			heap.Pop(&s.queue)
			continue
		}
		if t.when.After(target) {
			return nil
		}
		heap.Pop(&s.queue)
		if t.when.After(s.now) {
			s.now = t.when
		}
		if t.period > 0 {
			s.nextSeq++
			next := &task{
				id:     t.id,
				when:   t.when.Add(t.period),
				seq:    s.nextSeq,
				period: t.period,
				fn:     t.fn,
			}
			heap.Push(&s.queue, next)
			s.byID[t.id] = next
		} else {
			delete(s.byID, t.id)
		}
		return t
	}
	return nil
}
