// Package scheduler provides delayed task execution behind a small interface
// so fixed-delay policies (screen-share stop -> camera restart, self-healing
// retries) can be driven deterministically in tests.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Real schedules tasks on the wall clock.
type Real struct{}

func NewReal() *Real {
	return &Real{}
}

func (r *Real) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

func (r *Real) Now() time.Time {
	return time.Now()
}

// Fake is a manual-advance scheduler for tests.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks map[int]fakeTask
}

type fakeTask struct {
	seq int
	due time.Time
	fn  func()
}

func NewFake() *Fake {
	return &Fake{
		now:   time.Unix(1700000000, 0),
		tasks: make(map[int]fakeTask),
	}
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	id := f.seq
	f.tasks[id] = fakeTask{seq: id, due: f.now.Add(d), fn: fn}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.tasks, id)
	}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake clock forward and runs every task that became due,
// in due order. Tasks scheduled by running tasks fire too if they fall
// within the advanced window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		var next *fakeTask
		for _, t := range f.dueTasks(target) {
			t := t
			next = &t
			break
		}
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		delete(f.tasks, next.seq)
		if next.due.After(f.now) {
			f.now = next.due
		}
		f.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of scheduled, not-yet-fired tasks.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *Fake) dueTasks(until time.Time) []fakeTask {
	var due []fakeTask
	for _, t := range f.tasks {
		if !t.due.After(until) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].seq < due[j].seq
		}
		return due[i].due.Before(due[j].due)
	})
	return due
}
