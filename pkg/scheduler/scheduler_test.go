package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeAfterFuncFiresOnAdvance(t *testing.T) {
	f := NewFake()
	fired := 0
	f.AfterFunc(time.Second, func() { fired++ })

	f.Advance(999 * time.Millisecond)
	assert.Equal(t, 0, fired)
	assert.Equal(t, 1, f.Pending())

	f.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, f.Pending())
}

func TestFakeCancelPreventsFiring(t *testing.T) {
	f := NewFake()
	fired := false
	cancel := f.AfterFunc(time.Second, func() { fired = true })

	cancel()
	f.Advance(2 * time.Second)
	assert.False(t, fired)
	assert.Equal(t, 0, f.Pending())
}

func TestFakeRunsTasksInDueOrder(t *testing.T) {
	f := NewFake()
	var order []string
	f.AfterFunc(3*time.Second, func() { order = append(order, "late") })
	f.AfterFunc(time.Second, func() { order = append(order, "early") })
	f.AfterFunc(2*time.Second, func() { order = append(order, "middle") })

	f.Advance(5 * time.Second)
	assert.Equal(t, []string{"early", "middle", "late"}, order)
}

func TestFakeChainedTasksFireWithinWindow(t *testing.T) {
	f := NewFake()
	var order []string
	f.AfterFunc(time.Second, func() {
		order = append(order, "first")
		f.AfterFunc(time.Second, func() { order = append(order, "second") })
	})

	f.Advance(3 * time.Second)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestFakeChainedTaskBeyondWindowStaysPending(t *testing.T) {
	f := NewFake()
	fired := false
	f.AfterFunc(time.Second, func() {
		f.AfterFunc(time.Hour, func() { fired = true })
	})

	f.Advance(2 * time.Second)
	assert.False(t, fired)
	assert.Equal(t, 1, f.Pending())
}

func TestFakeNowAdvances(t *testing.T) {
	f := NewFake()
	start := f.Now()
	f.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), f.Now())
}

func TestRealAfterFunc(t *testing.T) {
	r := NewReal()
	done := make(chan struct{})
	r.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never fired")
	}
}

func TestRealCancel(t *testing.T) {
	r := NewReal()
	fired := make(chan struct{}, 1)
	cancel := r.AfterFunc(50*time.Millisecond, func() { fired <- struct{}{} })
	cancel()

	select {
	case <-fired:
		t.Fatal("cancelled task fired")
	case <-time.After(100 * time.Millisecond):
	}
}
