package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	c := Fake(epoch)
	assert.Equal(t, epoch, c.Now())

	c.Advance(90 * time.Minute)
	assert.Equal(t, epoch.Add(90*time.Minute), c.Now())
}

func TestFakeAfterFiresAtDeadline(t *testing.T) {
	c := Fake(epoch)
	ch := c.After(3 * time.Second)
	require.Equal(t, 1, c.PendingWaiters())

	c.Advance(2 * time.Second)
	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}

	c.Advance(time.Second)
	select {
	case got := <-ch:
		assert.Equal(t, epoch.Add(3*time.Second), got)
	default:
		t.Fatal("did not fire at deadline")
	}
	assert.Zero(t, c.PendingWaiters())
}

func TestFakeAfterNonPositive(t *testing.T) {
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("zero duration should fire immediately")
	}
}

func TestWaitForWaiters(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-c.After(time.Second)
		close(done)
	}()

	c.WaitForWaiters(1)
	c.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter never released")
	}
}

func TestRealClock(t *testing.T) {
	c := Real()
	before := time.Now()
	assert.False(t, c.Now().Before(before))
	<-c.After(0)
}
