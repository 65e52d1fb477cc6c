package beacon

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrickleTimerDoublesOnEndOfInterval(t *testing.T) {
	now := time.Now()
	timer := NewTrickleTimer(time.Second, 30*time.Second, 2, now)

	require.Equal(t, time.Second, timer.CurrentInterval())
	timer.EndOfInterval(now)
	require.Equal(t, 2*time.Second, timer.CurrentInterval())
	timer.EndOfInterval(now)
	require.Equal(t, 4*time.Second, timer.CurrentInterval())
}

func TestTrickleTimerCapsAtImax(t *testing.T) {
	now := time.Now()
	timer := NewTrickleTimer(10*time.Second, 15*time.Second, 1, now)
	timer.EndOfInterval(now)
	require.Equal(t, 15*time.Second, timer.CurrentInterval())
}

func TestTrickleTimerInconsistentResets(t *testing.T) {
	now := time.Now()
	timer := NewTrickleTimer(time.Second, 30*time.Second, 1, now)
	timer.EndOfInterval(now)
	timer.EndOfInterval(now)
	require.Greater(t, timer.CurrentInterval(), time.Second)

	timer.RecordInconsistent(now)
	require.Equal(t, time.Second, timer.CurrentInterval())
}

func TestTrickleTimerTransmitsBelowConsistencyThreshold(t *testing.T) {
	now := time.Now()
	timer := NewTrickleTimer(time.Second, 30*time.Second, 2, now)
	timer.RecordConsistent()
	require.True(t, timer.EndOfInterval(now)) // 1 < k=2
}

func TestTrickleTimerSuppressesAboveConsistencyThreshold(t *testing.T) {
	now := time.Now()
	timer := NewTrickleTimer(time.Second, 30*time.Second, 2, now)
	timer.RecordConsistent()
	timer.RecordConsistent()
	require.False(t, timer.EndOfInterval(now)) // 2 >= k=2
}

func TestBLESchedulerIndependentChannels(t *testing.T) {
	now := time.Now()
	sched := NewBLEScheduler(time.Second, 10*time.Second, 1, now, rand.New(rand.NewSource(1)))

	sched.Timer(BLEChannel37).RecordConsistent()
	shouldTx, backoff := sched.EndOfInterval(BLEChannel37, now)
	require.False(t, shouldTx)
	require.Zero(t, backoff)

	shouldTx, backoff = sched.EndOfInterval(BLEChannel38, now)
	require.True(t, shouldTx)
	require.Less(t, backoff, SpearPPRMaxBackoff)
}
