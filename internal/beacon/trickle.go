package beacon

import (
	"math/rand"
	"time"
)

// TrickleTimer implements the RFC 6206 adaptive interval algorithm used to
// pace beacon retransmission: doubling the interval under consistency,
// resetting to imin under inconsistency.
type TrickleTimer struct {
	imin, imax    time.Duration
	k             int
	current       time.Duration
	consistent    int
	intervalStart time.Time
}

// NewTrickleTimer constructs a timer starting at imin.
func NewTrickleTimer(imin, imax time.Duration, k int, now time.Time) *TrickleTimer {
	return &TrickleTimer{
		imin:          imin,
		imax:          imax,
		k:             k,
		current:       imin,
		intervalStart: now,
	}
}

// CurrentInterval returns the timer's current interval length.
func (t *TrickleTimer) CurrentInterval() time.Duration {
	return t.current
}

// RecordConsistent notes a consistency-confirming observation this interval.
func (t *TrickleTimer) RecordConsistent() {
	t.consistent++
}

// RecordInconsistent resets the timer to its minimum interval, per RFC 6206.
func (t *TrickleTimer) RecordInconsistent(now time.Time) {
	t.current = t.imin
	t.consistent = 0
	t.intervalStart = now
}

// EndOfInterval reports whether a transmission should occur this interval
// (true iff fewer than k consistency confirmations were seen), then
// doubles the interval (capped at imax) and resets the consistency counter
// for the next round.
func (t *TrickleTimer) EndOfInterval(now time.Time) (shouldTransmit bool) {
	shouldTransmit = t.consistent < t.k
	t.current *= 2
	if t.current > t.imax {
		t.current = t.imax
	}
	t.consistent = 0
	t.intervalStart = now
	return shouldTransmit
}

// BLEChannel identifies one of the three BLE advertising channels.
type BLEChannel int

const (
	BLEChannel37 BLEChannel = 37
	BLEChannel38 BLEChannel = 38
	BLEChannel39 BLEChannel = 39
)

// SpearPPRMaxBackoff is the maximum uniform random per-transmit backoff
// (Spear PPR) added on top of each BLE channel's Trickle decision.
const SpearPPRMaxBackoff = 50 * time.Millisecond

// BLEScheduler holds three independent TrickleTimers, one per advertising
// channel, and adds a uniform 0-50ms backoff to each transmit decision.
type BLEScheduler struct {
	timers map[BLEChannel]*TrickleTimer
	rng    *rand.Rand
}

// NewBLEScheduler constructs a scheduler with identical imin/imax/k seeding
// independent timers for channels 37, 38, and 39.
func NewBLEScheduler(imin, imax time.Duration, k int, now time.Time, rng *rand.Rand) *BLEScheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(now.UnixNano()))
	}
	return &BLEScheduler{
		timers: map[BLEChannel]*TrickleTimer{
			BLEChannel37: NewTrickleTimer(imin, imax, k, now),
			BLEChannel38: NewTrickleTimer(imin, imax, k, now),
			BLEChannel39: NewTrickleTimer(imin, imax, k, now),
		},
		rng: rng,
	}
}

// Timer returns the Trickle timer for the given channel.
func (s *BLEScheduler) Timer(ch BLEChannel) *TrickleTimer {
	return s.timers[ch]
}

// EndOfInterval evaluates ch's timer and, if it elects to transmit, returns
// a uniform-random backoff in [0, SpearPPRMaxBackoff).
func (s *BLEScheduler) EndOfInterval(ch BLEChannel, now time.Time) (shouldTransmit bool, backoff time.Duration) {
	timer := s.timers[ch]
	if timer == nil {
		return false, 0
	}
	shouldTransmit = timer.EndOfInterval(now)
	if shouldTransmit {
		backoff = time.Duration(s.rng.Int63n(int64(SpearPPRMaxBackoff)))
	}
	return shouldTransmit, backoff
}
