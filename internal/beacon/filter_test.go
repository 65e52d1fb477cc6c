package beacon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBeaconFilterRejectsInvalidPoW(t *testing.T) {
	f := NewBeaconFilter(DefaultFilterConfig())
	reason := f.Accept(Candidate{PowValid: false, Now: time.Now()})
	require.Equal(t, RejectPoW, reason)
}

func TestBeaconFilterRateLimit(t *testing.T) {
	f := NewBeaconFilter(FilterConfig{MinInterval: 5 * time.Second, SybilWindow: time.Hour, SybilThreshold: 100})
	now := time.Now()

	c := Candidate{PowValid: true, HasTruncID: true, TruncID: 0x5678, MediumID: "ble", Now: now}
	require.Equal(t, RejectNone, f.Accept(c))

	c.Now = now.Add(100 * time.Millisecond)
	require.Equal(t, RejectRateLimit, f.Accept(c))

	c.Now = now.Add(6 * time.Second)
	require.Equal(t, RejectNone, f.Accept(c))
}

func TestBeaconFilterSybilThreshold(t *testing.T) {
	f := NewBeaconFilter(FilterConfig{MinInterval: 0, SybilWindow: time.Hour, SybilThreshold: 2})
	now := time.Now()
	fp := PhysicalFingerprint("radio-aa-bb")

	for i, truncID := range []uint16{0, 1, 2} {
		c := Candidate{
			PowValid: true, HasTruncID: true, TruncID: truncID,
			MediumID: "ble", HasFingerprint: true, Fingerprint: fp,
			Now: now.Add(time.Duration(i) * time.Millisecond),
		}
		reason := f.Accept(c)
		if i < 2 {
			require.Equal(t, RejectNone, reason, "iteration %d", i)
		} else {
			require.Equal(t, RejectSybil, reason, "iteration %d", i)
		}
	}
}

func TestBeaconFilterTier3BypassesRateAndSybil(t *testing.T) {
	f := NewBeaconFilter(DefaultFilterConfig())
	now := time.Now()
	c := Candidate{PowValid: true, HasTruncID: false, Now: now}
	require.Equal(t, RejectNone, f.Accept(c))
	require.Equal(t, RejectNone, f.Accept(c))
}
