package beacon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFreshnessFunctionEvaluate(t *testing.T) {
	f := FreshnessFunction{InitialWeight: 0.8, HalfLife: 60 * time.Second}
	require.InDelta(t, 0.8, f.Evaluate(0), 1e-9)
	require.InDelta(t, 0.4, f.Evaluate(60*time.Second), 1e-9)
	require.InDelta(t, 0.2, f.Evaluate(120*time.Second), 1e-9)
}

func TestFreshnessFunctionZeroHalfLife(t *testing.T) {
	f := FreshnessFunction{InitialWeight: 1.0, HalfLife: 0}
	require.Zero(t, f.Evaluate(time.Second))
}

func TestPresenceScoreEmptySetIsZero(t *testing.T) {
	require.Zero(t, PresenceScore(nil, time.Now()))
}

func TestPresenceScoreNoisyOr(t *testing.T) {
	now := time.Now()
	observations := []Observation{
		{Timestamp: now, FreshnessFunction: FreshnessFunction{InitialWeight: 0.5, HalfLife: time.Minute}},
		{Timestamp: now, FreshnessFunction: FreshnessFunction{InitialWeight: 0.5, HalfLife: time.Minute}},
	}
	// 1 - (1-0.5)*(1-0.5) = 0.75
	require.InDelta(t, 0.75, PresenceScore(observations, now), 1e-9)
}
