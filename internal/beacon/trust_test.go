package beacon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrustScoreNFCAlwaysOne(t *testing.T) {
	require.Equal(t, 1.0, TrustScore(MediumNFC, nil))
}

func TestTrustScoreBLEMissingRSSIDefault(t *testing.T) {
	require.Equal(t, 0.5, TrustScore(MediumBLE, nil))
}

func TestTrustScoreBLEClamped(t *testing.T) {
	low := -200.0
	require.Equal(t, 0.3, TrustScore(MediumBLE, &low))
	high := 100.0
	require.Equal(t, 1.0, TrustScore(MediumBLE, &high))
}

func TestTrustScoreWifiDirect(t *testing.T) {
	rssi := -20.0
	require.InDelta(t, 0.8, Clamp((rssi+80)/60, 0.2, 0.8), 1e-9)
	require.Equal(t, 0.8, TrustScore(MediumWifiDirect, &rssi))
}

func TestTrustScoreUnknownMedium(t *testing.T) {
	require.Equal(t, 0.5, TrustScore(Medium("satellite"), nil))
}
