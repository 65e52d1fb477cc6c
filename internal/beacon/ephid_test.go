package beacon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEphIDGeneratorDeterministic(t *testing.T) {
	ref := int64(1_700_000_000)
	g := NewEphIDGenerator(600, ref) // 600s = 10 minute epochs

	identityKey := []byte("test identity key material")

	_, _, ephA, _, _, err := g.ForTimestamp(identityKey, ref+3700)
	require.NoError(t, err)
	_, _, ephB, _, _, err := g.ForTimestamp(identityKey, ref+3700)
	require.NoError(t, err)
	require.Equal(t, ephA, ephB)
}

func TestEphIDGeneratorRotatesAtEpochBoundary(t *testing.T) {
	ref := int64(0)
	g := NewEphIDGenerator(600, ref)
	identityKey := []byte("key")

	_, epoch0, _, _, _, err := g.ForTimestamp(identityKey, 100)
	require.NoError(t, err)
	_, epoch1, _, _, _, err := g.ForTimestamp(identityKey, 700)
	require.NoError(t, err)
	require.NotEqual(t, epoch0, epoch1)
}

func TestEphIDGeneratorDayNumberClampedAtZero(t *testing.T) {
	g := NewEphIDGenerator(600, 1000)
	require.Equal(t, uint32(0), g.DayNumber(500)) // before referencePoint clamps to 0
}

func TestTruncIDAndNonceDerivation(t *testing.T) {
	id := [EphIDSize]byte{0x12, 0x34, 0x56, 0x78}
	require.Equal(t, uint16(0x1234), TruncID(id))
	require.Equal(t, uint32(0x12345678), EphIDNonce(id))
}
