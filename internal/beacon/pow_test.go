package beacon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolveAndVerifyPoW(t *testing.T) {
	const difficulty = 8 // small difficulty keeps the brute force fast
	pow, found := SolvePoW(0x1234, 0xAABBCCDD, difficulty)
	require.True(t, found)
	require.True(t, VerifyPoW(0x1234, 0xAABBCCDD, pow, difficulty))
}

func TestVerifyPoWRejectsWrongTruncID(t *testing.T) {
	const difficulty = 8
	pow, found := SolvePoW(0x1234, 1, difficulty)
	require.True(t, found)
	require.False(t, VerifyPoW(0x5678, 1, pow, difficulty))
}

func TestVerifyPoWRejectsWrongNonce(t *testing.T) {
	const difficulty = 8
	pow, found := SolvePoW(0x1234, 1, difficulty)
	require.True(t, found)
	require.False(t, VerifyPoW(0x1234, 2, pow, difficulty))
}

func TestVerifyPoWZeroDifficultyAcceptsAnyCandidate(t *testing.T) {
	require.True(t, VerifyPoW(0x1234, 1, [3]byte{0xFF, 0xFF, 0xFF}, 0))
}

func TestLeadingZeroBits(t *testing.T) {
	var d [32]byte
	require.Equal(t, 256, leadingZeroBits(d))

	d[0] = 0x0F
	require.Equal(t, 4, leadingZeroBits(d))

	d[0] = 0xFF
	require.Equal(t, 0, leadingZeroBits(d))
}
