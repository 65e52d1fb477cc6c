package beacon

import (
	"encoding/binary"

	"github.com/unicornultrafoundation/p2pcore/internal/cryptocore"
)

// DefaultPoWDifficultyBits is the default number of required leading zero
// bits in a micro-PoW solution.
const DefaultPoWDifficultyBits = 16

// powInput builds the hash input TruncID(2BE) || Nonce(4BE) || Candidate(3).
func powInput(truncID uint16, nonce uint32, candidate [3]byte) []byte {
	buf := make([]byte, 9)
	binary.BigEndian.PutUint16(buf[0:2], truncID)
	binary.BigEndian.PutUint32(buf[2:6], nonce)
	copy(buf[6:9], candidate[:])
	return buf
}

// leadingZeroBits counts the number of leading zero bits across digest.
func leadingZeroBits(digest [32]byte) int {
	count := 0
	for _, b := range digest {
		if b == 0 {
			count += 8
			continue
		}
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			if b&mask != 0 {
				return count
			}
			count++
		}
	}
	return count
}

// SolvePoW brute-forces a 3-byte Candidate such that
// SHA256(TruncID||Nonce||Candidate) has at least difficultyBits leading
// zero bits, returning the winning candidate as the wire PoW field
//. Difficulty 0 accepts any candidate (including zero).
func SolvePoW(truncID uint16, nonce uint32, difficultyBits int) (pow [3]byte, found bool) {
	const space = 1 << 24
	for c := 0; c < space; c++ {
		var candidate [3]byte
		candidate[0] = byte(c >> 16)
		candidate[1] = byte(c >> 8)
		candidate[2] = byte(c)
		digest := cryptocore.SHA256(powInput(truncID, nonce, candidate))
		if leadingZeroBits(digest) >= difficultyBits {
			return candidate, true
		}
	}
	return pow, false
}

// VerifyPoW recomputes SHA256(TruncID||Nonce||Candidate) once and checks
// it clears difficultyBits leading zero bits.
func VerifyPoW(truncID uint16, nonce uint32, pow [3]byte, difficultyBits int) bool {
	digest := cryptocore.SHA256(powInput(truncID, nonce, pow))
	return leadingZeroBits(digest) >= difficultyBits
}
