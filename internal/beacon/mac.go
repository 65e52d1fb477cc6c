package beacon

import (
	"encoding/binary"

	"github.com/unicornultrafoundation/p2pcore/internal/cryptocore"
)

// ComputeTier2MAC computes HMAC-SHA256(teslaKey, TruncID||PoW||Nonce)
// truncated to 4 bytes, authenticating a Tier-2 beacon under
// the sender's current micro-TESLA epoch key.
func ComputeTier2MAC(truncID uint16, pow [3]byte, nonce uint32, teslaKey cryptocore.Sha256Digest) [4]byte {
	buf := make([]byte, 9)
	binary.BigEndian.PutUint16(buf[0:2], truncID)
	copy(buf[2:5], pow[:])
	binary.BigEndian.PutUint32(buf[5:9], nonce)

	mac := cryptocore.HMACSHA256(teslaKey[:], buf)
	var out [4]byte
	copy(out[:], mac[:4])
	return out
}

// VerifyTier2MAC recomputes the MAC and checks it matches.
func VerifyTier2MAC(truncID uint16, pow [3]byte, nonce uint32, teslaKey cryptocore.Sha256Digest, mac [4]byte) bool {
	computed := ComputeTier2MAC(truncID, pow, nonce, teslaKey)
	return computed == mac
}
