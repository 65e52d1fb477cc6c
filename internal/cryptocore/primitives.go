// Package cryptocore collects the low-level cryptographic primitives shared
// by the beacon, Noise, and private-network layers: hashing, HKDF, AEAD,
// X25519 key agreement, and the Salsa20/XSalsa20 stream core.
package cryptocore

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/hkdf"
)

// ErrShortBuffer is returned when a decode target is too small for the
// requested output length.
var ErrShortBuffer = errors.New("cryptocore: short buffer")

// Sha256Digest names a 32-byte SHA-256 output, used wherever a digest is
// passed around as a value (hash chains, commitments) rather than raw bytes.
type Sha256Digest = [32]byte

// SHA256 hashes data in one shot.
func SHA256(data ...[]byte) Sha256Digest {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var out Sha256Digest
	copy(out[:], h.Sum(nil))
	return out
}

// HMACSHA256 computes HMAC-SHA256(key, data).
func HMACSHA256(key, data []byte) Sha256Digest {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	var out Sha256Digest
	copy(out[:], mac.Sum(nil))
	return out
}

// HKDFSHA256 derives outLen bytes from ikm using HKDF-SHA256 with the given
// salt and info. Used throughout BeaconCore (day seeds, ephIDs) and NoiseCore
// (mixKey, split).
func HKDFSHA256(salt, ikm, info []byte, outLen int) ([]byte, error) {
	r := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, outLen)
	if _, err := readFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readFull(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, errors.New("cryptocore: hkdf stalled")
		}
	}
	return total, nil
}
