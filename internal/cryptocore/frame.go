package cryptocore

import (
	"encoding/binary"
	"errors"
)

// ErrFrameTooLarge is returned by EncodeFrame16 when the payload would not
// fit in a 2-byte big-endian length prefix.
var ErrFrameTooLarge = errors.New("cryptocore: frame exceeds 16-bit length prefix")

// EncodeFrame16 prepends a 2-byte big-endian length to payload. Used by
// Noise transport frames and as the wire format shared with Yamux-adjacent
// framing helpers.
func EncodeFrame16(payload []byte) ([]byte, error) {
	if len(payload) > 0xFFFF {
		return nil, ErrFrameTooLarge
	}
	out := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(out[:2], uint16(len(payload)))
	copy(out[2:], payload)
	return out, nil
}

// DecodeFrame16 reads a single length-prefixed frame from the front of buf,
// returning the payload and the number of bytes consumed. It returns
// ok=false if buf does not yet contain a complete frame.
func DecodeFrame16(buf []byte) (payload []byte, consumed int, ok bool) {
	if len(buf) < 2 {
		return nil, 0, false
	}
	n := int(binary.BigEndian.Uint16(buf[:2]))
	if len(buf) < 2+n {
		return nil, 0, false
	}
	return buf[2 : 2+n], 2 + n, true
}

// PutUvarint exposes the standard LEB128 varint encoder under the
// cryptocore package.
func PutUvarint(buf []byte, v uint64) int {
	return binary.PutUvarint(buf, v)
}

// MaxVarintLen64 is the maximum length in bytes of a 64-bit varint.
const MaxVarintLen64 = binary.MaxVarintLen64
