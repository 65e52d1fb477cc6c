// Package beacon implements the tiered proximity beacon discovery pipeline:
// wire encoding (this file), micro-PoW, micro-TESLA, ephemeral IDs, the
// three-stage filter, Trickle timers, RSSI smoothing, Bayesian presence
// aggregation, and the two-layer peer store. The wire format follows a
// fixed-header-plus-payload style with big-endian fields and a tag byte
// selecting the frame's tier.
package beacon

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/unicornultrafoundation/p2pcore/internal/envelope"
	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

// Tier identifies which beacon wire format a frame uses.
type Tier uint8

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

func (t Tier) String() string {
	switch t {
	case Tier1:
		return "tier1"
	case Tier2:
		return "tier2"
	case Tier3:
		return "tier3"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

const (
	// tierTagMagic is the fixed high nibble of every tier tag byte: 0xD0 | tierIndex.
	tierTagMagic = 0xD0
	tierTagMask  = 0xFC

	// Tier1Size is the fixed Tier-1 frame size in bytes.
	Tier1Size = 10
	// Tier2Size is the fixed Tier-2 frame size in bytes.
	Tier2Size = 32
	// Tier3MinSize is the minimum Tier-3 frame size in bytes.
	Tier3MinSize = 145

	capBloomSize = 10
)

// tierTagByte encodes t as its 0xD0|tierIndex tag byte, where tierIndex is
// the 0-based wire index (tier-1 -> 0xD0, tier-2 -> 0xD1, tier-3 -> 0xD2).
func tierTagByte(t Tier) byte {
	return tierTagMagic | byte(t-1)
}

// tierFromTag recovers the Tier from a tag byte's low bits.
func tierFromTag(tag byte) Tier {
	return Tier(tag&0x03) + 1
}

// BeaconPeerRecordDomain is the domain-separation string for sealing a
// BeaconPeerRecord inside an Envelope.
const BeaconPeerRecordDomain = "p2p-beacon-peer-record"

// BeaconPeerRecordCodec is the multihash-style codec tag for a
// BeaconPeerRecord payload.
const BeaconPeerRecordCodec envelope.Codec = 0x03B0

// DefaultTier3MinimumSize is conservative for typical Ed25519 PeerIDs;
// larger identity keys may require a larger configured threshold via
// EncoderConfig.
const DefaultTier3MinimumSize = Tier3MinSize

var (
	ErrPayloadTooSmall   = errors.New("beacon: no tier fits in maxBeaconSize")
	ErrInvalidFormat     = errors.New("beacon: invalid or truncated beacon frame")
	ErrRecordCreationFailed = errors.New("beacon: failed to create signed peer record")
)

// Tier1Frame is the 10-byte beacon: Tag(1) | TruncID(2) | PoW(3) | Nonce(4).
type Tier1Frame struct {
	TruncID uint16
	PoW     [3]byte
	Nonce   uint32
}

// Encode serializes a Tier-1 frame.
func (f Tier1Frame) Encode() []byte {
	buf := make([]byte, Tier1Size)
	buf[0] = tierTagByte(Tier1)
	binary.BigEndian.PutUint16(buf[1:3], f.TruncID)
	copy(buf[3:6], f.PoW[:])
	binary.BigEndian.PutUint32(buf[6:10], f.Nonce)
	return buf
}

// DecodeTier1 parses a Tier-1 frame.
func DecodeTier1(buf []byte) (Tier1Frame, error) {
	var f Tier1Frame
	if len(buf) != Tier1Size {
		return f, ErrInvalidFormat
	}
	if buf[0]&tierTagMask != tierTagMagic || tierFromTag(buf[0]) != Tier1 {
		return f, ErrInvalidFormat
	}
	f.TruncID = binary.BigEndian.Uint16(buf[1:3])
	copy(f.PoW[:], buf[3:6])
	f.Nonce = binary.BigEndian.Uint32(buf[6:10])
	return f, nil
}

// Tier2Frame is the 32-byte beacon:
// Tag(1) | TruncID(2) | PoW(3) | Nonce(4) | MAC(4) | PrevKey(8) | CapBloom(10).
type Tier2Frame struct {
	TruncID  uint16
	PoW      [3]byte
	Nonce    uint32
	MAC      [4]byte
	PrevKey  [8]byte
	CapBloom [capBloomSize]byte
}

// Encode serializes a Tier-2 frame. CapBloom is zero-padded or truncated to
// capBloomSize by the caller via NewTier2CapBloom.
func (f Tier2Frame) Encode() []byte {
	buf := make([]byte, Tier2Size)
	buf[0] = tierTagByte(Tier2)
	binary.BigEndian.PutUint16(buf[1:3], f.TruncID)
	copy(buf[3:6], f.PoW[:])
	binary.BigEndian.PutUint32(buf[6:10], f.Nonce)
	copy(buf[10:14], f.MAC[:])
	copy(buf[14:22], f.PrevKey[:])
	copy(buf[22:32], f.CapBloom[:])
	return buf
}

// DecodeTier2 parses a Tier-2 frame.
func DecodeTier2(buf []byte) (Tier2Frame, error) {
	var f Tier2Frame
	if len(buf) != Tier2Size {
		return f, ErrInvalidFormat
	}
	if buf[0]&tierTagMask != tierTagMagic || tierFromTag(buf[0]) != Tier2 {
		return f, ErrInvalidFormat
	}
	f.TruncID = binary.BigEndian.Uint16(buf[1:3])
	copy(f.PoW[:], buf[3:6])
	f.Nonce = binary.BigEndian.Uint32(buf[6:10])
	copy(f.MAC[:], buf[10:14])
	copy(f.PrevKey[:], buf[14:22])
	copy(f.CapBloom[:], buf[22:32])
	return f, nil
}

// NewTier2CapBloom zero-pads or truncates raw to the fixed CapBloom size.
func NewTier2CapBloom(raw []byte) [capBloomSize]byte {
	var out [capBloomSize]byte
	n := copy(out[:], raw)
	_ = n
	return out
}

// Tier3Frame is the variable-length signed beacon:
// Tag(1) | PeerIDLen(2) | PeerID | Nonce(4) | EnvelopeLen(2) | Envelope.
type Tier3Frame struct {
	PeerID   identity.PeerID
	Nonce    uint32
	Envelope *envelope.Envelope
}

// Encode serializes a Tier-3 frame.
func (f Tier3Frame) Encode() ([]byte, error) {
	envBytes := f.Envelope.Marshal()
	if len(f.PeerID) > 0xFFFF || len(envBytes) > 0xFFFF {
		return nil, ErrInvalidFormat
	}
	buf := make([]byte, 0, 1+2+len(f.PeerID)+4+2+len(envBytes))
	buf = append(buf, tierTagByte(Tier3))
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(f.PeerID)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, f.PeerID...)
	var nonceBuf [4]byte
	binary.BigEndian.PutUint32(nonceBuf[:], f.Nonce)
	buf = append(buf, nonceBuf[:]...)
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(envBytes)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, envBytes...)
	return buf, nil
}

// DecodeTier3 parses a Tier-3 frame.
func DecodeTier3(buf []byte) (Tier3Frame, error) {
	var f Tier3Frame
	if len(buf) < 1+2+4+2 {
		return f, ErrInvalidFormat
	}
	if buf[0]&tierTagMask != tierTagMagic || tierFromTag(buf[0]) != Tier3 {
		return f, ErrInvalidFormat
	}
	pos := 1
	peerIDLen := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
	pos += 2
	if len(buf) < pos+peerIDLen+4+2 {
		return f, ErrInvalidFormat
	}
	f.PeerID = identity.PeerID(append([]byte(nil), buf[pos:pos+peerIDLen]...))
	pos += peerIDLen
	f.Nonce = binary.BigEndian.Uint32(buf[pos : pos+4])
	pos += 4
	envLen := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
	pos += 2
	if len(buf) != pos+envLen {
		return f, ErrInvalidFormat
	}
	env, err := envelope.Unmarshal(buf[pos : pos+envLen])
	if err != nil {
		return f, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	f.Envelope = env
	return f, nil
}

// DecodedBeacon is the tagged union of decoded tier frames, returned by
// Decode after inspecting the tag byte.
type DecodedBeacon struct {
	Tier   Tier
	Tier1  *Tier1Frame
	Tier2  *Tier2Frame
	Tier3  *Tier3Frame
}

// Decode inspects buf's tag byte and dispatches to the matching tier
// decoder.
func Decode(buf []byte) (DecodedBeacon, error) {
	var out DecodedBeacon
	if len(buf) == 0 {
		return out, ErrInvalidFormat
	}
	if buf[0]&tierTagMask != tierTagMagic {
		return out, ErrInvalidFormat
	}
	switch tierFromTag(buf[0]) {
	case Tier1:
		f, err := DecodeTier1(buf)
		if err != nil {
			return out, err
		}
		out.Tier, out.Tier1 = Tier1, &f
	case Tier2:
		f, err := DecodeTier2(buf)
		if err != nil {
			return out, err
		}
		out.Tier, out.Tier2 = Tier2, &f
	case Tier3:
		f, err := DecodeTier3(buf)
		if err != nil {
			return out, err
		}
		out.Tier, out.Tier3 = Tier3, &f
	default:
		return out, ErrInvalidFormat
	}
	return out, nil
}

// EncoderConfig parameterizes tier selection and sizing thresholds.
type EncoderConfig struct {
	// Tier3MinimumSize overrides DefaultTier3MinimumSize for deployments
	// with larger identity keys.
	Tier3MinimumSize int
}

// SelectTier picks the highest tier that fits within maxBeaconSize:
// tier-3 if it meets the minimum size, else tier-2 if >= 32B, else tier-1
// if >= 10B, else ErrPayloadTooSmall.
func (c EncoderConfig) SelectTier(maxBeaconSize int) (Tier, error) {
	tier3Min := c.Tier3MinimumSize
	if tier3Min == 0 {
		tier3Min = DefaultTier3MinimumSize
	}
	switch {
	case maxBeaconSize >= tier3Min:
		return Tier3, nil
	case maxBeaconSize >= Tier2Size:
		return Tier2, nil
	case maxBeaconSize >= Tier1Size:
		return Tier1, nil
	default:
		return 0, ErrPayloadTooSmall
	}
}
