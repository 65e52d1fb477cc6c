package beacon

import (
	"encoding/binary"

	"github.com/unicornultrafoundation/p2pcore/internal/cryptocore"
)

// EphIDSize is the length in bytes of a derived ephemeral ID: it doubles
// as the 4-byte beacon nonce, so it is sized to match.
const EphIDSize = 4

const secondsPerDay = 86400

// EphIDGenerator derives a node's day seed and per-epoch ephemeral IDs from
// its identity private key (DP-3T-style forward-secure rotation).
// Deterministic given (keyPair, rotationInterval, referencePoint).
type EphIDGenerator struct {
	rotationIntervalSeconds int64
	referencePoint          int64 // Unix seconds
}

// NewEphIDGenerator constructs a generator rotating every rotationInterval
// seconds, with day/epoch boundaries measured from referencePoint.
func NewEphIDGenerator(rotationIntervalSeconds, referencePoint int64) *EphIDGenerator {
	return &EphIDGenerator{rotationIntervalSeconds: rotationIntervalSeconds, referencePoint: referencePoint}
}

// DayNumber returns floor((t-referencePoint)/86400s), clamped at 0.
func (g *EphIDGenerator) DayNumber(unixSeconds int64) uint32 {
	delta := unixSeconds - g.referencePoint
	if delta < 0 {
		return 0
	}
	return uint32(delta / secondsPerDay)
}

// EpochIndex returns floor(secondsIntoDay/intervalSec) mod
// floor(86400/intervalSec).
func (g *EphIDGenerator) EpochIndex(unixSeconds int64) int {
	delta := unixSeconds - g.referencePoint
	if delta < 0 {
		delta = 0
	}
	secondsIntoDay := delta % secondsPerDay
	epochsPerDay := secondsPerDay / g.rotationIntervalSeconds
	idx := (secondsIntoDay / g.rotationIntervalSeconds) % epochsPerDay
	return int(idx)
}

// DaySeed derives dayNum's seed: HKDF-SHA256(ikm=identityKey, info="day"||dayNum(4BE), len=32).
func (g *EphIDGenerator) DaySeed(identityKey []byte, dayNum uint32) ([32]byte, error) {
	var dayBuf [4]byte
	binary.BigEndian.PutUint32(dayBuf[:], dayNum)
	info := append([]byte("day"), dayBuf[:]...)
	out, err := cryptocore.HKDFSHA256(nil, identityKey, info, 32)
	if err != nil {
		return [32]byte{}, err
	}
	var seed [32]byte
	copy(seed[:], out)
	return seed, nil
}

// EphID derives epochIdx's 4-byte ephemeral ID from a day seed:
// HKDF-SHA256(ikm=daySeed, info=epochIdx(4BE), len=4).
func EphID(daySeed [32]byte, epochIdx int) ([EphIDSize]byte, error) {
	var epochBuf [4]byte
	binary.BigEndian.PutUint32(epochBuf[:], uint32(epochIdx))
	out, err := cryptocore.HKDFSHA256(nil, daySeed[:], epochBuf[:], EphIDSize)
	if err != nil {
		return [EphIDSize]byte{}, err
	}
	var id [EphIDSize]byte
	copy(id[:], out)
	return id, nil
}

// TruncID returns ephID's first 2 bytes as a big-endian uint16.
func TruncID(ephID [EphIDSize]byte) uint16 {
	return binary.BigEndian.Uint16(ephID[0:2])
}

// EphIDNonce returns ephID interpreted as a big-endian uint32.
func EphIDNonce(ephID [EphIDSize]byte) uint32 {
	return binary.BigEndian.Uint32(ephID[:])
}

// ForTimestamp is a convenience wrapper computing the full
// (dayNumber, epochIndex, ephID, truncID, nonce) tuple for unixSeconds.
func (g *EphIDGenerator) ForTimestamp(identityKey []byte, unixSeconds int64) (dayNumber uint32, epochIndex int, ephID [EphIDSize]byte, truncID uint16, nonce uint32, err error) {
	dayNumber = g.DayNumber(unixSeconds)
	epochIndex = g.EpochIndex(unixSeconds)
	seed, err := g.DaySeed(identityKey, dayNumber)
	if err != nil {
		return
	}
	ephID, err = EphID(seed, epochIndex)
	if err != nil {
		return
	}
	truncID = TruncID(ephID)
	nonce = EphIDNonce(ephID)
	return
}
