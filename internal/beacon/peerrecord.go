package beacon

import (
	"encoding/binary"
	"errors"

	"github.com/unicornultrafoundation/p2pcore/internal/envelope"
	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

// SealBeaconPeerRecord signs r under kp and the BeaconPeerRecordDomain,
// producing the Envelope a Tier-3 beacon carries.
func SealBeaconPeerRecord(kp *identity.KeyPair, r BeaconPeerRecord) *envelope.Envelope {
	return envelope.Seal(kp, BeaconPeerRecordDomain, BeaconPeerRecordCodec, encodeBeaconPeerRecord(r))
}

// encodeBeaconPeerRecord serializes a BeaconPeerRecord for sealing inside
// an Envelope: varint(len(peerID)) || peerID || seq(8BE) ||
// varint(addrCount) || per-address (varint(len(mediumID)) || mediumID ||
// varint(len(raw)) || raw).
func encodeBeaconPeerRecord(r BeaconPeerRecord) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	buf := make([]byte, 0, 64)

	n := binary.PutUvarint(lenBuf[:], uint64(len(r.PeerID)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, r.PeerID...)

	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], r.Seq)
	buf = append(buf, seqBuf[:]...)

	n = binary.PutUvarint(lenBuf[:], uint64(len(r.OpaqueAddresses)))
	buf = append(buf, lenBuf[:n]...)
	for _, addr := range r.OpaqueAddresses {
		n = binary.PutUvarint(lenBuf[:], uint64(len(addr.MediumID)))
		buf = append(buf, lenBuf[:n]...)
		buf = append(buf, addr.MediumID...)
		n = binary.PutUvarint(lenBuf[:], uint64(len(addr.Raw)))
		buf = append(buf, lenBuf[:n]...)
		buf = append(buf, addr.Raw...)
	}
	return buf
}

// decodeBeaconPeerRecord parses a BeaconPeerRecord previously produced by
// encodeBeaconPeerRecord.
func decodeBeaconPeerRecord(data []byte) (BeaconPeerRecord, error) {
	var r BeaconPeerRecord

	peerIDLen, n := binary.Uvarint(data)
	if n <= 0 {
		return r, errors.New("beacon: bad peer record peerID length")
	}
	data = data[n:]
	if uint64(len(data)) < peerIDLen+8 {
		return r, errors.New("beacon: truncated peer record")
	}
	r.PeerID = identity.PeerID(append([]byte(nil), data[:peerIDLen]...))
	data = data[peerIDLen:]

	r.Seq = binary.BigEndian.Uint64(data[:8])
	data = data[8:]

	count, n := binary.Uvarint(data)
	if n <= 0 {
		return r, errors.New("beacon: bad peer record address count")
	}
	data = data[n:]

	r.OpaqueAddresses = make([]OpaqueAddress, 0, count)
	for i := uint64(0); i < count; i++ {
		mediumLen, n := binary.Uvarint(data)
		if n <= 0 || uint64(len(data[n:])) < mediumLen {
			return r, errors.New("beacon: bad peer record address mediumID")
		}
		data = data[n:]
		mediumID := string(data[:mediumLen])
		data = data[mediumLen:]

		rawLen, n := binary.Uvarint(data)
		if n <= 0 || uint64(len(data[n:])) < rawLen {
			return r, errors.New("beacon: bad peer record address raw")
		}
		data = data[n:]
		raw := string(data[:rawLen])
		data = data[rawLen:]

		r.OpaqueAddresses = append(r.OpaqueAddresses, OpaqueAddress{MediumID: mediumID, Raw: raw})
	}
	return r, nil
}
