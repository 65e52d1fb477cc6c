package beacon

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

func TestTier1EncodeDecodeRoundTrip(t *testing.T) {
	f := Tier1Frame{TruncID: 0x1234, PoW: [3]byte{1, 2, 3}, Nonce: 0xAABBCCDD}
	buf := f.Encode()
	require.Len(t, buf, Tier1Size)

	decoded, err := DecodeTier1(buf)
	require.NoError(t, err)
	require.Equal(t, f, decoded)
}

func TestTier2EncodeDecodeRoundTrip(t *testing.T) {
	f := Tier2Frame{
		TruncID:  0xBEEF,
		PoW:      [3]byte{9, 8, 7},
		Nonce:    42,
		MAC:      [4]byte{1, 1, 1, 1},
		PrevKey:  [8]byte{2, 2, 2, 2, 2, 2, 2, 2},
		CapBloom: NewTier2CapBloom([]byte("capabilities")),
	}
	buf := f.Encode()
	require.Len(t, buf, Tier2Size)

	decoded, err := DecodeTier2(buf)
	require.NoError(t, err)
	require.Equal(t, f, decoded)
}

func TestTier3EncodeDecodeRoundTrip(t *testing.T) {
	kp, err := identity.Generate()
	require.NoError(t, err)

	record := BeaconPeerRecord{
		PeerID: kp.PeerID,
		Seq:    7,
		OpaqueAddresses: []OpaqueAddress{
			{MediumID: "ble", Raw: "aa:bb:cc"},
		},
	}
	env := SealBeaconPeerRecord(kp, record)

	f := Tier3Frame{PeerID: kp.PeerID, Nonce: 99, Envelope: env}
	buf, err := f.Encode()
	require.NoError(t, err)

	decoded, err := DecodeTier3(buf)
	require.NoError(t, err)
	require.True(t, decoded.PeerID.Equal(kp.PeerID))
	require.Equal(t, uint32(99), decoded.Nonce)

	payload, _, err := decoded.Envelope.Open(BeaconPeerRecordDomain)
	require.NoError(t, err)

	parsed, err := decodeBeaconPeerRecord(payload)
	require.NoError(t, err)
	require.True(t, parsed.PeerID.Equal(kp.PeerID))
	require.Equal(t, uint64(7), parsed.Seq)
}

func TestDecodeDispatchesOnTag(t *testing.T) {
	t1 := Tier1Frame{TruncID: 1, Nonce: 2}.Encode()
	out, err := Decode(t1)
	require.NoError(t, err)
	require.Equal(t, Tier1, out.Tier)
	require.NotNil(t, out.Tier1)
}

func TestDecodeRejectsBadTag(t *testing.T) {
	buf := make([]byte, Tier1Size)
	_, err := Decode(buf)
	require.ErrorIs(t, err, ErrInvalidFormat)
}

// TestTierTagBytes pins the wire tag bytes to the 0-based tierIndex scheme:
// tier-1 -> 0xD0, tier-2 -> 0xD1, tier-3 -> 0xD2. A tier-1 beacon's first
// byte must be exactly 0xD0, not 0xD1.
func TestTierTagBytes(t *testing.T) {
	t1 := Tier1Frame{TruncID: 1, Nonce: 2}.Encode()
	require.Equal(t, byte(0xD0), t1[0])

	t2 := Tier2Frame{TruncID: 1, Nonce: 2}.Encode()
	require.Equal(t, byte(0xD1), t2[0])

	kp, err := identity.Generate()
	require.NoError(t, err)
	record := BeaconPeerRecord{PeerID: kp.PeerID, Seq: 1}
	env := SealBeaconPeerRecord(kp, record)
	t3, err := Tier3Frame{PeerID: kp.PeerID, Nonce: 3, Envelope: env}.Encode()
	require.NoError(t, err)
	require.Equal(t, byte(0xD2), t3[0])

	out1, err := Decode(t1)
	require.NoError(t, err)
	require.Equal(t, Tier1, out1.Tier)

	out2, err := Decode(t2)
	require.NoError(t, err)
	require.Equal(t, Tier2, out2.Tier)

	out3, err := Decode(t3)
	require.NoError(t, err)
	require.Equal(t, Tier3, out3.Tier)
}

func TestSelectTier(t *testing.T) {
	cfg := EncoderConfig{}
	tier, err := cfg.SelectTier(200)
	require.NoError(t, err)
	require.Equal(t, Tier3, tier)

	tier, err = cfg.SelectTier(32)
	require.NoError(t, err)
	require.Equal(t, Tier2, tier)

	tier, err = cfg.SelectTier(10)
	require.NoError(t, err)
	require.Equal(t, Tier1, tier)

	_, err = cfg.SelectTier(5)
	require.ErrorIs(t, err, ErrPayloadTooSmall)
}
