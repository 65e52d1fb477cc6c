package beacon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

func newTestIngest() *AggregationIngest {
	store := NewMemoryPeerStore()
	smoother := NewRSSISmoother(0)
	return NewAggregationIngest(store, smoother, nil)
}

func TestIngestTier1NewSightingThenUpdate(t *testing.T) {
	ingest := newTestIngest()
	now := time.Now()
	truncID := uint16(0xABCD)

	ingest.Ingest(BeaconDiscoveryEvent{
		Tier: Tier1, TruncID: &truncID,
		Source:    OpaqueAddress{MediumID: "ble", Raw: "aa"},
		Timestamp: now,
	})
	ev := <-ingest.Events()
	require.Equal(t, EventNewSighting, ev.Kind)
	require.Equal(t, truncID, ev.Sighting.TruncID)

	ingest.Ingest(BeaconDiscoveryEvent{
		Tier: Tier1, TruncID: &truncID,
		Source:    OpaqueAddress{MediumID: "ble", Raw: "bb"},
		Timestamp: now.Add(time.Second),
	})
	ev = <-ingest.Events()
	require.Equal(t, EventSightingUpdated, ev.Kind)
	require.Len(t, ev.Sighting.Addresses, 2)
}

func TestIngestTier1WithoutTruncIDIsSilentlyDropped(t *testing.T) {
	ingest := newTestIngest()
	ingest.Ingest(BeaconDiscoveryEvent{Tier: Tier1, Timestamp: time.Now()})
	select {
	case ev := <-ingest.Events():
		t.Fatalf("expected no event, got %+v", ev)
	default:
	}
}

func TestIngestTier3NewConfirmedAndPromotion(t *testing.T) {
	ingest := newTestIngest()
	kp, err := identity.Generate()
	require.NoError(t, err)

	now := time.Now()
	truncID := uint16(0x1111)

	// first establish an unconfirmed sighting for the same truncID
	ingest.Ingest(BeaconDiscoveryEvent{
		Tier: Tier1, TruncID: &truncID,
		Source:    OpaqueAddress{MediumID: "ble", Raw: "aa"},
		Timestamp: now,
	})
	<-ingest.Events() // drain NewSighting

	record := BeaconPeerRecord{PeerID: kp.PeerID, Seq: 1}
	env := SealBeaconPeerRecord(kp, record)
	ingest.Ingest(BeaconDiscoveryEvent{
		Tier: Tier3, TruncID: &truncID, FullPeerID: kp.PeerID,
		Source:    OpaqueAddress{MediumID: "ble", Raw: "aa"},
		Timestamp: now.Add(time.Second),
		Envelope:  env,
	})
	ev := <-ingest.Events()
	require.Equal(t, EventPromoted, ev.Kind)
	require.True(t, ev.Confirmed.PeerID.Equal(kp.PeerID))
}

func TestIngestTier3WrongPeerIDDropped(t *testing.T) {
	ingest := newTestIngest()
	kp, _ := identity.Generate()
	other, _ := identity.Generate()

	env := SealBeaconPeerRecord(kp, BeaconPeerRecord{PeerID: kp.PeerID, Seq: 1})
	ingest.Ingest(BeaconDiscoveryEvent{
		Tier: Tier3, FullPeerID: other.PeerID,
		Source:    OpaqueAddress{MediumID: "ble", Raw: "aa"},
		Timestamp: time.Now(),
		Envelope:  env,
	})
	select {
	case ev := <-ingest.Events():
		t.Fatalf("expected no event, got %+v", ev)
	default:
	}
}
