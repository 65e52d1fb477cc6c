package beacon

import (
	"time"

	"github.com/unicornultrafoundation/p2pcore/internal/envelope"
	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

// EventKind tags the outcome an AggregationIngest round published.
type EventKind string

const (
	EventNewSighting      EventKind = "NewSighting"
	EventSightingUpdated  EventKind = "SightingUpdated"
	EventNewConfirmed     EventKind = "NewConfirmed"
	EventConfirmedUpdated EventKind = "ConfirmedUpdated"
	EventPromoted         EventKind = "Promoted"
)

// Event is published on AggregationIngest's output stream.
type Event struct {
	Kind      EventKind
	Sighting  *UnconfirmedSighting
	Confirmed *ConfirmedPeerRecord
}

// BeaconDiscoveryEvent is the input to AggregationIngest: a filtered,
// decoded beacon sighting from any tier.
type BeaconDiscoveryEvent struct {
	Tier        Tier
	TruncID     *uint16
	FullPeerID  identity.PeerID
	Source      OpaqueAddress
	RSSI        *float64
	Fingerprint *PhysicalFingerprint
	Timestamp   time.Time
	Envelope    *envelope.Envelope
}

// AggregationIngest turns filtered BeaconDiscoveryEvents into store
// mutations and a single-consumer event stream.
type AggregationIngest struct {
	store     BeaconPeerStore
	smoother  *RSSISmoother
	freshness map[string]FreshnessFunction

	events chan Event
	done   chan struct{}
}

// NewAggregationIngest constructs a pipeline over store, using smoother
// for RSSI smoothing and freshnessByMedium for per-medium freshness
// functions (falling back to MediumFreshnessPresets when a medium is
// absent).
func NewAggregationIngest(store BeaconPeerStore, smoother *RSSISmoother, freshnessByMedium map[string]FreshnessFunction) *AggregationIngest {
	return &AggregationIngest{
		store:     store,
		smoother:  smoother,
		freshness: freshnessByMedium,
		events:    make(chan Event, 64),
		done:      make(chan struct{}),
	}
}

// Events returns the ingest pipeline's single-consumer output stream.
func (a *AggregationIngest) Events() <-chan Event {
	return a.events
}

// Shutdown closes the event stream, finishing it for its single consumer.
func (a *AggregationIngest) Shutdown() {
	close(a.done)
	close(a.events)
}

func (a *AggregationIngest) freshnessFor(mediumID string) FreshnessFunction {
	if f, ok := a.freshness[mediumID]; ok {
		return f
	}
	if f, ok := MediumFreshnessPresets[Medium(mediumID)]; ok {
		return f
	}
	return FreshnessFunction{}
}

// Ingest processes one BeaconDiscoveryEvent, mutating the store and
// publishing the resulting Event. It returns silently (no event) when the
// input is malformed; malformed input is dropped silently rather than surfaced as an error.
func (a *AggregationIngest) Ingest(ev BeaconDiscoveryEvent) {
	switch ev.Tier {
	case Tier1, Tier2:
		a.ingestLowTier(ev)
	case Tier3:
		a.ingestTier3(ev)
	}
}

func (a *AggregationIngest) publish(e Event) {
	select {
	case a.events <- e:
	case <-a.done:
	}
}

func (a *AggregationIngest) ingestLowTier(ev BeaconDiscoveryEvent) {
	if ev.TruncID == nil {
		return
	}
	truncID := *ev.TruncID

	var rssi float64
	if ev.RSSI != nil {
		rssi = a.smoother.Smooth(ev.Source.Raw, *ev.RSSI)
	}
	obs := Observation{
		Timestamp:         ev.Timestamp,
		MediumID:          ev.Source.MediumID,
		Address:           ev.Source,
		FreshnessFunction: a.freshnessFor(ev.Source.MediumID),
	}
	if ev.RSSI != nil {
		obs.RSSI = &rssi
	}

	existing := a.store.Sightings(truncID)
	if len(existing) > 0 {
		sighting := existing[0]
		sighting.Addresses = appendDedupAddress(sighting.Addresses, ev.Source)
		sighting.Observations = append(sighting.Observations, obs)
		sighting.PresenceScore = PresenceScore(sighting.Observations, ev.Timestamp)
		a.store.AddSighting(sighting)
		a.publish(Event{Kind: EventSightingUpdated, Sighting: sighting})
		return
	}

	sighting := &UnconfirmedSighting{
		TruncID:      truncID,
		Addresses:    []OpaqueAddress{ev.Source},
		Observations: []Observation{obs},
	}
	sighting.PresenceScore = PresenceScore(sighting.Observations, ev.Timestamp)
	a.store.AddSighting(sighting)
	a.publish(Event{Kind: EventNewSighting, Sighting: sighting})
}

func (a *AggregationIngest) ingestTier3(ev BeaconDiscoveryEvent) {
	if ev.Envelope == nil {
		return
	}
	payload, _, err := ev.Envelope.Open(BeaconPeerRecordDomain)
	if err != nil {
		return
	}
	record, err := decodeBeaconPeerRecord(payload)
	if err != nil {
		return
	}
	if !record.PeerID.Equal(ev.FullPeerID) {
		return
	}

	var rssi float64
	if ev.RSSI != nil {
		rssi = a.smoother.Smooth(ev.Source.Raw, *ev.RSSI)
	}
	obs := Observation{
		Timestamp:         ev.Timestamp,
		MediumID:          ev.Source.MediumID,
		Address:           ev.Source,
		FreshnessFunction: a.freshnessFor(ev.Source.MediumID),
	}
	if ev.RSSI != nil {
		obs.RSSI = &rssi
	}

	if existing, ok := a.store.Get(record.PeerID); ok {
		existing.Addresses = appendDedupAddress(existing.Addresses, ev.Source)
		existing.Observations = append(existing.Observations, obs)
		existing.PresenceScore = PresenceScore(existing.Observations, ev.Timestamp)
		existing.Epoch = record.Seq
		existing.Certificate = ev.Envelope
		a.store.Upsert(existing)
		a.publish(Event{Kind: EventConfirmedUpdated, Confirmed: existing})
		return
	}

	confirmed := &ConfirmedPeerRecord{
		PeerID:        record.PeerID,
		Addresses:     []OpaqueAddress{ev.Source},
		Observations:  []Observation{obs},
		Certificate:   ev.Envelope,
		Epoch:         record.Seq,
		ExpiresAt:     ev.Timestamp.Add(DefaultConfirmedTTL),
	}
	confirmed.PresenceScore = PresenceScore(confirmed.Observations, ev.Timestamp)

	if ev.TruncID != nil {
		if sightings := a.store.Sightings(*ev.TruncID); len(sightings) > 0 {
			a.store.PromoteSighting(*ev.TruncID, confirmed)
			a.publish(Event{Kind: EventPromoted, Confirmed: confirmed})
			return
		}
	}

	a.store.Upsert(confirmed)
	a.publish(Event{Kind: EventNewConfirmed, Confirmed: confirmed})
}

func appendDedupAddress(addrs []OpaqueAddress, addr OpaqueAddress) []OpaqueAddress {
	for _, a := range addrs {
		if a == addr {
			return addrs
		}
	}
	return append(addrs, addr)
}
