package beacon

import (
	"sync"
	"time"

	"github.com/unicornultrafoundation/p2pcore/internal/envelope"
	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

// DefaultConfirmedTTL is the default lifetime of a freshly-created
// ConfirmedPeerRecord.
const DefaultConfirmedTTL = 600 * time.Second

// BeaconPeerRecord is the signed record sealed inside a Tier-3 envelope
//: peerID, a monotone sequence number, and the addresses the
// signer claims.
type BeaconPeerRecord struct {
	PeerID          identity.PeerID
	Seq             uint64
	OpaqueAddresses []OpaqueAddress
}

// UnconfirmedSighting accumulates Tier-1/2 observations keyed by truncID,
// before any identity has been cryptographically confirmed.
type UnconfirmedSighting struct {
	TruncID       uint16
	Addresses     []OpaqueAddress
	Observations  []Observation
	PresenceScore float64
}

// ConfirmedPeerRecord is a Tier-3-verified peer record with its
// accumulated observation history and expiry.
type ConfirmedPeerRecord struct {
	PeerID        identity.PeerID
	Addresses     []OpaqueAddress
	Observations  []Observation
	PresenceScore float64
	Certificate   *envelope.Envelope
	Epoch         uint64
	ExpiresAt     time.Time
}

// IsValid reports whether the record has not yet expired as of now.
func (r *ConfirmedPeerRecord) IsValid(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// BeaconPeerStore is the two-layer contract: an
// unconfirmed-sighting layer keyed by truncID and a confirmed-record layer
// keyed by PeerID.
type BeaconPeerStore interface {
	AddSighting(s *UnconfirmedSighting)
	Sightings(truncID uint16) []*UnconfirmedSighting
	PromoteSighting(truncID uint16, record *ConfirmedPeerRecord) error
	Upsert(record *ConfirmedPeerRecord) error
	Get(peerID identity.PeerID) (*ConfirmedPeerRecord, bool)
	AllConfirmed() []*ConfirmedPeerRecord
	ConfirmedNewerThan(since time.Time) []*ConfirmedPeerRecord
	RemoveExpired(now time.Time)
}

// memoryPeerStore is the reference in-memory BeaconPeerStore
// implementation.
type memoryPeerStore struct {
	mu         sync.Mutex
	sightings  map[uint16]*UnconfirmedSighting
	confirmed  map[string]*ConfirmedPeerRecord
}

// NewMemoryPeerStore constructs an in-memory BeaconPeerStore.
func NewMemoryPeerStore() BeaconPeerStore {
	return &memoryPeerStore{
		sightings: make(map[uint16]*UnconfirmedSighting),
		confirmed: make(map[string]*ConfirmedPeerRecord),
	}
}

func (s *memoryPeerStore) AddSighting(sighting *UnconfirmedSighting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sightings[sighting.TruncID] = sighting
}

// Sightings returns 0 or 1 matches by current design: truncID is the
// unique key for the unconfirmed layer, so at most one sighting can ever
// match.
func (s *memoryPeerStore) Sightings(truncID uint16) []*UnconfirmedSighting {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sighting, ok := s.sightings[truncID]; ok {
		return []*UnconfirmedSighting{sighting}
	}
	return nil
}

func (s *memoryPeerStore) PromoteSighting(truncID uint16, record *ConfirmedPeerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sightings, truncID)
	s.confirmed[record.PeerID.String()] = record
	return nil
}

// Upsert installs record only if its epoch is >= any existing record's
// epoch, keeping ConfirmedPeerRecord.epoch monotone non-decreasing.
func (s *memoryPeerStore) Upsert(record *ConfirmedPeerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := record.PeerID.String()
	if existing, ok := s.confirmed[key]; ok && record.Epoch < existing.Epoch {
		return nil
	}
	s.confirmed[key] = record
	return nil
}

func (s *memoryPeerStore) Get(peerID identity.PeerID) (*ConfirmedPeerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.confirmed[peerID.String()]
	return r, ok
}

func (s *memoryPeerStore) AllConfirmed() []*ConfirmedPeerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ConfirmedPeerRecord, 0, len(s.confirmed))
	for _, r := range s.confirmed {
		out = append(out, r)
	}
	return out
}

func (s *memoryPeerStore) ConfirmedNewerThan(since time.Time) []*ConfirmedPeerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ConfirmedPeerRecord
	for _, r := range s.confirmed {
		if r.ExpiresAt.After(since) {
			out = append(out, r)
		}
	}
	return out
}

func (s *memoryPeerStore) RemoveExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, r := range s.confirmed {
		if !r.IsValid(now) {
			delete(s.confirmed, key)
		}
	}
}
