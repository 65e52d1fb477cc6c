// Package relayserver runs a TURN-backed relay with reservation and
// circuit quota accounting: pion/turn server wiring plus a table that
// tracks Reservation entities and enforces per-peer and server-wide
// circuit quotas.
package relayserver

import (
	"errors"
	"sync"
	"time"

	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

const (
	// DefaultMaxReservations bounds the number of concurrent relay
	// reservations the server holds.
	DefaultMaxReservations = 128
	// DefaultMaxCircuitsPerPeer bounds concurrent relayed circuits a
	// single peer may hold open.
	DefaultMaxCircuitsPerPeer = 16
	// DefaultMaxCircuits bounds concurrent relayed circuits server-wide.
	DefaultMaxCircuits = 1024
	// DefaultReservationTTL is how long a reservation remains valid
	// without being refreshed.
	DefaultReservationTTL = 3600 * time.Second
)

var (
	// ErrReservationTableFull is returned when maxReservations is reached.
	ErrReservationTableFull = errors.New("relayserver: reservation table full")
	// ErrNoReservation is returned opening a circuit for a peer with no
	// active reservation.
	ErrNoReservation = errors.New("relayserver: peer has no reservation")
	// ErrPeerCircuitLimit is returned when a peer's circuit quota is
	// exhausted.
	ErrPeerCircuitLimit = errors.New("relayserver: peer circuit limit reached")
	// ErrCircuitLimit is returned when the server-wide circuit quota is
	// exhausted.
	ErrCircuitLimit = errors.New("relayserver: server circuit limit reached")
)

// Reservation binds a relay to a client peer, with an expiration, a set
// of relayed addresses, and an optional voucher proving authorization.
type Reservation struct {
	Relay      identity.PeerID
	Client     identity.PeerID
	Expiration time.Time
	Addresses  []string
	Voucher    []byte
}

// Expired reports whether the reservation's expiration has passed as of now.
func (r *Reservation) Expired(now time.Time) bool {
	return now.After(r.Expiration)
}

// Quotas bounds the resources a ReservationTable will admit.
type Quotas struct {
	MaxReservations    int
	MaxCircuitsPerPeer int
	MaxCircuits        int
	ReservationTTL     time.Duration
}

// DefaultQuotas returns conservative default quota values.
func DefaultQuotas() Quotas {
	return Quotas{
		MaxReservations:    DefaultMaxReservations,
		MaxCircuitsPerPeer: DefaultMaxCircuitsPerPeer,
		MaxCircuits:        DefaultMaxCircuits,
		ReservationTTL:     DefaultReservationTTL,
	}
}

// ReservationTable tracks active reservations and open circuits, enforcing
// the server's admission quotas. It never touches the network, and the
// pion/turn AuthHandler and relay-address allocation do not consult it;
// callers make admission decisions through it directly.
type ReservationTable struct {
	quotas Quotas

	mu           sync.Mutex
	reservations map[string]*Reservation // keyed by relay identity.PeerID.String()
	circuits     map[string]int          // open circuit count keyed by client PeerID.String()
	totalCircuits int
}

// NewReservationTable builds an empty table with the given quotas.
func NewReservationTable(quotas Quotas) *ReservationTable {
	return &ReservationTable{
		quotas:       quotas,
		reservations: make(map[string]*Reservation),
		circuits:     make(map[string]int),
	}
}

// Reserve admits a new reservation or refreshes an existing one for the
// same relay identity, bumping its expiration.
func (t *ReservationTable) Reserve(relay, client identity.PeerID, addresses []string, voucher []byte, now time.Time) (*Reservation, error) {
	key := relay.String()
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.reservations[key]; !exists && len(t.reservations) >= t.quotas.MaxReservations {
		return nil, ErrReservationTableFull
	}

	r := &Reservation{
		Relay:      relay,
		Client:     client,
		Expiration: now.Add(t.quotas.ReservationTTL),
		Addresses:  addresses,
		Voucher:    voucher,
	}
	t.reservations[key] = r
	return r, nil
}

// Lookup returns the reservation for relay, if any and unexpired.
func (t *ReservationTable) Lookup(relay identity.PeerID, now time.Time) (*Reservation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.reservations[relay.String()]
	if !ok || r.Expired(now) {
		return nil, false
	}
	return r, true
}

// Release removes a relay's reservation, e.g. on client disconnect.
func (t *ReservationTable) Release(relay identity.PeerID) {
	t.mu.Lock()
	delete(t.reservations, relay.String())
	t.mu.Unlock()
}

// ExpireReservations prunes reservations whose TTL has elapsed.
func (t *ReservationTable) ExpireReservations(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for key, r := range t.reservations {
		if r.Expired(now) {
			delete(t.reservations, key)
			n++
		}
	}
	return n
}

// OpenCircuit admits a new relayed circuit for client, requiring an active
// reservation and enforcing per-peer and server-wide circuit quotas.
func (t *ReservationTable) OpenCircuit(relay, client identity.PeerID, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.reservations[relay.String()]
	if !ok || r.Expired(now) {
		return ErrNoReservation
	}
	if t.totalCircuits >= t.quotas.MaxCircuits {
		return ErrCircuitLimit
	}
	key := client.String()
	if t.circuits[key] >= t.quotas.MaxCircuitsPerPeer {
		return ErrPeerCircuitLimit
	}
	t.circuits[key]++
	t.totalCircuits++
	return nil
}

// CloseCircuit releases one of client's open circuits.
func (t *ReservationTable) CloseCircuit(client identity.PeerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := client.String()
	if t.circuits[key] > 0 {
		t.circuits[key]--
		t.totalCircuits--
	}
	if t.circuits[key] == 0 {
		delete(t.circuits, key)
	}
}

// CircuitCount returns client's currently open circuit count.
func (t *ReservationTable) CircuitCount(client identity.PeerID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.circuits[client.String()]
}

// ReservationCount returns the number of active reservations.
func (t *ReservationTable) ReservationCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.reservations)
}
