package beacon

import (
	"sync"
	"time"
)

// LoopbackAdapter is an in-memory TransportAdapter reference
// implementation useful for tests and simulation: beacons started on one
// LoopbackAdapter are delivered to every other LoopbackAdapter sharing the
// same *LoopbackMedium.
type LoopbackAdapter struct {
	mediumID string
	chars    MediumCharacteristics
	medium   *LoopbackMedium

	mu       sync.Mutex
	shutdown bool
	recv     chan RawDiscovery
}

// LoopbackMedium fans a beacon transmitted by one participant out to every
// other participant registered on it.
type LoopbackMedium struct {
	mu           sync.Mutex
	participants []*LoopbackAdapter
}

// NewLoopbackMedium constructs an empty shared medium.
func NewLoopbackMedium() *LoopbackMedium {
	return &LoopbackMedium{}
}

// NewAdapter registers and returns a new participant on m.
func (m *LoopbackMedium) NewAdapter(mediumID string, chars MediumCharacteristics) *LoopbackAdapter {
	a := &LoopbackAdapter{
		mediumID: mediumID,
		chars:    chars,
		medium:   m,
		recv:     make(chan RawDiscovery, 64),
	}
	m.mu.Lock()
	m.participants = append(m.participants, a)
	m.mu.Unlock()
	return a
}

func (m *LoopbackMedium) broadcast(from *LoopbackAdapter, payload []byte) {
	m.mu.Lock()
	participants := append([]*LoopbackAdapter(nil), m.participants...)
	m.mu.Unlock()

	discovery := RawDiscovery{
		Payload:      payload,
		SourceAddress: OpaqueAddress{MediumID: from.mediumID, Raw: from.mediumID},
		Timestamp:    time.Now(),
		MediumID:     from.mediumID,
	}
	for _, p := range participants {
		if p == from {
			continue
		}
		p.mu.Lock()
		if !p.shutdown {
			select {
			case p.recv <- discovery:
			default:
			}
		}
		p.mu.Unlock()
	}
}

func (a *LoopbackAdapter) MediumID() string                     { return a.mediumID }
func (a *LoopbackAdapter) Characteristics() MediumCharacteristics { return a.chars }

// StartBeacon broadcasts payload to every other participant on the shared
// medium, failing with BeaconTooLarge if it exceeds MaxBeaconSize.
func (a *LoopbackAdapter) StartBeacon(payload []byte) error {
	if len(payload) > a.chars.MaxBeaconSize {
		return &BeaconTooLarge{Size: len(payload), Max: a.chars.MaxBeaconSize}
	}
	a.medium.broadcast(a, payload)
	return nil
}

// StopBeacon is a no-op for the loopback adapter: there is no ongoing
// advertisement to stop.
func (a *LoopbackAdapter) StopBeacon() error { return nil }

// Discoveries returns the adapter's inbound discovery stream.
func (a *LoopbackAdapter) Discoveries() <-chan RawDiscovery { return a.recv }

// Shutdown closes the adapter's discovery stream.
func (a *LoopbackAdapter) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.recv)
	return nil
}
