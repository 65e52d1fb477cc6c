package beacon

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// UDPAdapter is a reference TransportAdapter over broadcast/multicast UDP,
// for media (Wi-Fi Direct, gossip relay over LAN) that can be approximated
// by plain datagram sockets: a bound *net.UDPConn with a background read
// loop feeding a channel of raw beacon payloads.
type UDPAdapter struct {
	mediumID string
	chars    MediumCharacteristics
	conn     *net.UDPConn
	peer     *net.UDPAddr
	log      *slog.Logger

	mu       sync.RWMutex
	closed   bool
	recv     chan RawDiscovery
}

// NewUDPAdapter binds a UDP socket on port and targets peer for
// StartBeacon sends; it also starts a background read loop delivering
// inbound packets to Discoveries.
func NewUDPAdapter(mediumID string, chars MediumCharacteristics, port int, peer *net.UDPAddr, log *slog.Logger) (*UDPAdapter, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("beacon: bind UDP port %d: %w", port, err)
	}
	a := &UDPAdapter{
		mediumID: mediumID,
		chars:    chars,
		conn:     conn,
		peer:     peer,
		log:      log,
		recv:     make(chan RawDiscovery, 64),
	}
	go a.readLoop()
	return a, nil
}

func (a *UDPAdapter) readLoop() {
	buf := make([]byte, 65535)
	for {
		n, addr, err := a.conn.ReadFromUDP(buf)
		if err != nil {
			a.mu.RLock()
			closed := a.closed
			a.mu.RUnlock()
			if closed {
				return
			}
			a.log.Warn("beacon: UDP read error", "medium", a.mediumID, "err", err)
			continue
		}
		payload := append([]byte(nil), buf[:n]...)
		discovery := RawDiscovery{
			Payload:      payload,
			SourceAddress: OpaqueAddress{MediumID: a.mediumID, Raw: addr.String()},
			Timestamp:    time.Now(),
			MediumID:     a.mediumID,
		}
		select {
		case a.recv <- discovery:
		default:
			a.log.Warn("beacon: discovery channel full, dropping", "medium", a.mediumID)
		}
	}
}

func (a *UDPAdapter) MediumID() string                       { return a.mediumID }
func (a *UDPAdapter) Characteristics() MediumCharacteristics { return a.chars }

// StartBeacon sends payload to the adapter's configured peer address.
func (a *UDPAdapter) StartBeacon(payload []byte) error {
	if len(payload) > a.chars.MaxBeaconSize {
		return &BeaconTooLarge{Size: len(payload), Max: a.chars.MaxBeaconSize}
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrAdapterShutdown
	}
	_, err := a.conn.WriteToUDP(payload, a.peer)
	return err
}

// StopBeacon is a no-op: UDP beacons are one-shot sends, not an ongoing
// advertisement.
func (a *UDPAdapter) StopBeacon() error { return nil }

// Discoveries returns the adapter's inbound discovery stream.
func (a *UDPAdapter) Discoveries() <-chan RawDiscovery { return a.recv }

// Shutdown closes the UDP socket, terminating the read loop.
func (a *UDPAdapter) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.conn.Close()
}
