package relayserver

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/pion/turn/v3"

	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

// Config holds the relay server's network configuration.
type Config struct {
	ListenAddr  string // e.g. "0.0.0.0:3478"
	Realm       string
	PublicIP    string
	Credentials map[string]string // username -> password
	Quotas      Quotas
}

// Server runs a pion/turn relay alongside a ReservationTable. TURN
// allocations are authenticated against the configured credential map
// only; the table and its quotas are not consulted on the allocation path.
type Server struct {
	cfg   Config
	table *ReservationTable
	log   *slog.Logger

	turnServer *turn.Server
	listener   net.PacketConn
}

// New constructs a Server. It does not start listening until Start is called.
func New(cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Quotas == (Quotas{}) {
		cfg.Quotas = DefaultQuotas()
	}
	return &Server{
		cfg:   cfg,
		table: NewReservationTable(cfg.Quotas),
		log:   log.With("component", "relayserver"),
	}
}

// Reservations exposes the server's reservation table for direct
// admission-control use by callers that don't go through the TURN
// allocation path (e.g. a façade listing active reservations).
func (s *Server) Reservations() *ReservationTable { return s.table }

// Reserve admits a reservation for relay on behalf of client, independent
// of the TURN allocation lifecycle.
func (s *Server) Reserve(relay, client identity.PeerID, addresses []string, voucher []byte) (*Reservation, error) {
	return s.table.Reserve(relay, client, addresses, voucher, time.Now())
}

// Start begins listening for TURN traffic. Credential checks consult the
// configured username/password map only; allocations are not checked
// against the reservation table.
func (s *Server) Start() error {
	listener, err := net.ListenPacket("udp4", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("relayserver: listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.listener = listener

	publicIP := s.cfg.PublicIP
	if publicIP == "" {
		publicIP = "0.0.0.0"
	}

	turnServer, err := turn.NewServer(turn.ServerConfig{
		Realm: s.cfg.Realm,
		AuthHandler: func(username, realm string, srcAddr net.Addr) ([]byte, bool) {
			password, ok := s.cfg.Credentials[username]
			if !ok {
				return nil, false
			}
			return turn.GenerateAuthKey(username, realm, password), true
		},
		PacketConnConfigs: []turn.PacketConnConfig{
			{
				PacketConn: listener,
				RelayAddressGenerator: &turn.RelayAddressGeneratorStatic{
					RelayAddress: net.ParseIP(publicIP),
					Address:      "0.0.0.0",
				},
			},
		},
	})
	if err != nil {
		listener.Close()
		return fmt.Errorf("relayserver: create TURN server: %w", err)
	}
	s.turnServer = turnServer

	s.log.Info("relay server started",
		"listen", s.cfg.ListenAddr,
		"realm", s.cfg.Realm,
		"maxReservations", s.cfg.Quotas.MaxReservations,
		"maxCircuits", s.cfg.Quotas.MaxCircuits,
	)
	return nil
}

// Stop shuts down the TURN server.
func (s *Server) Stop() error {
	if s.turnServer != nil {
		return s.turnServer.Close()
	}
	return nil
}
