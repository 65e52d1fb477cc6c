// Package nat provides STUN-based public address discovery and pion/ice
// agent construction. The relay server and its reservation table do not
// use it.
package nat

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/pion/ice/v4"
	"github.com/pion/stun/v3"
)

// TURNServer holds TURN server credentials used when building ICE relay
// candidates.
type TURNServer struct {
	URL      string
	Username string
	Password string
}

// Traversal discovers a peer's public address via STUN and builds
// pion/ice agents for hole-punching collaboration with the relay server.
type Traversal struct {
	stunServers []string
	turnServers []TURNServer
	log         *slog.Logger
}

// New constructs a Traversal with the given STUN/TURN server lists.
func New(stunServers []string, turnServers []TURNServer, log *slog.Logger) *Traversal {
	if log == nil {
		log = slog.Default()
	}
	return &Traversal{
		stunServers: stunServers,
		turnServers: turnServers,
		log:         log.With("component", "nat"),
	}
}

// DiscoverPublicAddr performs a STUN binding request against each
// configured server in turn, returning the first successful result.
func (t *Traversal) DiscoverPublicAddr() (*net.UDPAddr, error) {
	if len(t.stunServers) == 0 {
		return nil, fmt.Errorf("nat: no STUN servers configured")
	}
	for _, server := range t.stunServers {
		addr, err := stunDiscover(server)
		if err != nil {
			t.log.Debug("STUN discovery failed", "server", server, "err", err)
			continue
		}
		t.log.Info("STUN discovered public address", "addr", addr, "server", server)
		return addr, nil
	}
	return nil, fmt.Errorf("nat: all STUN servers failed")
}

// NewICEAgent creates a pion/ice agent configured with this Traversal's
// STUN and TURN servers, for use by a caller negotiating a direct or
// relayed path to a remote peer.
func (t *Traversal) NewICEAgent() (*ice.Agent, error) {
	urls := make([]*stun.URI, 0, len(t.stunServers)+len(t.turnServers))
	for _, s := range t.stunServers {
		u, err := stun.ParseURI(s)
		if err != nil {
			t.log.Debug("parse STUN URI", "uri", s, "err", err)
			continue
		}
		urls = append(urls, u)
	}
	for _, s := range t.turnServers {
		u, err := stun.ParseURI(s.URL)
		if err != nil {
			t.log.Debug("parse TURN URI", "uri", s.URL, "err", err)
			continue
		}
		u.Username = s.Username
		u.Password = s.Password
		urls = append(urls, u)
	}

	disconnected := 10 * time.Second
	failed := 30 * time.Second
	keepalive := 2 * time.Second

	agent, err := ice.NewAgent(&ice.AgentConfig{
		Urls:                urls,
		NetworkTypes:        []ice.NetworkType{ice.NetworkTypeUDP4},
		CandidateTypes:      []ice.CandidateType{ice.CandidateTypeHost, ice.CandidateTypeServerReflexive, ice.CandidateTypeRelay},
		DisconnectedTimeout: &disconnected,
		FailedTimeout:       &failed,
		KeepaliveInterval:   &keepalive,
	})
	if err != nil {
		return nil, fmt.Errorf("nat: create ICE agent: %w", err)
	}
	return agent, nil
}

func stunDiscover(serverAddr string) (*net.UDPAddr, error) {
	conn, err := net.DialTimeout("udp", serverAddr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return nil, err
	}
	if _, err := conn.Write(msg.Raw); err != nil {
		return nil, err
	}

	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}

	resp := new(stun.Message)
	resp.Raw = buf[:n]
	if err := resp.Decode(); err != nil {
		return nil, err
	}

	var xorAddr stun.XORMappedAddress
	if err := xorAddr.GetFrom(resp); err == nil {
		return &net.UDPAddr{IP: xorAddr.IP, Port: xorAddr.Port}, nil
	}
	var mappedAddr stun.MappedAddress
	if err := mappedAddr.GetFrom(resp); err != nil {
		return nil, fmt.Errorf("nat: no mapped address in STUN response")
	}
	return &net.UDPAddr{IP: mappedAddr.IP, Port: mappedAddr.Port}, nil
}
