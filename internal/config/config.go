// Package config loads the node's YAML configuration: a single struct
// with sensible defaults, loaded via os.ReadFile + yaml.Unmarshal,
// covering this module's beacon, relay, pnet, mux, and façade knobs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level node configuration.
type Config struct {
	IdentityPath string       `yaml:"identity_path"`
	Beacon       BeaconConfig `yaml:"beacon"`
	Mux          MuxConfig    `yaml:"mux"`
	Pnet         PnetConfig   `yaml:"pnet"`
	NAT          NATConfig    `yaml:"nat"`
	Relay        RelayConfig  `yaml:"relay"`
	Facade       FacadeConfig `yaml:"facade"`
	LogLevel     string       `yaml:"log_level"`
}

// BeaconConfig configures the tiered beacon discovery pipeline.
type BeaconConfig struct {
	ListenAddr             string `yaml:"listen_addr"`
	PoWDifficultyBits      int    `yaml:"pow_difficulty_bits"`
	SybilThreshold         int    `yaml:"sybil_threshold"`
	SybilWindowSeconds     int    `yaml:"sybil_window_seconds"`
	BeaconRateLimitSeconds int    `yaml:"beacon_rate_limit_seconds"`
	EphIDRotationSeconds   int64  `yaml:"ephid_rotation_seconds"`
	Tier3MinimumSize       int    `yaml:"tier3_minimum_size"`
}

// SybilWindow returns the configured Sybil detection window as a Duration.
func (c BeaconConfig) SybilWindow() time.Duration {
	return time.Duration(c.SybilWindowSeconds) * time.Second
}

// BeaconRateLimit returns the configured per-(truncID,medium) minimum
// beacon interval as a Duration.
func (c BeaconConfig) BeaconRateLimit() time.Duration {
	return time.Duration(c.BeaconRateLimitSeconds) * time.Second
}

// MuxConfig configures the Yamux session layer.
type MuxConfig struct {
	InitialWindow            uint32 `yaml:"initial_window"`
	MaxConcurrentStreams     int    `yaml:"max_concurrent_streams"`
	KeepAliveIntervalSeconds int    `yaml:"keep_alive_interval_seconds"`
	KeepAliveTimeoutSeconds  int    `yaml:"keep_alive_timeout_seconds"`
}

// KeepAliveInterval returns the configured keep-alive ping interval.
func (c MuxConfig) KeepAliveInterval() time.Duration {
	return time.Duration(c.KeepAliveIntervalSeconds) * time.Second
}

// KeepAliveTimeout returns the configured keep-alive pong timeout.
func (c MuxConfig) KeepAliveTimeout() time.Duration {
	return time.Duration(c.KeepAliveTimeoutSeconds) * time.Second
}

// PnetConfig configures the private-network PSK protector. An empty
// PSKFile disables the protector.
type PnetConfig struct {
	PSKFile string `yaml:"psk_file"`
}

// NATConfig configures STUN/ICE NAT traversal collaborators.
type NATConfig struct {
	STUNServers []string        `yaml:"stun_servers"`
	TURNServers []TURNServerRef `yaml:"turn_servers"`
}

// TURNServerRef names a TURN server and its credentials.
type TURNServerRef struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// RelayConfig configures the relay server's TURN listener and its
// reservation/circuit quotas.
type RelayConfig struct {
	Enabled               bool              `yaml:"enabled"`
	Listen                string            `yaml:"listen"`
	Realm                 string            `yaml:"realm"`
	PublicIP              string            `yaml:"public_ip"`
	Credentials           map[string]string `yaml:"credentials"`
	MaxReservations       int               `yaml:"max_reservations"`
	MaxCircuitsPerPeer    int               `yaml:"max_circuits_per_peer"`
	MaxCircuits           int               `yaml:"max_circuits"`
	ReservationTTLSeconds int               `yaml:"reservation_ttl_seconds"`
}

// ReservationTTL returns the configured reservation TTL as a Duration.
func (c RelayConfig) ReservationTTL() time.Duration {
	return time.Duration(c.ReservationTTLSeconds) * time.Second
}

// FacadeConfig configures the demo control-plane façade.
type FacadeConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Listen      string `yaml:"listen"`
	DatabaseDSN string `yaml:"database_dsn"`
	JWTSecret   string `yaml:"jwt_secret"`
}

// Default returns a Config populated with this module's default values.
func Default() *Config {
	return &Config{
		IdentityPath: "/etc/p2pcore/identity.key",
		Beacon: BeaconConfig{
			ListenAddr:             "0.0.0.0:7946",
			PoWDifficultyBits:      16,
			SybilThreshold:         5,
			SybilWindowSeconds:     1800,
			BeaconRateLimitSeconds: 5,
			EphIDRotationSeconds:   900,
			Tier3MinimumSize:       145,
		},
		Mux: MuxConfig{
			InitialWindow:            256 * 1024,
			MaxConcurrentStreams:     256,
			KeepAliveIntervalSeconds: 30,
			KeepAliveTimeoutSeconds:  15,
		},
		NAT: NATConfig{
			STUNServers: []string{"stun:stun.l.google.com:19302"},
		},
		Relay: RelayConfig{
			Enabled:               false,
			Listen:                "0.0.0.0:3478",
			Realm:                 "p2pcore",
			MaxReservations:       128,
			MaxCircuitsPerPeer:    16,
			MaxCircuits:           1024,
			ReservationTTLSeconds: 3600,
		},
		Facade: FacadeConfig{
			Enabled:     false,
			Listen:      "0.0.0.0:9394",
			DatabaseDSN: "sqlite:///var/lib/p2pcore/facade.db",
			JWTSecret:   "change-me-in-production",
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file from path, overlaying it onto Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := loadYAML(path, cfg); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	return cfg, nil
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
