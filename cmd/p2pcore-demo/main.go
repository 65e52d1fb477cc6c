package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/unicornultrafoundation/p2pcore/internal/beacon"
	"github.com/unicornultrafoundation/p2pcore/internal/config"
	"github.com/unicornultrafoundation/p2pcore/internal/facade"
	"github.com/unicornultrafoundation/p2pcore/internal/identity"
	"github.com/unicornultrafoundation/p2pcore/internal/pnet"
	"github.com/unicornultrafoundation/p2pcore/internal/relayserver"
)

var version = "dev"

func main() {
	var (
		configPath   = flag.String("config", "", "path to YAML config file (defaults applied if omitted)")
		identityPath = flag.String("identity", "", "override identity key path")
		logLevel     = flag.String("log-level", "", "override log level: debug, info, warn, error")
		showVersion  = flag.Bool("version", false, "show version and exit")
		showIdentity = flag.Bool("show-identity", false, "show peer ID and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("p2pcore-demo %s\n", version)
		os.Exit(0)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *identityPath != "" {
		cfg.IdentityPath = *identityPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	kp, err := identity.LoadOrGenerate(cfg.IdentityPath)
	if err != nil {
		log.Error("load identity failed", "err", err)
		os.Exit(1)
	}

	if *showIdentity {
		fmt.Printf("PeerID: %s\n", kp.PeerID)
		os.Exit(0)
	}
	log.Info("node identity loaded", "peer", kp.PeerID.String())

	if cfg.Pnet.PSKFile != "" {
		if _, err := loadPSK(cfg.Pnet.PSKFile); err != nil {
			log.Error("load PSK failed", "err", err)
			os.Exit(1)
		}
		log.Info("private network PSK file validated; the demo wraps no transport with it", "file", cfg.Pnet.PSKFile)
	}

	store := beacon.NewMemoryPeerStore()
	service := beacon.NewService(beacon.ServiceConfig{
		Filter:        beacon.DefaultFilterConfig(),
		PoWDifficulty: cfg.Beacon.PoWDifficultyBits,
	}, store, log)

	_, portStr, err := net.SplitHostPort(cfg.Beacon.ListenAddr)
	if err != nil {
		log.Error("invalid beacon listen_addr", "addr", cfg.Beacon.ListenAddr, "err", err)
		os.Exit(1)
	}
	port := 0
	fmt.Sscanf(portStr, "%d", &port)

	chars := beacon.MediumCharacteristics{
		Directionality: beacon.DirectionalityBidirectional,
		MaxBeaconSize:  2048,
	}
	adapter, err := beacon.NewUDPAdapter("lan-udp", chars, port, nil, log)
	if err != nil {
		log.Error("bind beacon UDP adapter failed", "err", err)
		os.Exit(1)
	}
	go service.Run(adapter)

	var relay *relayserver.Server
	if cfg.Relay.Enabled {
		relay = relayserver.New(relayserver.Config{
			ListenAddr:  cfg.Relay.Listen,
			Realm:       cfg.Relay.Realm,
			PublicIP:    cfg.Relay.PublicIP,
			Credentials: cfg.Relay.Credentials,
			Quotas: relayserver.Quotas{
				MaxReservations:    cfg.Relay.MaxReservations,
				MaxCircuitsPerPeer: cfg.Relay.MaxCircuitsPerPeer,
				MaxCircuits:        cfg.Relay.MaxCircuits,
				ReservationTTL:     cfg.Relay.ReservationTTL(),
			},
		}, log)
		if err := relay.Start(); err != nil {
			log.Error("start relay server failed", "err", err)
			os.Exit(1)
		}
		defer relay.Stop()
	}

	var fc *facade.Facade
	if cfg.Facade.Enabled {
		fc, err = facade.New(facade.Config{
			Listen:      cfg.Facade.Listen,
			DatabaseDSN: cfg.Facade.DatabaseDSN,
			JWTSecret:   cfg.Facade.JWTSecret,
		}, store, relay, log)
		if err != nil {
			log.Error("start facade failed", "err", err)
			os.Exit(1)
		}
		go func() {
			if err := fc.Run(); err != nil {
				log.Error("facade server stopped", "err", err)
			}
		}()
		go forwardEvents(service, fc)
	}

	log.Info("p2pcore-demo running",
		"beacon_listen", cfg.Beacon.ListenAddr,
		"relay_enabled", cfg.Relay.Enabled,
		"facade_enabled", cfg.Facade.Enabled,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received signal, shutting down", "signal", sig)

	service.Shutdown()
	adapter.Shutdown()
}

// forwardEvents relays every aggregation event to the façade's
// websocket viewers, until the service's event stream closes.
func forwardEvents(service *beacon.Service, fc *facade.Facade) {
	for ev := range service.Events() {
		fc.PublishEvent(ev)
	}
}

func loadPSK(path string) ([32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, err
	}
	defer f.Close()
	return pnet.ParsePSKFile(f)
}
