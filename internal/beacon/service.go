package beacon

import (
	"fmt"
	"log/slog"
)

// ServiceConfig bundles the thresholds a running BeaconCore service needs.
type ServiceConfig struct {
	Filter         FilterConfig
	PoWDifficulty  int
	FreshnessByMedium map[string]FreshnessFunction
}

// DefaultServiceConfig returns spec-default thresholds.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Filter:        DefaultFilterConfig(),
		PoWDifficulty: DefaultPoWDifficultyBits,
	}
}

// Service wires a TransportAdapter's raw discovery stream through
// decoding, PoW validation, the three-stage filter, and aggregation
// ingest, turning raw radio events into confirmed signed peer records.
type Service struct {
	cfg     ServiceConfig
	filter  *BeaconFilter
	ingest  *AggregationIngest
	log     *slog.Logger

	stop chan struct{}
}

// NewService constructs a Service over store. It reads no adapter by
// itself: each adapter is consumed by a call to Run.
func NewService(cfg ServiceConfig, store BeaconPeerStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:    cfg,
		filter: NewBeaconFilter(cfg.Filter),
		ingest: NewAggregationIngest(store, NewRSSISmoother(0), cfg.FreshnessByMedium),
		log:    log,
		stop:   make(chan struct{}),
	}
}

// Events returns the downstream aggregation event stream.
func (s *Service) Events() <-chan Event {
	return s.ingest.Events()
}

// Run consumes adapter's raw discoveries until Shutdown is called or the
// adapter's stream closes. Intended to run in its own goroutine per
// registered adapter.
func (s *Service) Run(adapter TransportAdapter) {
	for {
		select {
		case <-s.stop:
			return
		case raw, ok := <-adapter.Discoveries():
			if !ok {
				return
			}
			s.handleRaw(adapter.MediumID(), raw)
		}
	}
}

func (s *Service) handleRaw(mediumID string, raw RawDiscovery) {
	decoded, err := Decode(raw.Payload)
	if err != nil {
		s.log.Debug("beacon: dropping undecodable frame", "medium", mediumID, "err", err)
		return
	}

	var fp PhysicalFingerprint
	hasFP := raw.PhysicalFingerprint != nil
	if hasFP {
		d := raw.PhysicalFingerprint
		fp = PhysicalFingerprint(fmt.Sprintf("%d/%d/%d/%d", d.TxPower, d.ChannelIndex, d.TimingOffsetMicros, d.AoaDegrees))
	}

	switch decoded.Tier {
	case Tier1:
		f := decoded.Tier1
		powValid := VerifyPoW(f.TruncID, f.Nonce, f.PoW, s.cfg.PoWDifficulty)
		reason := s.filter.Accept(Candidate{
			PowValid: powValid, HasTruncID: true, TruncID: f.TruncID,
			MediumID: mediumID, HasFingerprint: hasFP, Fingerprint: fp,
			Now: raw.Timestamp,
		})
		if reason != RejectNone {
			return
		}
		truncID := f.TruncID
		s.ingest.Ingest(BeaconDiscoveryEvent{
			Tier: Tier1, TruncID: &truncID, Source: raw.SourceAddress,
			RSSI: raw.RSSI, Timestamp: raw.Timestamp,
		})

	case Tier2:
		f := decoded.Tier2
		powValid := VerifyPoW(f.TruncID, f.Nonce, f.PoW, s.cfg.PoWDifficulty)
		reason := s.filter.Accept(Candidate{
			PowValid: powValid, HasTruncID: true, TruncID: f.TruncID,
			MediumID: mediumID, HasFingerprint: hasFP, Fingerprint: fp,
			Now: raw.Timestamp,
		})
		if reason != RejectNone {
			return
		}
		truncID := f.TruncID
		s.ingest.Ingest(BeaconDiscoveryEvent{
			Tier: Tier2, TruncID: &truncID, Source: raw.SourceAddress,
			RSSI: raw.RSSI, Timestamp: raw.Timestamp,
		})

	case Tier3:
		f := decoded.Tier3
		reason := s.filter.Accept(Candidate{PowValid: true, MediumID: mediumID, Now: raw.Timestamp})
		if reason != RejectNone {
			return
		}
		s.ingest.Ingest(BeaconDiscoveryEvent{
			Tier: Tier3, FullPeerID: f.PeerID, Source: raw.SourceAddress,
			RSSI: raw.RSSI, Timestamp: raw.Timestamp, Envelope: f.Envelope,
		})
	}
}

// Shutdown stops all Run loops and closes the aggregation event stream.
func (s *Service) Shutdown() {
	close(s.stop)
	s.ingest.Shutdown()
}
