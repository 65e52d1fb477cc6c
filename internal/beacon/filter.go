package beacon

import (
	"sync"
	"time"
)

// PhysicalFingerprint identifies the radio hardware that transmitted a
// beacon (e.g. a BLE MAC prefix), independent of any application-layer
// truncID — used by Sybil detection.
type PhysicalFingerprint string

// DefaultSybilThreshold is the default maximum number of distinct truncIDs
// tolerated per PhysicalFingerprint within SybilWindow.
const DefaultSybilThreshold = 5

// DefaultSybilWindow is the default sliding window for Sybil detection.
const DefaultSybilWindow = 30 * time.Minute

// DefaultBeaconRateLimit is the default minimum interval between accepted
// beacons sharing a (truncID, mediumID) pair.
const DefaultBeaconRateLimit = 5 * time.Second

// FilterConfig parameterizes BeaconFilter's three stages.
type FilterConfig struct {
	MinInterval    time.Duration
	SybilWindow    time.Duration
	SybilThreshold int
}

// DefaultFilterConfig returns conservative default thresholds.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinInterval:    DefaultBeaconRateLimit,
		SybilWindow:    DefaultSybilWindow,
		SybilThreshold: DefaultSybilThreshold,
	}
}

type rateLimitKey struct {
	truncID  uint16
	mediumID string
}

// BeaconFilter implements the three-stage accept/reject pipeline: PoW
// validity, per-(truncID, mediumID) rate limiting, and per-fingerprint
// Sybil detection.
type BeaconFilter struct {
	cfg FilterConfig

	mu           sync.Mutex
	lastSeen     map[rateLimitKey]time.Time
	fingerprints map[PhysicalFingerprint]map[uint16]time.Time
}

// NewBeaconFilter constructs a filter with cfg.
func NewBeaconFilter(cfg FilterConfig) *BeaconFilter {
	return &BeaconFilter{
		cfg:          cfg,
		lastSeen:     make(map[rateLimitKey]time.Time),
		fingerprints: make(map[PhysicalFingerprint]map[uint16]time.Time),
	}
}

// Candidate is the subset of a decoded beacon the filter needs to judge.
type Candidate struct {
	PowValid    bool
	HasTruncID  bool
	TruncID     uint16
	MediumID    string
	Fingerprint PhysicalFingerprint
	HasFingerprint bool
	Now         time.Time
}

// RejectReason names which stage rejected a candidate, or "" on accept.
type RejectReason string

const (
	RejectNone        RejectReason = ""
	RejectPoW         RejectReason = "pow_invalid"
	RejectRateLimit   RejectReason = "rate_limit"
	RejectSybil       RejectReason = "sybil_threshold"
)

// Accept runs c through all three stages in order, short-circuiting at the
// first rejection.
func (f *BeaconFilter) Accept(c Candidate) RejectReason {
	if !c.PowValid {
		return RejectPoW
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if c.HasTruncID {
		key := rateLimitKey{truncID: c.TruncID, mediumID: c.MediumID}
		if last, ok := f.lastSeen[key]; ok && c.Now.Sub(last) < f.cfg.MinInterval {
			return RejectRateLimit
		}
		f.lastSeen[key] = c.Now
	}

	if c.HasFingerprint && c.HasTruncID {
		seen, ok := f.fingerprints[c.Fingerprint]
		if !ok {
			seen = make(map[uint16]time.Time)
			f.fingerprints[c.Fingerprint] = seen
		}
		for id, ts := range seen {
			if c.Now.Sub(ts) >= f.cfg.SybilWindow {
				delete(seen, id)
			}
		}
		seen[c.TruncID] = c.Now
		if len(seen) > f.cfg.SybilThreshold {
			return RejectSybil
		}
	}

	return RejectNone
}

// Prune evicts empty fingerprint entries and rate-limit entries older than
// the configured windows, keeping long-running filter state bounded.
func (f *BeaconFilter) Prune(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key, ts := range f.lastSeen {
		if now.Sub(ts) >= f.cfg.MinInterval {
			delete(f.lastSeen, key)
		}
	}
	for fp, seen := range f.fingerprints {
		for id, ts := range seen {
			if now.Sub(ts) >= f.cfg.SybilWindow {
				delete(seen, id)
			}
		}
		if len(seen) == 0 {
			delete(f.fingerprints, fp)
		}
	}
}
