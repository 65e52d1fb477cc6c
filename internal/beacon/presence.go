package beacon

import (
	"math"
	"time"
)

// Medium names a physical transport carrying beacons.
type Medium string

const (
	MediumNFC               Medium = "nfc"
	MediumBLE               Medium = "ble"
	MediumWifiDirect        Medium = "wifi-direct"
	MediumLoRa              Medium = "lora"
	MediumGossip            Medium = "gossip"
	MediumStoreCarryForward Medium = "storeCarryForward"
)

// FreshnessFunction decays an observation's weight over age:
// w(age) = initialWeight * 0.5^(age/halfLife), or 0 if halfLife is zero.
type FreshnessFunction struct {
	InitialWeight float64
	HalfLife      time.Duration
}

// Evaluate returns the freshness weight at the given age.
func (f FreshnessFunction) Evaluate(age time.Duration) float64 {
	if f.HalfLife == 0 {
		return 0
	}
	ratio := float64(age) / float64(f.HalfLife)
	return f.InitialWeight * math.Pow(0.5, ratio)
}

// MediumFreshnessPresets are the default (initialWeight, halfLife) pairs
// per medium.
var MediumFreshnessPresets = map[Medium]FreshnessFunction{
	MediumNFC:               {InitialWeight: 1.0, HalfLife: 30 * time.Second},
	MediumBLE:               {InitialWeight: 0.8, HalfLife: 60 * time.Second},
	MediumWifiDirect:        {InitialWeight: 0.7, HalfLife: 120 * time.Second},
	MediumLoRa:              {InitialWeight: 0.5, HalfLife: 300 * time.Second},
	MediumGossip:            {InitialWeight: 0.3, HalfLife: 180 * time.Second},
	MediumStoreCarryForward: {InitialWeight: 0.2, HalfLife: 600 * time.Second},
}

// Observation is a single accepted beacon sighting contributing to a
// presence score.
type Observation struct {
	Timestamp         time.Time
	MediumID          string
	RSSI              *float64
	Address           OpaqueAddress
	FreshnessFunction FreshnessFunction
}

// OpaqueAddress is a medium-tagged raw address, hashable by both fields.
type OpaqueAddress struct {
	MediumID string
	Raw      string
}

// PresenceScore computes the Bayesian Noisy-OR aggregate presence score
// from a set of observations at instant now: 1 - prod(1 - f_i), or 0 for
// an empty set.
func PresenceScore(observations []Observation, now time.Time) float64 {
	if len(observations) == 0 {
		return 0
	}
	product := 1.0
	for _, obs := range observations {
		age := now.Sub(obs.Timestamp)
		if age < 0 {
			age = 0
		}
		f := obs.FreshnessFunction.Evaluate(age)
		product *= 1 - f
	}
	return 1 - product
}
