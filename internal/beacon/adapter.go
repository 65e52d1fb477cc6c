package beacon

import (
	"errors"
	"fmt"
	"time"
)

// Directionality describes whether a medium can transmit, receive, or both.
type Directionality int

const (
	DirectionalityBidirectional Directionality = iota
	DirectionalityTransmitOnly
	DirectionalityReceiveOnly
)

// MediumCharacteristics describes a physical medium's transmission
// constraints.
type MediumCharacteristics struct {
	Directionality               Directionality
	MaxBeaconSize                int
	RangeMetersMin, RangeMetersMax float64
	MinTransmitInterval          time.Duration
	MinListenWindow              time.Duration
	ChannelCount                 int
	EnergyCost                   float64 // in [0,1]
	SupportsMultiPacketReception bool
}

// BeaconTooLarge is returned by TransportAdapter.StartBeacon when payload
// exceeds the medium's MaxBeaconSize.
type BeaconTooLarge struct {
	Size, Max int
}

func (e *BeaconTooLarge) Error() string {
	return fmt.Sprintf("beacon: payload size %d exceeds medium max %d", e.Size, e.Max)
}

// PhysicalFingerprintDetail is the optional radio-layer signature
// accompanying a raw discovery event.
type PhysicalFingerprintDetail struct {
	TxPower           int8
	ChannelIndex      uint8
	TimingOffsetMicros int64
	AoaDegrees        int16
}

// RawDiscovery is a single raw reception event from a TransportAdapter,
// before any BeaconCore filtering.
type RawDiscovery struct {
	Payload             []byte
	SourceAddress        OpaqueAddress
	Timestamp           time.Time
	RSSI                *float64
	MediumID            string
	PhysicalFingerprint *PhysicalFingerprintDetail
}

// ErrAdapterShutdown is returned by TransportAdapter methods once
// Shutdown has been called.
var ErrAdapterShutdown = errors.New("beacon: transport adapter shut down")

// TransportAdapter is the contract BeaconCore consumes from a physical
// medium driver.
type TransportAdapter interface {
	MediumID() string
	Characteristics() MediumCharacteristics
	StartBeacon(payload []byte) error
	StopBeacon() error
	Discoveries() <-chan RawDiscovery
	Shutdown() error
}
