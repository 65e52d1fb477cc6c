package beacon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServiceEndToEndTier1Beacon(t *testing.T) {
	medium := NewLoopbackMedium()
	chars := MediumCharacteristics{MaxBeaconSize: 64}
	sender := medium.NewAdapter("ble", chars)
	receiver := medium.NewAdapter("ble", chars)

	store := NewMemoryPeerStore()
	cfg := DefaultServiceConfig()
	cfg.PoWDifficulty = 0 // keep the test fast; PoW solving is exercised separately
	svc := NewService(cfg, store, nil)
	go svc.Run(receiver)
	defer svc.Shutdown()

	truncID := uint16(0x4242)
	pow, found := SolvePoW(truncID, 7, 0)
	require.True(t, found)
	frame := Tier1Frame{TruncID: truncID, PoW: pow, Nonce: 7}

	require.NoError(t, sender.StartBeacon(frame.Encode()))

	select {
	case ev := <-svc.Events():
		require.Equal(t, EventNewSighting, ev.Kind)
		require.Equal(t, truncID, ev.Sighting.TruncID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for aggregation event")
	}
}

func TestServiceRejectsOversizedBeacon(t *testing.T) {
	medium := NewLoopbackMedium()
	chars := MediumCharacteristics{MaxBeaconSize: 4}
	sender := medium.NewAdapter("ble", chars)

	err := sender.StartBeacon(make([]byte, 100))
	require.Error(t, err)
	var tooLarge *BeaconTooLarge
	require.ErrorAs(t, err, &tooLarge)
}
