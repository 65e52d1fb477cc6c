package noise

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unicornultrafoundation/p2pcore/internal/cryptocore"
	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

func runHandshake(t *testing.T) (initiator, responder *HandshakeState) {
	t.Helper()
	initKP, err := identity.Generate()
	require.NoError(t, err)
	respKP, err := identity.Generate()
	require.NoError(t, err)

	initStaticPriv, _, err := cryptocore.GenerateX25519()
	require.NoError(t, err)
	respStaticPriv, _, err := cryptocore.GenerateX25519()
	require.NoError(t, err)

	initiator, err = NewHandshakeState(true, initStaticPriv, initKP, nil)
	require.NoError(t, err)
	responder, err = NewHandshakeState(false, respStaticPriv, respKP, nil)
	require.NoError(t, err)

	msg1, err := initiator.WriteMessage1()
	require.NoError(t, err)
	require.NoError(t, responder.ReadMessage1(msg1))

	msg2, err := responder.WriteMessage2()
	require.NoError(t, err)
	require.NoError(t, initiator.ReadMessage2(msg2))

	msg3, err := initiator.WriteMessage3()
	require.NoError(t, err)
	require.NoError(t, responder.ReadMessage3(msg3))

	require.True(t, initiator.RemotePeerID.Equal(respKP.PeerID))
	require.True(t, responder.RemotePeerID.Equal(initKP.PeerID))
	return initiator, responder
}

func TestHandshakeXXCompletesAndDerivesMatchingKeys(t *testing.T) {
	initiator, responder := runHandshake(t)

	initSend, initRecv, err := initiator.Split()
	require.NoError(t, err)
	respSend, respRecv, err := responder.Split()
	require.NoError(t, err)

	require.Equal(t, initSend, respRecv)
	require.Equal(t, initRecv, respSend)
}

func TestHandshakeRejectsPeerMismatch(t *testing.T) {
	initKP, _ := identity.Generate()
	respKP, _ := identity.Generate()
	wrongPeer, _ := identity.Generate()

	initStaticPriv, _, _ := cryptocore.GenerateX25519()
	respStaticPriv, _, _ := cryptocore.GenerateX25519()

	initiator, err := NewHandshakeState(true, initStaticPriv, initKP, wrongPeer.PeerID)
	require.NoError(t, err)
	responder, err := NewHandshakeState(false, respStaticPriv, respKP, nil)
	require.NoError(t, err)

	msg1, _ := initiator.WriteMessage1()
	require.NoError(t, responder.ReadMessage1(msg1))
	msg2, _ := responder.WriteMessage2()

	err = initiator.ReadMessage2(msg2)
	require.Error(t, err)
	var mismatch *ErrPeerMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestHandshakeRejectsSmallOrderEphemeral(t *testing.T) {
	initKP, _ := identity.Generate()
	respStaticPriv, _, _ := cryptocore.GenerateX25519()
	responder, err := NewHandshakeState(false, respStaticPriv, initKP, nil)
	require.NoError(t, err)

	zeroPoint := make([]byte, 32) // the all-zero small-order point
	err = responder.ReadMessage1(zeroPoint)
	require.ErrorIs(t, err, cryptocore.ErrInvalidKey)
}
