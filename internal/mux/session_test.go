package mux

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newSessionPair(t *testing.T, cfg Config) (client, server *Session) {
	t.Helper()
	c1, c2 := net.Pipe()
	client = NewSession(c1, true, cfg)
	server = NewSession(c2, false, cfg)
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}

func TestSessionOpenAcceptReadWrite(t *testing.T) {
	client, server := newSessionPair(t, DefaultConfig())

	clientDone := make(chan error, 1)
	var stream *Stream
	go func() {
		var err error
		stream, err = client.NewStream()
		clientDone <- err
	}()

	accepted, err := server.Accept()
	require.NoError(t, err)
	require.NoError(t, <-clientDone)
	require.True(t, IsInitiatorStreamID(accepted.ID()))

	msg := []byte("hello over yamux")
	writeDone := make(chan error, 1)
	go func() {
		_, werr := stream.Write(msg)
		writeDone <- werr
	}()

	buf := make([]byte, len(msg))
	_, err = io.ReadFull(accepted, buf)
	require.NoError(t, err)
	require.Equal(t, msg, buf)
	require.NoError(t, <-writeDone)
}

func TestSessionStreamCloseSendsFINAndPeerSeesEOF(t *testing.T) {
	client, server := newSessionPair(t, DefaultConfig())

	streamCh := make(chan *Stream, 1)
	go func() {
		st, err := client.NewStream()
		require.NoError(t, err)
		streamCh <- st
	}()
	accepted, err := server.Accept()
	require.NoError(t, err)
	stream := <-streamCh

	require.NoError(t, stream.Close())

	buf := make([]byte, 1)
	n, err := accepted.Read(buf)
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
}

func TestSessionPingPong(t *testing.T) {
	client, server := newSessionPair(t, DefaultConfig())
	_ = server
	require.NoError(t, client.Ping(2*time.Second))
}

func TestSessionGoAwayResetsStreams(t *testing.T) {
	client, server := newSessionPair(t, DefaultConfig())

	streamCh := make(chan *Stream, 1)
	go func() {
		st, err := client.NewStream()
		require.NoError(t, err)
		streamCh <- st
	}()
	_, err := server.Accept()
	require.NoError(t, err)
	stream := <-streamCh

	require.NoError(t, server.GoAway(GoAwayNormal))

	buf := make([]byte, 1)
	readErr := make(chan error, 1)
	go func() {
		_, err := stream.Read(buf)
		readErr <- err
	}()

	select {
	case err := <-readErr:
		require.ErrorIs(t, err, ErrGoAway)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for goAway reset to propagate")
	}
}

func TestSessionRejectsWrongParityInboundStream(t *testing.T) {
	fakePeer, conn := net.Pipe()
	client := NewSession(conn, true, DefaultConfig())
	t.Cleanup(func() { _ = client.Close() })

	// A client session only accepts even (responder) stream IDs inbound;
	// simulate a misbehaving peer opening an odd-numbered stream toward it.
	badHeader := Header{Type: TypeWindowUpdate, Flags: FlagSYN, StreamID: 5, Length: DefaultInitialWindow}
	go func() {
		_, _ = fakePeer.Write(badHeader.Encode())
	}()

	select {
	case _, ok := <-client.acceptCh:
		if ok {
			t.Fatal("expected no accepted stream for wrong-parity SYN")
		}
	case <-time.After(200 * time.Millisecond):
		// no stream accepted, as expected
	}

	// The client should have answered with an RST for the bad stream ID.
	var hdr [HeaderSize]byte
	fakePeer.SetReadDeadline(time.Now().Add(time.Second))
	_, err := io.ReadFull(fakePeer, hdr[:])
	require.NoError(t, err)
	h, err := DecodeHeader(hdr[:])
	require.NoError(t, err)
	require.True(t, h.Flags.Has(FlagRST))
	require.Equal(t, uint32(5), h.StreamID)
}

func TestSessionResetsStreamOnRecvWindowViolation(t *testing.T) {
	fakePeer, conn := net.Pipe()
	cfg := DefaultConfig()
	cfg.InitialWindow = 16
	client := NewSession(conn, true, cfg)
	t.Cleanup(func() { _ = client.Close() })

	// Open an inbound (responder) stream toward the client session.
	synHeader := Header{Type: TypeWindowUpdate, Flags: FlagSYN, StreamID: 2, Length: DefaultInitialWindow}
	go func() {
		_, _ = fakePeer.Write(synHeader.Encode())
	}()

	var accepted *Stream
	select {
	case accepted = <-client.acceptCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for inbound stream")
	}
	require.Equal(t, uint32(2), accepted.ID())

	// Drain the client's ACK windowUpdate reply.
	var ackHdr [HeaderSize]byte
	fakePeer.SetReadDeadline(time.Now().Add(time.Second))
	_, err := io.ReadFull(fakePeer, ackHdr[:])
	require.NoError(t, err)

	// Send a data frame whose length exceeds the stream's receive window.
	oversized := make([]byte, cfg.InitialWindow+1)
	dataHeader := Header{Type: TypeData, StreamID: 2, Length: uint32(len(oversized))}
	go func() {
		_, _ = fakePeer.Write(dataHeader.Encode())
		_, _ = fakePeer.Write(oversized)
	}()

	buf := make([]byte, 1)
	_, err = accepted.Read(buf)
	require.ErrorIs(t, err, ErrRecvWindowExceeded)

	// The client must reply with an RST rather than buffer the overflow.
	var rstHdr [HeaderSize]byte
	fakePeer.SetReadDeadline(time.Now().Add(time.Second))
	_, err = io.ReadFull(fakePeer, rstHdr[:])
	require.NoError(t, err)
	h, err := DecodeHeader(rstHdr[:])
	require.NoError(t, err)
	require.True(t, h.Flags.Has(FlagRST))
	require.Equal(t, uint32(2), h.StreamID)
}

func TestSessionEnforcesConcurrentStreamLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrentStreams = 1
	client, server := newSessionPair(t, cfg)

	s1, err := client.NewStream()
	require.NoError(t, err)
	_, err = server.Accept()
	require.NoError(t, err)

	_, err = client.NewStream()
	require.ErrorIs(t, err, ErrTooManyStreams)
	_ = s1
}
