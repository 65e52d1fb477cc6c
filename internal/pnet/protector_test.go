package pnet

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnRoundTrip(t *testing.T) {
	var psk [PSKSize]byte
	for i := range psk {
		psk[i] = 0x42
	}

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	clientReady := make(chan *Conn, 1)
	clientErr := make(chan error, 1)
	go func() {
		conn, err := NewConn(c1, psk)
		clientErr <- err
		clientReady <- conn
	}()

	server, err := NewConn(c2, psk)
	require.NoError(t, err)
	require.NoError(t, <-clientErr)
	client := <-clientReady

	plaintext := make([]byte, 8*1024)
	for i := range plaintext {
		plaintext[i] = byte(i)
	}

	writeDone := make(chan error, 1)
	go func() {
		_, werr := client.Write(plaintext)
		writeDone <- werr
	}()

	got := make([]byte, len(plaintext))
	_, err = io.ReadFull(server, got)
	require.NoError(t, err)
	require.NoError(t, <-writeDone)
	require.Equal(t, plaintext, got)
}

func TestConnRawWireDiffersFromPlaintext(t *testing.T) {
	var psk [PSKSize]byte
	for i := range psk {
		psk[i] = 0x42
	}

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		var remoteNonce [NonceSize]byte
		_, _ = io.ReadFull(c2, remoteNonce[:])

		var localNonce [NonceSize]byte
		_, _ = c2.Write(localNonce[:])

		raw := make([]byte, 5)
		_, _ = io.ReadFull(c2, raw)
		require.NotEqual(t, []byte("hello"), raw)
	}()

	client, err := NewConn(c1, psk)
	require.NoError(t, err)
	_, err = client.Write([]byte("hello"))
	require.NoError(t, err)
	<-done
}

func TestConnMismatchedPSKProducesGarbage(t *testing.T) {
	var pskA, pskB [PSKSize]byte
	for i := range pskA {
		pskA[i] = 0x42
	}
	pskB = pskA
	pskB[0] = 0x99

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	clientErr := make(chan error, 1)
	go func() {
		client, err := NewConn(c1, pskA)
		clientErr <- err
		if err == nil {
			_, _ = client.Write([]byte("hello"))
		}
	}()

	server, err := NewConn(c2, pskB)
	require.NoError(t, err)
	require.NoError(t, <-clientErr)

	got := make([]byte, 5)
	_, err = io.ReadFull(server, got)
	require.NoError(t, err)
	require.False(t, bytes.Equal(got, []byte("hello")))
}
