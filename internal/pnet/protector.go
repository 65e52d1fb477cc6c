package pnet

import (
	"crypto/rand"
	"io"
	"sync"

	"github.com/unicornultrafoundation/p2pcore/internal/cryptocore"
)

// NonceSize is the length of each direction's keystream nonce, sent
// unencrypted ahead of protected traffic.
const NonceSize = 24

// Conn wraps a raw connection with a bidirectional XSalsa20 keystream XOR
// keyed on a shared PSK, restricting the link to peers in the same
// private swarm.
type Conn struct {
	rw io.ReadWriter

	writeMu sync.Mutex
	out     *cryptocore.XSalsa20Cipher

	readMu sync.Mutex
	in     *cryptocore.XSalsa20Cipher
}

// NewConn performs the nonce exchange (send local, read remote) and
// returns a protector wrapping rw. Both sides generate a nonce locally and
// send it unencrypted before any protected byte flows.
func NewConn(rw io.ReadWriter, psk [PSKSize]byte) (*Conn, error) {
	var localNonce [NonceSize]byte
	if _, err := rand.Read(localNonce[:]); err != nil {
		return nil, err
	}
	if _, err := rw.Write(localNonce[:]); err != nil {
		return nil, err
	}

	var remoteNonce [NonceSize]byte
	if _, err := io.ReadFull(rw, remoteNonce[:]); err != nil {
		return nil, err
	}

	return &Conn{
		rw:  rw,
		out: cryptocore.NewXSalsa20(psk, localNonce),
		in:  cryptocore.NewXSalsa20(psk, remoteNonce),
	}, nil
}

// Write XORs p with the outbound keystream and writes the result.
func (c *Conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ct := make([]byte, len(p))
	c.out.XORKeyStream(ct, p)
	n, err := c.rw.Write(ct)
	if err != nil {
		return 0, err
	}
	if n != len(ct) {
		return n, io.ErrShortWrite
	}
	return len(p), nil
}

// Read reads into p and XORs it with the inbound keystream in place.
func (c *Conn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	n, err := c.rw.Read(p)
	if n > 0 {
		c.in.XORKeyStream(p[:n], p[:n])
	}
	return n, err
}

// Close closes the underlying connection if it supports it.
func (c *Conn) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
