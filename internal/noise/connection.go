package noise

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/unicornultrafoundation/p2pcore/internal/cryptocore"
)

// MaxFrameSize is the maximum Noise transport frame size, including the
// 2-byte length prefix.
const MaxFrameSize = 65535

// MaxPlaintextSize is the maximum plaintext bytes per frame:
// MaxFrameSize - 2 (length) - 16 (AEAD tag).
const MaxPlaintextSize = MaxFrameSize - 2 - cryptocore.AEADTagSize

// FrameTooLarge is returned when a frame (length-prefix included) would
// exceed MaxFrameSize.
type FrameTooLarge struct {
	Size, Max int
}

func (e *FrameTooLarge) Error() string {
	return fmt.Sprintf("noise: frame size %d exceeds max %d", e.Size, e.Max)
}

// transportCipher is one direction's independent AEAD state: a fixed key
// and a strictly-monotonic nonce counter.
type transportCipher struct {
	mu      sync.Mutex
	key     [cryptocore.AEADKeySize]byte
	counter cryptocore.NonceCounter
}

func (c *transportCipher) nonceBytes(n uint64) [12]byte {
	var nonce [12]byte
	binary.LittleEndian.PutUint64(nonce[4:], n)
	return nonce
}

func (c *transportCipher) encrypt(plaintext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.counter.Next()
	if err != nil {
		return nil, err
	}
	return cryptocore.Seal(c.key, c.nonceBytes(n), nil, plaintext)
}

func (c *transportCipher) decrypt(ciphertext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.counter.Next()
	if err != nil {
		return nil, err
	}
	return cryptocore.Open(c.key, c.nonceBytes(n), nil, ciphertext)
}

// Connection is a Noise transport-mode secured connection over an
// underlying io.ReadWriter: independent, full-duplex send/recv cipher
// states, each with its own lock, length-prefixed authenticated framing
//.
type Connection struct {
	rw io.ReadWriter

	send transportCipher
	recv transportCipher

	closedMu sync.Mutex
	closed   bool
}

// NewConnection wraps rw, using sendKey to encrypt outbound frames and
// recvKey to decrypt inbound ones.
func NewConnection(rw io.ReadWriter, sendKey, recvKey [cryptocore.AEADKeySize]byte) *Connection {
	c := &Connection{rw: rw}
	c.send.key = sendKey
	c.recv.key = recvKey
	return c
}

func (c *Connection) isClosed() bool {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()
	return c.closed
}

func (c *Connection) markClosed() {
	c.closedMu.Lock()
	c.closed = true
	c.closedMu.Unlock()
}

// Write encrypts and frames data, splitting it into chunks of at most
// MaxPlaintextSize. An empty input still writes one authenticated empty
// frame.
func (c *Connection) Write(data []byte) (int, error) {
	if c.isClosed() {
		return 0, errors.New("noise: connection closed")
	}
	if len(data) == 0 {
		if err := c.writeFrame(nil); err != nil {
			return 0, err
		}
		return 0, nil
	}
	written := 0
	for len(data) > 0 {
		chunkLen := len(data)
		if chunkLen > MaxPlaintextSize {
			chunkLen = MaxPlaintextSize
		}
		if err := c.writeFrame(data[:chunkLen]); err != nil {
			return written, err
		}
		written += chunkLen
		data = data[chunkLen:]
	}
	return written, nil
}

func (c *Connection) writeFrame(plaintext []byte) error {
	ct, err := c.send.encrypt(plaintext)
	if err != nil {
		return err
	}
	frameLen := 2 + len(ct)
	if frameLen > MaxFrameSize {
		return &FrameTooLarge{Size: frameLen, Max: MaxFrameSize}
	}
	frame := make([]byte, frameLen)
	binary.BigEndian.PutUint16(frame[:2], uint16(len(ct)))
	copy(frame[2:], ct)
	if _, err := c.rw.Write(frame); err != nil {
		c.markClosed()
		return err
	}
	return nil
}

// Read decrypts and returns one frame's plaintext.
func (c *Connection) Read() ([]byte, error) {
	if c.isClosed() {
		return nil, errors.New("noise: connection closed")
	}
	var lenBuf [2]byte
	if _, err := io.ReadFull(c.rw, lenBuf[:]); err != nil {
		c.markClosed()
		return nil, err
	}
	ctLen := binary.BigEndian.Uint16(lenBuf[:])
	ct := make([]byte, ctLen)
	if _, err := io.ReadFull(c.rw, ct); err != nil {
		c.markClosed()
		return nil, err
	}
	pt, err := c.recv.decrypt(ct)
	if err != nil {
		c.markClosed()
		return nil, err
	}
	return pt, nil
}

// Close marks the connection closed and, if the underlying ReadWriter
// supports it, closes it too.
func (c *Connection) Close() error {
	c.markClosed()
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
