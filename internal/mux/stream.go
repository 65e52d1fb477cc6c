package mux

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// State is a stream's position in the Yamux half-close state machine.
type State int

const (
	StateOpen State = iota
	StateHalfClosedLocal  // we sent FIN, remote can still send
	StateHalfClosedRemote // remote sent FIN, we can still send
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfClosedLocal:
		return "half-closed-local"
	case StateHalfClosedRemote:
		return "half-closed-remote"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrStreamReset is returned from Read/Write once a stream has been reset.
var ErrStreamReset = errors.New("mux: stream reset")

// ErrStreamClosed is returned writing to a stream that is closed or
// half-closed on the local side.
var ErrStreamClosed = errors.New("mux: stream closed for writing")

// ErrRecvWindowExceeded resets a stream whose peer sent more data than the
// advertised receive window permitted.
var ErrRecvWindowExceeded = errors.New("mux: receive window exceeded")

// Stream is one Yamux-multiplexed logical connection. It implements
// io.ReadWriteCloser.
type Stream struct {
	id      uint32
	session *Session

	mu         sync.Mutex
	state      State
	sendWindow uint32
	recvWindow uint32
	resetErr   error

	sendCond *sync.Cond

	recvMu  sync.Mutex
	recvBuf []byte
	recvCh  chan struct{} // signaled whenever recvBuf or state changes

	establishedCh chan struct{} // closed once the peer ACKs (or we're the acceptor)
	establishedOk bool
}

func newStream(session *Session, id uint32, initialWindow uint32, state State) *Stream {
	s := &Stream{
		id:            id,
		session:       session,
		state:         state,
		sendWindow:    initialWindow,
		recvWindow:    initialWindow,
		recvCh:        make(chan struct{}, 1),
		establishedCh: make(chan struct{}),
	}
	s.sendCond = sync.NewCond(&s.mu)
	return s
}

// ID returns the stream's identifier.
func (s *Stream) ID() uint32 { return s.id }

func (s *Stream) notifyRecv() {
	select {
	case s.recvCh <- struct{}{}:
	default:
	}
}

// Read blocks until data is available, the stream is half-closed by the
// remote with no buffered data left, or the stream is reset.
func (s *Stream) Read(p []byte) (int, error) {
	for {
		s.recvMu.Lock()
		if len(s.recvBuf) > 0 {
			n := copy(p, s.recvBuf)
			s.recvBuf = s.recvBuf[n:]
			s.recvMu.Unlock()
			s.restoreRecvWindow(uint32(n))
			s.session.grantWindow(s, uint32(n))
			return n, nil
		}
		s.recvMu.Unlock()

		s.mu.Lock()
		if s.resetErr != nil {
			err := s.resetErr
			s.mu.Unlock()
			return 0, err
		}
		if s.state == StateHalfClosedRemote || s.state == StateClosed {
			s.mu.Unlock()
			return 0, io.EOF
		}
		s.mu.Unlock()

		<-s.recvCh
	}
}

func (s *Stream) pushData(data []byte) {
	s.recvMu.Lock()
	s.recvBuf = append(s.recvBuf, data...)
	s.recvMu.Unlock()
	s.notifyRecv()
}

// reserveRecvWindow reports whether n bytes of inbound data fit within the
// stream's remaining receive window, decrementing it if so. The caller
// must reset the stream rather than buffer data when this returns false.
func (s *Stream) reserveRecvWindow(n uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.recvWindow {
		return false
	}
	s.recvWindow -= n
	return true
}

// restoreRecvWindow returns n bytes of receive window once the caller has
// consumed them via Read.
func (s *Stream) restoreRecvWindow(n uint32) {
	s.mu.Lock()
	s.recvWindow += n
	s.mu.Unlock()
}

// Write blocks until enough send window is available, splitting large
// writes into multiple frames as the window permits.
func (s *Stream) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		s.mu.Lock()
		for s.sendWindow == 0 && s.resetErr == nil && s.state != StateHalfClosedLocal && s.state != StateClosed {
			s.sendCond.Wait()
		}
		if s.resetErr != nil {
			err := s.resetErr
			s.mu.Unlock()
			return written, err
		}
		if s.state == StateHalfClosedLocal || s.state == StateClosed {
			s.mu.Unlock()
			return written, ErrStreamClosed
		}
		chunk := len(p) - written
		if uint32(chunk) > s.sendWindow {
			chunk = int(s.sendWindow)
		}
		if chunk > MaxFrameLength {
			chunk = MaxFrameLength
		}
		s.sendWindow -= uint32(chunk)
		s.mu.Unlock()

		if err := s.session.sendData(s.id, p[written:written+chunk]); err != nil {
			return written, err
		}
		written += chunk
	}
	return written, nil
}

// increaseSendWindow applies an incoming windowUpdate, saturating at
// math.MaxUint32 rather than overflowing.
func (s *Stream) increaseSendWindow(delta uint32) {
	s.mu.Lock()
	if s.sendWindow > ^uint32(0)-delta {
		s.sendWindow = ^uint32(0)
	} else {
		s.sendWindow += delta
	}
	s.mu.Unlock()
	s.sendCond.Broadcast()
}

// Close sends a FIN, transitioning to half-closed-local (or closed, if the
// remote already sent FIN).
func (s *Stream) Close() error {
	s.mu.Lock()
	switch s.state {
	case StateClosed, StateHalfClosedLocal:
		s.mu.Unlock()
		return nil
	case StateHalfClosedRemote:
		s.state = StateClosed
	default:
		s.state = StateHalfClosedLocal
	}
	s.mu.Unlock()
	s.sendCond.Broadcast()
	return s.session.sendFIN(s.id)
}

// reset hard-terminates the stream with err, waking any blocked Read/Write.
func (s *Stream) reset(err error) {
	s.mu.Lock()
	if s.resetErr == nil {
		s.resetErr = err
	}
	s.state = StateClosed
	alreadyEstablished := s.establishedOk
	s.establishedOk = true
	s.mu.Unlock()
	if !alreadyEstablished {
		close(s.establishedCh)
	}
	s.sendCond.Broadcast()
	s.notifyRecv()
}

// onRemoteFIN marks the stream half-closed on the remote side (or fully
// closed if we'd already closed locally).
func (s *Stream) onRemoteFIN() {
	s.mu.Lock()
	switch s.state {
	case StateHalfClosedLocal:
		s.state = StateClosed
	case StateOpen:
		s.state = StateHalfClosedRemote
	}
	s.mu.Unlock()
	s.notifyRecv()
}

func (s *Stream) markEstablished() {
	s.mu.Lock()
	already := s.establishedOk
	s.establishedOk = true
	s.mu.Unlock()
	if !already {
		close(s.establishedCh)
	}
}

// WaitEstablished blocks until the stream's SYN/ACK exchange completes,
// the stream is reset, or done fires. It returns the stream's reset error
// (if any) once established, or the reset error immediately if the
// stream is already dead.
func (s *Stream) WaitEstablished(done <-chan struct{}) error {
	select {
	case <-s.establishedCh:
	case <-done:
		return errors.New("mux: wait cancelled")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetErr
}

// State returns the stream's current half-close state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Stream) String() string {
	return fmt.Sprintf("stream(%d,%s)", s.id, s.State())
}
