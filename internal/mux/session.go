package mux

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrSessionClosed is returned from session operations once the session
// has been shut down.
var ErrSessionClosed = errors.New("mux: session closed")

// ErrGoAway is returned from NewStream once the peer has sent goAway.
var ErrGoAway = errors.New("mux: peer sent goAway")

// ErrTooManyStreams is returned opening a stream once the session's
// concurrent stream limit has been reached.
var ErrTooManyStreams = errors.New("mux: too many concurrent streams")

// Config tunes a Session's behavior. Note that the effective time to detect
// a dead peer is up to KeepAliveInterval + KeepAliveTimeout: a ping is sent
// every KeepAliveInterval, and only then waits KeepAliveTimeout for a reply
// before declaring the session dead.
type Config struct {
	InitialWindow        uint32
	MaxConcurrentStreams int
	KeepAliveInterval     time.Duration
	KeepAliveTimeout      time.Duration
	AcceptBacklog         int
}

// DefaultConfig returns Yamux defaults used throughout the corpus.
func DefaultConfig() Config {
	return Config{
		InitialWindow:         DefaultInitialWindow,
		MaxConcurrentStreams:  256,
		KeepAliveInterval:     30 * time.Second,
		KeepAliveTimeout:      15 * time.Second,
		AcceptBacklog:         64,
	}
}

// Session multiplexes many Streams over one underlying io.ReadWriteCloser:
// one reader goroutine demultiplexing into per-stream buffers, writes
// serialized under a single lock.
type Session struct {
	conn       io.ReadWriteCloser
	cfg        Config
	isClient   bool

	writeMu sync.Mutex

	mu          sync.Mutex
	streams     map[uint32]*Stream
	nextID      uint32
	closed      bool
	closeErr    error
	goAwaySent  bool
	goAwayRecvd bool

	acceptCh chan *Stream
	closeCh  chan struct{}

	pingMu      sync.Mutex
	pendingPing map[uint32]chan struct{}
	nextPingID  uint32

	lastActivity time.Time
	activityMu   sync.Mutex
}

// NewSession wraps conn as a Yamux session. isClient selects the stream ID
// parity used by NewStream (initiator odd, responder even).
func NewSession(conn io.ReadWriteCloser, isClient bool, cfg Config) *Session {
	start := uint32(2)
	if isClient {
		start = 1
	}
	s := &Session{
		conn:        conn,
		cfg:         cfg,
		isClient:    isClient,
		streams:     make(map[uint32]*Stream),
		nextID:      start,
		acceptCh:    make(chan *Stream, cfg.AcceptBacklog),
		closeCh:     make(chan struct{}),
		pendingPing: make(map[uint32]chan struct{}),
	}
	s.touch()
	go s.readLoop()
	if cfg.KeepAliveInterval > 0 {
		go s.keepAliveLoop()
	}
	return s
}

func (s *Session) touch() {
	s.activityMu.Lock()
	s.lastActivity = monotonicNow()
	s.activityMu.Unlock()
}

// monotonicNow is isolated so it's the only place the session reads wall
// time, keeping the rest of the session free of direct time.Now() calls.
func monotonicNow() time.Time { return time.Now() }

func (s *Session) sinceActivity() time.Duration {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	return monotonicNow().Sub(s.lastActivity)
}

// NewStream opens a new outbound stream, sending a SYN.
func (s *Session) NewStream() (*Stream, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.goAwaySent || s.goAwayRecvd {
		s.mu.Unlock()
		return nil, ErrGoAway
	}
	if len(s.streams) >= s.cfg.MaxConcurrentStreams {
		s.mu.Unlock()
		return nil, ErrTooManyStreams
	}
	id := s.nextID
	s.nextID += 2
	stream := newStream(s, id, s.cfg.InitialWindow, StateOpen)
	stream.sendWindow = 0 // unknown until the peer ACKs with its recv window
	s.streams[id] = stream
	s.mu.Unlock()

	if err := s.writeHeader(Header{Type: TypeWindowUpdate, Flags: FlagSYN, StreamID: id, Length: s.cfg.InitialWindow}); err != nil {
		return nil, err
	}
	return stream, nil
}

// Accept blocks until an inbound stream is available or the session closes.
func (s *Session) Accept() (*Stream, error) {
	select {
	case st, ok := <-s.acceptCh:
		if !ok {
			return nil, s.closeErrOrDefault()
		}
		return st, nil
	case <-s.closeCh:
		return nil, s.closeErrOrDefault()
	}
}

func (s *Session) closeErrOrDefault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeErr != nil {
		return s.closeErr
	}
	return ErrSessionClosed
}

func (s *Session) writeHeader(h Header) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.conn.Write(h.Encode())
	return err
}

func (s *Session) sendData(streamID uint32, payload []byte) error {
	h := Header{Type: TypeData, StreamID: streamID, Length: uint32(len(payload))}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.conn.Write(h.Encode()); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := s.conn.Write(payload)
	return err
}

func (s *Session) sendFIN(streamID uint32) error {
	return s.writeHeader(Header{Type: TypeWindowUpdate, Flags: FlagFIN, StreamID: streamID})
}

func (s *Session) sendRST(streamID uint32) error {
	return s.writeHeader(Header{Type: TypeWindowUpdate, Flags: FlagRST, StreamID: streamID})
}

// grantWindow sends a windowUpdate restoring n bytes of receive window
// after the caller has consumed n bytes via Stream.Read.
func (s *Session) grantWindow(stream *Stream, n uint32) {
	if n == 0 {
		return
	}
	_ = s.writeHeader(Header{Type: TypeWindowUpdate, StreamID: stream.id, Length: n})
}

// Ping sends a keep-alive ping and blocks until the matching pong arrives
// or timeout elapses.
func (s *Session) Ping(timeout time.Duration) error {
	s.pingMu.Lock()
	id := s.nextPingID
	s.nextPingID++
	ch := make(chan struct{})
	s.pendingPing[id] = ch
	s.pingMu.Unlock()

	if err := s.writeHeader(Header{Type: TypePing, Flags: FlagSYN, Length: id}); err != nil {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-time.After(timeout):
		s.pingMu.Lock()
		delete(s.pendingPing, id)
		s.pingMu.Unlock()
		return fmt.Errorf("mux: ping %d timed out", id)
	case <-s.closeCh:
		return ErrSessionClosed
	}
}

func (s *Session) keepAliveLoop() {
	ticker := time.NewTicker(s.cfg.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closeCh:
			return
		case <-ticker.C:
			if err := s.Ping(s.cfg.KeepAliveTimeout); err != nil {
				s.shutdown(fmt.Errorf("mux: keep-alive failed: %w", err))
				return
			}
		}
	}
}

// GoAway sends a goAway frame and blocks NewStream from issuing further
// outbound streams. Streams on this side stay open; the peer, on receiving
// the frame, resets all of its streams with ErrGoAway.
func (s *Session) GoAway(reason GoAwayReason) error {
	s.mu.Lock()
	s.goAwaySent = true
	s.mu.Unlock()
	return s.writeHeader(Header{Type: TypeGoAway, Length: uint32(reason)})
}

func (s *Session) readLoop() {
	var hdr [HeaderSize]byte
	for {
		if _, err := io.ReadFull(s.conn, hdr[:]); err != nil {
			s.shutdown(err)
			return
		}
		h, err := DecodeHeader(hdr[:])
		if err != nil {
			s.shutdown(err)
			return
		}
		s.touch()
		switch h.Type {
		case TypeData:
			if err := s.handleData(h); err != nil {
				s.shutdown(err)
				return
			}
		case TypeWindowUpdate:
			s.handleWindowUpdate(h)
		case TypePing:
			s.handlePing(h)
		case TypeGoAway:
			s.handleGoAway(h)
		default:
			s.shutdown(fmt.Errorf("mux: unknown frame type %d", h.Type))
			return
		}
	}
}

func (s *Session) handleData(h Header) error {
	var payload []byte
	if h.Length > 0 {
		payload = make([]byte, h.Length)
		if _, err := io.ReadFull(s.conn, payload); err != nil {
			return err
		}
	}
	s.mu.Lock()
	stream, ok := s.streams[h.StreamID]
	s.mu.Unlock()
	if !ok {
		return nil // data for an unknown/closed stream is dropped
	}
	if h.Flags.Has(FlagRST) {
		stream.reset(ErrStreamReset)
		s.removeStream(h.StreamID)
		return nil
	}
	if len(payload) > 0 {
		if !stream.reserveRecvWindow(uint32(len(payload))) {
			stream.reset(ErrRecvWindowExceeded)
			_ = s.sendRST(h.StreamID)
			s.removeStream(h.StreamID)
			return nil
		}
		stream.pushData(payload)
	}
	if h.Flags.Has(FlagFIN) {
		stream.onRemoteFIN()
	}
	return nil
}

func (s *Session) handleWindowUpdate(h Header) {
	if h.Flags.Has(FlagRST) {
		s.mu.Lock()
		stream, ok := s.streams[h.StreamID]
		s.mu.Unlock()
		if ok {
			stream.reset(ErrStreamReset)
			s.removeStream(h.StreamID)
		}
		return
	}
	if h.Flags.Has(FlagSYN) {
		s.acceptStream(h.StreamID, h.Length)
		return
	}
	if h.Flags.Has(FlagFIN) {
		s.mu.Lock()
		stream, ok := s.streams[h.StreamID]
		s.mu.Unlock()
		if ok {
			stream.onRemoteFIN()
		}
		return
	}
	s.mu.Lock()
	stream, ok := s.streams[h.StreamID]
	s.mu.Unlock()
	if !ok {
		return
	}
	if h.Flags.Has(FlagACK) {
		stream.markEstablished()
	}
	stream.increaseSendWindow(h.Length)
}

func (s *Session) acceptStream(id uint32, peerWindow uint32) {
	expectResponder := s.isClient // a client session expects inbound streams from a responder, i.e. even IDs
	validParity := (expectResponder && IsResponderStreamID(id)) || (!expectResponder && IsInitiatorStreamID(id))
	if !validParity {
		_ = s.sendRST(id)
		return
	}
	s.mu.Lock()
	if s.closed || len(s.streams) >= s.cfg.MaxConcurrentStreams {
		s.mu.Unlock()
		_ = s.sendRST(id)
		return
	}
	if _, exists := s.streams[id]; exists {
		s.mu.Unlock()
		_ = s.sendRST(id)
		return
	}
	stream := newStream(s, id, s.cfg.InitialWindow, StateOpen)
	stream.sendWindow = peerWindow
	if stream.sendWindow == 0 {
		stream.sendWindow = s.cfg.InitialWindow
	}
	s.streams[id] = stream
	s.mu.Unlock()

	select {
	case s.acceptCh <- stream:
		stream.markEstablished()
		_ = s.writeHeader(Header{Type: TypeWindowUpdate, Flags: FlagACK, StreamID: id, Length: s.cfg.InitialWindow})
	default:
		// backlog full: reject rather than block the reader loop.
		s.removeStream(id)
		_ = s.sendRST(id)
	}
}

func (s *Session) handlePing(h Header) {
	if h.Flags.Has(FlagSYN) {
		_ = s.writeHeader(Header{Type: TypePing, Flags: FlagACK, Length: h.Length})
		return
	}
	s.pingMu.Lock()
	ch, ok := s.pendingPing[h.Length]
	if ok {
		delete(s.pendingPing, h.Length)
	}
	s.pingMu.Unlock()
	if ok {
		close(ch)
	}
}

func (s *Session) handleGoAway(h Header) {
	s.mu.Lock()
	s.goAwayRecvd = true
	streams := make([]*Stream, 0, len(s.streams))
	for _, st := range s.streams {
		streams = append(streams, st)
	}
	s.mu.Unlock()
	for _, st := range streams {
		st.reset(ErrGoAway)
	}
}

func (s *Session) removeStream(id uint32) {
	s.mu.Lock()
	delete(s.streams, id)
	s.mu.Unlock()
}

func (s *Session) shutdown(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.closeErr = err
	streams := make([]*Stream, 0, len(s.streams))
	for _, st := range s.streams {
		streams = append(streams, st)
	}
	s.streams = nil
	s.mu.Unlock()

	for _, st := range streams {
		st.reset(err)
	}
	close(s.closeCh)
	close(s.acceptCh)
	_ = s.conn.Close()
}

// Close gracefully tears down the session and all of its streams.
func (s *Session) Close() error {
	s.shutdown(ErrSessionClosed)
	return nil
}

// NumStreams returns the number of currently open streams.
func (s *Session) NumStreams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}
