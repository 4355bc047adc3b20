package net

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
)

var sessionIDs atomic.Uint64

func nextSessionID() uint64 {
	return sessionIDs.Add(1)
}

// SessionOptions sizes the queues and the inbound rate limit of sessions.
type SessionOptions struct {
	InQueueSize  int
	OutQueueSize int
	// MessagesPerSecond is the sustained inbound rate; 0 disables the limit.
	MessagesPerSecond float64
	Burst             int
}

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; the game loop reads InQueue and calls Send and
// FlushOutput.
type Session struct {
	ID     uint64
	Client game.ClientID
	IP     string

	conn Conn

	InQueue  chan message.ClientMessage // game loop reads messages from here
	OutQueue chan message.ServerMessage // writer goroutine reads from here

	outBuf  []message.ServerMessage // flushed by OutputSystem (game loop only)
	dropped atomic.Uint64

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	limiter *rate.Limiter // readLoop goroutine only

	log *zap.Logger
}

// NewSession wraps conn. The client id is chosen by the server; the one a
// client puts in its Hello is ignored.
func NewSession(conn Conn, opts SessionOptions, log *zap.Logger) *Session {
	id := nextSessionID()
	client := game.NewClientID()
	s := &Session{
		ID:       id,
		Client:   client,
		IP:       conn.RemoteAddr(),
		conn:     conn,
		InQueue:  make(chan message.ClientMessage, max(opts.InQueueSize, 1)),
		OutQueue: make(chan message.ServerMessage, max(opts.OutQueueSize, 1)),
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint64("session", id), zap.Stringer("client", client)),
	}
	if opts.MessagesPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), max(opts.Burst, 1))
	}
	return s
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a message. Nothing is written until FlushOutput.
// Called only from the game loop goroutine.
func (s *Session) Send(msg message.ServerMessage) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, msg)
}

// FlushOutput moves buffered messages to OutQueue. When the queue is full
// the oldest queued state refresh is dropped to make room, or the oldest
// message when no refresh is queued.
func (s *Session) FlushOutput() {
	for _, msg := range s.outBuf {
		s.push(msg)
	}
	clear(s.outBuf)
	s.outBuf = s.outBuf[:0]
}

// refresh reports whether msg is superseded by the next message of its kind.
func refresh(msg message.ServerMessage) bool {
	switch msg.(type) {
	case message.SetGameFrame, message.SetGameSlice:
		return true
	}
	return false
}

// push is called from the game loop only, so OutQueue never gains
// messages while it is being drained and refilled.
func (s *Session) push(msg message.ServerMessage) {
	select {
	case s.OutQueue <- msg:
		return
	default:
	}

	queued := make([]message.ServerMessage, 0, cap(s.OutQueue))
drain:
	for {
		select {
		case m := <-s.OutQueue:
			queued = append(queued, m)
		default:
			break drain
		}
	}
	if len(queued) == cap(s.OutQueue) {
		victim := max(slices.IndexFunc(queued, refresh), 0)
		queued = slices.Delete(queued, victim, victim+1)
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			s.log.Warn("output queue full, dropping message", zap.Uint64("dropped", n))
		}
	}
	for _, m := range queued {
		s.OutQueue <- m
	}
	s.OutQueue <- msg
}

// Dropped returns the number of outbound messages dropped so far.
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}

// Close gracefully shuts down the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop decodes payloads and pushes them onto InQueue for the game loop.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		payload, err := s.conn.ReadPayload()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		if s.limiter != nil && !s.limiter.Allow() {
			s.log.Warn("message rate exceeded, disconnecting")
			return
		}

		msg, err := message.DecodeClient(payload)
		if err != nil {
			s.log.Warn("undecodable message, disconnecting", zap.Error(err))
			return
		}

		// Block until InQueue has space; only this client waits.
		select {
		case s.InQueue <- msg:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop encodes queued messages and writes them to the connection.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case msg := <-s.OutQueue:
			if !s.writeOne(msg) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOne(msg message.ServerMessage) bool {
	data, err := message.EncodeServer(msg)
	if err != nil {
		s.log.Error("encode message", zap.String("type", fmt.Sprintf("%T", msg)), zap.Error(err))
		return true
	}
	if len(data) > MaxFrameSize {
		s.log.Error("message exceeds frame size, skipped",
			zap.String("type", fmt.Sprintf("%T", msg)),
			zap.Int("size", len(data)))
		return true
	}
	if err := s.conn.WritePayload(data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}
