package net

import (
	"net"

	"go.uber.org/zap"
)

// Acceptor hands newly connected sessions to the game loop.
type Acceptor interface {
	NewSessions() <-chan *Session
}

// Server accepts TCP connections and creates Sessions.
type Server struct {
	listener net.Listener
	newConns chan *Session
	opts     SessionOptions
	log      *zap.Logger
	closeCh  chan struct{}
}

func NewServer(bindAddr string, opts SessionOptions, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		newConns: make(chan *Session, 64),
		opts:     opts,
		log:      log.With(zap.String("component", "tcp")),
		closeCh:  make(chan struct{}),
	}, nil
}

// AcceptLoop runs in its own goroutine until Shutdown.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		sess := NewSession(NewTCPConn(conn), s.opts, s.log)
		sess.Start()
		s.log.Info("client connected", zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))
		offer(s.newConns, sess, s.log)
	}
}

// offer hands sess to the game loop, closing it when the loop is too far
// behind to take it.
func offer(ch chan *Session, sess *Session, log *zap.Logger) {
	select {
	case ch <- sess:
	default:
		log.Warn("session queue full, refusing connection", zap.Uint64("session", sess.ID))
		sess.Close()
	}
}

func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
