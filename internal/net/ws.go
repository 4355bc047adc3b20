package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsConn carries one payload per binary WebSocket message.
type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) ReadPayload() ([]byte, error) {
	kind, data, err := w.c.ReadMessage()
	if err != nil {
		return nil, err
	}
	if kind != websocket.BinaryMessage {
		return nil, fmt.Errorf("unexpected websocket message type %d", kind)
	}
	return data, nil
}

func (w *wsConn) WritePayload(data []byte) error {
	_ = w.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.c.WriteMessage(websocket.BinaryMessage, data)
}

func (w *wsConn) Close() error {
	return w.c.Close()
}

func (w *wsConn) RemoteAddr() string {
	return w.c.RemoteAddr().String()
}

// WSServer accepts WebSocket clients on an HTTP listener.
type WSServer struct {
	listener net.Listener
	http     *http.Server
	upgrader websocket.Upgrader
	newConns chan *Session
	opts     SessionOptions
	log      *zap.Logger
}

// NewWSServer listens on bindAddr and serves the WebSocket endpoint at path.
func NewWSServer(bindAddr, path string, opts SessionOptions, log *zap.Logger) (*WSServer, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	s := &WSServer{
		listener: ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		newConns: make(chan *Session, 64),
		opts:     opts,
		log:      log.With(zap.String("component", "ws")),
	}
	mux := http.NewServeMux()
	mux.Handle(path, s.Handler())
	s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return s, nil
}

// Handler upgrades requests and turns them into sessions.
func (s *WSServer) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		conn.SetReadLimit(MaxFrameSize)

		sess := NewSession(&wsConn{c: conn}, s.opts, s.log)
		sess.Start()
		s.log.Info("client connected", zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))
		offer(s.newConns, sess, s.log)
	}
}

// Serve blocks until Shutdown.
func (s *WSServer) Serve() error {
	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket server: %w", err)
	}
	return nil
}

func (s *WSServer) NewSessions() <-chan *Session {
	return s.newConns
}

// Shutdown stops the HTTP server. Hijacked WebSocket connections are owned
// by their sessions and closed by them.
func (s *WSServer) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *WSServer) Addr() net.Addr {
	return s.listener.Addr()
}
