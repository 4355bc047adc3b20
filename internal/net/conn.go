package net

import (
	"bufio"
	"net"
	"time"
)

// Conn carries whole payloads over some transport. One goroutine may read
// while another writes.
type Conn interface {
	ReadPayload() ([]byte, error)
	WritePayload(data []byte) error
	Close() error
	RemoteAddr() string
}

const writeTimeout = 10 * time.Second

// tcpConn frames payloads over a stream connection.
type tcpConn struct {
	c net.Conn
	r *bufio.Reader
}

func NewTCPConn(c net.Conn) Conn {
	return &tcpConn{c: c, r: bufio.NewReader(c)}
}

func (t *tcpConn) ReadPayload() ([]byte, error) {
	return ReadFrame(t.r)
}

func (t *tcpConn) WritePayload(data []byte) error {
	t.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return WriteFrame(t.c, data)
}

func (t *tcpConn) Close() error {
	return t.c.Close()
}

func (t *tcpConn) RemoteAddr() string {
	return t.c.RemoteAddr().String()
}
