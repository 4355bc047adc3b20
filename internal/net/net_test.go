package net

import (
	"bytes"
	"errors"
	gonet "net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
	"github.com/buxx/civ/internal/space"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	for _, payload := range [][]byte{{1}, []byte("hello"), bytes.Repeat([]byte{7}, 70000)} {
		if err := WriteFrame(&buf, payload); err != nil {
			t.Fatal(err)
		}
	}
	for _, want := range []int{1, 5, 70000} {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != want {
			t.Fatalf("payload len = %d, want %d", len(got), want)
		}
	}
}

func TestReadFrameRejects(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff})); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
	if _, err := ReadFrame(bytes.NewReader([]byte{0, 0, 0, 0})); err == nil {
		t.Fatal("empty frame accepted")
	}
	if _, err := ReadFrame(bytes.NewReader([]byte{0, 0, 0, 9, 1})); err == nil {
		t.Fatal("short payload accepted")
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
		panic("unreachable")
	}
}

func TestSessionOverPipe(t *testing.T) {
	server, client := gonet.Pipe()
	defer client.Close()
	sess := NewSession(NewTCPConn(server), SessionOptions{InQueueSize: 4, OutQueueSize: 4}, zaptest.NewLogger(t))
	sess.Start()
	defer sess.Close()

	hello := message.Hello{Client: game.NewClientID(), Player: game.NewPlayerID(), Resolution: space.NewResolution(3, 3)}
	raw, err := message.EncodeClient(hello)
	if err != nil {
		t.Fatal(err)
	}
	go WriteFrame(client, raw)

	got := receive(t, sess.InQueue)
	if got.(message.Hello).Player != hello.Player {
		t.Fatalf("received %+v", got)
	}

	sess.Send(message.SetGameFrame{Frame: 42})
	sess.FlushOutput()
	payload, err := ReadFrame(client)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := message.DecodeServer(payload)
	if err != nil {
		t.Fatal(err)
	}
	if f, ok := msg.(message.SetGameFrame); !ok || f.Frame != 42 {
		t.Fatalf("decoded %#v", msg)
	}
}

func TestSessionDisconnectsOnGarbage(t *testing.T) {
	server, client := gonet.Pipe()
	defer client.Close()
	sess := NewSession(NewTCPConn(server), SessionOptions{}, zaptest.NewLogger(t))
	sess.Start()

	go WriteFrame(client, []byte{0, 0, 0, 9})
	deadline := time.Now().Add(2 * time.Second)
	for !sess.IsClosed() {
		if time.Now().After(deadline) {
			t.Fatal("session still open after garbage")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionRateLimit(t *testing.T) {
	server, client := gonet.Pipe()
	defer client.Close()
	sess := NewSession(NewTCPConn(server), SessionOptions{InQueueSize: 8, MessagesPerSecond: 0.001, Burst: 2}, zaptest.NewLogger(t))
	sess.Start()

	raw, _ := message.EncodeClient(message.Goodbye{})
	go func() {
		for range 3 {
			if err := WriteFrame(client, raw); err != nil {
				return
			}
		}
	}()
	receive(t, sess.InQueue)
	receive(t, sess.InQueue)

	deadline := time.Now().Add(2 * time.Second)
	for !sess.IsClosed() {
		if time.Now().After(deadline) {
			t.Fatal("flooding session still open")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type nopConn struct{}

func (nopConn) ReadPayload() ([]byte, error) { select {} }
func (nopConn) WritePayload([]byte) error    { return nil }
func (nopConn) Close() error                 { return nil }
func (nopConn) RemoteAddr() string           { return "nop" }

func TestFlushOutputDropsOldest(t *testing.T) {
	sess := NewSession(nopConn{}, SessionOptions{OutQueueSize: 2}, zaptest.NewLogger(t))
	for f := range 5 {
		sess.Send(message.SetGameFrame{Frame: game.Frame(f)})
	}
	sess.FlushOutput()

	if sess.Dropped() != 3 {
		t.Fatalf("dropped = %d", sess.Dropped())
	}
	for _, want := range []game.Frame{3, 4} {
		got := (<-sess.OutQueue).(message.SetGameFrame)
		if got.Frame != want {
			t.Fatalf("frame = %d, want %d", got.Frame, want)
		}
	}
}

func TestFlushOutputDropsRefreshFirst(t *testing.T) {
	sess := NewSession(nopConn{}, SessionOptions{OutQueueSize: 3}, zaptest.NewLogger(t))
	unit := game.NewUnitID()
	sess.Send(message.RemoveUnit{Point: space.NewPoint(1, 1), ID: unit})
	sess.Send(message.SetGameFrame{Frame: 7})
	sess.Send(message.SetGameSlice{Slice: message.EmptySlice(space.NewWindow(space.NewPoint(0, 0), space.NewPoint(1, 1)))})
	sess.Send(message.ServerResume{})
	sess.Send(message.SetGameFrame{Frame: 8})
	sess.FlushOutput()

	if sess.Dropped() != 2 {
		t.Fatalf("dropped = %d", sess.Dropped())
	}
	if m, ok := (<-sess.OutQueue).(message.RemoveUnit); !ok || m.ID != unit {
		t.Fatalf("first = %#v, want the RemoveUnit", m)
	}
	if _, ok := (<-sess.OutQueue).(message.ServerResume); !ok {
		t.Fatal("second message is not the ServerResume")
	}
	if m, ok := (<-sess.OutQueue).(message.SetGameFrame); !ok || m.Frame != 8 {
		t.Fatalf("third = %#v, want frame 8", m)
	}
}

func TestFlushOutputDropsOldestWithoutRefresh(t *testing.T) {
	sess := NewSession(nopConn{}, SessionOptions{OutQueueSize: 2}, zaptest.NewLogger(t))
	ids := []game.UnitID{game.NewUnitID(), game.NewUnitID(), game.NewUnitID()}
	for _, id := range ids {
		sess.Send(message.RemoveUnit{ID: id})
	}
	sess.FlushOutput()

	for _, want := range ids[1:] {
		if got := (<-sess.OutQueue).(message.RemoveUnit); got.ID != want {
			t.Fatalf("unit = %s, want %s", got.ID, want)
		}
	}
}

type bigConn struct {
	nopConn
	written chan int
}

func (c bigConn) WritePayload(data []byte) error {
	c.written <- len(data)
	return nil
}

func TestOversizeMessageSkipped(t *testing.T) {
	conn := bigConn{written: make(chan int, 4)}
	sess := NewSession(conn, SessionOptions{OutQueueSize: 4}, zaptest.NewLogger(t))
	big := message.Notification{Level: message.LevelInfo, Text: strings.Repeat("x", MaxFrameSize)}
	if !sess.writeOne(big) {
		t.Fatal("oversize message closed the writer")
	}
	if !sess.writeOne(message.SetGameFrame{Frame: 1}) {
		t.Fatal("write after oversize message failed")
	}
	if n := receive(t, conn.written); n > MaxFrameSize {
		t.Fatalf("wrote %d bytes", n)
	}
	select {
	case n := <-conn.written:
		t.Fatalf("unexpected second write of %d bytes", n)
	default:
	}
}

func TestSessionStore(t *testing.T) {
	st := NewSessionStore()
	a := NewSession(nopConn{}, SessionOptions{}, zaptest.NewLogger(t))
	b := NewSession(nopConn{}, SessionOptions{}, zaptest.NewLogger(t))
	st.Add(b)
	st.Add(a)

	sessions := st.Sessions()
	if len(sessions) != 2 || sessions[0] != a || sessions[1] != b {
		t.Fatal("sessions not in connection order")
	}
	if !st.Send(a.Client, message.SetGameFrame{Frame: 1}) {
		t.Fatal("send to live session failed")
	}
	st.Remove(a.ID)
	if st.Send(a.Client, message.SetGameFrame{Frame: 2}) {
		t.Fatal("send to removed session succeeded")
	}
	if st.Len() != 1 {
		t.Fatalf("len = %d", st.Len())
	}
}

func TestWebSocketSession(t *testing.T) {
	ws := &WSServer{
		newConns: make(chan *Session, 1),
		log:      zaptest.NewLogger(t),
		opts:     SessionOptions{InQueueSize: 4, OutQueueSize: 4},
	}
	srv := httptest.NewServer(ws.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	sess := receive(t, ws.NewSessions())
	defer sess.Close()

	raw, _ := message.EncodeClient(message.TakePlace{Flag: game.FlagZulu, Resolution: space.NewResolution(5, 5)})
	if err := conn.WriteMessage(websocket.BinaryMessage, raw); err != nil {
		t.Fatal(err)
	}
	got := receive(t, sess.InQueue)
	if tp, ok := got.(message.TakePlace); !ok || tp.Flag != game.FlagZulu {
		t.Fatalf("received %#v", got)
	}

	sess.Send(message.Unauthorized())
	sess.FlushOutput()
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("message type = %d", kind)
	}
	msg, err := message.DecodeServer(data)
	if err != nil {
		t.Fatal(err)
	}
	if msg != message.Unauthorized() {
		t.Fatalf("decoded %#v", msg)
	}
}
