package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// parseFrame splits a STOMP frame into command and headers
func parseFrame(raw string) (string, map[string]string) {
	raw = strings.TrimLeft(raw, "\r\n")
	head, _, _ := strings.Cut(raw, "\n\n")
	lines := strings.Split(head, "\n")
	headers := make(map[string]string)
	for _, line := range lines[1:] {
		if k, v, ok := strings.Cut(line, ":"); ok {
			if _, seen := headers[k]; !seen {
				headers[k] = v
			}
		}
	}
	return lines[0], headers
}

// stompServer is a minimal broker: it accepts CONNECT, answers every
// SUBSCRIBE with one MESSAGE and acknowledges DISCONNECT receipts.
func stompServer(t *testing.T, connectHeaders chan<- map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			cmd, headers := parseFrame(string(data))
			if receipt := headers["receipt"]; receipt != "" && cmd != "DISCONNECT" {
				_ = conn.WriteMessage(websocket.TextMessage, []byte("RECEIPT\nreceipt-id:"+receipt+"\n\n\x00"))
			}
			switch cmd {
			case "":
				// heart-beat
			case "CONNECT", "STOMP":
				connectHeaders <- headers
				_ = conn.WriteMessage(websocket.TextMessage, []byte("CONNECTED\nversion:1.2\nheart-beat:0,0\n\n\x00"))
			case "SUBSCRIBE":
				msg := "MESSAGE\ndestination:" + headers["destination"] +
					"\nmessage-id:1\nsubscription:" + headers["id"] +
					"\ncontent-type:application/json\n\n{\"id\":\"m1\"}\x00"
				_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
			case "DISCONNECT":
				if receipt := headers["receipt"]; receipt != "" {
					_ = conn.WriteMessage(websocket.TextMessage, []byte("RECEIPT\nreceipt-id:"+receipt+"\n\n\x00"))
				}
				return
			}
		}
	}))
}

func TestStompDialer_ConnectSubscribeReceive(t *testing.T) {
	connectHeaders := make(chan map[string]string, 1)
	srv := stompServer(t, connectHeaders)
	defer srv.Close()

	d := NewStompDialer(wsURL(srv), "/", Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := d.Dial(ctx, DialRequest{Header: map[string]string{"Authorization": "Bearer tok"}})
	require.NoError(t, err)

	select {
	case headers := <-connectHeaders:
		assert.Equal(t, "Bearer tok", headers["Authorization"])
		assert.Equal(t, "/", headers["host"])
	case <-time.After(2 * time.Second):
		t.Fatal("no CONNECT frame")
	}

	frames := make(chan *Frame, 1)
	sub, err := sess.Subscribe("/user/queue/messages", func(f *Frame) { frames <- f })
	require.NoError(t, err)

	select {
	case f := <-frames:
		assert.Equal(t, "/user/queue/messages", f.Destination)
		assert.Equal(t, "application/json", f.ContentType)
		assert.JSONEq(t, `{"id":"m1"}`, string(f.Body))
	case <-time.After(2 * time.Second):
		t.Fatal("no MESSAGE delivered")
	}

	assert.NoError(t, sub.Unsubscribe())
	assert.NoError(t, sess.Close())

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session not done after close")
	}
}

func TestStompDialer_DialFailure(t *testing.T) {
	d := NewStompDialer("ws://127.0.0.1:1/ws/websocket", "/", Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := d.Dial(ctx, DialRequest{})
	assert.Error(t, err)
}

func TestWSStream_ReadWrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)

	s := newWSStream(conn, WriteWait)
	defer s.Close()

	n, err := s.Write([]byte("hello "))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, err = s.Write([]byte("world"))
	require.NoError(t, err)

	var got []byte
	buf := make([]byte, 4)
	for len(got) < len("hello world") {
		n, err := s.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, "hello world", string(got))
}

func TestWSStream_PeerCloseEndsStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
		conn.Close()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)

	s := newWSStream(conn, WriteWait)
	defer s.Close()

	_, err = s.Read(make([]byte, 16))
	assert.Error(t, err)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream not done")
	}
	assert.Error(t, s.Err())

	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrConnClosed)
}
