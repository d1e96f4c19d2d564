package realtime

import (
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbeoliero/kit/log"
)

// wsStream exposes a websocket connection as a byte stream. Each Write
// becomes one text message; Read concatenates incoming messages.
type wsStream struct {
	conn      *websocket.Conn
	reader    io.Reader
	writeChan chan []byte
	writeWait time.Duration

	writeMu   sync.Mutex
	closed    bool
	closeOnce sync.Once
	closeChan chan struct{}

	doneOnce sync.Once
	done     chan struct{}
	errMu    sync.Mutex
	err      error
}

func newWSStream(conn *websocket.Conn, writeWait time.Duration) *wsStream {
	s := &wsStream{
		conn:      conn,
		writeChan: make(chan []byte, WriteChannelSize),
		writeWait: writeWait,
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}

	go s.writeLoop()

	return s
}

// writeLoop handles all writes to the connection (single writer pattern)
func (s *wsStream) writeLoop() {
	defer s.conn.Close()

	for {
		select {
		case message := <-s.writeChan:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("realtime write error: %v", err)
				s.finish(err)
				return
			}

		case <-s.closeChan:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			s.finish(ErrConnClosed)
			return

		case <-s.done:
			return
		}
	}
}

// Read is called from a single reader goroutine
func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.reader == nil {
			_, r, err := s.conn.NextReader()
			if err != nil {
				s.finish(err)
				return 0, err
			}
			s.reader = r
		}

		n, err := s.reader.Read(p)
		if err == io.EOF {
			s.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Write queues p for the write loop, blocking while the queue is full
func (s *wsStream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	closed := s.closed
	s.writeMu.Unlock()
	if closed {
		return 0, ErrConnClosed
	}

	select {
	case <-s.done:
		return 0, ErrConnClosed
	default:
	}

	data := make([]byte, len(p))
	copy(data, p)

	select {
	case s.writeChan <- data:
		return len(p), nil
	case <-s.closeChan:
		return 0, ErrConnClosed
	case <-s.done:
		return 0, ErrConnClosed
	}
}

// Close closes the connection
func (s *wsStream) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.closed = true
		s.writeMu.Unlock()

		close(s.closeChan)
	})
	return nil
}

// Done is closed once the stream can no longer carry data
func (s *wsStream) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the stream
func (s *wsStream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *wsStream) finish(err error) {
	s.doneOnce.Do(func() {
		s.errMu.Lock()
		s.err = err
		s.errMu.Unlock()

		close(s.done)
		// unblock the reader when the writer failed first
		_ = s.conn.Close()
	})
}
