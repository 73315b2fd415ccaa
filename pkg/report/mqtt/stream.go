package mqtt

import (
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/robotalks/tracker.go/pkg/l0/port"
)

// Stream topics relative to the stream prefix.
const (
	TopicRx = "rx"
	TopicTx = "tx"
)

// Stream is a byte stream bridged over MQTT, for serial ports exposed by
// a remote bridge. Bytes from the peer arrive on <prefix>rx, bytes
// written are published to <prefix>tx.
type Stream struct {
	Queue *Queue

	sub     *Subscription
	payload chan []byte
	pending []byte
	done    chan struct{}
	once    sync.Once
}

func init() {
	port.RegisterScheme("mqtt", openStream)
	port.RegisterScheme("mqtts", openStream)
}

func openStream(u *url.URL, _ int) (io.ReadWriteCloser, error) {
	q, err := NewQueueFromURL(u.String())
	if err != nil {
		return nil, err
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", u.Host, token.Error())
	}
	s := NewStream(q)
	if err := s.Subscribe(); err != nil {
		q.Close()
		return nil, err
	}
	return s, nil
}

// NewStream creates a Stream over a Queue.
func NewStream(q *Queue) *Stream {
	return &Stream{
		Queue:   q,
		payload: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

// Subscribe starts receiving from the rx topic.
func (s *Stream) Subscribe() error {
	s.sub = s.Queue.Sub(TopicRx, s.handleRx)
	if s.sub.Token.Wait() && s.sub.Token.Error() != nil {
		return s.sub.Token.Error()
	}
	return nil
}

func (s *Stream) handleRx(_ string, payload []byte) {
	if len(payload) == 0 {
		return
	}
	select {
	case s.payload <- append([]byte(nil), payload...):
	case <-s.done:
	}
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		select {
		case s.pending = <-s.payload:
		case <-s.done:
			return 0, io.EOF
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	select {
	case <-s.done:
		return 0, io.ErrClosedPipe
	default:
	}
	token := s.Queue.PubWith(TopicTx, append([]byte(nil), p...), 1, false)
	if token.Wait() && token.Error() != nil {
		return 0, token.Error()
	}
	return len(p), nil
}

// Close implements io.Closer.
func (s *Stream) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.sub != nil {
			s.sub.Close()
		}
		s.Queue.Close()
	})
	return nil
}
