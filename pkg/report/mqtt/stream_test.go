package mqtt

import (
	"io"
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"
)

func TestStreamRead(t *testing.T) {
	s := NewStream(NewQueue(paho.NewClientOptions(), "bridge/obd/"))
	s.handleRx(TopicRx, []byte("41 0D"))
	s.handleRx(TopicRx, nil)
	s.handleRx(TopicRx, []byte(" 07\r>"))

	buf := make([]byte, 3)
	var got []byte
	for len(got) < 10 {
		n, err := s.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.Equal(t, "41 0D 07\r>", string(got))
}

func TestStreamClosed(t *testing.T) {
	s := NewStream(NewQueue(paho.NewClientOptions(), ""))
	require.NoError(t, s.Close())
	_, err := s.Read(make([]byte, 1))
	require.Equal(t, io.EOF, err)
	_, err = s.Write([]byte("AT\r"))
	require.Equal(t, io.ErrClosedPipe, err)
	s.handleRx(TopicRx, []byte("late"))
}
