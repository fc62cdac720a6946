package neptun

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnreliableStream_SendWriteReadDelivers(t *testing.T) {
	sender := NewUnreliableStream()
	receiver := NewUnreliableStream()

	sender.Send([]byte("ping"))
	sender.Send([]byte("pong"))

	buf := make([]byte, 256)
	n := sender.Write(buf)
	require.Greater(t, n, 0)

	seg := readSegment(buf)
	require.Equal(t, ManagerUnreliable, seg.ManagerType)
	require.Equal(t, uint8(2), seg.MessageCount)

	var delivered []string
	_, err := receiver.Read(buf[segmentHeaderSize:n], seg.MessageCount, func(msg []byte) {
		delivered = append(delivered, string(msg))
	})
	require.NoError(t, err)
	require.Equal(t, []string{"ping", "pong"}, delivered)
}

func TestUnreliableStream_MessageThatMissesItsTickIsDiscarded(t *testing.T) {
	s := NewUnreliableStream()
	s.Send([]byte("too big to fit"))

	tinyBuf := make([]byte, segmentHeaderSize+unreliableMessageHeaderSize)
	n := s.Write(tinyBuf)
	require.Equal(t, 0, n, "message doesn't fit, nothing written")

	// Next tick's Write must not retry the discarded message.
	bigBuf := make([]byte, 256)
	s.Send([]byte("fits fine"))
	n = s.Write(bigBuf)
	seg := readSegment(bigBuf)
	require.Equal(t, uint8(1), seg.MessageCount, "discarded message from the prior tick must not resurface")
}

func TestUnreliableStream_WriteWithNothingPendingWritesNothing(t *testing.T) {
	s := NewUnreliableStream()
	buf := make([]byte, 64)
	require.Equal(t, 0, s.Write(buf))
}

func TestUnreliableStream_WriteStopsAtFirstMessageThatDoesNotFit(t *testing.T) {
	s := NewUnreliableStream()
	s.Send([]byte("fits"))
	s.Send([]byte("this one does not fit in the remaining room"))
	s.Send([]byte("ok"))

	buf := make([]byte, segmentHeaderSize+unreliableMessageHeaderSize+len("fits"))
	n := s.Write(buf)
	require.Greater(t, n, 0)

	seg := readSegment(buf)
	require.Equal(t, uint8(1), seg.MessageCount, "packing stops at the first message that doesn't fit, like ReliableStream.Write")
}

func TestUnreliableStream_ZeroLengthMessageIsMalformed(t *testing.T) {
	receiver := NewUnreliableStream()
	buf := make([]byte, 64)
	n := writeUnreliableMessageHeader(buf, 0)
	_, err := receiver.Read(buf[:n], 1, func([]byte) { t.Fatal("must not deliver a zero-length message") })
	require.ErrorIs(t, err, ErrMalformedPacket)
}
