package neptun

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validLimit() BandwidthLimit {
	return BandwidthLimit{
		MaxReadPacketRate: 60, MaxReadPacketSize: 1400,
		MaxSendPacketRate: 60, MaxSendPacketSize: 1400,
	}
}

func TestConnectionManager_HandshakeReachesFullyConnected(t *testing.T) {
	a := NewConnectionManager(ConnectionManagerConfig{NumRedundantPackets: 1, Limit: validLimit()})
	b := NewConnectionManager(ConnectionManagerConfig{NumRedundantPackets: 1, Limit: validLimit()})
	a.Connect()
	b.Connect()

	buf := make([]byte, 64)

	n := a.Write(buf, 0)
	require.Greater(t, n, 0)
	_, err := b.Read(buf[segmentHeaderSize:n], 1)
	require.NoError(t, err)
	require.Equal(t, PeerKnown, b.State())

	n = b.Write(buf, 0)
	require.Greater(t, n, 0)
	_, err = a.Read(buf[segmentHeaderSize:n], 1)
	require.NoError(t, err)
	require.Equal(t, PeerKnown, a.State())

	a.onPacketStatus(PacketStatus{PacketID: 0, Status: Ack})
	b.onPacketStatus(PacketStatus{PacketID: 0, Status: Ack})

	require.Equal(t, 0, a.Write(buf, 1), "redundant offers exhausted, nothing left to write")
	require.Equal(t, 0, b.Write(buf, 1), "redundant offers exhausted, nothing left to write")
	require.True(t, a.IsFullyConnected())
	require.True(t, b.IsFullyConnected())
}

func TestConnectionManager_DropRetriesOfferWhilePeerLimitUnknown(t *testing.T) {
	c := NewConnectionManager(ConnectionManagerConfig{NumRedundantPackets: 1, Limit: validLimit()})
	c.Connect()

	buf := make([]byte, 64)
	n := c.Write(buf, 5)
	require.Greater(t, n, 0)
	require.Equal(t, 0, c.Write(buf, 6), "redundant offers exhausted after one send")

	c.onPacketStatus(PacketStatus{PacketID: 5, Status: Drop})

	n = c.Write(buf, 7)
	require.Greater(t, n, 0, "the dropped offer earns one more retry since peer_limit is still unknown")
	require.Equal(t, 0, c.Write(buf, 8), "retry budget spent, nothing left to write")
}

func TestConnectionManager_DropAfterPeerKnownDoesNotRetry(t *testing.T) {
	c := NewConnectionManager(ConnectionManagerConfig{NumRedundantPackets: 1, Limit: validLimit()})
	c.Connect()

	buf := make([]byte, 64)
	c.Write(buf, 5)

	n2 := writeMessageHeader(buf, MessageLetsConnect)
	n2 += writeLetsConnect(buf[n2:], letsConnect{
		MaxSendPacketRate: 60, MaxReadPacketRate: 60, MaxSendPacketSize: 1400, MaxReadPacketSize: 1400,
	})
	_, err := c.Read(buf[:n2], 1)
	require.NoError(t, err)
	require.Equal(t, PeerKnown, c.State())

	c.onPacketStatus(PacketStatus{PacketID: 5, Status: Drop})
	require.Equal(t, 0, c.Write(buf, 6), "peer_limit already known, a dropped offer must not be retried")
}

func TestConnectionManager_RejectsInvalidLimit(t *testing.T) {
	c := NewConnectionManager(ConnectionManagerConfig{NumRedundantPackets: 1, Limit: validLimit()})
	buf := make([]byte, 64)

	n := writeInvalidLetsConnect(buf)
	_, err := c.Read(buf[:n], 1)
	require.NoError(t, err)
	require.True(t, c.IsRejected())
}

func writeInvalidLetsConnect(buf []byte) int {
	offset := writeMessageHeader(buf, MessageLetsConnect)
	offset += writeLetsConnect(buf[offset:], letsConnect{
		MaxSendPacketRate: 0, MaxReadPacketRate: 60, MaxSendPacketSize: 1400, MaxReadPacketSize: 1400,
	})
	return offset
}

func TestConnectionManager_RejectLetsConnectPropagates(t *testing.T) {
	c := NewConnectionManager(ConnectionManagerConfig{NumRedundantPackets: 1, Limit: validLimit()})
	buf := make([]byte, 64)
	n := writeMessageHeader(buf, MessageRejectLetsConnect)
	_, err := c.Read(buf[:n], 1)
	require.ErrorIs(t, err, ErrLetsConnectRejected)
	require.True(t, c.IsRejected())
}

func TestConnectionManager_SendsRejectAfterRejecting(t *testing.T) {
	c := NewConnectionManager(ConnectionManagerConfig{NumRedundantPackets: 1, Limit: validLimit()})
	buf := make([]byte, 64)
	n := writeInvalidLetsConnect(buf)
	c.Read(buf[:n], 1)

	out := make([]byte, 64)
	n = c.Write(out, 0)
	require.Greater(t, n, 0)
	seg := readSegment(out)
	require.Equal(t, ManagerConnection, seg.ManagerType)
	msgType := readMessageHeader(out[segmentHeaderSize:])
	require.Equal(t, MessageRejectLetsConnect, msgType)
}
