package neptun

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// peerConfig bundles what a peer needs to build its four managers: the
// bandwidth this side offers, how many redundant handshake offers to send,
// how large its stream buffers are, and how many ticks per second the
// owning engine runs at (for rate accounting).
type peerConfig struct {
	Limit               BandwidthLimit
	NumRedundantPackets int
	ReliableBufferSize  int
	TickRate            float64
	PacketTimeout       time.Duration
}

// peer holds every piece of per-remote state the engine multiplexes onto
// one datagram per tick: a session id for log correlation, the four
// protocol managers, and the send-rate ticker for outbound datagrams.
type peer struct {
	SessionID uuid.UUID
	Addr      *net.UDPAddr

	Delivery   *PacketDeliveryManager
	Connection *ConnectionManager
	Reliable   *ReliableStream
	Unreliable *UnreliableStream

	sendTicker *rateTicker

	Metrics *Metrics
}

// newPeer constructs a peer in the IDLE handshake state; callers typically
// follow up with Connection.Connect() to start offering this side's limit.
func newPeer(addr *net.UDPAddr, cfg peerConfig, metrics *Metrics) *peer {
	return &peer{
		SessionID: uuid.New(),
		Addr:      addr,
		Delivery:  NewPacketDeliveryManager(cfg.PacketTimeout),
		Connection: NewConnectionManager(ConnectionManagerConfig{
			NumRedundantPackets: cfg.NumRedundantPackets,
			Limit:               cfg.Limit,
		}),
		Reliable:   NewReliableStream(cfg.ReliableBufferSize),
		Unreliable: NewUnreliableStream(),
		sendTicker: newRateTicker(cfg.Limit.MaxSendPacketRate, cfg.TickRate),
		Metrics:    metrics,
	}
}

// IsConnected reports whether the handshake with this peer has completed.
func (p *peer) IsConnected() bool {
	return p.Connection.IsFullyConnected()
}

// reconcileSendRate lowers this peer's effective send rate to whatever the
// peer advertised as its read capacity, once known, so this side never
// floods a peer that asked for less. A zero rate on either side means "no
// limit asserted from that side" and leaves the other side's number in
// effect.
func (p *peer) reconcileSendRate(configuredRate uint8) {
	peerLimit := p.Connection.PeerLimit()
	effective := configuredRate
	if peerLimit.MaxReadPacketRate != 0 && (effective == 0 || peerLimit.MaxReadPacketRate < effective) {
		effective = peerLimit.MaxReadPacketRate
	}
	p.sendTicker.setRate(effective)
}
