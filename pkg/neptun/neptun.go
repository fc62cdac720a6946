package neptun

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ReadMTU and WriteMTU bound how large a datagram this engine will ever
// attempt to read or build. They're deliberately asymmetric: a peer running
// a newer build might send a slightly larger datagram than this side would
// ever construct, and rejecting it outright at the read boundary is safer
// than truncating it mid-segment.
const (
	ReadMTU  = 1600
	WriteMTU = 1400
)

// Socket is the datagram transport this engine drives. ReadFrom must be
// non-blocking: implementations are expected to return a timeout error
// (satisfying net.Error with Timeout() true) when no datagram is waiting,
// which Tick treats as "nothing to read this tick" rather than a failure.
type Socket interface {
	ReadFrom(buf []byte) (n int, addr *net.UDPAddr, err error)
	WriteTo(buf []byte, addr *net.UDPAddr) (int, error)
}

// EngineConfig parameterizes every peer this engine creates.
type EngineConfig struct {
	Limit               BandwidthLimit
	NumRedundantPackets int
	ReliableBufferSize  int
	TickRate            float64
	PacketTimeout       time.Duration
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.NumRedundantPackets <= 0 {
		c.NumRedundantPackets = 3
	}
	if c.ReliableBufferSize <= 0 {
		c.ReliableBufferSize = 64 * 1024
	}
	if c.TickRate <= 0 {
		c.TickRate = 20
	}
	if c.PacketTimeout <= 0 {
		c.PacketTimeout = DefaultPacketTimeout
	}
	return c
}

// Engine multiplexes the connection handshake, the reliable stream, and the
// unreliable stream for every known peer onto one datagram per peer per
// tick, and demultiplexes incoming datagrams the same way. Call Tick once
// per fixed interval; the engine itself does no internal scheduling or
// goroutines.
type Engine struct {
	socket Socket
	logger *zap.Logger
	config EngineConfig

	metricsVec *PeerMetricsVec
	peers      map[string]*peer

	readBuf  []byte
	writeBuf []byte
}

// New builds an engine bound to socket. reg receives the engine's
// Prometheus metrics; pass prometheus.DefaultRegisterer for the global
// registry or a fresh registry in tests.
func New(socket Socket, config EngineConfig, logger *zap.Logger, reg prometheus.Registerer) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Engine{
		socket:     socket,
		logger:     logger,
		config:     config.withDefaults(),
		metricsVec: NewPeerMetricsVec(reg),
		peers:      make(map[string]*peer),
		readBuf:    make([]byte, ReadMTU),
		writeBuf:   make([]byte, WriteMTU),
	}
}

// Connect starts (or restarts) the handshake with addr, creating peer state
// if this is the first time the engine has seen it.
func (e *Engine) Connect(addr *net.UDPAddr) {
	p := e.peerFor(addr)
	p.Connection.Connect()
}

// IsConnected reports whether the handshake with addr has completed. A peer
// the engine has never heard of is reported as not connected.
func (e *Engine) IsConnected(addr *net.UDPAddr) bool {
	p, ok := e.peers[addr.String()]
	return ok && p.IsConnected()
}

// SendReliableTo queues message for in-order, exactly-once delivery to
// addr. It returns false if the peer's reliable send buffer has no room;
// the caller should retry on a later tick.
func (e *Engine) SendReliableTo(addr *net.UDPAddr, message []byte) bool {
	p := e.peerFor(addr)
	ok := p.Reliable.Send(message)
	if ok {
		p.Metrics.Inc(MetricReliableMessagesSent)
	}
	return ok
}

// SendUnreliableTo queues message for best-effort delivery to addr. It waits
// for the next datagram that carries stream data to addr; if it does not fit
// there, it is discarded.
func (e *Engine) SendUnreliableTo(addr *net.UDPAddr, message []byte) {
	p := e.peerFor(addr)
	p.Unreliable.Send(message)
	p.Metrics.Inc(MetricUnreliableMessagesSent)
}

// Metrics returns the counter handle for addr, creating peer state if
// necessary.
func (e *Engine) Metrics(addr *net.UDPAddr) *Metrics {
	return e.peerFor(addr).Metrics
}

func (e *Engine) peerFor(addr *net.UDPAddr) *peer {
	key := addr.String()
	p, ok := e.peers[key]
	if ok {
		return p
	}
	p = newPeer(addr, peerConfig{
		Limit:               e.config.Limit,
		NumRedundantPackets: e.config.NumRedundantPackets,
		ReliableBufferSize:  e.config.ReliableBufferSize,
		TickRate:            e.config.TickRate,
		PacketTimeout:       e.config.PacketTimeout,
	}, e.metricsVec.ForPeer(key))
	e.peers[key] = p
	return p
}

// ReliableHandler and UnreliableHandler are invoked once per delivered
// message, per peer, during Tick.
type ReliableHandler func(addr *net.UDPAddr, message []byte)
type UnreliableHandler func(addr *net.UDPAddr, message []byte)

// Tick drives one iteration of the engine: it performs at most one
// non-blocking socket read, dispatches any delivery-status and message
// callbacks that read produces, times out stale in-flight packets for every
// known peer, and then gives every peer a chance to write and send a
// datagram in CONNECTION, RELIABLE, UNRELIABLE order.
func (e *Engine) Tick(now time.Time, onReliable ReliableHandler, onUnreliable UnreliableHandler) error {
	if err := e.readOnce(now, onReliable, onUnreliable); err != nil {
		return err
	}

	for addr, p := range e.addrPeers() {
		for _, status := range p.Delivery.DropOldPackets(now) {
			e.dispatchStatus(p, status)
		}
		p.sendTicker.tick()
		if err := e.writeTo(addr, p, now); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) addrPeers() map[*net.UDPAddr]*peer {
	byAddr := make(map[*net.UDPAddr]*peer, len(e.peers))
	for _, p := range e.peers {
		byAddr[p.Addr] = p
	}
	return byAddr
}

func (e *Engine) readOnce(now time.Time, onReliable ReliableHandler, onUnreliable UnreliableHandler) error {
	n, addr, err := e.socket.ReadFrom(e.readBuf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil
		}
		return errors.Wrap(err, "neptun: socket read")
	}
	if n < packetHeaderSize {
		return nil
	}

	p := e.peerFor(addr)
	p.Metrics.Inc(MetricPacketsReceived)

	buf := e.readBuf[:n]
	consumed, statuses, _ := p.Delivery.ProcessRead(buf)
	for _, status := range statuses {
		e.dispatchStatus(p, status)
	}
	if consumed == 0 {
		return nil // duplicate or stale packet: ack info honored, body ignored
	}

	offset := consumed
	for offset+segmentHeaderSize <= len(buf) {
		seg := readSegment(buf[offset:])
		offset += segmentHeaderSize

		if seg.ManagerType != ManagerConnection && !p.Connection.IsPeerConnected() {
			// Not yet peer-connected: peer_limit is unknown, so RELIABLE and
			// UNRELIABLE segments aren't accepted yet. Stop reading this
			// datagram here rather than parse segments this side has no
			// business acting on.
			return nil
		}

		var n int
		var err error
		switch seg.ManagerType {
		case ManagerConnection:
			n, err = p.Connection.Read(buf[offset:], seg.MessageCount)
		case ManagerReliable:
			n, err = p.Reliable.Read(buf[offset:], seg.MessageCount, func(msg []byte) {
				p.Metrics.Inc(MetricReliableMessagesDelivered)
				if onReliable != nil {
					onReliable(addr, msg)
				}
			})
		case ManagerUnreliable:
			n, err = p.Unreliable.Read(buf[offset:], seg.MessageCount, func(msg []byte) {
				p.Metrics.Inc(MetricUnreliableMessagesDelivered)
				if onUnreliable != nil {
					onUnreliable(addr, msg)
				}
			})
		default:
			err = ErrMalformedPacket
		}
		offset += n
		if err != nil {
			e.logger.Warn("discarding rest of datagram",
				zap.Stringer("peer", addr), zap.Stringer("session", p.SessionID),
				zap.Stringer("manager", seg.ManagerType), zap.Error(err))
			return nil
		}
	}
	return nil
}

func (e *Engine) dispatchStatus(p *peer, status PacketStatus) {
	p.Connection.onPacketStatus(status)
	pendingBefore := len(p.Reliable.pending)
	p.Reliable.OnPacketDeliveryStatus(status)
	switch status.Status {
	case Ack:
		p.Metrics.Inc(MetricPacketsAcked)
	case Drop:
		p.Metrics.Inc(MetricPacketsDropped)
		p.Metrics.IncBy(MetricReliableMessagesRetransmitted, uint64(len(p.Reliable.pending)-pendingBefore))
	}
}

func (e *Engine) writeTo(addr *net.UDPAddr, p *peer, now time.Time) error {
	fullyConnected := p.Connection.IsFullyConnected()
	// Handshake traffic is never rate-limited: the ticker only gates writes
	// once the connection has actually reached FULLY_CONNECTED.
	if fullyConnected && !p.sendTicker.ready() {
		return nil
	}

	writeLen := WriteMTU
	if self := int(e.config.Limit.MaxSendPacketSize); self != 0 && self < writeLen {
		writeLen = self
	}
	if p.Connection.IsPeerConnected() {
		if peer := int(p.Connection.PeerLimit().MaxReadPacketSize); peer != 0 && peer < writeLen {
			writeLen = peer
		}
	}
	buf := e.writeBuf[:writeLen]

	headerN, packetID := p.Delivery.Write(buf, now)
	offset := headerN

	offset += p.Connection.Write(buf[offset:], packetID)
	if fullyConnected {
		p.reconcileSendRate(e.config.Limit.MaxSendPacketRate)
		offset += p.Reliable.Write(buf[offset:], packetID)
		offset += p.Unreliable.Write(buf[offset:])
	}

	// A datagram holding only the header is still sent: its ack window is
	// how the peer learns which of its packets arrived.
	if fullyConnected {
		p.sendTicker.consume()
	}
	if _, err := e.socket.WriteTo(buf[:offset], addr); err != nil {
		return errors.Wrapf(err, "neptun: socket write to %s", addr)
	}
	p.Metrics.Inc(MetricPacketsSent)
	return nil
}
