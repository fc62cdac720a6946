package neptun

// ConnectionState is where a single peer's handshake currently stands.
type ConnectionState int

const (
	Idle ConnectionState = iota
	SendingOffer
	PeerKnown
	FullyConnected
	Rejected
)

func (s ConnectionState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case SendingOffer:
		return "SENDING_OFFER"
	case PeerKnown:
		return "PEER_KNOWN"
	case FullyConnected:
		return "FULLY_CONNECTED"
	case Rejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// ConnectionManager drives the handshake that negotiates a BandwidthLimit
// with one peer. It offers its own limit redundantly for NumRedundantPackets
// ticks so the peer can pick up the offer even if earlier copies are lost,
// and separately tracks whether the peer has echoed an offer back (PEER_KNOWN)
// and whether the peer has acked receiving ours (FULLY_CONNECTED gate).
type ConnectionManager struct {
	config ConnectionManagerConfig

	state ConnectionState

	offersSent      int
	offerRetries    int
	offerPacketIDs  []PacketID
	peerLimit       BandwidthLimit
	isPeerAcked     bool
}

// NewConnectionManager returns a manager idle until Connect is called.
func NewConnectionManager(config ConnectionManagerConfig) *ConnectionManager {
	if config.NumRedundantPackets <= 0 {
		config.NumRedundantPackets = 3
	}
	return &ConnectionManager{config: config, state: Idle}
}

// Connect begins (or restarts) offering this side's BandwidthLimit to the
// peer.
func (c *ConnectionManager) Connect() {
	c.state = SendingOffer
	c.offersSent = 0
	c.offerRetries = 0
}

// State reports the current handshake state.
func (c *ConnectionManager) State() ConnectionState {
	return c.state
}

// IsFullyConnected reports whether the state has reached FULLY_CONNECTED:
// this side knows the peer's limit, and the peer has acked receiving ours.
// The state advances only inside Write, on the first call after all
// redundant offers have been written, so IsFullyConnected stays false until
// then even when both conditions already hold.
func (c *ConnectionManager) IsFullyConnected() bool {
	return c.state == FullyConnected
}

// IsPeerConnected reports whether this side has learned the peer's
// BandwidthLimit (peer_limit known), regardless of whether the peer has
// acked receiving this side's own offer yet. Non-handshake segments are
// only safe to parse once this is true.
func (c *ConnectionManager) IsPeerConnected() bool {
	return c.state == PeerKnown || c.state == FullyConnected
}

// PeerLimit is the bandwidth limit the peer advertised, valid once the
// state has reached PeerKnown or beyond.
func (c *ConnectionManager) PeerLimit() BandwidthLimit {
	return c.peerLimit
}

// Write appends a CONNECTION segment to buf if there's handshake work to do
// this tick: redundant LetsConnect offers while SendingOffer/PeerKnown, or a
// RejectLetsConnect on every call once the state is Rejected, whether this
// side rejected the peer's offer or the peer rejected ours. packetID is the
// id the caller is about to dispatch this datagram under, recorded so a
// later ACK for it can flip isPeerAcked. Returns the number of bytes
// written, which is 0 if there's nothing to send.
func (c *ConnectionManager) Write(buf []byte, packetID PacketID) int {
	switch c.state {
	case SendingOffer, PeerKnown:
		if c.offersSent >= c.config.NumRedundantPackets+c.offerRetries {
			if c.state == PeerKnown && c.isPeerAcked {
				c.state = FullyConnected
			}
			return 0
		}
		n := writeSegment(buf, segment{ManagerType: ManagerConnection, MessageCount: 1})
		n += writeMessageHeader(buf[n:], MessageLetsConnect)
		n += writeLetsConnect(buf[n:], letsConnect{
			MaxSendPacketRate: c.config.Limit.MaxSendPacketRate,
			MaxReadPacketRate: c.config.Limit.MaxReadPacketRate,
			MaxSendPacketSize: c.config.Limit.MaxSendPacketSize,
			MaxReadPacketSize: c.config.Limit.MaxReadPacketSize,
		})
		c.offersSent++
		c.offerPacketIDs = append(c.offerPacketIDs, packetID)
		return n
	case Rejected:
		n := writeSegment(buf, segment{ManagerType: ManagerConnection, MessageCount: 1})
		n += writeMessageHeader(buf[n:], MessageRejectLetsConnect)
		return n
	default:
		return 0
	}
}

// Read consumes a CONNECTION segment's messages from buf. A LetsConnect
// message advances this side to PeerKnown (or rejects the peer outright if
// its advertised limit isn't Valid). A RejectLetsConnect message moves this
// side to Rejected permanently and returns ErrLetsConnectRejected.
func (c *ConnectionManager) Read(buf []byte, messageCount uint8) (int, error) {
	offset := 0
	for i := uint8(0); i < messageCount; i++ {
		if offset+messageHeaderSize > len(buf) {
			return offset, ErrMalformedPacket
		}
		msgType := readMessageHeader(buf[offset:])
		offset += messageHeaderSize

		switch msgType {
		case MessageLetsConnect:
			if offset+letsConnectSize > len(buf) {
				return offset, ErrMalformedPacket
			}
			payload := readLetsConnect(buf[offset:])
			offset += letsConnectSize
			c.onLetsConnect(payload)
		case MessageRejectLetsConnect:
			c.state = Rejected
			return offset, ErrLetsConnectRejected
		default:
			return offset, ErrMalformedPacket
		}
	}
	return offset, nil
}

func (c *ConnectionManager) onLetsConnect(payload letsConnect) {
	if c.state == Rejected {
		return
	}
	peerLimit := BandwidthLimit{
		MaxReadPacketRate: payload.MaxReadPacketRate,
		MaxReadPacketSize: payload.MaxReadPacketSize,
		MaxSendPacketRate: payload.MaxSendPacketRate,
		MaxSendPacketSize: payload.MaxSendPacketSize,
	}
	if !peerLimit.Valid() {
		c.state = Rejected
		return
	}
	c.peerLimit = peerLimit
	if c.state == Idle || c.state == SendingOffer {
		c.state = PeerKnown
	}
}

// onPacketStatus reacts to a delivery verdict for a previously dispatched
// packet id. Once any packet carrying this side's offer is ACKed, the peer
// is known to have received it, which is the other half of the
// FULLY_CONNECTED gate alongside knowing the peer's own limit. If instead a
// packet carrying an offer is dropped while peer_limit is still unknown,
// Write's redundancy budget is extended by one so the offer gets retried.
func (c *ConnectionManager) onPacketStatus(status PacketStatus) {
	for _, id := range c.offerPacketIDs {
		if id != status.PacketID {
			continue
		}
		switch status.Status {
		case Ack:
			c.isPeerAcked = true
		case Drop:
			if !c.IsPeerConnected() {
				c.offerRetries++
			}
		}
		return
	}
}

// IsRejected reports whether the handshake has permanently failed, either
// because the peer rejected this side's offer or because this side rejected
// an invalid limit from the peer.
func (c *ConnectionManager) IsRejected() bool {
	return c.state == Rejected
}
