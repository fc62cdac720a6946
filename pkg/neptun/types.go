// Package neptun implements the per-peer reliability and flow-control
// protocol engine described by the Neptun wire format: a delivery-status
// feed (ACK/DROP) for every outbound packet, an in-order exactly-once
// reliable stream, a best-effort unreliable stream, and a connection
// handshake that negotiates per-direction bandwidth limits. All of it is
// multiplexed onto a single datagram per tick.
package neptun

import "fmt"

// PacketID identifies an outbound datagram. It is monotonically increasing
// per peer direction; overflow is out of scope.
type PacketID uint32

// SequenceNumber identifies a reliable message within its stream, separate
// per peer direction.
type SequenceNumber uint32

// DeliveryStatus is the eventual, mutually exclusive fate of an outbound
// packet id.
type DeliveryStatus int

const (
	Ack DeliveryStatus = iota
	Drop
)

func (s DeliveryStatus) String() string {
	switch s {
	case Ack:
		return "ACK"
	case Drop:
		return "DROP"
	default:
		return fmt.Sprintf("DeliveryStatus(%d)", int(s))
	}
}

// PacketStatus pairs an outbound packet id with its inferred delivery
// status, as produced by PacketDeliveryManager.ProcessRead and
// PacketDeliveryManager.DropOldPackets.
type PacketStatus struct {
	PacketID PacketID
	Status   DeliveryStatus
}

// DeliveryStatuses is an ordered batch of packet status inferences produced
// in a single call. Order matters: statuses are always emitted front of
// in-flight queue first, i.e. smallest packet id first.
type DeliveryStatuses []PacketStatus

// BandwidthLimit is what a peer advertises about itself during the
// handshake: how many packets per second it will send/accept, and the
// largest packet it will send/accept. A zero rate means "no limit from my
// side" when reconciled against a peer's rate (see peer.reconcileSendRate).
type BandwidthLimit struct {
	MaxReadPacketRate  uint8
	MaxReadPacketSize  uint16
	MaxSendPacketRate  uint8
	MaxSendPacketSize  uint16
}

// Valid reports whether every field of the limit is non-zero, the
// precondition ConnectionManager.Read enforces on an incoming LetsConnect
// message before accepting a peer.
func (b BandwidthLimit) Valid() bool {
	return b.MaxReadPacketRate != 0 && b.MaxReadPacketSize != 0 &&
		b.MaxSendPacketRate != 0 && b.MaxSendPacketSize != 0
}

// ConnectionManagerConfig parameterizes a ConnectionManager: the redundancy
// used for handshake retransmission and the bandwidth this side of the
// connection is willing to offer.
type ConnectionManagerConfig struct {
	NumRedundantPackets int
	Limit               BandwidthLimit
}

// BufferRange is a [Begin, End) span of byte indices into a stream's
// flip-buffer.
type BufferRange struct {
	Begin int
	End   int
}

func (r BufferRange) shift(by int) BufferRange {
	return BufferRange{Begin: r.Begin - by, End: r.End - by}
}

func (r BufferRange) size() int {
	return r.End - r.Begin
}
