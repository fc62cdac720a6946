package neptun

import "encoding/binary"

// Wire sizes. All integers are big-endian; see spec §4.1.
const (
	packetHeaderSize            = 12
	segmentHeaderSize           = 2
	messageHeaderSize           = 1
	letsConnectSize             = 6
	rejectLetsConnectSize       = 0
	reliableMessageHeaderSize   = 6 // sequence_number(4) + length(2)
	unreliableMessageHeaderSize = 2 // length(2)
)

// ManagerType tags a Segment with the stream it belongs to.
type ManagerType uint8

const (
	ManagerConnection ManagerType = 0
	ManagerReliable   ManagerType = 3
	ManagerUnreliable ManagerType = 4
)

func (m ManagerType) String() string {
	switch m {
	case ManagerConnection:
		return "CONNECTION"
	case ManagerReliable:
		return "RELIABLE"
	case ManagerUnreliable:
		return "UNRELIABLE"
	default:
		return "UNKNOWN"
	}
}

// MessageType tags the single message inside a CONNECTION segment.
type MessageType uint8

const (
	MessageLetsConnect       MessageType = 0
	MessageRejectLetsConnect MessageType = 1
)

// packetHeader is the first 12 bytes of every datagram.
type packetHeader struct {
	ID                PacketID
	AckSequenceNumber uint32
	AckBitmask        uint32
}

func writePacketHeader(buf []byte, h packetHeader) int {
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.ID))
	binary.BigEndian.PutUint32(buf[4:8], h.AckSequenceNumber)
	binary.BigEndian.PutUint32(buf[8:12], h.AckBitmask)
	return packetHeaderSize
}

func readPacketHeader(buf []byte) packetHeader {
	return packetHeader{
		ID:                PacketID(binary.BigEndian.Uint32(buf[0:4])),
		AckSequenceNumber: binary.BigEndian.Uint32(buf[4:8]),
		AckBitmask:        binary.BigEndian.Uint32(buf[8:12]),
	}
}

// segment is the 2-byte (manager_type, message_count) header preceding a
// run of messages for one manager.
type segment struct {
	ManagerType  ManagerType
	MessageCount uint8
}

func writeSegment(buf []byte, s segment) int {
	buf[0] = byte(s.ManagerType)
	buf[1] = s.MessageCount
	return segmentHeaderSize
}

func readSegment(buf []byte) segment {
	return segment{ManagerType: ManagerType(buf[0]), MessageCount: buf[1]}
}

func writeMessageHeader(buf []byte, t MessageType) int {
	buf[0] = byte(t)
	return messageHeaderSize
}

func readMessageHeader(buf []byte) MessageType {
	return MessageType(buf[0])
}

// letsConnect is the handshake offer/response payload.
type letsConnect struct {
	MaxSendPacketRate uint8
	MaxReadPacketRate uint8
	MaxSendPacketSize uint16
	MaxReadPacketSize uint16
}

func writeLetsConnect(buf []byte, m letsConnect) int {
	buf[0] = m.MaxSendPacketRate
	buf[1] = m.MaxReadPacketRate
	binary.BigEndian.PutUint16(buf[2:4], m.MaxSendPacketSize)
	binary.BigEndian.PutUint16(buf[4:6], m.MaxReadPacketSize)
	return letsConnectSize
}

func readLetsConnect(buf []byte) letsConnect {
	return letsConnect{
		MaxSendPacketRate: buf[0],
		MaxReadPacketRate: buf[1],
		MaxSendPacketSize: binary.BigEndian.Uint16(buf[2:4]),
		MaxReadPacketSize: binary.BigEndian.Uint16(buf[4:6]),
	}
}

// reliableMessageHeader describes a ReliableMessage's fixed-size prefix;
// the payload itself is not copied out, only sliced from the caller buffer.
type reliableMessageHeader struct {
	SequenceNumber SequenceNumber
	Length         uint16
}

func writeReliableMessageHeader(buf []byte, h reliableMessageHeader) int {
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.SequenceNumber))
	binary.BigEndian.PutUint16(buf[4:6], h.Length)
	return reliableMessageHeaderSize
}

func readReliableMessageHeader(buf []byte) reliableMessageHeader {
	return reliableMessageHeader{
		SequenceNumber: SequenceNumber(binary.BigEndian.Uint32(buf[0:4])),
		Length:         binary.BigEndian.Uint16(buf[4:6]),
	}
}

func writeUnreliableMessageHeader(buf []byte, length uint16) int {
	binary.BigEndian.PutUint16(buf[0:2], length)
	return unreliableMessageHeaderSize
}

func readUnreliableMessageLength(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf[0:2])
}
