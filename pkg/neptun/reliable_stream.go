package neptun

// reliableOutbound is one message waiting to be sent or currently in flight,
// addressed by the bytes it occupies in the send-side flip buffer.
type reliableOutbound struct {
	sequenceNumber SequenceNumber
	span           BufferRange
	packetID       PacketID // valid once dispatched, i.e. once in inFlight
}

// ReliableStream delivers application messages in order and exactly once.
// Every message is assigned the next sequence number on Send, held in
// pending until a tick's Write has room for it, and moved to inFlight once
// written. A DROP for the packet it rode on reinserts it (and, per the
// source protocol this engine mirrors, every message sent after it) back
// into pending for retransmission; an ACK retires it for good.
type ReliableStream struct {
	sendBuffer *flipBuffer
	nextSequenceNumber SequenceNumber

	pending  []reliableOutbound
	inFlight []reliableOutbound

	nextExpectedSeqNo SequenceNumber
}

// NewReliableStream allocates a send buffer of the given capacity. Capacity
// bounds how many undelivered/unacked bytes the stream can hold at once;
// Send fails once it's exhausted.
func NewReliableStream(bufferCapacity int) *ReliableStream {
	return &ReliableStream{
		sendBuffer: newFlipBuffer(bufferCapacity),
	}
}

// Send queues message for reliable delivery. It returns false if the send
// buffer doesn't have room even after compaction, in which case the caller
// must retry on a later tick once earlier messages have been acked.
func (s *ReliableStream) Send(message []byte) bool {
	ok, shiftedBy := s.sendBuffer.ensureFree(len(message))
	if !ok {
		return false
	}
	s.rebaseRanges(shiftedBy)

	begin := s.sendBuffer.end
	copy(s.sendBuffer.remaining(), message)
	s.sendBuffer.advance(len(message))

	seqNo := s.nextSequenceNumber
	s.nextSequenceNumber++
	s.pending = append(s.pending, reliableOutbound{
		sequenceNumber: seqNo,
		span:           BufferRange{Begin: begin, End: begin + len(message)},
	})
	return true
}

func (s *ReliableStream) rebaseRanges(by int) {
	if by == 0 {
		return
	}
	for i := range s.pending {
		s.pending[i].span = s.pending[i].span.shift(by)
	}
	for i := range s.inFlight {
		s.inFlight[i].span = s.inFlight[i].span.shift(by)
	}
}

// Write appends a RELIABLE segment with as many pending messages as fit in
// buf, in sequence order, then moves them from pending to inFlight tagged
// with the packet id they were dispatched on. Returns the number of bytes
// written, 0 if no messages fit.
func (s *ReliableStream) Write(buf []byte, packetID PacketID) int {
	if len(s.pending) == 0 {
		return 0
	}
	if len(buf) < segmentHeaderSize {
		return 0
	}

	offset := segmentHeaderSize
	count := uint8(0)
	dispatched := 0
	for _, msg := range s.pending {
		body := s.sendBuffer.span(msg.span)
		need := reliableMessageHeaderSize + len(body)
		if offset+need > len(buf) || count == 255 {
			break
		}
		offset += writeReliableMessageHeader(buf[offset:], reliableMessageHeader{
			SequenceNumber: msg.sequenceNumber,
			Length:         uint16(len(body)),
		})
		offset += copy(buf[offset:], body)
		count++
		dispatched++
	}
	if count == 0 {
		return 0
	}

	writeSegment(buf, segment{ManagerType: ManagerReliable, MessageCount: count})
	for _, msg := range s.pending[:dispatched] {
		msg.packetID = packetID
		s.inFlight = append(s.inFlight, msg)
	}
	s.pending = s.pending[dispatched:]
	return offset
}

// Read consumes a RELIABLE segment's messages from buf, delivering each one
// that exactly matches the next expected sequence number and silently
// discarding every other one, whether a duplicate already delivered or one
// that arrived ahead of the gap.
func (s *ReliableStream) Read(buf []byte, messageCount uint8, deliver func([]byte)) (int, error) {
	offset := 0
	for i := uint8(0); i < messageCount; i++ {
		if offset+reliableMessageHeaderSize > len(buf) {
			return offset, ErrMalformedPacket
		}
		header := readReliableMessageHeader(buf[offset:])
		offset += reliableMessageHeaderSize
		if header.Length == 0 {
			return offset, ErrMalformedPacket
		}
		if offset+int(header.Length) > len(buf) {
			return offset, ErrMalformedPacket
		}
		body := buf[offset : offset+int(header.Length)]
		offset += int(header.Length)

		s.onMessageRead(header.SequenceNumber, body, deliver)
	}
	return offset, nil
}

func (s *ReliableStream) onMessageRead(seqNo SequenceNumber, body []byte, deliver func([]byte)) {
	if seqNo != s.nextExpectedSeqNo {
		return // duplicate or out-of-order beyond the current expectation: discard
	}
	deliver(body)
	s.nextExpectedSeqNo++
}

// OnPacketDeliveryStatus reacts to a delivery verdict for one previously
// dispatched packet id. ACK retires every in-flight message that rode on
// that packet, consuming their bytes from the send buffer for good. DROP
// reinserts every in-flight message from that packet id onward back into
// pending, in original sequence order, including messages that rode on
// later packets.
func (s *ReliableStream) OnPacketDeliveryStatus(status PacketStatus) {
	switch status.Status {
	case Ack:
		kept := s.inFlight[:0]
		for _, msg := range s.inFlight {
			if msg.packetID == status.PacketID {
				s.sendBuffer.consume(msg.span.size())
				continue
			}
			kept = append(kept, msg)
		}
		s.inFlight = kept
	case Drop:
		idx := -1
		for i, msg := range s.inFlight {
			if msg.packetID == status.PacketID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return
		}
		reinserted := append([]reliableOutbound{}, s.inFlight[idx:]...)
		s.inFlight = s.inFlight[:idx]
		s.pending = append(reinserted, s.pending...)
	}
}
