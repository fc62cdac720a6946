// Package netio provides the UDP socket collaborator the neptun engine
// drives each tick. It exists as its own package, separate from pkg/neptun,
// so the engine can depend on the small Socket interface it declares
// without pkg/neptun importing net-level setup concerns like listen
// addresses or socket buffer sizes.
package netio

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// UDPSocket adapts a *net.UDPConn to neptun.Socket. Reads are made
// non-blocking by setting a read deadline of "now" immediately before
// every read, since the standard library doesn't expose O_NONBLOCK
// directly; a resulting timeout error is the normal "nothing to read"
// signal, not a failure.
type UDPSocket struct {
	conn *net.UDPConn
}

// Listen opens a UDP socket bound to addr ("host:port", or ":port" to bind
// all interfaces).
func Listen(addr string) (*UDPSocket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "netio: resolve %s", addr)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "netio: listen %s", addr)
	}
	return &UDPSocket{conn: conn}, nil
}

// Dial resolves addr and opens an unconnected UDP socket on an ephemeral
// local port, for client-style usage where the engine always talks to a
// single server address; it returns the resolved address to send to.
func Dial(addr string) (*UDPSocket, *net.UDPAddr, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "netio: resolve %s", addr)
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "netio: open client socket")
	}
	return &UDPSocket{conn: conn}, udpAddr, nil
}

// ReadFrom performs one non-blocking read. A net.Error with Timeout() true
// means no datagram was waiting; callers should treat that as "nothing to
// do this tick" rather than an error condition.
func (s *UDPSocket) ReadFrom(buf []byte) (int, *net.UDPAddr, error) {
	if err := s.conn.SetReadDeadline(time.Now()); err != nil {
		return 0, nil, errors.Wrap(err, "netio: set read deadline")
	}
	n, addr, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		return 0, nil, err
	}
	return n, addr, nil
}

// WriteTo sends buf to addr.
func (s *UDPSocket) WriteTo(buf []byte, addr *net.UDPAddr) (int, error) {
	return s.conn.WriteToUDP(buf, addr)
}

// Close releases the underlying socket.
func (s *UDPSocket) Close() error {
	return s.conn.Close()
}

// LocalAddr is the address this socket is bound to.
func (s *UDPSocket) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}
