package neptun

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// fakeTimeout satisfies net.Error so Engine.Tick treats an empty inbox the
// same way it would treat a real non-blocking UDP socket with nothing
// waiting.
type fakeTimeout struct{}

func (fakeTimeout) Error() string   { return "no datagram waiting" }
func (fakeTimeout) Timeout() bool   { return true }
func (fakeTimeout) Temporary() bool { return true }

type fakeDatagram struct {
	data []byte
	from *net.UDPAddr
}

type fakeNetwork struct {
	mu      sync.Mutex
	sockets map[string]*fakeSocket
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{sockets: make(map[string]*fakeSocket)}
}

func (n *fakeNetwork) socket(addrStr string) *fakeSocket {
	addr, err := net.ResolveUDPAddr("udp", addrStr)
	if err != nil {
		panic(err)
	}
	s := &fakeSocket{addr: addr, network: n, inbox: make(chan fakeDatagram, 64)}
	n.mu.Lock()
	n.sockets[addrStr] = s
	n.mu.Unlock()
	return s
}

type fakeSocket struct {
	addr    *net.UDPAddr
	network *fakeNetwork
	inbox   chan fakeDatagram
}

func (s *fakeSocket) ReadFrom(buf []byte) (int, *net.UDPAddr, error) {
	select {
	case d := <-s.inbox:
		return copy(buf, d.data), d.from, nil
	default:
		return 0, nil, fakeTimeout{}
	}
}

func (s *fakeSocket) WriteTo(buf []byte, addr *net.UDPAddr) (int, error) {
	s.network.mu.Lock()
	dst, ok := s.network.sockets[addr.String()]
	s.network.mu.Unlock()
	if !ok {
		return 0, net.UnknownNetworkError("no such peer")
	}
	cp := append([]byte(nil), buf...)
	dst.inbox <- fakeDatagram{data: cp, from: s.addr}
	return len(buf), nil
}

func testLimit() BandwidthLimit {
	return BandwidthLimit{MaxReadPacketRate: 30, MaxReadPacketSize: 1400, MaxSendPacketRate: 30, MaxSendPacketSize: 1400}
}

func newTestEngine(socket Socket) *Engine {
	return New(socket, EngineConfig{
		Limit:               testLimit(),
		NumRedundantPackets: 2,
		ReliableBufferSize:  4096,
		TickRate:            20,
		PacketTimeout:       200 * time.Millisecond,
	}, nil, prometheus.NewRegistry())
}

func TestEngine_HandshakeReachesFullyConnected(t *testing.T) {
	network := newFakeNetwork()
	a := newTestEngine(network.socket("127.0.0.1:9101"))
	b := newTestEngine(network.socket("127.0.0.1:9102"))

	addrA, _ := netResolve("127.0.0.1:9101")
	addrB, _ := netResolve("127.0.0.1:9102")

	a.Connect(addrB)

	now := time.Now()
	for i := 0; i < 20 && !(a.IsConnected(addrB) && b.IsConnected(addrA)); i++ {
		now = now.Add(50 * time.Millisecond)
		require.NoError(t, a.Tick(now, nil, nil))
		require.NoError(t, b.Tick(now, nil, nil))
	}

	require.True(t, a.IsConnected(addrB))
	require.True(t, b.IsConnected(addrA))
}

func TestEngine_ReliableMessageDeliveredInOrder(t *testing.T) {
	network := newFakeNetwork()
	a := newTestEngine(network.socket("127.0.0.1:9111"))
	b := newTestEngine(network.socket("127.0.0.1:9112"))

	addrA, _ := netResolve("127.0.0.1:9111")
	addrB, _ := netResolve("127.0.0.1:9112")
	a.Connect(addrB)
	b.Connect(addrA)

	var received []string
	onReliable := func(from *net.UDPAddr, msg []byte) {
		received = append(received, string(msg))
	}

	now := time.Now()
	connected := false
	for i := 0; i < 20 && !connected; i++ {
		now = now.Add(50 * time.Millisecond)
		require.NoError(t, a.Tick(now, onReliable, nil))
		require.NoError(t, b.Tick(now, onReliable, nil))
		connected = a.IsConnected(addrB) && b.IsConnected(addrA)
	}
	require.True(t, connected)

	require.True(t, a.SendReliableTo(addrB, []byte("first")))
	require.True(t, a.SendReliableTo(addrB, []byte("second")))

	for i := 0; i < 10 && len(received) < 2; i++ {
		now = now.Add(50 * time.Millisecond)
		require.NoError(t, a.Tick(now, onReliable, nil))
		require.NoError(t, b.Tick(now, onReliable, nil))
	}

	require.Equal(t, []string{"first", "second"}, received)
}

func netResolve(addr string) (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", addr)
}
