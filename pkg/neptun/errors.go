package neptun

import "github.com/pkg/errors"

// Sentinel errors surfaced by the core, matching the error kinds in the
// Neptun wire protocol: a malformed segment or message aborts the rest of
// the datagram, and a rejected handshake gates future sends to that peer.
// ErrNotConnected is declared but not returned by any function here.
var (
	ErrMalformedPacket     = errors.New("neptun: malformed packet")
	ErrLetsConnectRejected = errors.New("neptun: lets_connect rejected by peer")
	ErrNotConnected        = errors.New("neptun: peer is not connected")
)

// wrapStage annotates an error with the pipeline stage and sender address
// it occurred at, without losing errors.Is/errors.Cause compatibility with
// the sentinel it wraps.
func wrapStage(err error, stage string, addr string) error {
	return errors.Wrapf(err, "stage=%s addr=%s", stage, addr)
}
