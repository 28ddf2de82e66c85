// Package netdial provides the socket-level primitives the proxy engine
// and site explorer build on: listening for client connections and
// dialing origin servers, both with the deadlines and diagnostics the
// rest of the proxy depends on.
package netdial

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"syscall"
	"time"

	protoerrors "github.com/AndreLaranjeira/ProxyGate/pkg/errors"
	"golang.org/x/sys/unix"
)

// DefaultPort is the proxy's listening port when none is given on the
// command line.
const DefaultPort = 8228

// Backlog is the listen backlog depth of the original server. Listen
// does not apply it to the socket (see Listen).
const Backlog = 3

// OriginPort is the port the explorer and engine connect to on an
// origin host; this proxy never negotiates TLS, so it is always 80.
const OriginPort = 80

// DefaultDialTimeout bounds DNS resolution and TCP connect.
const DefaultDialTimeout = 10 * time.Second

// DefaultIOTimeout bounds a single socket read or write.
const DefaultIOTimeout = 5 * time.Second

// ConnMetadata carries diagnostics about a dialed origin connection.
type ConnMetadata struct {
	ConnectedIP   string
	ConnectedPort int
	LocalAddr     string
	RemoteAddr    string
	ConnectionID  uint64
}

// connIDCounter is incremented by every dial the engine or the
// explorer's same-depth-level fan-out performs; both can call
// DialOrigin from concurrent goroutines, so the counter is atomic.
var connIDCounter atomic.Uint64

func nextConnID() uint64 {
	return connIDCounter.Add(1)
}

// Listen opens the proxy's listening socket with SO_REUSEADDR and
// SO_REUSEPORT set (§6: "Reuses address and port"). The socket listens
// with the backlog net.ListenConfig picks (the kernel's somaxconn), not
// with Backlog; the accept queue is not limited to three connections.
func Listen(port int) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if sockErr == nil {
					sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
				}
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	ln, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, protoerrors.NewConnectError("0.0.0.0", port, err)
	}
	return &backlogListener{ln}, nil
}

// backlogListener wraps a net.Listener so that Accept failures are
// reported as pkg/errors accept errors. It does not change the
// listening socket's queue depth.
type backlogListener struct {
	net.Listener
}

// Accept blocks for the next client connection.
func (b *backlogListener) Accept() (net.Conn, error) {
	conn, err := b.Listener.Accept()
	if err != nil {
		return nil, protoerrors.NewAcceptError(err)
	}
	return conn, nil
}

// DialOrigin resolves host and dials it on OriginPort, respecting ctx's
// deadline and returning connection metadata for logging.
func DialOrigin(ctx context.Context, host string) (net.Conn, ConnMetadata, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, DefaultDialTimeout)
	defer cancel()

	ipAddrs, err := net.DefaultResolver.LookupIPAddr(resolveCtx, host)
	if err != nil {
		return nil, ConnMetadata{}, protoerrors.NewDNSError(host, err)
	}
	if len(ipAddrs) == 0 {
		return nil, ConnMetadata{}, protoerrors.NewDNSError(host, fmt.Errorf("no addresses returned"))
	}

	dialer := &net.Dialer{Timeout: DefaultDialTimeout}
	addr := net.JoinHostPort(ipAddrs[0].IP.String(), fmt.Sprintf("%d", OriginPort))

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, ConnMetadata{}, protoerrors.NewConnectError(host, OriginPort, err)
	}

	meta := ConnMetadata{
		ConnectedIP:   ipAddrs[0].IP.String(),
		ConnectedPort: OriginPort,
		LocalAddr:     conn.LocalAddr().String(),
		RemoteAddr:    conn.RemoteAddr().String(),
		ConnectionID:  nextConnID(),
	}

	return conn, meta, nil
}
