// Package engine implements the proxy's per-connection state machine:
// accept a client, read its request, hold it at the gate for the
// operator, forward it to the origin, read the response, hold it at
// the gate again, and return it to the client.
package engine

import (
	"bytes"
	"context"
	"net"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/AndreLaranjeira/ProxyGate/pkg/bus"
	protoerrors "github.com/AndreLaranjeira/ProxyGate/pkg/errors"
	"github.com/AndreLaranjeira/ProxyGate/pkg/gate"
	"github.com/AndreLaranjeira/ProxyGate/pkg/httpmsg"
	"github.com/AndreLaranjeira/ProxyGate/pkg/logging"
	"github.com/AndreLaranjeira/ProxyGate/pkg/netdial"
)

// side identifies which endpoint of the current session last produced
// the message now sitting at the gate.
type side int

const (
	sideClient side = iota
	sideOrigin
)

// dialFunc is the shape of netdial.DialOrigin, factored out so tests
// can substitute an in-memory origin instead of a real TCP dial.
type dialFunc func(ctx context.Context, host string) (net.Conn, netdial.ConnMetadata, error)

// Engine is the proxy's single-worker state machine. One Engine serves
// one listening socket; sessions are handled one at a time (§5: "the
// engine handles one at a time").
type Engine struct {
	port int
	bus  *bus.Bus
	log  *logging.Logger
	gate *gate.Gate
	dial dialFunc

	listener  net.Listener
	running   atomic.Bool
	errCount  atomic.Uint64
	ioTimeout time.Duration
}

// New returns an Engine listening on port, reporting through b.
func New(port int, b *bus.Bus) *Engine {
	return &Engine{
		port:      port,
		bus:       b,
		log:       logging.New("engine", b),
		gate:      gate.New(),
		dial:      netdial.DialOrigin,
		ioTimeout: netdial.DefaultIOTimeout,
	}
}

// Gate returns the engine's rendezvous gate, for the UI side to load
// overrides into and open.
func (e *Engine) Gate() *gate.Gate {
	return e.gate
}

// ErrorCount returns the number of session-level errors observed so far.
func (e *Engine) ErrorCount() uint64 {
	return e.errCount.Load()
}

// Run opens the listening socket and services client connections one
// at a time until Stop is called or ctx is cancelled. A single
// `finished` event is emitted once the loop exits, per §4.2.2.
func (e *Engine) Run(ctx context.Context) error {
	ln, err := netdial.Listen(e.port)
	if err != nil {
		return err
	}
	e.listener = ln
	e.running.Store(true)

	go func() {
		<-ctx.Done()
		e.Stop()
	}()

	for e.running.Load() {
		conn, err := e.listener.Accept()
		if err != nil {
			if !e.running.Load() {
				break
			}
			e.errCount.Add(1)
			e.log.Errorf("accept failed: %v", err)
			continue
		}
		e.runSession(ctx, conn)
	}

	e.bus.Publish(bus.Event{Kind: bus.Finished})
	return nil
}

// Stop closes the listening socket and clears the running flag; the
// accept loop observes both and exits cleanly (§4.2.2).
func (e *Engine) Stop() {
	e.running.Store(false)
	if e.listener != nil {
		e.listener.Close()
	}
}

// runSession drives one client connection through ReadFromClient →
// AwaitGate → UpdateMessages → ConnectToOrigin → SendToOrigin →
// ReadFromOrigin → AwaitGate → UpdateMessages → SendToClient, per the
// state table of §4.2.
func (e *Engine) runSession(ctx context.Context, clientConn net.Conn) {
	clientMsg, err := httpmsg.ReadMessage(clientConn, e.ioTimeout)
	if err != nil {
		e.errCount.Add(1)
		e.log.Errorf("read from client failed: %v", err)
		clientConn.Close()
		return
	}
	e.emitMessage(bus.ClientMessage, clientMsg)
	e.emitHostHeader(clientMsg)

	clientMsg, ok := e.awaitGateFor(ctx, sideClient, clientMsg)
	if !ok {
		clientConn.Close()
		return
	}

	originConn, err := e.connectOrigin(ctx, clientMsg)
	if err != nil {
		e.errCount.Add(1)
		e.log.Errorf("connect to origin failed: %v", err)
		clientConn.Close()
		return
	}

	if err := e.sendMessage(originConn, clientMsg); err != nil {
		e.errCount.Add(1)
		e.log.Errorf("send to origin failed: %v", err)
		clientConn.Close()
		originConn.Close()
		return
	}

	originMsg, err := httpmsg.ReadMessage(originConn, e.ioTimeout)
	originConn.Close()
	if err != nil {
		e.errCount.Add(1)
		e.log.Errorf("read from origin failed: %v", err)
		clientConn.Close()
		return
	}
	if !httpmsg.HasLengthInfo(originMsg) {
		e.log.Warnf("origin response carried neither Content-Length nor Transfer-Encoding")
	}
	e.emitMessage(bus.OriginMessage, originMsg)
	e.emitRedirectHost(originMsg)

	originMsg, ok = e.awaitGateFor(ctx, sideOrigin, originMsg)
	if !ok {
		clientConn.Close()
		return
	}

	if err := e.sendMessage(clientConn, originMsg); err != nil {
		e.errCount.Add(1)
		e.log.Errorf("send to client failed: %v", err)
	}
	clientConn.Close()
}

// awaitGateFor implements AwaitGate + UpdateMessages for one side of the
// session: it blocks on the gate, applies any loaded override, and on
// an invalid override re-emits the original message and loops back to
// AwaitGate rather than failing the session.
func (e *Engine) awaitGateFor(ctx context.Context, s side, original *httpmsg.Message) (*httpmsg.Message, bool) {
	for {
		clientOv, originOv, err := e.gate.Wait(ctx)
		if err != nil {
			e.log.Warnf("gate wait interrupted: %v", err)
			return nil, false
		}
		e.bus.Publish(bus.Event{Kind: bus.GateOpened})

		var override *gate.Override
		if s == sideClient {
			override = clientOv
		} else {
			override = originOv
		}

		updated, valid := e.updateMessage(original, override)
		if valid {
			return updated, true
		}

		e.log.Errorf("replacement rejected: %v", protoerrors.NewReplacementError(nil))
		e.emitMessage(kindFor(s), original)
	}
}

// updateMessage implements UpdateMessages: an absent override or one
// byte-identical to the original takes the no-rewrite path; otherwise
// the override must validate and re-parse to the same Message Kind,
// after which Content-Length is refreshed against the new body.
func (e *Engine) updateMessage(original *httpmsg.Message, override *gate.Override) (*httpmsg.Message, bool) {
	if override == nil {
		return original, true
	}

	candidate := append([]byte(override.HeadersText), override.Body...)
	if bytes.Equal(candidate, original.Serialize()) {
		return original, true
	}

	if !httpmsg.ValidateReplacementHeaderBlock(override.HeadersText) {
		return nil, false
	}

	msg, err := httpmsg.Parse(candidate)
	if err != nil || msg.Kind != original.Kind {
		return nil, false
	}

	msg.Body = override.Body
	msg.UpdateContentLength()
	return msg, true
}

func (e *Engine) connectOrigin(ctx context.Context, msg *httpmsg.Message) (net.Conn, error) {
	host, ok := msg.Headers.First("Host")
	if !ok || host == "" {
		return nil, protoerrors.NewValidationError("request has no Host header")
	}

	conn, meta, err := e.dial(ctx, hostOnly(host))
	if err != nil {
		return nil, err
	}
	e.log.Infof("connected to origin %s (%s)", host, meta.RemoteAddr)
	return conn, nil
}

func (e *Engine) sendMessage(conn net.Conn, msg *httpmsg.Message) error {
	if err := conn.SetWriteDeadline(time.Now().Add(e.ioTimeout)); err != nil {
		return protoerrors.NewIOError("write", err)
	}
	if _, err := conn.Write(msg.Serialize()); err != nil {
		return protoerrors.NewIOError("write", err)
	}
	return nil
}

func (e *Engine) emitMessage(kind bus.Kind, msg *httpmsg.Message) {
	e.bus.Publish(bus.Event{Kind: kind, Headers: headersText(msg), Body: msg.Body})
}

func (e *Engine) emitHostHeader(msg *httpmsg.Message) {
	if host, ok := msg.Headers.First("Host"); ok {
		e.bus.Publish(bus.Event{Kind: bus.NewHost, Text: host})
	}
}

// emitRedirectHost announces a new_host event for an origin response
// carrying an absolute http(s) Location header, the only host-bearing
// header a response can have (see DESIGN.md open question #4). A
// relative Location produces no event.
func (e *Engine) emitRedirectHost(msg *httpmsg.Message) {
	loc, ok := msg.Headers.First("Location")
	if !ok {
		return
	}
	if m := absoluteLocationRe.FindStringSubmatch(loc); m != nil {
		e.bus.Publish(bus.Event{Kind: bus.NewHost, Text: m[1]})
	}
}

var absoluteLocationRe = regexp.MustCompile(`^https?://([^/]+)`)

func kindFor(s side) bus.Kind {
	if s == sideClient {
		return bus.ClientMessage
	}
	return bus.OriginMessage
}

func headersText(msg *httpmsg.Message) string {
	full := msg.Serialize()
	idx := bytes.Index(full, []byte("\r\n\r\n"))
	if idx < 0 {
		return string(full)
	}
	return string(full[:idx+4])
}

func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
