// Package gate implements the single-slot rendezvous between the proxy
// engine and the operator/UI side: the engine blocks in Wait until the
// operator calls Open, at which point any override loaded beforehand is
// handed to the engine and the gate re-closes.
package gate

import (
	"context"
	"sync"

	"github.com/AndreLaranjeira/ProxyGate/pkg/httpmsg"
)

// Override is an operator-supplied replacement for the message the
// engine is currently holding at the gate.
type Override struct {
	HeadersText string
	Body        []byte
}

// Gate is the synchronisation primitive of §3/§4.2.3: a closed boolean
// plus two pending override slots, guarded by a mutex and observed via
// a condition variable rather than polling (per spec §9's redesign
// hint — this is the teacher's hostPool wait-for-connection pattern
// repurposed for a UI rendezvous instead of a connection pool).
type Gate struct {
	mu     sync.Mutex
	cond   *sync.Cond
	closed bool

	pendingClient *Override
	pendingOrigin *Override
}

// New returns a Gate, initially closed.
func New() *Gate {
	g := &Gate{closed: true}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// LoadClientMessage stashes an override for the client-side message.
// The operator must call this (and/or LoadOriginMessage) before Open;
// Wait takes the overrides present when it wakes, so anything loaded
// after Wait has returned is observed only on the gate's next cycle.
func (g *Gate) LoadClientMessage(headersText string, body []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pendingClient = &Override{HeadersText: httpmsg.NormalizeCRLF(headersText), Body: body}
}

// LoadOriginMessage stashes an override for the origin-side message.
func (g *Gate) LoadOriginMessage(headersText string, body []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pendingOrigin = &Override{HeadersText: httpmsg.NormalizeCRLF(headersText), Body: body}
}

// Open flips closed to false and wakes any engine blocked in Wait.
func (g *Gate) Open() {
	g.mu.Lock()
	g.closed = false
	g.cond.Broadcast()
	g.mu.Unlock()
}

// Wait blocks until the gate transitions closed: true → false, then
// snapshots and clears the pending overrides, re-closes the gate, and
// returns the snapshot. A cancelled or expired ctx unblocks Wait with
// ctx.Err() instead.
func (g *Gate) Wait(ctx context.Context) (clientOverride, originOverride *Override, err error) {
	stop := context.AfterFunc(ctx, func() {
		g.mu.Lock()
		g.cond.Broadcast()
		g.mu.Unlock()
	})
	defer stop()

	g.mu.Lock()
	defer g.mu.Unlock()

	for g.closed {
		if cErr := ctx.Err(); cErr != nil {
			return nil, nil, cErr
		}
		g.cond.Wait()
	}

	clientOverride = g.pendingClient
	originOverride = g.pendingOrigin
	g.pendingClient = nil
	g.pendingOrigin = nil
	g.closed = true

	return clientOverride, originOverride, nil
}
