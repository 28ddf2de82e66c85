// Package bus implements the one-way event channel the engine and site
// explorer use to report to the operator/UI side: log lines, the
// messages read from each socket, newly discovered hosts, gate state
// changes, and site-tree updates.
package bus

import "sync"

// Kind classifies a Bus event.
type Kind int

const (
	// Log carries a human-readable log line.
	Log Kind = iota
	// ClientMessage carries the headers/body read from the client socket.
	ClientMessage
	// OriginMessage carries the headers/body read from the origin socket.
	OriginMessage
	// NewHost announces a host seen by the engine: a request's Host header,
	// or the host of an absolute Location header in a response.
	NewHost
	// GateOpened announces that the gate has been opened for the current session.
	GateOpened
	// Finished announces that the engine's accept loop has exited.
	Finished
	// UpdateSiteTree carries a freshly rendered site-tree pretty-print.
	UpdateSiteTree
)

// Event is a single bus message. Not every field is populated for every
// Kind: Text carries log text, a host name, or a pretty-printed tree;
// Headers and Body carry the head/body pair for ClientMessage and
// OriginMessage events.
type Event struct {
	Kind    Kind
	Text    string
	Headers string
	Body    []byte
}

// subscriberBuffer is generous enough that a burst of engine/explorer
// activity between UI reads does not stall the producer under normal
// operation, while Publish still blocks rather than drop when a
// subscriber falls far behind; see DESIGN.md for why this differs from
// the drop-on-full pattern it is grounded on.
const subscriberBuffer = 256

// Bus fans a single stream of events out to any number of subscribers.
type Bus struct {
	mu   sync.Mutex
	subs []chan Event
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a new listener and returns its event channel. The
// channel is never closed by Publish; call Close to tear the bus down.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers e to every current subscriber, in the order Publish
// is called. It blocks on a subscriber whose channel is full instead of
// dropping the event.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := make([]chan Event, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, ch := range subs {
		ch <- e
	}
}

// Close closes every subscriber channel. The Bus must not be published
// to afterwards.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
