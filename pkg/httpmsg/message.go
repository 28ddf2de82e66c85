// Package httpmsg implements the proxy's HTTP/1.x message model: parsing
// a byte buffer into a start-line plus ordered header multimap plus
// opaque body, serialising it back, the two editing helpers the engine
// needs (update_content_length, validate_replacement_header_block), and
// the body-length-aware socket read shared by the engine and the site
// explorer.
package httpmsg

// Kind tags which start-line variant a Message carries. Request and
// Response are mutually exclusive — a Message is one or the other, never
// an optional-fields struct carrying both.
type Kind int

const (
	// KindRequest means RequestLine is populated and StatusLine is zero.
	KindRequest Kind = iota
	// KindResponse means StatusLine is populated and RequestLine is zero.
	KindResponse
)

// RequestLine is a parsed HTTP request line: "METHOD target HTTP/v.v".
type RequestLine struct {
	Method  string
	URL     string
	Version string
}

// StatusLine is a parsed HTTP status line: "HTTP/v.v code reason".
type StatusLine struct {
	Version string
	Code    int
	Reason  string
}

// Message is a parsed HTTP/1.x message: exactly one of Request or
// Response is meaningful, selected by Kind.
type Message struct {
	Kind     Kind
	Request  RequestLine
	Response StatusLine
	Headers  *Header
	Body     []byte
}

// NewRequest builds a request Message with an empty header set.
func NewRequest(method, url, version string) *Message {
	return &Message{
		Kind:    KindRequest,
		Request: RequestLine{Method: method, URL: url, Version: version},
		Headers: NewHeader(),
	}
}

// NewResponse builds a response Message with an empty header set.
func NewResponse(version string, code int, reason string) *Message {
	return &Message{
		Kind:     KindResponse,
		Response: StatusLine{Version: version, Code: code, Reason: reason},
		Headers:  NewHeader(),
	}
}

// Header is an ordered multimap from header field-name to its list of
// values: order within one name is preserved, and so is insertion order
// across distinct names (needed for stable serialisation).
type Header struct {
	names  []string
	values map[string][]string
}

// NewHeader returns an empty Header.
func NewHeader() *Header {
	return &Header{values: make(map[string][]string)}
}

// Add appends value to name's value list, recording name's first-seen
// position if this is the first time it is used.
func (h *Header) Add(name, value string) {
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = append(h.values[name], value)
}

// Values returns every value recorded under name, in encounter order.
func (h *Header) Values(name string) []string {
	return h.values[name]
}

// First returns name's first value and whether name is present at all.
func (h *Header) First(name string) (string, bool) {
	vs, ok := h.values[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// SetFirst overwrites name's first value in place, leaving any further
// values under that name untouched. It reports whether name was present.
func (h *Header) SetFirst(name, value string) bool {
	vs, ok := h.values[name]
	if !ok || len(vs) == 0 {
		return false
	}
	vs[0] = value
	h.values[name] = vs
	return true
}

// Names returns every distinct header name in insertion order.
func (h *Header) Names() []string {
	return h.names
}
