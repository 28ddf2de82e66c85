package httpmsg

import (
	"bytes"
	"fmt"
	"strconv"
)

// ContentLength is the canonical header name update_content_length and
// the read discipline look for. Lookups are case-sensitive; see
// DESIGN.md for why that mirrors the original, not real HTTP.
const ContentLength = "Content-Length"

// TransferEncoding is the header the read discipline inspects for
// chunked framing.
const TransferEncoding = "Transfer-Encoding"

// Serialize is the inverse of Parse for a well-formed Message: a
// request yields "method SP url SP version CRLF", a response yields
// "version SP code SP reason CRLF"; either is followed by every header
// value in insertion order as "name: value CRLF", a terminating CRLF,
// then the body bytes verbatim.
func (m *Message) Serialize() []byte {
	var buf bytes.Buffer

	switch m.Kind {
	case KindRequest:
		fmt.Fprintf(&buf, "%s %s HTTP/%s\r\n", m.Request.Method, m.Request.URL, m.Request.Version)
	case KindResponse:
		fmt.Fprintf(&buf, "HTTP/%s %d %s\r\n", m.Response.Version, m.Response.Code, m.Response.Reason)
	}

	for _, name := range m.Headers.Names() {
		for _, value := range m.Headers.Values(name) {
			fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
		}
	}

	buf.WriteString("\r\n")
	buf.Write(m.Body)

	return buf.Bytes()
}

// UpdateContentLength overwrites the first Content-Length value with
// the decimal length of the current body, leaving any further values
// under that name untouched (see SPEC_FULL.md §9). It is a
// no-op if no Content-Length header is present.
func (m *Message) UpdateContentLength() {
	m.Headers.SetFirst(ContentLength, strconv.Itoa(len(m.Body)))
}
