package httpmsg

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	protoerrors "github.com/AndreLaranjeira/ProxyGate/pkg/errors"
	"github.com/AndreLaranjeira/ProxyGate/pkg/netdial"
)

// ReadMessage reads one complete HTTP/1.x message from conn, applying
// the response-length discipline of §4.2.1: a Content-Length body is
// read to exactly that many bytes, a chunked body is read verbatim
// (chunk framing included) until the peer closes the connection, and a
// message with neither header uses only what the first read already
// buffered. The total bytes read, headers included, are capped at
// netdial.HTTPBufferSize; exceeding it returns a BufferFull error.
//
// ReadMessage is shared by the proxy engine (for both client requests
// and origin responses) and the site explorer (for page fetches).
func ReadMessage(conn net.Conn, timeout time.Duration) (*Message, error) {
	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, protoerrors.NewIOError("read", err)
		}
	}

	reader := bufio.NewReader(conn)
	raw := netdial.NewBuffer()

	firstLine, err := readLine(reader, raw)
	if err != nil {
		return nil, err
	}

	msg, err := parseStartLine(firstLine)
	if err != nil {
		return nil, err
	}

	for {
		line, err := readLine(reader, raw)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		name, value, err := parseHeaderLine(line)
		if err != nil {
			return nil, err
		}
		msg.Headers.Add(name, value)
	}

	if err := readBody(reader, raw, msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// HasLengthInfo reports whether msg carries a Content-Length or
// Transfer-Encoding header. A message with neither header was read with
// the "whatever was read in the first recv" fallback of §4.2.1 point 3.
func HasLengthInfo(msg *Message) bool {
	if _, ok := msg.Headers.First(ContentLength); ok {
		return true
	}
	_, ok := msg.Headers.First(TransferEncoding)
	return ok
}

func readLine(r *bufio.Reader, raw *netdial.Buffer) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if len(line) == 0 {
			return "", wrapReadErr(err)
		}
	}
	if _, werr := raw.Write([]byte(line)); werr != nil {
		return "", werr
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readBody(reader *bufio.Reader, raw *netdial.Buffer, msg *Message) error {
	te, hasTE := msg.Headers.First(TransferEncoding)
	cl, hasCL := msg.Headers.First(ContentLength)

	switch {
	case hasTE && strings.EqualFold(strings.TrimSpace(te), "chunked"):
		return readUntilClose(reader, raw, msg)
	case hasCL:
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n < 0 {
			return protoerrors.NewProtocolError(protoerrors.CodeBadHeaderLine, "invalid Content-Length value", err)
		}
		return readFixed(reader, raw, msg, n)
	default:
		return readBuffered(reader, raw, msg)
	}
}

// readFixed reads exactly n bytes, matching §4.2.1 point 1.
func readFixed(reader *bufio.Reader, raw *netdial.Buffer, msg *Message, n int64) error {
	var body bytes.Buffer
	if _, err := io.CopyN(io.MultiWriter(&body, raw), reader, n); err != nil {
		return wrapReadErr(err)
	}
	msg.Body = body.Bytes()
	return nil
}

// readUntilClose reads until the peer closes the connection or an error
// occurs, keeping every byte verbatim. Used for chunked bodies (§4.2.1
// point 2, chunk framing intentionally left unparsed).
func readUntilClose(reader *bufio.Reader, raw *netdial.Buffer, msg *Message) error {
	var body bytes.Buffer
	w := io.MultiWriter(&body, raw)
	buf := make([]byte, 32*1024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return wrapReadErr(err)
		}
	}
	msg.Body = body.Bytes()
	return nil
}

// readBuffered uses only the bytes already sitting in reader's internal
// buffer from the read that pulled in the headers, matching §4.2.1
// point 3: no further socket reads are issued.
func readBuffered(reader *bufio.Reader, raw *netdial.Buffer, msg *Message) error {
	n := reader.Buffered()
	if n == 0 {
		return nil
	}
	var body bytes.Buffer
	if _, err := io.CopyN(io.MultiWriter(&body, raw), reader, int64(n)); err != nil {
		return wrapReadErr(err)
	}
	msg.Body = body.Bytes()
	return nil
}

func wrapReadErr(err error) error {
	if _, ok := err.(*protoerrors.Error); ok {
		return err
	}
	return protoerrors.NewIOError("read", err)
}
