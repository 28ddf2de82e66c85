package httpmsg

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	protoerrors "github.com/AndreLaranjeira/ProxyGate/pkg/errors"
)

// crlfcrlf is the header/body boundary.
var crlfcrlf = []byte("\r\n\r\n")

// urlChars matches the target of a request line: alphanumerics plus the
// punctuation spec.md §4.1 allows in a request-target.
const urlChars = `[A-Za-z0-9:/.\-_~?#\[\]@!$^&'()*+,;=%{}]+`

var requestLineRe = regexp.MustCompile(
	`^(GET|HEAD|CONNECT|PUT|DELETE|POST|OPTIONS|TRACE|PATCH) (` + urlChars + `) HTTP/(\d)\.(\d)$`,
)

var statusLineRe = regexp.MustCompile(`^HTTP/(\d)\.(\d) (\d{3}) (.*)$`)

var headerLineRe = regexp.MustCompile(`^([A-Za-z0-9-]+): (.*)$`)

// Parse splits buf on the first CRLFCRLF into a header section and a
// binary-safe body, parses the header section's start-line and header
// lines, and returns the resulting Message. Parsing is all-or-nothing:
// on any error the returned Message must not be used.
func Parse(buf []byte) (*Message, error) {
	idx := bytes.Index(buf, crlfcrlf)
	if idx < 0 {
		return nil, protoerrors.NewProtocolError(protoerrors.CodeMissingTerminator,
			"no CRLFCRLF header/body terminator found", nil)
	}

	head := buf[:idx]
	body := buf[idx+4:]

	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 {
		return nil, protoerrors.NewProtocolError(protoerrors.CodeBadStartLine, "empty header section", nil)
	}

	msg, err := parseStartLine(lines[0])
	if err != nil {
		return nil, err
	}

	for _, line := range lines[1:] {
		name, value, err := parseHeaderLine(line)
		if err != nil {
			return nil, err
		}
		msg.Headers.Add(name, value)
	}

	msg.Body = append([]byte(nil), body...)
	return msg, nil
}

func parseStartLine(line string) (*Message, error) {
	if m := requestLineRe.FindStringSubmatch(line); m != nil {
		return NewRequest(m[1], m[2], m[3]+"."+m[4]), nil
	}
	if m := statusLineRe.FindStringSubmatch(line); m != nil {
		code, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, protoerrors.NewProtocolError(protoerrors.CodeBadStartLine, "non-numeric status code", err)
		}
		return NewResponse(m[1]+"."+m[2], code, m[4]), nil
	}
	return nil, protoerrors.NewProtocolError(protoerrors.CodeBadStartLine, "line matched neither request nor status line grammar", nil)
}

func parseHeaderLine(line string) (name, value string, err error) {
	m := headerLineRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", protoerrors.NewProtocolError(protoerrors.CodeBadHeaderLine, "header line did not match field-name: value grammar", nil)
	}
	return m[1], m[2], nil
}

// ValidateReplacementHeaderBlock reports whether text is a well-formed
// operator-supplied replacement: it must end with CRLFCRLF, and every
// preceding line must match the start-line grammar (first line) or the
// header-line grammar (every line after).
func ValidateReplacementHeaderBlock(text string) bool {
	if !strings.HasSuffix(text, "\r\n\r\n") {
		return false
	}
	body := strings.TrimSuffix(text, "\r\n\r\n")
	if body == "" {
		return false
	}
	lines := strings.Split(body, "\r\n")

	if _, err := parseStartLine(lines[0]); err != nil {
		return false
	}
	for _, line := range lines[1:] {
		if _, _, err := parseHeaderLine(line); err != nil {
			return false
		}
	}
	return true
}

// NormalizeCRLF rewrites every lone LF not already preceded by CR into
// CRLF, leaving existing CRLF sequences untouched. The gate applies
// this to every operator-supplied header block when it is loaded.
func NormalizeCRLF(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\n", "\r\n")
}
