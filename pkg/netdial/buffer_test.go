package netdial

import (
	"testing"

	protoerrors "github.com/AndreLaranjeira/ProxyGate/pkg/errors"
)

func TestBufferWriteWithinCapacity(t *testing.T) {
	buf := NewBufferSize(16)

	n, err := buf.Write([]byte("hello"))
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes written, got %d", n)
	}
	if string(buf.Bytes()) != "hello" {
		t.Fatalf("unexpected contents: %q", buf.Bytes())
	}
}

func TestBufferWriteOverflow(t *testing.T) {
	buf := NewBufferSize(4)

	_, err := buf.Write([]byte("toolong"))
	if err == nil {
		t.Fatal("expected an error writing past capacity")
	}
	if !protoerrors.IsBufferFull(err) {
		t.Fatalf("expected a buffer-full error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing appended on overflow, got %d bytes", buf.Len())
	}
}

func TestBufferReset(t *testing.T) {
	buf := NewBufferSize(16)
	if _, err := buf.Write([]byte("data")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	buf.Reset()

	if buf.Len() != 0 {
		t.Fatalf("expected empty buffer after reset, got %d bytes", buf.Len())
	}
}
