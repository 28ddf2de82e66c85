package httpmsg

import (
	"net"
	"testing"
	"time"

	protoerrors "github.com/AndreLaranjeira/ProxyGate/pkg/errors"
)

func TestReadMessageContentLength(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	go func() {
		server.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
		server.Close()
	}()

	msg, err := ReadMessage(client, time.Second)
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if string(msg.Body) != "hello" {
		t.Fatalf("expected body %q, got %q", "hello", msg.Body)
	}
	if !HasLengthInfo(msg) {
		t.Fatal("expected length info to be detected")
	}
}

func TestReadMessageChunkedIsKeptVerbatim(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	chunked := "3\r\nfoo\r\n0\r\n\r\n"
	go func() {
		server.Write([]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" + chunked))
		server.Close()
	}()

	msg, err := ReadMessage(client, time.Second)
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if string(msg.Body) != chunked {
		t.Fatalf("expected verbatim chunked body %q, got %q", chunked, msg.Body)
	}
}

func TestReadMessageChunkedWithoutFinalZeroChunk(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	partial := "3\r\nfoo\r\n"
	go func() {
		server.Write([]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" + partial))
		server.Close()
	}()

	msg, err := ReadMessage(client, time.Second)
	if err != nil {
		t.Fatalf("expected a server close without a final chunk to be accepted, got error: %v", err)
	}
	if string(msg.Body) != partial {
		t.Fatalf("expected body %q, got %q", partial, msg.Body)
	}
}

func TestReadMessageNoLengthInfoUsesOnlyFirstRead(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	head := "GET / HTTP/1.1\r\nHost: h\r\n\r\n"
	done := make(chan struct{})
	go func() {
		server.Write([]byte(head))
		<-done
		server.Close()
	}()

	msg, err := ReadMessage(client, time.Second)
	close(done)
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if len(msg.Body) != 0 {
		t.Fatalf("expected empty body when no length info present, got %q", msg.Body)
	}
	if HasLengthInfo(msg) {
		t.Fatal("expected no length info to be detected")
	}
}

func TestReadMessageBufferFull(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	big := make([]byte, 64)
	for i := range big {
		big[i] = 'a'
	}

	go func() {
		server.Write([]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n"))
		for i := 0; i < 100000; i++ {
			if _, err := server.Write(big); err != nil {
				return
			}
		}
		server.Close()
	}()

	_, err := ReadMessage(client, 5*time.Second)
	if err == nil {
		t.Fatal("expected a buffer-full error for an oversized body")
	}
	if !protoerrors.IsBufferFull(err) {
		t.Fatalf("expected a buffer-full error, got %v", err)
	}
}
