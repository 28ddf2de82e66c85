package gate

import (
	"context"
	"testing"
	"time"
)

func TestWaitBlocksUntilOpen(t *testing.T) {
	g := New()
	done := make(chan struct{})

	go func() {
		_, _, err := g.Wait(context.Background())
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Open was called")
	case <-time.After(50 * time.Millisecond):
	}

	g.Open()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Open")
	}
}

func TestWaitReturnsLoadedOverrides(t *testing.T) {
	g := New()
	g.LoadClientMessage("GET / HTTP/1.1\r\nHost: h\r\n\r\n", []byte("body"))

	go g.Open()

	client, origin, err := g.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil || string(client.Body) != "body" {
		t.Fatalf("expected client override with body %q, got %+v", "body", client)
	}
	if origin != nil {
		t.Fatalf("expected no origin override, got %+v", origin)
	}
}

func TestWaitReclosesAndClearsOverrides(t *testing.T) {
	g := New()
	g.LoadClientMessage("GET / HTTP/1.1\r\nHost: h\r\n\r\n", nil)
	g.Open()

	if _, _, err := g.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !g.closed {
		t.Fatal("expected gate to re-close after Wait")
	}
	if g.pendingClient != nil {
		t.Fatal("expected pending client override to be cleared")
	}
}

func TestWaitUnblocksOnContextCancel(t *testing.T) {
	g := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := g.Wait(ctx)
	if err == nil {
		t.Fatal("expected Wait to return an error when the context expires")
	}
}

func TestNormalizesLFToCRLFOnLoad(t *testing.T) {
	g := New()
	g.LoadClientMessage("GET / HTTP/1.1\nHost: h\n\n", nil)
	g.Open()

	client, _, err := g.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "GET / HTTP/1.1\r\nHost: h\r\n\r\n"
	if client.HeadersText != want {
		t.Fatalf("expected normalized headers %q, got %q", want, client.HeadersText)
	}
}
