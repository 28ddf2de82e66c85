package bus

import "testing"

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	sub := b.Subscribe()

	b.Publish(Event{Kind: Log, Text: "hello"})

	ev := <-sub
	if ev.Kind != Log || ev.Text != "hello" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestPublishFansOutInOrder(t *testing.T) {
	b := New()
	sub := b.Subscribe()

	b.Publish(Event{Kind: Log, Text: "first"})
	b.Publish(Event{Kind: Log, Text: "second"})

	if ev := <-sub; ev.Text != "first" {
		t.Fatalf("expected first event first, got %q", ev.Text)
	}
	if ev := <-sub; ev.Text != "second" {
		t.Fatalf("expected second event second, got %q", ev.Text)
	}
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	b := New()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish(Event{Kind: Finished})

	if ev := <-a; ev.Kind != Finished {
		t.Fatalf("subscriber a missed event")
	}
	if ev := <-c; ev.Kind != Finished {
		t.Fatalf("subscriber c missed event")
	}
}

func TestCloseClosesSubscriberChannels(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Close()

	if _, ok := <-sub; ok {
		t.Fatal("expected subscriber channel to be closed")
	}
}
