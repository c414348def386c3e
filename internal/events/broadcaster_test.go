package events

import (
	"testing"
	"time"
)

func TestBroadcasterSubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster[string](0)

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	if b.Count() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.Count())
	}

	b.Unsubscribe(ch1)
	if b.Count() != 1 {
		t.Fatalf("expected 1 subscriber after unsubscribe, got %d", b.Count())
	}
	if _, ok := <-ch1; ok {
		t.Error("unsubscribed channel should be closed")
	}

	b.Unsubscribe(ch1) // second call is a no-op
	b.Unsubscribe(ch2)
	if b.Count() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", b.Count())
	}
}

func TestBroadcasterPublishToAll(t *testing.T) {
	b := NewBroadcaster[int](4)
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Close()

	if dropped := b.Publish(7); dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}

	for i, ch := range []<-chan int{ch1, ch2} {
		select {
		case v := <-ch:
			if v != 7 {
				t.Errorf("subscriber %d: got %d, want 7", i, v)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timed out", i)
		}
	}
}

func TestBroadcasterDropsForSlowConsumer(t *testing.T) {
	b := NewBroadcaster[int](DefaultBuffer)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	dropped := 0
	for i := 0; i < 100; i++ {
		dropped += b.Publish(i)
	}
	if dropped != 100-DefaultBuffer {
		t.Errorf("dropped = %d, want %d", dropped, 100-DefaultBuffer)
	}

	count := 0
	for len(ch) > 0 {
		<-ch
		count++
	}
	if count != DefaultBuffer {
		t.Errorf("expected %d buffered values, got %d", DefaultBuffer, count)
	}
}

func TestBroadcasterClose(t *testing.T) {
	b := NewBroadcaster[string](1)
	ch := b.Subscribe()
	b.Close()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}
	if b.Count() != 0 {
		t.Errorf("Count after Close = %d", b.Count())
	}
	b.Publish("ignored")
}
