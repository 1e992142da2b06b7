package ui

import "testing"

func TestBrokerFansOutAndUnsubscribes(t *testing.T) {
	b := NewBroker(nil)
	first, cancelFirst := b.Subscribe(4)
	second, cancelSecond := b.Subscribe(4)
	defer cancelSecond()

	b.Publish(Changed(KindSessions))

	for _, ch := range []<-chan Update{first, second} {
		if got := <-ch; got.Kind != KindSessions {
			t.Fatalf("unexpected kind %q", got.Kind)
		}
	}

	cancelFirst()
	cancelFirst()
	if _, ok := <-first; ok {
		t.Fatal("expected channel to be closed after cancel")
	}
	if b.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.Subscribers())
	}
}

func TestBrokerDropsForFullSubscriber(t *testing.T) {
	b := NewBroker(nil)
	ch, cancel := b.Subscribe(1)
	defer cancel()

	b.Publish(Alert(LevelInfo, "first", ""))
	b.Publish(Alert(LevelInfo, "second", ""))

	got := <-ch
	if got.Toast == nil || got.Toast.Title != "first" {
		t.Fatalf("expected first toast, got %+v", got)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected second update to be dropped, got %+v", extra)
	default:
	}
}
