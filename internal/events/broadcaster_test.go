package events

import "testing"

func TestBroadcasterFansOutToMultipleSubscribers(t *testing.T) {
	b := NewBroadcaster()
	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	b.Emit(NodeCreated, map[string]string{"id": "n1"})

	ev1 := <-ch1
	ev2 := <-ch2
	if ev1.Tag != NodeCreated || ev2.Tag != NodeCreated {
		t.Fatalf("expected both subscribers to observe NodeCreated, got %v and %v", ev1.Tag, ev2.Tag)
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, unsubscribe := b.Subscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}

func TestBroadcasterDropsWhenSubscriberBufferFull(t *testing.T) {
	b := NewBroadcaster()
	_, unsubscribe := b.Subscribe()
	defer unsubscribe()

	// Emitting far more than the buffer size must not block.
	for i := 0; i < subscriberBuffer*2; i++ {
		b.Emit(Visiting, nil)
	}
}
