package server

import (
	"encoding/json"
	"testing"
)

func TestBrokerPublishToTeam(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("team-1")
	defer b.Unsubscribe("team-1", ch)

	other := b.Subscribe("team-2")
	defer b.Unsubscribe("team-2", other)

	b.Publish("team-1", SSEEvent{Type: "flag_solved", PuzzleTitle: "Warmup Cipher", Points: 100})

	select {
	case data := <-ch:
		var ev SSEEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Type != "flag_solved" || ev.Points != 100 {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Fatal("subscriber received nothing")
	}

	select {
	case <-other:
		t.Fatal("other team must not receive the event")
	default:
	}
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("team-1")
	defer b.Unsubscribe("team-1", ch)

	// Publish never blocks, even past the buffer.
	for i := 0; i < 64; i++ {
		b.Publish("team-1", SSEEvent{Type: "wrong_flag"})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered = %d, want full buffer %d", len(ch), cap(ch))
	}
}
