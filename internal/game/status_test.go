package game

import (
	"math/rand"
	"testing"
	"time"
)

func TestEffectActiveAt(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		effect Effect
		want   bool
	}{
		{"hint set, unexpired", Effect{true, now.Add(time.Minute)}, true},
		{"hint set, expired", Effect{true, now.Add(-time.Minute)}, false},
		{"hint set, zero expiry", Effect{true, time.Time{}}, false},
		{"stale hint cleared by timestamp", Effect{true, now.Add(-time.Second)}, false},
		{"no hint", Effect{false, now.Add(time.Minute)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.effect.ActiveAt(now); got != tt.want {
				t.Errorf("ActiveAt = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffectRemaining(t *testing.T) {
	now := time.Now()

	e := Until(now.Add(3 * time.Minute))
	if got := e.Remaining(now); got != 3*time.Minute {
		t.Errorf("Remaining = %v, want 3m", got)
	}
	if got := Until(now.Add(-time.Minute)).Remaining(now); got != 0 {
		t.Errorf("Remaining on expired effect = %v, want 0", got)
	}
	if got := Until(time.Time{}).Remaining(now); got != 0 {
		t.Errorf("Remaining on unset effect = %v, want 0", got)
	}
}

func TestCooldownRemaining(t *testing.T) {
	now := time.Now()

	if got := CooldownRemaining(time.Time{}, now); got != 0 {
		t.Errorf("never attacked: remaining = %v, want 0", got)
	}
	if got := CooldownRemaining(now.Add(-AttackCooldown-time.Second), now); got != 0 {
		t.Errorf("cooldown elapsed: remaining = %v, want 0", got)
	}
	got := CooldownRemaining(now.Add(-time.Minute), now)
	if got != AttackCooldown-time.Minute {
		t.Errorf("remaining = %v, want %v", got, AttackCooldown-time.Minute)
	}
}

func TestCanUnlock(t *testing.T) {
	if !CanUnlock(0, 1) {
		t.Error("fresh team must be able to unlock room 1")
	}
	if CanUnlock(0, 2) {
		t.Error("fresh team must not skip to room 2")
	}
	if !CanUnlock(3, 4) {
		t.Error("room 4 must be reachable from room 3")
	}
	if CanUnlock(3, 3) {
		t.Error("re-entering the current room must be rejected")
	}
	if CanUnlock(3, 2) {
		t.Error("going backwards must be rejected")
	}
	if CanUnlock(3, 5) {
		t.Error("skipping ahead must be rejected")
	}
}

// Random order-index sequences: only strictly consecutive unlocks starting
// at 1 may ever succeed, and the reachable index never decreases.
func TestCanUnlockSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for seq := 0; seq < 200; seq++ {
		current := 0
		for step := 0; step < 50; step++ {
			target := rng.Intn(10) + 1
			ok := CanUnlock(current, target)

			wantOK := (current == 0 && target == 1) || (current != 0 && target == current+1)
			if ok != wantOK {
				t.Fatalf("CanUnlock(%d, %d) = %v, want %v", current, target, ok, wantOK)
			}
			if ok {
				if target < current {
					t.Fatalf("unlock moved backwards: %d -> %d", current, target)
				}
				current = target
			}
		}
	}
}
