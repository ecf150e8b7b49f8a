package game

import "time"

// Effect is a time-bounded status (shield, immunity, attack window)
// resolved lazily against the clock. Nothing proactively expires an
// effect: the stored boolean is a hint, the timestamp is authoritative,
// so every consumer resolves liveness through ActiveAt.
type Effect struct {
	Hint      bool
	ExpiresAt time.Time
}

// Until builds an Effect from a bare expiry timestamp (statuses that have
// no stored boolean, like attack immunity).
func Until(t time.Time) Effect {
	return Effect{Hint: !t.IsZero(), ExpiresAt: t}
}

func (e Effect) ActiveAt(now time.Time) bool {
	return e.Hint && !e.ExpiresAt.IsZero() && now.Before(e.ExpiresAt)
}

func (e Effect) Remaining(now time.Time) time.Duration {
	if !e.ActiveAt(now) {
		return 0
	}
	return e.ExpiresAt.Sub(now)
}

// CooldownRemaining returns how long until a team that last attacked at
// lastAttack may attack again. Zero means ready.
func CooldownRemaining(lastAttack, now time.Time) time.Duration {
	if lastAttack.IsZero() {
		return 0
	}
	rem := lastAttack.Add(AttackCooldown).Sub(now)
	if rem < 0 {
		return 0
	}
	return rem
}

// CanUnlock applies the strict linear ordering rule: a team with no
// current room may only enter order index 1; otherwise exactly the next
// index. currentIndex zero means "not yet entered room 1".
func CanUnlock(currentIndex, targetIndex int) bool {
	if currentIndex == 0 {
		return targetIndex == 1
	}
	return targetIndex == currentIndex+1
}
