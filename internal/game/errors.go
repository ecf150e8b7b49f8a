package game

import (
	"fmt"
	"time"
)

// Kind classifies an Error for propagation policy and HTTP mapping.
type Kind int

const (
	KindAuthorization Kind = iota // fatal, no retry
	KindValidation                // fatal, caller must correct input
	KindEconomic                  // fatal but often a normal gameplay outcome
	KindTemporal                  // fatal now, resolves after a wait
	KindNotFound                  // fatal, stale client state
)

// Error is a gameplay rule violation. Engines fail fast with the first
// violated precondition; the Kind drives the HTTP status, the Code is a
// stable machine-readable identifier.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches on Code so sentinel errors compare equal to constructed
// variants carrying dynamic messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrNotCaptain   = &Error{KindAuthorization, "not_captain", "only the team captain can do that"}
	ErrNotInTeam    = &Error{KindAuthorization, "not_in_team", "you are not in a team"}
	ErrTeamDisabled = &Error{KindAuthorization, "team_disabled", "your team has been disabled by the organizers"}

	ErrInvalidFormat    = &Error{KindValidation, "invalid_format", "flag contains forbidden characters or is too long"}
	ErrMissingAmount    = &Error{KindValidation, "missing_amount", "a positive investment amount is required"}
	ErrOutOfOrderUnlock = &Error{KindValidation, "out_of_order_unlock", "rooms must be unlocked in order"}
	ErrNotAChallenge    = &Error{KindValidation, "not_a_challenge", "this puzzle is not a timed challenge"}
	ErrTeamFull         = &Error{KindValidation, "team_full", "team is already at capacity"}
	ErrNameTaken        = &Error{KindValidation, "name_taken", "a team with that name already exists"}
	ErrRoomNotUnlocked  = &Error{KindValidation, "room_not_unlocked", "your team has not unlocked this room yet"}
	ErrCannotTargetSelf = &Error{KindValidation, "cannot_target_self", "you cannot attack your own team"}

	ErrInsufficientPoints = &Error{KindEconomic, "insufficient_points", "not enough points"}
	ErrAlreadySolved      = &Error{KindEconomic, "already_solved", "your team already solved this puzzle"}
	ErrAlreadyPurchased   = &Error{KindEconomic, "already_purchased", "your team already purchased this"}
	ErrAttemptInProgress  = &Error{KindEconomic, "attempt_in_progress", "a challenge attempt is already running"}

	ErrRateLimited         = &Error{KindTemporal, "rate_limited", "too many submissions, slow down"}
	ErrUnderAttack         = &Error{KindTemporal, "under_attack", "your team is under attack and cannot submit flags"}
	ErrTargetImmune        = &Error{KindTemporal, "target_immune", "target team is immune to attacks right now"}
	ErrTargetShielded      = &Error{KindTemporal, "target_shielded", "target team has an active shield"}
	ErrShieldAlreadyActive = &Error{KindTemporal, "shield_already_active", "your shield is already active"}
	ErrOnCooldown          = &Error{KindTemporal, "on_cooldown", "attack is on cooldown"}
	ErrChallengeExpired    = &Error{KindTemporal, "challenge_expired", "the challenge timer has expired; investment forfeited"}

	ErrChallengeNotStarted = &Error{KindEconomic, "challenge_not_started", "start the challenge before submitting its flag"}

	ErrRoomNotFound      = &Error{KindNotFound, "room_not_found", "room not found"}
	ErrPuzzleNotFound    = &Error{KindNotFound, "puzzle_not_found", "puzzle not found"}
	ErrChallengeNotFound = &Error{KindNotFound, "challenge_not_found", "challenge not found"}
	ErrClueNotFound      = &Error{KindNotFound, "clue_not_found", "clue not found"}
	ErrPerkNotFound      = &Error{KindNotFound, "perk_not_found", "perk not found"}
	ErrTargetNotFound    = &Error{KindNotFound, "target_not_found", "target team not found"}
)

// OnCooldown builds an on_cooldown error carrying the remaining wait.
func OnCooldown(remaining time.Duration) *Error {
	mins := int(remaining.Minutes()) + 1
	return &Error{
		Kind:    KindTemporal,
		Code:    ErrOnCooldown.Code,
		Message: fmt.Sprintf("attack on cooldown, try again in %d minute(s)", mins),
	}
}
