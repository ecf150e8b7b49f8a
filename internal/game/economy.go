package game

import (
	"math"
	"time"
)

// Fixed costs and windows of the action engine.
const (
	AttackCost     = 50.0
	DefendCost     = 30.0
	AttackWindow   = 5 * time.Minute // target counts as "under attack"
	AttackCooldown = 5 * time.Minute // attacker's own wait
	ImmunityWindow = 5 * time.Minute // granted to the attack's target
	ShieldWindow   = 5 * time.Minute
)

// Leaderboard weights and submission rate limits.
const (
	SolveBonus = 100.0
	RoomBonus  = 500.0

	SubmissionLimit  = 10
	SubmissionWindow = 5 * time.Minute
)

const (
	defaultChallengeMultiplier = 2.0
	challengeInvestmentRate    = 0.5
)

// ChallengeInvestment is the escrow taken when a timed challenge starts.
// Forfeited on expiry, never refunded.
func ChallengeInvestment(baseReward float64) float64 {
	return math.Floor(challengeInvestmentRate * baseReward)
}

// ChallengeReward is the payout for solving a timed challenge within its
// window. A non-positive multiplier falls back to the 2x default.
func ChallengeReward(baseReward, multiplier float64) float64 {
	if multiplier <= 0 {
		multiplier = defaultChallengeMultiplier
	}
	return math.Floor(baseReward * multiplier)
}

// Score is the leaderboard projection for one team.
func Score(points float64, correctSolves, currentRoomIndex int) float64 {
	return points + SolveBonus*float64(correctSolves) + RoomBonus*float64(currentRoomIndex)
}
