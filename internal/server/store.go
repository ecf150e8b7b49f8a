package server

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// sessionInfo identifies the player behind a bearer token.
type sessionInfo struct {
	UserID string
	Name   string
	TeamID string
	Role   string // "captain" or "member"
}

type Team struct {
	ID                 string
	Name               string
	Capacity           int
	Points             float64
	CurrentRoomID      string // empty means "not yet entered room 1"
	HighestRoomID      string
	ShieldActive       bool
	ShieldExpiry       time.Time
	ImmunityUntil      time.Time
	LastAttackAt       time.Time
	InviteCode         string
	RulesFlagSubmitted bool
	Disabled           bool
}

type Room struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	OrderIndex int     `json:"orderIndex"`
	Brief      string  `json:"brief"`
	UnlockCost float64 `json:"unlockCost"`
	Active     bool    `json:"active"`
}

type Puzzle struct {
	ID             string  `json:"id"`
	RoomID         string  `json:"roomId"`
	Title          string  `json:"title"`
	Type           string  `json:"type"`
	Description    string  `json:"description"`
	FlagHash       string  `json:"-"`
	Points         float64 `json:"points"`
	Active         bool    `json:"active"`
	IsChallenge    bool    `json:"isChallenge"`
	TimerMinutes   int     `json:"timerMinutes"`
	Multiplier     float64 `json:"multiplier"`
	IsRoomQuestion bool    `json:"isRoomQuestion"`
	SkipToRoomID   string  `json:"skipToRoomId,omitempty"`
}

type Clue struct {
	ID         string  `json:"id"`
	PuzzleID   string  `json:"puzzleId"`
	Text       string  `json:"text"`
	Cost       float64 `json:"cost"`
	OrderIndex int     `json:"orderIndex"`
}

type Perk struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	OneTime     bool    `json:"oneTime"`
	Active      bool    `json:"active"`
}

type Submission struct {
	ID        string
	TeamID    string
	PuzzleID  string
	FlagHash  string
	IsCorrect bool
	IP        string
	CreatedAt time.Time
}

type ChallengeAttempt struct {
	ID         string
	TeamID     string
	PuzzleID   string
	StartedAt  time.Time
	EndsAt     time.Time
	Investment float64
	Completed  bool
	Passed     bool
	SolvedAt   time.Time
}

type Action struct {
	ID            string
	TeamID        string
	Type          string // "attack", "defend", "invest"
	TargetTeamID  string
	Cost          float64
	Status        string // "active", "completed", "cancelled", "pending"
	EndsAt        time.Time
	CooldownUntil time.Time
	CreatedAt     time.Time
}

type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type LeaderboardEntry struct {
	TeamID           string  `json:"teamId"`
	TeamName         string  `json:"teamName"`
	Score            float64 `json:"score"`
	RoomIndex        int     `json:"roomIndex"`
	PointsBalance    float64 `json:"pointsBalance"`
	HighestRoomIndex int     `json:"highestRoomIndex"`
	HighestRoomName  string  `json:"highestRoomName"`
	ShieldActive     bool    `json:"shieldActive"`
	UnderAttack      bool    `json:"underAttack"`
}

// Store is the persistence boundary. Engines depend on this interface,
// never on a raw database handle. All mutating gameplay goes through
// Update so every read-decide-write runs in one transaction.
type Store interface {
	SessionFromToken(ctx context.Context, token string) (sessionInfo, error)

	CreateTeam(ctx context.Context, teamName, captainName string, capacity int) (Team, string, error)
	JoinTeam(ctx context.Context, inviteCode, playerName string) (Team, string, error)
	TeamByID(ctx context.Context, teamID string) (Team, error)
	Members(ctx context.Context, teamID string) ([]Member, error)

	ListRooms(ctx context.Context) ([]Room, error)
	RoomByID(ctx context.Context, roomID string) (Room, error)
	PuzzlesByRoom(ctx context.Context, roomID string) ([]Puzzle, error)
	CluesByPuzzle(ctx context.Context, puzzleID string) ([]Clue, error)
	PurchasedClueIDs(ctx context.Context, teamID string) (map[string]bool, error)
	SolvedPuzzleIDs(ctx context.Context, teamID string) (map[string]bool, error)
	ListPerks(ctx context.Context) ([]Perk, error)

	Leaderboard(ctx context.Context, now time.Time) ([]LeaderboardEntry, error)
	UnderAttack(ctx context.Context, teamID string, now time.Time) (bool, error)

	// Update runs fn inside a single transaction. Returning an error
	// rolls everything back: no partial state is observable after a
	// failed precondition.
	Update(ctx context.Context, fn func(tx Tx) error) error

	AppendAudit(ctx context.Context, actorID, action, detailsJSON string) error
}

// Tx is the typed view of one in-flight transaction.
type Tx interface {
	UserTeam(ctx context.Context, userID string) (Team, string, error)
	Team(ctx context.Context, teamID string) (Team, error)
	SaveTeam(ctx context.Context, t Team) error

	Room(ctx context.Context, roomID string) (Room, error)
	Puzzle(ctx context.Context, puzzleID string) (Puzzle, error)
	Clue(ctx context.Context, clueID string) (Clue, error)
	Perk(ctx context.Context, perkID string) (Perk, error)

	HasCorrectSubmission(ctx context.Context, teamID, puzzleID string) (bool, error)
	InsertSubmission(ctx context.Context, s Submission) (string, error)

	IncompleteAttempt(ctx context.Context, teamID, puzzleID string) (ChallengeAttempt, bool, error)
	InsertAttempt(ctx context.Context, a ChallengeAttempt) (string, error)
	CompleteAttempt(ctx context.Context, attemptID string, passed bool, solvedAt time.Time) error

	ActiveAttackAgainst(ctx context.Context, teamID string, now time.Time) (Action, bool, error)
	InsertAction(ctx context.Context, a Action) (string, error)

	HasPurchase(ctx context.Context, teamID, clueID, perkID string) (bool, error)
	InsertPurchase(ctx context.Context, teamID, clueID, perkID string, cost float64) error
}
