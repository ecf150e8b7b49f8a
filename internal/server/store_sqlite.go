package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/flagforge/arena/internal/game"
)

// timeLayout is fixed-width UTC so stored timestamps compare
// lexicographically and match the strftime defaults in the schema.
const timeLayout = "2006-01-02T15:04:05.000Z"

func fmtTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func scanTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func newToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// SQLiteStore implements Store (and AdminStore) over a single SQLite
// database. Team records are the principal contention point; every
// gameplay mutation runs through Update.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx so row scanning
// helpers work inside and outside transactions.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) SessionFromToken(ctx context.Context, token string) (sessionInfo, error) {
	var sess sessionInfo
	var teamID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, team_id, role FROM users WHERE session_id = ?
	`, token).Scan(&sess.UserID, &sess.Name, &teamID, &sess.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, errNoSession
	}
	sess.TeamID = teamID.String
	return sess, err
}

func (s *SQLiteStore) CreateTeam(ctx context.Context, teamName, captainName string, capacity int) (Team, string, error) {
	var team Team
	var token string
	err := s.Update(ctx, func(tx Tx) error {
		st := tx.(*sqliteTx)

		var exists int
		err := st.tx.QueryRowContext(ctx, `SELECT 1 FROM teams WHERE name = ?`, teamName).Scan(&exists)
		if err == nil {
			return game.ErrNameTaken
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		invite := newToken()[:8]
		var teamID string
		err = st.tx.QueryRowContext(ctx, `
			INSERT INTO teams (name, capacity, invite_code) VALUES (?, ?, ?)
			RETURNING id
		`, teamName, capacity, invite).Scan(&teamID)
		if err != nil {
			return err
		}

		token = newToken()
		_, err = st.tx.ExecContext(ctx, `
			INSERT INTO users (name, session_id, team_id, role) VALUES (?, ?, ?, 'captain')
		`, captainName, token, teamID)
		if err != nil {
			return err
		}

		team, err = getTeam(ctx, st.tx, teamID)
		return err
	})
	return team, token, err
}

func (s *SQLiteStore) JoinTeam(ctx context.Context, inviteCode, playerName string) (Team, string, error) {
	var team Team
	var token string
	err := s.Update(ctx, func(tx Tx) error {
		st := tx.(*sqliteTx)

		var teamID string
		err := st.tx.QueryRowContext(ctx, `
			SELECT id FROM teams WHERE invite_code = ? AND disabled = 0
		`, inviteCode).Scan(&teamID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		team, err = getTeam(ctx, st.tx, teamID)
		if err != nil {
			return err
		}

		var members int
		if err := st.tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM users WHERE team_id = ?
		`, teamID).Scan(&members); err != nil {
			return err
		}
		if members >= team.Capacity {
			return game.ErrTeamFull
		}

		token = newToken()
		_, err = st.tx.ExecContext(ctx, `
			INSERT INTO users (name, session_id, team_id, role) VALUES (?, ?, ?, 'member')
		`, playerName, token, teamID)
		return err
	})
	return team, token, err
}

func (s *SQLiteStore) TeamByID(ctx context.Context, teamID string) (Team, error) {
	return getTeam(ctx, s.db, teamID)
}

func (s *SQLiteStore) Members(ctx context.Context, teamID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, role FROM users WHERE team_id = ? ORDER BY created_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Role); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *SQLiteStore) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, order_index, brief, unlock_cost, active
		FROM rooms WHERE active = 1 ORDER BY order_index
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.Name, &r.OrderIndex, &r.Brief, &r.UnlockCost, &r.Active); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (s *SQLiteStore) RoomByID(ctx context.Context, roomID string) (Room, error) {
	return getRoom(ctx, s.db, roomID)
}

func (s *SQLiteStore) PuzzlesByRoom(ctx context.Context, roomID string) ([]Puzzle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, title, type, description, flag_hash, points, active,
			is_challenge, timer_minutes, multiplier, is_room_question, skip_to_room_id
		FROM puzzles WHERE room_id = ? AND active = 1 ORDER BY created_at
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var puzzles []Puzzle
	for rows.Next() {
		p, err := scanPuzzle(rows)
		if err != nil {
			return nil, err
		}
		puzzles = append(puzzles, p)
	}
	return puzzles, rows.Err()
}

func (s *SQLiteStore) CluesByPuzzle(ctx context.Context, puzzleID string) ([]Clue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, puzzle_id, text, cost, order_index
		FROM clues WHERE puzzle_id = ? ORDER BY order_index
	`, puzzleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clues []Clue
	for rows.Next() {
		var c Clue
		if err := rows.Scan(&c.ID, &c.PuzzleID, &c.Text, &c.Cost, &c.OrderIndex); err != nil {
			return nil, err
		}
		clues = append(clues, c)
	}
	return clues, rows.Err()
}

func (s *SQLiteStore) PurchasedClueIDs(ctx context.Context, teamID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT clue_id FROM purchases WHERE team_id = ? AND clue_id IS NOT NULL
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) SolvedPuzzleIDs(ctx context.Context, teamID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT puzzle_id FROM submissions WHERE team_id = ? AND is_correct = 1
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) ListPerks(ctx context.Context) ([]Perk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, cost, one_time, active
		FROM perks WHERE active = 1 ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perks []Perk
	for rows.Next() {
		var p Perk
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Cost, &p.OneTime, &p.Active); err != nil {
			return nil, err
		}
		perks = append(perks, p)
	}
	return perks, rows.Err()
}

// Leaderboard projects ranked standings. Disabled teams never appear.
// Shield and under-attack liveness is resolved in Go through game.Effect
// so the stored booleans are only hints.
func (s *SQLiteStore) Leaderboard(ctx context.Context, now time.Time) ([]LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.points,
			COALESCE(cr.order_index, 0),
			COALESCE(hr.order_index, 0),
			COALESCE(hr.name, ''),
			t.shield_active, t.shield_expiry,
			(SELECT COUNT(*) FROM submissions s WHERE s.team_id = t.id AND s.is_correct = 1),
			(SELECT MAX(a.ends_at) FROM actions a
				WHERE a.target_team_id = t.id AND a.type = 'attack' AND a.status = 'active')
		FROM teams t
		LEFT JOIN rooms cr ON cr.id = t.current_room_id
		LEFT JOIN rooms hr ON hr.id = t.highest_room_id
		WHERE t.disabled = 0
		ORDER BY COALESCE(hr.order_index, 0) DESC, t.points DESC, t.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		var shieldActive bool
		var shieldExpiry, attackEndsAt sql.NullString
		var solves int
		if err := rows.Scan(&e.TeamID, &e.TeamName, &e.PointsBalance,
			&e.RoomIndex, &e.HighestRoomIndex, &e.HighestRoomName,
			&shieldActive, &shieldExpiry, &solves, &attackEndsAt); err != nil {
			return nil, err
		}
		e.Score = game.Score(e.PointsBalance, solves, e.RoomIndex)
		e.ShieldActive = game.Effect{Hint: shieldActive, ExpiresAt: scanTime(shieldExpiry)}.ActiveAt(now)
		e.UnderAttack = game.Until(scanTime(attackEndsAt)).ActiveAt(now)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Update runs fn inside a SQL transaction.
func (s *SQLiteStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = dbtx.Rollback()
		}
	}()

	if err := fn(&sqliteTx{tx: dbtx}); err != nil {
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, actorID, action, detailsJSON string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (actor_id, action, details) VALUES (?, ?, ?)
	`, nullStr(actorID), action, detailsJSON)
	return err
}

// --- shared row scanning ---

func getTeam(ctx context.Context, q querier, teamID string) (Team, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, capacity, points, current_room_id, highest_room_id,
			shield_active, shield_expiry, immunity_until, last_attack_at,
			invite_code, rules_flag_submitted, disabled
		FROM teams WHERE id = ?
	`, teamID)

	var t Team
	var currentRoom, highestRoom, shieldExpiry, immunityUntil, lastAttack sql.NullString
	err := row.Scan(&t.ID, &t.Name, &t.Capacity, &t.Points, &currentRoom, &highestRoom,
		&t.ShieldActive, &shieldExpiry, &immunityUntil, &lastAttack,
		&t.InviteCode, &t.RulesFlagSubmitted, &t.Disabled)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.CurrentRoomID = currentRoom.String
	t.HighestRoomID = highestRoom.String
	t.ShieldExpiry = scanTime(shieldExpiry)
	t.ImmunityUntil = scanTime(immunityUntil)
	t.LastAttackAt = scanTime(lastAttack)
	return t, nil
}

func getRoom(ctx context.Context, q querier, roomID string) (Room, error) {
	var r Room
	err := q.QueryRowContext(ctx, `
		SELECT id, name, order_index, brief, unlock_cost, active
		FROM rooms WHERE id = ?
	`, roomID).Scan(&r.ID, &r.Name, &r.OrderIndex, &r.Brief, &r.UnlockCost, &r.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPuzzle(row rowScanner) (Puzzle, error) {
	var p Puzzle
	var skipTo sql.NullString
	err := row.Scan(&p.ID, &p.RoomID, &p.Title, &p.Type, &p.Description, &p.FlagHash,
		&p.Points, &p.Active, &p.IsChallenge, &p.TimerMinutes, &p.Multiplier,
		&p.IsRoomQuestion, &skipTo)
	p.SkipToRoomID = skipTo.String
	return p, err
}

// --- transaction view ---

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) UserTeam(ctx context.Context, userID string) (Team, string, error) {
	var teamID sql.NullString
	var role string
	err := t.tx.QueryRowContext(ctx, `
		SELECT team_id, role FROM users WHERE id = ?
	`, userID).Scan(&teamID, &role)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !teamID.Valid) {
		return Team{}, "", game.ErrNotInTeam
	}
	if err != nil {
		return Team{}, "", err
	}
	team, err := getTeam(ctx, t.tx, teamID.String)
	return team, role, err
}

func (t *sqliteTx) Team(ctx context.Context, teamID string) (Team, error) {
	return getTeam(ctx, t.tx, teamID)
}

func (t *sqliteTx) SaveTeam(ctx context.Context, team Team) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE teams SET points = ?, current_room_id = ?, highest_room_id = ?,
			shield_active = ?, shield_expiry = ?, immunity_until = ?,
			last_attack_at = ?, rules_flag_submitted = ?, disabled = ?
		WHERE id = ?
	`, team.Points, nullStr(team.CurrentRoomID), nullStr(team.HighestRoomID),
		team.ShieldActive, fmtTime(team.ShieldExpiry), fmtTime(team.ImmunityUntil),
		fmtTime(team.LastAttackAt), team.RulesFlagSubmitted, team.Disabled, team.ID)
	return err
}

func (t *sqliteTx) Room(ctx context.Context, roomID string) (Room, error) {
	return getRoom(ctx, t.tx, roomID)
}

func (t *sqliteTx) Puzzle(ctx context.Context, puzzleID string) (Puzzle, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, room_id, title, type, description, flag_hash, points, active,
			is_challenge, timer_minutes, multiplier, is_room_question, skip_to_room_id
		FROM puzzles WHERE id = ?
	`, puzzleID)
	p, err := scanPuzzle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (t *sqliteTx) Clue(ctx context.Context, clueID string) (Clue, error) {
	var c Clue
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, puzzle_id, text, cost, order_index FROM clues WHERE id = ?
	`, clueID).Scan(&c.ID, &c.PuzzleID, &c.Text, &c.Cost, &c.OrderIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

func (t *sqliteTx) Perk(ctx context.Context, perkID string) (Perk, error) {
	var p Perk
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, description, cost, one_time, active FROM perks WHERE id = ?
	`, perkID).Scan(&p.ID, &p.Name, &p.Description, &p.Cost, &p.OneTime, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (t *sqliteTx) HasCorrectSubmission(ctx context.Context, teamID, puzzleID string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, `
		SELECT 1 FROM submissions WHERE team_id = ? AND puzzle_id = ? AND is_correct = 1 LIMIT 1
	`, teamID, puzzleID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (t *sqliteTx) InsertSubmission(ctx context.Context, s Submission) (string, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO submissions (team_id, puzzle_id, flag_hash, is_correct, ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, s.TeamID, s.PuzzleID, s.FlagHash, s.IsCorrect, nullStr(s.IP), fmtTime(s.CreatedAt)).Scan(&id)
	return id, err
}

func (t *sqliteTx) IncompleteAttempt(ctx context.Context, teamID, puzzleID string) (ChallengeAttempt, bool, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, team_id, puzzle_id, started_at, ends_at, investment, completed, passed, solved_at
		FROM challenge_attempts
		WHERE team_id = ? AND puzzle_id = ? AND completed = 0
		LIMIT 1
	`, teamID, puzzleID)

	var a ChallengeAttempt
	var started, ends, solved sql.NullString
	err := row.Scan(&a.ID, &a.TeamID, &a.PuzzleID, &started, &ends, &a.Investment,
		&a.Completed, &a.Passed, &solved)
	if errors.Is(err, sql.ErrNoRows) {
		return a, false, nil
	}
	if err != nil {
		return a, false, err
	}
	a.StartedAt = scanTime(started)
	a.EndsAt = scanTime(ends)
	a.SolvedAt = scanTime(solved)
	return a, true, nil
}

func (t *sqliteTx) InsertAttempt(ctx context.Context, a ChallengeAttempt) (string, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO challenge_attempts (team_id, puzzle_id, started_at, ends_at, investment)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, a.TeamID, a.PuzzleID, fmtTime(a.StartedAt), fmtTime(a.EndsAt), a.Investment).Scan(&id)
	return id, err
}

func (t *sqliteTx) CompleteAttempt(ctx context.Context, attemptID string, passed bool, solvedAt time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE challenge_attempts SET completed = 1, passed = ?, solved_at = ?
		WHERE id = ?
	`, passed, fmtTime(solvedAt), attemptID)
	return err
}

func (s *SQLiteStore) UnderAttack(ctx context.Context, teamID string, now time.Time) (bool, error) {
	_, under, err := activeAttackAgainst(ctx, s.db, teamID, now)
	return under, err
}

// ActiveAttackAgainst returns the live attack targeting teamID, if any.
// Status is a hint; ends_at decides liveness.
func (t *sqliteTx) ActiveAttackAgainst(ctx context.Context, teamID string, now time.Time) (Action, bool, error) {
	return activeAttackAgainst(ctx, t.tx, teamID, now)
}

func activeAttackAgainst(ctx context.Context, q querier, teamID string, now time.Time) (Action, bool, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, team_id, type, target_team_id, cost, status, ends_at, cooldown_until, created_at
		FROM actions
		WHERE target_team_id = ? AND type = 'attack' AND status = 'active'
		ORDER BY created_at DESC
	`, teamID)
	if err != nil {
		return Action{}, false, err
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return Action{}, false, err
		}
		if game.Until(a.EndsAt).ActiveAt(now) {
			return a, true, nil
		}
	}
	return Action{}, false, rows.Err()
}

func scanAction(row rowScanner) (Action, error) {
	var a Action
	var target, ends, cooldown, created sql.NullString
	err := row.Scan(&a.ID, &a.TeamID, &a.Type, &target, &a.Cost, &a.Status,
		&ends, &cooldown, &created)
	a.TargetTeamID = target.String
	a.EndsAt = scanTime(ends)
	a.CooldownUntil = scanTime(cooldown)
	a.CreatedAt = scanTime(created)
	return a, err
}

func (t *sqliteTx) InsertAction(ctx context.Context, a Action) (string, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO actions (team_id, type, target_team_id, cost, status, ends_at, cooldown_until, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, a.TeamID, a.Type, nullStr(a.TargetTeamID), a.Cost, a.Status,
		fmtTime(a.EndsAt), fmtTime(a.CooldownUntil), fmtTime(a.CreatedAt)).Scan(&id)
	return id, err
}

func (t *sqliteTx) HasPurchase(ctx context.Context, teamID, clueID, perkID string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, `
		SELECT 1 FROM purchases
		WHERE team_id = ?
			AND (? != '' AND clue_id = ? OR ? != '' AND perk_id = ?)
		LIMIT 1
	`, teamID, clueID, clueID, perkID, perkID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (t *sqliteTx) InsertPurchase(ctx context.Context, teamID, clueID, perkID string, cost float64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO purchases (team_id, clue_id, perk_id, cost) VALUES (?, ?, ?, ?)
	`, teamID, nullStr(clueID), nullStr(perkID), cost)
	return err
}
