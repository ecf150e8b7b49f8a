package server

import (
	"context"
	"database/sql"
	"errors"
)

// AdminStore is the moderation/content side of persistence. Admin writes
// are thin field copies; the only gameplay-relevant ones (points
// adjustment, room override) deliberately bypass engine rules and are
// audit-logged distinctly by their handlers.
type AdminStore interface {
	AdminByEmail(ctx context.Context, email string) (adminID, passwordHash string, err error)
	AdminFromSession(ctx context.Context, sessionID string) (adminSession, error)
	CreateAdminSession(ctx context.Context, adminID string) (string, error)
	DeleteAdminSession(ctx context.Context, sessionID string) error
	CountAdmins(ctx context.Context) (int, error)
	CreateAdmin(ctx context.Context, email, passwordHash string) error

	ListAllRooms(ctx context.Context) ([]Room, error)
	CreateRoom(ctx context.Context, req AdminRoomRequest) (Room, error)
	UpdateRoom(ctx context.Context, roomID string, req AdminRoomRequest) (Room, error)
	DeleteRoom(ctx context.Context, roomID string) error

	CreatePuzzle(ctx context.Context, roomID string, req AdminPuzzleRequest, flagHash string) (Puzzle, error)
	UpdatePuzzle(ctx context.Context, puzzleID string, req AdminPuzzleRequest, flagHash string) error
	DeletePuzzle(ctx context.Context, puzzleID string) error

	ClueCount(ctx context.Context, puzzleID string) (int, error)
	CreateClue(ctx context.Context, puzzleID string, req AdminClueRequest) (Clue, error)
	DeleteClue(ctx context.Context, clueID string) error

	CreatePerk(ctx context.Context, req AdminPerkRequest) (Perk, error)

	ListAllTeams(ctx context.Context) ([]AdminTeamItem, error)
	SetTeamDisabled(ctx context.Context, teamID string, disabled bool) error
	AdjustTeamPoints(ctx context.Context, teamID string, delta float64) (float64, error)
	OverrideTeamRoom(ctx context.Context, teamID, roomID string) error
}

type AdminRoomRequest struct {
	Name       string  `json:"name"`
	OrderIndex int     `json:"orderIndex"`
	Brief      string  `json:"brief"`
	UnlockCost float64 `json:"unlockCost"`
	Active     bool    `json:"active"`
}

type AdminPuzzleRequest struct {
	Title          string  `json:"title"`
	Type           string  `json:"type"`
	Description    string  `json:"description"`
	Flag           string  `json:"flag"` // plaintext, hashed before storage
	Points         float64 `json:"points"`
	Active         bool    `json:"active"`
	IsChallenge    bool    `json:"isChallenge"`
	TimerMinutes   int     `json:"timerMinutes"`
	Multiplier     float64 `json:"multiplier"`
	IsRoomQuestion bool    `json:"isRoomQuestion"`
	SkipToRoomID   string  `json:"skipToRoomId"`
}

type AdminClueRequest struct {
	Text       string  `json:"text"`
	Cost       float64 `json:"cost"`
	OrderIndex int     `json:"orderIndex"`
}

type AdminPerkRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	OneTime     bool    `json:"oneTime"`
}

type AdminTeamItem struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Capacity         int     `json:"capacity"`
	Points           float64 `json:"points"`
	MemberCount      int     `json:"memberCount"`
	HighestRoomIndex int     `json:"highestRoomIndex"`
	InviteCode       string  `json:"inviteCode"`
	Disabled         bool    `json:"disabled"`
	CreatedAt        string  `json:"createdAt"`
}

func (s *SQLiteStore) AdminByEmail(ctx context.Context, email string) (string, string, error) {
	var adminID, passwordHash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM admins WHERE email = ?
	`, email).Scan(&adminID, &passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return adminID, passwordHash, err
}

func (s *SQLiteStore) AdminFromSession(ctx context.Context, sessionID string) (adminSession, error) {
	var sess adminSession
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.email
		FROM admin_sessions s
		JOIN admins a ON a.id = s.admin_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.AdminID, &sess.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return adminSession{}, errNoAdminSession
	}
	return sess, err
}

func (s *SQLiteStore) CreateAdminSession(ctx context.Context, adminID string) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO admin_sessions (admin_id)
		VALUES (?)
		RETURNING id
	`, adminID).Scan(&sessionID)
	return sessionID, err
}

func (s *SQLiteStore) DeleteAdminSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count)
	return count, err
}

func (s *SQLiteStore) CreateAdmin(ctx context.Context, email, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (email, password_hash) VALUES (?, ?)
	`, email, passwordHash)
	return err
}

func (s *SQLiteStore) ListAllRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, order_index, brief, unlock_cost, active
		FROM rooms ORDER BY order_index
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

func (s *SQLiteStore) CreateRoom(ctx context.Context, req AdminRoomRequest) (Room, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rooms (name, order_index, brief, unlock_cost, active)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, req.Name, req.OrderIndex, req.Brief, req.UnlockCost, req.Active).Scan(&id)
	if err != nil {
		return Room{}, err
	}
	return getRoom(ctx, s.db, id)
}

func (s *SQLiteStore) UpdateRoom(ctx context.Context, roomID string, req AdminRoomRequest) (Room, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET name = ?, order_index = ?, brief = ?, unlock_cost = ?, active = ?
		WHERE id = ?
	`, req.Name, req.OrderIndex, req.Brief, req.UnlockCost, req.Active, roomID)
	if err != nil {
		return Room{}, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return Room{}, ErrNotFound
	}
	return getRoom(ctx, s.db, roomID)
}

func (s *SQLiteStore) DeleteRoom(ctx context.Context, roomID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, roomID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CreatePuzzle(ctx context.Context, roomID string, req AdminPuzzleRequest, flagHash string) (Puzzle, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO puzzles (room_id, title, type, description, flag_hash, points, active,
			is_challenge, timer_minutes, multiplier, is_room_question, skip_to_room_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, roomID, req.Title, req.Type, req.Description, flagHash, req.Points, req.Active,
		req.IsChallenge, req.TimerMinutes, req.Multiplier, req.IsRoomQuestion,
		nullStr(req.SkipToRoomID)).Scan(&id)
	if err != nil {
		return Puzzle{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, title, type, description, flag_hash, points, active,
			is_challenge, timer_minutes, multiplier, is_room_question, skip_to_room_id
		FROM puzzles WHERE id = ?
	`, id)
	return scanPuzzle(row)
}

func (s *SQLiteStore) UpdatePuzzle(ctx context.Context, puzzleID string, req AdminPuzzleRequest, flagHash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE puzzles SET title = ?, type = ?, description = ?, flag_hash = ?, points = ?,
			active = ?, is_challenge = ?, timer_minutes = ?, multiplier = ?,
			is_room_question = ?, skip_to_room_id = ?
		WHERE id = ?
	`, req.Title, req.Type, req.Description, flagHash, req.Points, req.Active,
		req.IsChallenge, req.TimerMinutes, req.Multiplier, req.IsRoomQuestion,
		nullStr(req.SkipToRoomID), puzzleID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeletePuzzle(ctx context.Context, puzzleID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM puzzles WHERE id = ?`, puzzleID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ClueCount(ctx context.Context, puzzleID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM clues WHERE puzzle_id = ?
	`, puzzleID).Scan(&count)
	return count, err
}

func (s *SQLiteStore) CreateClue(ctx context.Context, puzzleID string, req AdminClueRequest) (Clue, error) {
	var c Clue
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO clues (puzzle_id, text, cost, order_index)
		VALUES (?, ?, ?, ?)
		RETURNING id, puzzle_id, text, cost, order_index
	`, puzzleID, req.Text, req.Cost, req.OrderIndex).Scan(&c.ID, &c.PuzzleID, &c.Text, &c.Cost, &c.OrderIndex)
	return c, err
}

func (s *SQLiteStore) DeleteClue(ctx context.Context, clueID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM clues WHERE id = ?`, clueID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CreatePerk(ctx context.Context, req AdminPerkRequest) (Perk, error) {
	var p Perk
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO perks (name, description, cost, one_time)
		VALUES (?, ?, ?, ?)
		RETURNING id, name, description, cost, one_time, active
	`, req.Name, req.Description, req.Cost, req.OneTime).Scan(
		&p.ID, &p.Name, &p.Description, &p.Cost, &p.OneTime, &p.Active)
	return p, err
}

func (s *SQLiteStore) ListAllTeams(ctx context.Context) ([]AdminTeamItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.capacity, t.points,
			(SELECT COUNT(*) FROM users u WHERE u.team_id = t.id),
			COALESCE(hr.order_index, 0),
			t.invite_code, t.disabled, t.created_at
		FROM teams t
		LEFT JOIN rooms hr ON hr.id = t.highest_room_id
		ORDER BY t.created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := []AdminTeamItem{}
	for rows.Next() {
		var t AdminTeamItem
		if err := rows.Scan(&t.ID, &t.Name, &t.Capacity, &t.Points, &t.MemberCount,
			&t.HighestRoomIndex, &t.InviteCode, &t.Disabled, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (s *SQLiteStore) SetTeamDisabled(ctx context.Context, teamID string, disabled bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE teams SET disabled = ? WHERE id = ?
	`, disabled, teamID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustTeamPoints is the admin override: the only path that may drive a
// balance negative.
func (s *SQLiteStore) AdjustTeamPoints(ctx context.Context, teamID string, delta float64) (float64, error) {
	var balance float64
	err := s.db.QueryRowContext(ctx, `
		UPDATE teams SET points = points + ? WHERE id = ?
		RETURNING points
	`, delta, teamID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}

// OverrideTeamRoom bypasses ordering and cost rules. The watermark stays
// monotonic even here.
func (s *SQLiteStore) OverrideTeamRoom(ctx context.Context, teamID, roomID string) error {
	return s.Update(ctx, func(tx Tx) error {
		team, err := tx.Team(ctx, teamID)
		if err != nil {
			return err
		}
		room, err := tx.Room(ctx, roomID)
		if err != nil {
			return err
		}

		team.CurrentRoomID = room.ID
		if team.HighestRoomID == "" {
			team.HighestRoomID = room.ID
		} else if highest, err := tx.Room(ctx, team.HighestRoomID); err == nil && room.OrderIndex > highest.OrderIndex {
			team.HighestRoomID = room.ID
		}
		return tx.SaveTeam(ctx, team)
	})
}
