// internal/store/sqlite.go
//
// Durable Store implementation over SQLite.
// Responsibilities:
//   - Opening the database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying the embedded migrations.
//   - Mapping rows to store types; timestamps are fixed-width UTC text so
//     they sort lexically.
//
// A single connection is kept open, so every statement is serialized by
// database/sql and transactions must not issue queries outside the tx.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/robalobadob/wordle-royale/internal/game"
)

const tsLayout = "2006-01-02T15:04:05.000Z"

func ts(t time.Time) string { return t.UTC().Format(tsLayout) }

// parseTS parses a stored timestamp; on error returns zero time.
func parseTS(s string) time.Time {
	t, _ := time.Parse(tsLayout, s)
	return t
}

type sqliteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// OpenSQLite opens (and creates if missing) the SQLite database at path
// and applies migrations.
func OpenSQLite(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// constraintCode returns the extended SQLite constraint code of err, if any.
func constraintCode(err error) (sqlite3.ErrNoExtended, bool) {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return se.ExtendedCode, true
	}
	return 0, false
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// --------------------------------- games -----------------------------------

type gameRow struct {
	ID             int64          `db:"id"`
	Status         string         `db:"status"`
	CurrentRound   int            `db:"current_round"`
	CurrentWord    string         `db:"current_word"`
	WinnerID       sql.NullInt64  `db:"winner_id"`
	TotalPlayers   int            `db:"total_players"`
	StartsAt       string         `db:"starts_at"`
	RoundStartedAt sql.NullString `db:"round_started_at"`
	CreatedAt      string         `db:"created_at"`
}

func (r gameRow) toGame() *Game {
	g := &Game{
		ID:           r.ID,
		Status:       GameStatus(r.Status),
		CurrentRound: r.CurrentRound,
		CurrentWord:  r.CurrentWord,
		WinnerID:     r.WinnerID.Int64,
		TotalPlayers: r.TotalPlayers,
		StartsAt:     parseTS(r.StartsAt),
		CreatedAt:    parseTS(r.CreatedAt),
	}
	if r.RoundStartedAt.Valid {
		g.RoundStartedAt = parseTS(r.RoundStartedAt.String)
	}
	return g
}

const gameColumns = `id, status, current_round, current_word, winner_id, total_players,
	starts_at, round_started_at, created_at`

func (s *sqliteStore) CreateGame(ctx context.Context, startsAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO games (status, starts_at, created_at) VALUES (?, ?, ?)`,
		StatusScheduled, ts(startsAt), ts(s.now()))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) GetGame(ctx context.Context, id int64) (*Game, error) {
	var r gameRow
	if err := s.db.GetContext(ctx, &r, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return r.toGame(), nil
}

func (s *sqliteStore) CurrentGame(ctx context.Context) (*Game, error) {
	var r gameRow
	err := s.db.GetContext(ctx, &r, `SELECT `+gameColumns+` FROM games
		WHERE status IN ('active', 'scheduled')
		ORDER BY starts_at DESC, id DESC LIMIT 1`)
	if err != nil {
		return nil, notFound(err)
	}
	return r.toGame(), nil
}

// execOne runs an UPDATE expected to touch exactly one row.
func (s *sqliteStore) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) UpdateStatus(ctx context.Context, id int64, status GameStatus) error {
	return s.execOne(ctx, `UPDATE games SET status = ? WHERE id = ?`, status, id)
}

func (s *sqliteStore) SetWord(ctx context.Context, id int64, word string) error {
	return s.execOne(ctx, `UPDATE games SET current_word = ? WHERE id = ?`, word, id)
}

func (s *sqliteStore) SetRound(ctx context.Context, id int64, round int, startedAt time.Time) error {
	return s.execOne(ctx, `UPDATE games SET current_round = ?, round_started_at = ? WHERE id = ?`,
		round, ts(startedAt), id)
}

func (s *sqliteStore) SetTotalPlayers(ctx context.Context, id int64, n int) error {
	return s.execOne(ctx, `UPDATE games SET total_players = ? WHERE id = ?`, n, id)
}

func (s *sqliteStore) SetWinner(ctx context.Context, id int64, playerID int64) error {
	return s.execOne(ctx, `UPDATE games SET winner_id = ? WHERE id = ?`, playerID, id)
}

// -------------------------------- players ----------------------------------

type playerRow struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	TotalGames int    `db:"total_games"`
	Wins       int    `db:"wins"`
	CreatedAt  string `db:"created_at"`
}

func (r playerRow) toPlayer() Player {
	return Player{ID: r.ID, Name: r.Name, TotalGames: r.TotalGames, Wins: r.Wins, CreatedAt: parseTS(r.CreatedAt)}
}

func (s *sqliteStore) UpsertPlayer(ctx context.Context, id int64, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		id, name, ts(s.now()))
	return err
}

func (s *sqliteStore) GetPlayer(ctx context.Context, id int64) (*Player, error) {
	var r playerRow
	if err := s.db.GetContext(ctx, &r,
		`SELECT id, name, total_games, wins, created_at FROM players WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	p := r.toPlayer()
	return &p, nil
}

// ------------------------------ participants -------------------------------

type participantRow struct {
	GameID          int64  `db:"game_id"`
	PlayerID        int64  `db:"player_id"`
	Name            string `db:"name"`
	ChannelID       int64  `db:"channel_id"`
	Status          string `db:"status"`
	EliminatedRound int    `db:"eliminated_round"`
	StatsRecorded   bool   `db:"stats_recorded"`
	JoinedAt        string `db:"joined_at"`
}

func (r participantRow) toParticipant() Participant {
	return Participant{
		GameID:          r.GameID,
		PlayerID:        r.PlayerID,
		Name:            r.Name,
		ChannelID:       r.ChannelID,
		Status:          ParticipantStatus(r.Status),
		EliminatedRound: r.EliminatedRound,
		StatsRecorded:   r.StatsRecorded,
		JoinedAt:        parseTS(r.JoinedAt),
	}
}

const participantSelect = `SELECT pa.game_id, pa.player_id, p.name, pa.channel_id, pa.status,
	COALESCE(pa.eliminated_round, 0) AS eliminated_round, pa.stats_recorded, pa.joined_at
	FROM participants pa JOIN players p ON p.id = pa.player_id`

func (s *sqliteStore) AddParticipant(ctx context.Context, gameID, playerID, channelID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (game_id, player_id, channel_id, joined_at) VALUES (?, ?, ?, ?)`,
		gameID, playerID, channelID, ts(s.now()))
	if code, ok := constraintCode(err); ok {
		if code == sqlite3.ErrConstraintPrimaryKey || code == sqlite3.ErrConstraintUnique {
			return ErrAlreadyJoined
		}
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func (s *sqliteStore) GetParticipant(ctx context.Context, gameID, playerID int64) (*Participant, error) {
	var r participantRow
	if err := s.db.GetContext(ctx, &r,
		participantSelect+` WHERE pa.game_id = ? AND pa.player_id = ?`, gameID, playerID); err != nil {
		return nil, notFound(err)
	}
	p := r.toParticipant()
	return &p, nil
}

func (s *sqliteStore) ListParticipants(ctx context.Context, gameID int64, activeOnly bool) ([]Participant, error) {
	q := participantSelect + ` WHERE pa.game_id = ?`
	if activeOnly {
		q += ` AND pa.status = 'active'`
	}
	q += ` ORDER BY pa.rowid`

	var rows []participantRow
	if err := s.db.SelectContext(ctx, &rows, q, gameID); err != nil {
		return nil, err
	}
	out := make([]Participant, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toParticipant())
	}
	return out, nil
}

func (s *sqliteStore) MarkEliminated(ctx context.Context, gameID, playerID int64, round int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE participants SET status = 'eliminated', eliminated_round = ?
		WHERE game_id = ? AND player_id = ? AND status = 'active'`,
		round, gameID, playerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := s.GetParticipant(ctx, gameID, playerID); err != nil {
			return false, err
		}
	}
	return n == 1, nil
}

func (s *sqliteStore) RecordResult(ctx context.Context, gameID, playerID int64, won bool) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE participants
		SET stats_recorded = 1, status = CASE WHEN ? THEN 'won' ELSE status END
		WHERE game_id = ? AND player_id = ? AND stats_recorded = 0`,
		won, gameID, playerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		var exists int
		if err := tx.GetContext(ctx, &exists,
			`SELECT 1 FROM participants WHERE game_id = ? AND player_id = ?`, gameID, playerID); err != nil {
			return false, notFound(err)
		}
		return false, nil
	}

	wins := 0
	if won {
		wins = 1
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE players SET total_games = total_games + 1, wins = wins + ? WHERE id = ?`,
		wins, playerID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// -------------------------------- guesses ----------------------------------

type guessRow struct {
	GameID    int64  `db:"game_id"`
	PlayerID  int64  `db:"player_id"`
	Round     int    `db:"round_number"`
	Text      string `db:"guess"`
	Feedback  string `db:"feedback"`
	Attempt   int    `db:"attempt_number"`
	CreatedAt string `db:"created_at"`
}

func (s *sqliteStore) AppendGuess(ctx context.Context, g Guess) error {
	fb, err := json.Marshal(g.Feedback)
	if err != nil {
		return err
	}
	created := g.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO guesses (game_id, player_id, round_number, guess, feedback, attempt_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.GameID, g.PlayerID, g.Round, g.Text, string(fb), g.Attempt, ts(created))
	if code, ok := constraintCode(err); ok && code == sqlite3.ErrConstraintUnique {
		return ErrDuplicateAttempt
	}
	return err
}

func (s *sqliteStore) CountGuesses(ctx context.Context, gameID, playerID int64, round int) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM guesses WHERE game_id = ? AND player_id = ? AND round_number = ?`,
		gameID, playerID, round)
	return n, err
}

func (s *sqliteStore) ListGuesses(ctx context.Context, gameID, playerID int64, round int) ([]Guess, error) {
	var rows []guessRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT game_id, player_id, round_number, guess, feedback, attempt_number, created_at
		FROM guesses WHERE game_id = ? AND player_id = ? AND round_number = ?
		ORDER BY attempt_number`, gameID, playerID, round); err != nil {
		return nil, err
	}
	out := make([]Guess, 0, len(rows))
	for _, r := range rows {
		var fb game.Feedback
		if err := json.Unmarshal([]byte(r.Feedback), &fb); err != nil {
			return nil, fmt.Errorf("decode feedback: %w", err)
		}
		out = append(out, Guess{
			GameID:    r.GameID,
			PlayerID:  r.PlayerID,
			Round:     r.Round,
			Text:      r.Text,
			Feedback:  fb,
			Attempt:   r.Attempt,
			CreatedAt: parseTS(r.CreatedAt),
		})
	}
	return out, nil
}

// -------------------------------- channels ---------------------------------

type channelRow struct {
	ID      int64  `db:"id"`
	Title   string `db:"title"`
	Active  bool   `db:"active"`
	AddedAt string `db:"added_at"`
}

func (s *sqliteStore) RegisterChannel(ctx context.Context, id int64, title string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (id, title, added_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET active = 1,
			title = CASE WHEN excluded.title <> '' THEN excluded.title ELSE channels.title END`,
		id, title, ts(s.now()))
	return err
}

func (s *sqliteStore) DeactivateChannel(ctx context.Context, id int64) error {
	return s.execOne(ctx, `UPDATE channels SET active = 0 WHERE id = ?`, id)
}

func (s *sqliteStore) ListChannels(ctx context.Context, activeOnly bool) ([]Channel, error) {
	q := `SELECT id, title, active, added_at FROM channels`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	q += ` ORDER BY id`
	var rows []channelRow
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	out := make([]Channel, 0, len(rows))
	for _, r := range rows {
		out = append(out, Channel{ID: r.ID, Title: r.Title, Active: r.Active, AddedAt: parseTS(r.AddedAt)})
	}
	return out, nil
}

// --------------------------------- stats -----------------------------------

// avgRoundExpr averages the reached round over completed games; survivors
// (winners) count as round 7.
const avgRoundExpr = `COALESCE((
	SELECT AVG(CASE WHEN pa.eliminated_round IS NOT NULL THEN pa.eliminated_round ELSE 7 END)
	FROM participants pa JOIN games g ON g.id = pa.game_id
	WHERE pa.player_id = p.id AND g.status = 'completed'), 0)`

type statsRow struct {
	playerRow
	Participated int     `db:"participated"`
	AvgRound     float64 `db:"avg_round"`
}

func (s *sqliteStore) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []statsRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT p.id, p.name, p.total_games, p.wins, p.created_at, 0 AS participated,
			`+avgRoundExpr+` AS avg_round
		FROM players p WHERE p.total_games > 0`); err != nil {
		return nil, err
	}
	out := make([]LeaderboardRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, LeaderboardRow{
			PlayerID:        r.ID,
			Name:            r.Name,
			Wins:            r.Wins,
			TotalGames:      r.TotalGames,
			WinRate:         winRate(r.Wins, r.TotalGames),
			AvgRoundReached: r.AvgRound,
		})
	}
	sortLeaderboard(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *sqliteStore) PlayerStats(ctx context.Context, playerID int64) (*PlayerStats, error) {
	var r statsRow
	if err := s.db.GetContext(ctx, &r, `
		SELECT p.id, p.name, p.total_games, p.wins, p.created_at,
			(SELECT COUNT(*) FROM participants pa WHERE pa.player_id = p.id) AS participated,
			`+avgRoundExpr+` AS avg_round
		FROM players p WHERE p.id = ?`, playerID); err != nil {
		return nil, notFound(err)
	}
	return &PlayerStats{
		Player:            r.toPlayer(),
		GamesParticipated: r.Participated,
		WinRate:           winRate(r.Wins, r.TotalGames),
		AvgRoundReached:   r.AvgRound,
	}, nil
}

type historyRow struct {
	GameID          int64  `db:"game_id"`
	StartsAt        string `db:"starts_at"`
	GameStatus      string `db:"game_status"`
	CurrentRound    int    `db:"current_round"`
	PlayerStatus    string `db:"player_status"`
	EliminatedRound int    `db:"eliminated_round"`
}

func (s *sqliteStore) PlayerHistory(ctx context.Context, playerID int64, limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []historyRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT g.id AS game_id, g.starts_at, g.status AS game_status, g.current_round,
			pa.status AS player_status, COALESCE(pa.eliminated_round, 0) AS eliminated_round
		FROM participants pa JOIN games g ON g.id = pa.game_id
		WHERE pa.player_id = ?
		ORDER BY g.starts_at DESC, g.id DESC
		LIMIT ?`, playerID, limit); err != nil {
		return nil, err
	}
	out := make([]HistoryRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, HistoryRow{
			GameID:          r.GameID,
			StartsAt:        parseTS(r.StartsAt),
			GameStatus:      GameStatus(r.GameStatus),
			CurrentRound:    r.CurrentRound,
			PlayerStatus:    ParticipantStatus(r.PlayerStatus),
			EliminatedRound: r.EliminatedRound,
			Won:             ParticipantStatus(r.PlayerStatus) == ParticipantWon,
		})
	}
	return out, nil
}

func (s *sqliteStore) SystemStats(ctx context.Context) (SystemStats, error) {
	var st SystemStats
	err := s.db.QueryRowxContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM players),
			(SELECT COUNT(*) FROM players WHERE created_at > ?),
			(SELECT COUNT(*) FROM games WHERE status = 'completed'),
			(SELECT COUNT(*) FROM games WHERE status = 'active')`,
		ts(s.now().Add(-7*24*time.Hour)),
	).Scan(&st.TotalPlayers, &st.NewThisWeek, &st.GamesCompleted, &st.GamesActive)
	return st, err
}

func (s *sqliteStore) Close() error { return s.db.Close() }
