// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Used by the tests and when DATABASE_PATH=memory.
//
// Characteristics:
//   - All records live in maps/slices guarded by one RWMutex.
//   - Records are returned by value, so callers never alias internal state.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

type participantKey struct {
	game, player int64
}

type guessKey struct {
	game, player int64
	round        int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu           sync.RWMutex
	nextGameID   int64
	games        map[int64]*Game
	players      map[int64]*Player
	participants map[participantKey]*Participant
	joinOrder    map[int64][]int64 // game -> player ids in join order
	guesses      map[guessKey][]Guess
	channels     map[int64]*Channel
	now          func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		games:        make(map[int64]*Game),
		players:      make(map[int64]*Player),
		participants: make(map[participantKey]*Participant),
		joinOrder:    make(map[int64][]int64),
		guesses:      make(map[guessKey][]Guess),
		channels:     make(map[int64]*Channel),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (m *memory) CreateGame(ctx context.Context, startsAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextGameID++
	id := m.nextGameID
	m.games[id] = &Game{
		ID:           id,
		Status:       StatusScheduled,
		CurrentRound: 1,
		StartsAt:     startsAt.UTC(),
		CreatedAt:    m.now(),
	}
	return id, nil
}

func (m *memory) GetGame(ctx context.Context, id int64) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memory) CurrentGame(ctx context.Context) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *Game
	for _, g := range m.games {
		if g.Status != StatusActive && g.Status != StatusScheduled {
			continue
		}
		if best == nil || g.StartsAt.After(best.StartsAt) ||
			(g.StartsAt.Equal(best.StartsAt) && g.ID > best.ID) {
			best = g
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

// updateGame applies fn to the game under the write lock.
func (m *memory) updateGame(id int64, fn func(g *Game)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return ErrNotFound
	}
	fn(g)
	return nil
}

func (m *memory) UpdateStatus(ctx context.Context, id int64, status GameStatus) error {
	return m.updateGame(id, func(g *Game) { g.Status = status })
}

func (m *memory) SetWord(ctx context.Context, id int64, word string) error {
	return m.updateGame(id, func(g *Game) { g.CurrentWord = word })
}

func (m *memory) SetRound(ctx context.Context, id int64, round int, startedAt time.Time) error {
	return m.updateGame(id, func(g *Game) {
		g.CurrentRound = round
		g.RoundStartedAt = startedAt.UTC()
	})
}

func (m *memory) SetTotalPlayers(ctx context.Context, id int64, n int) error {
	return m.updateGame(id, func(g *Game) { g.TotalPlayers = n })
}

func (m *memory) SetWinner(ctx context.Context, id int64, playerID int64) error {
	return m.updateGame(id, func(g *Game) { g.WinnerID = playerID })
}

func (m *memory) UpsertPlayer(ctx context.Context, id int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[id]; ok {
		p.Name = name
		return nil
	}
	m.players[id] = &Player{ID: id, Name: name, CreatedAt: m.now()}
	return nil
}

func (m *memory) GetPlayer(ctx context.Context, id int64) (*Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memory) AddParticipant(ctx context.Context, gameID, playerID, channelID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[gameID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.players[playerID]; !ok {
		return ErrNotFound
	}
	k := participantKey{gameID, playerID}
	if _, ok := m.participants[k]; ok {
		return ErrAlreadyJoined
	}
	m.participants[k] = &Participant{
		GameID:    gameID,
		PlayerID:  playerID,
		ChannelID: channelID,
		Status:    ParticipantActive,
		JoinedAt:  m.now(),
	}
	m.joinOrder[gameID] = append(m.joinOrder[gameID], playerID)
	return nil
}

// participantCopy returns a detached copy with the player's name filled in.
// Caller must hold m.mu.
func (m *memory) participantCopy(p *Participant) Participant {
	cp := *p
	if pl, ok := m.players[p.PlayerID]; ok {
		cp.Name = pl.Name
	}
	return cp
}

func (m *memory) GetParticipant(ctx context.Context, gameID, playerID int64) (*Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.participants[participantKey{gameID, playerID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := m.participantCopy(p)
	return &cp, nil
}

func (m *memory) ListParticipants(ctx context.Context, gameID int64, activeOnly bool) ([]Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Participant{}
	for _, pid := range m.joinOrder[gameID] {
		p := m.participants[participantKey{gameID, pid}]
		if activeOnly && p.Status != ParticipantActive {
			continue
		}
		out = append(out, m.participantCopy(p))
	}
	return out, nil
}

func (m *memory) MarkEliminated(ctx context.Context, gameID, playerID int64, round int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[participantKey{gameID, playerID}]
	if !ok {
		return false, ErrNotFound
	}
	if p.Status != ParticipantActive {
		return false, nil
	}
	p.Status = ParticipantEliminated
	p.EliminatedRound = round
	return true, nil
}

func (m *memory) RecordResult(ctx context.Context, gameID, playerID int64, won bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[participantKey{gameID, playerID}]
	if !ok {
		return false, ErrNotFound
	}
	if p.StatsRecorded {
		return false, nil
	}
	pl, ok := m.players[playerID]
	if !ok {
		return false, ErrNotFound
	}
	p.StatsRecorded = true
	pl.TotalGames++
	if won {
		pl.Wins++
		p.Status = ParticipantWon
	}
	return true, nil
}

func (m *memory) AppendGuess(ctx context.Context, g Guess) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := guessKey{g.GameID, g.PlayerID, g.Round}
	for _, existing := range m.guesses[k] {
		if existing.Attempt == g.Attempt {
			return ErrDuplicateAttempt
		}
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = m.now()
	}
	m.guesses[k] = append(m.guesses[k], g)
	sort.SliceStable(m.guesses[k], func(i, j int) bool {
		return m.guesses[k][i].Attempt < m.guesses[k][j].Attempt
	})
	return nil
}

func (m *memory) CountGuesses(ctx context.Context, gameID, playerID int64, round int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.guesses[guessKey{gameID, playerID, round}]), nil
}

func (m *memory) ListGuesses(ctx context.Context, gameID, playerID int64, round int) ([]Guess, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.guesses[guessKey{gameID, playerID, round}]
	out := make([]Guess, len(src))
	copy(out, src)
	return out, nil
}

func (m *memory) RegisterChannel(ctx context.Context, id int64, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.channels[id]; ok {
		c.Active = true
		if title != "" {
			c.Title = title
		}
		return nil
	}
	m.channels[id] = &Channel{ID: id, Title: title, Active: true, AddedAt: m.now()}
	return nil
}

func (m *memory) DeactivateChannel(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[id]
	if !ok {
		return ErrNotFound
	}
	c.Active = false
	return nil
}

func (m *memory) ListChannels(ctx context.Context, activeOnly bool) ([]Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Channel{}
	for _, c := range m.channels {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// avgRound averages the reached round over a player's completed games.
// Caller must hold m.mu.
func (m *memory) avgRound(playerID int64) float64 {
	sum, games := 0, 0
	for k, p := range m.participants {
		if k.player != playerID {
			continue
		}
		if g := m.games[k.game]; g == nil || g.Status != StatusCompleted {
			continue
		}
		games++
		sum += reachedRound(*p)
	}
	if games == 0 {
		return 0
	}
	return float64(sum) / float64(games)
}

func (m *memory) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []LeaderboardRow{}
	for _, pl := range m.players {
		if pl.TotalGames == 0 {
			continue
		}
		avg := m.avgRound(pl.ID)
		out = append(out, LeaderboardRow{
			PlayerID:        pl.ID,
			Name:            pl.Name,
			Wins:            pl.Wins,
			TotalGames:      pl.TotalGames,
			WinRate:         winRate(pl.Wins, pl.TotalGames),
			AvgRoundReached: avg,
		})
	}
	sortLeaderboard(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sortLeaderboard orders by wins, win rate, average round, then player id.
func sortLeaderboard(rows []LeaderboardRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		if a.AvgRoundReached != b.AvgRoundReached {
			return a.AvgRoundReached > b.AvgRoundReached
		}
		return a.PlayerID < b.PlayerID
	})
}

func (m *memory) PlayerStats(ctx context.Context, playerID int64) (*PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pl, ok := m.players[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	participated := 0
	for k := range m.participants {
		if k.player == playerID {
			participated++
		}
	}
	avg := m.avgRound(playerID)
	return &PlayerStats{
		Player:            *pl,
		GamesParticipated: participated,
		WinRate:           winRate(pl.Wins, pl.TotalGames),
		AvgRoundReached:   avg,
	}, nil
}

func (m *memory) PlayerHistory(ctx context.Context, playerID int64, limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = 5
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []HistoryRow{}
	for k, p := range m.participants {
		if k.player != playerID {
			continue
		}
		g := m.games[k.game]
		out = append(out, HistoryRow{
			GameID:          g.ID,
			StartsAt:        g.StartsAt,
			GameStatus:      g.Status,
			CurrentRound:    g.CurrentRound,
			PlayerStatus:    p.Status,
			EliminatedRound: p.EliminatedRound,
			Won:             p.Status == ParticipantWon,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.After(out[j].StartsAt)
		}
		return out[i].GameID > out[j].GameID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memory) SystemStats(ctx context.Context) (SystemStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s SystemStats
	weekAgo := m.now().Add(-7 * 24 * time.Hour)
	for _, pl := range m.players {
		s.TotalPlayers++
		if pl.CreatedAt.After(weekAgo) {
			s.NewThisWeek++
		}
	}
	for _, g := range m.games {
		switch g.Status {
		case StatusCompleted:
			s.GamesCompleted++
		case StatusActive:
			s.GamesActive++
		}
	}
	return s, nil
}

func (m *memory) Close() error { return nil }
