package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oscillatelabsllc/nflpicker/internal/budget"
	"github.com/oscillatelabsllc/nflpicker/internal/models"
	"github.com/oscillatelabsllc/nflpicker/internal/storage"
	"github.com/rs/zerolog"
)

// Environment owns the current session. Starting a new session discards the
// previous one.
type Environment struct {
	source   GameSource
	searcher Searcher
	records  storage.BlobStore
	now      func() time.Time
	log      zerolog.Logger

	mu      sync.Mutex
	current *Session
}

// EnvOption configures an Environment
type EnvOption func(*Environment)

// WithClock overrides the time source used for record timestamps
func WithClock(now func() time.Time) EnvOption {
	return func(e *Environment) { e.now = now }
}

// NewEnvironment wires the slate source, search adapter and record store
func NewEnvironment(source GameSource, searcher Searcher, records storage.BlobStore, log zerolog.Logger, opts ...EnvOption) *Environment {
	e := &Environment{
		source:   source,
		searcher: searcher,
		records:  records,
		now:      time.Now,
		log:      log.With().Str("component", "session").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start loads the slate and opens a fresh session. A missing slate is the
// only fatal condition.
func (e *Environment) Start(ctx context.Context, week int, day string) (*Session, error) {
	if week < 1 {
		return nil, fmt.Errorf("invalid week %d", week)
	}

	games, err := e.source.Games(ctx, week, day)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Game, len(games))
	for _, g := range games {
		byID[g.GameID] = g
	}

	id := uuid.NewString()
	s := &Session{
		id:       id,
		week:     week,
		day:      strings.ToLower(strings.TrimSpace(day)),
		games:    games,
		byID:     byID,
		guard:    budget.NewGuard(len(games), budget.DefaultPerGame),
		searcher: e.searcher,
		records:  e.records,
		now:      e.now,
		log:      e.log.With().Str("session_id", id).Logger(),
		state:    StateOpen,
	}

	e.mu.Lock()
	e.current = s
	e.mu.Unlock()

	e.log.Info().
		Str("session_id", id).
		Int("week", week).
		Str("day", s.day).
		Int("games", len(games)).
		Int("searches_allowed", s.guard.Allowed()).
		Msg("Session started")

	return s, nil
}

// Current returns the active session, closed or not
func (e *Environment) Current() (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil, ErrNoSession
	}
	return e.current, nil
}

// Search routes a search through the current session's budget
func (e *Environment) Search(ctx context.Context, req models.SearchRequest) models.SearchResponse {
	s, err := e.Current()
	if err != nil {
		return models.SearchResponse{Results: []models.SearchResult{}, Error: err.Error()}
	}
	return s.Search(ctx, req)
}

// Submit hands picks to the current session
func (e *Environment) Submit(ctx context.Context, preds models.Predictions) (SubmitResult, error) {
	s, err := e.Current()
	if err != nil {
		return SubmitResult{}, err
	}
	return s.Submit(ctx, preds)
}
