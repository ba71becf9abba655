// Package session runs one weekly picking episode: it exposes the slate and
// the research budget, routes searches through the budget guard, and accepts
// exactly one complete batch of picks.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oscillatelabsllc/nflpicker/internal/budget"
	"github.com/oscillatelabsllc/nflpicker/internal/models"
	"github.com/oscillatelabsllc/nflpicker/internal/storage"
	"github.com/rs/zerolog"
)

const (
	// UnitsPerWeek is the exact stake total every submission must allocate
	UnitsPerWeek = 50
	// MinUnits and MaxUnits bound a single pick's stake as shown to the agent.
	// Only MinUnits is enforced on submit.
	MinUnits = 1
	MaxUnits = 5

	timestampLayout = "20060102_150405"
)

// ErrNoSession is returned when no session has been started
var ErrNoSession = errors.New("no active session; call start_week first")

// State is the session lifecycle position
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// Rejection reasons
const (
	ReasonClosed      = "session_closed"
	ReasonIncomplete  = "incomplete"
	ReasonUnitTotal   = "unit_total"
	ReasonInvalidPick = "invalid_pick"
)

// GameSource loads the slate for a week and optional day filter
type GameSource interface {
	Games(ctx context.Context, week int, day string) ([]models.Game, error)
}

// Searcher runs a web search and never fails outside the response
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) models.SearchResponse
}

// Overview is what the agent sees at the start of a session
type Overview struct {
	SessionID         string        `json:"session_id"`
	Week              int           `json:"week"`
	Day               string        `json:"day,omitempty"`
	State             State         `json:"state"`
	Games             []models.Game `json:"games"`
	UnitsAvailable    int           `json:"units_available"`
	MinUnitsPerGame   int           `json:"min_units_per_game"`
	MaxUnitsPerGame   int           `json:"max_units_per_game"`
	SearchesPerGame   int           `json:"searches_per_game"`
	SearchesAllowed   int           `json:"searches_allowed"`
	SearchesRemaining int           `json:"searches_remaining"`
}

// Rejection explains why a submission was refused. The session stays open.
type Rejection struct {
	Reason     string            `json:"reason"`
	Message    string            `json:"message"`
	Missing    []string          `json:"missing,omitempty"`
	Unexpected []string          `json:"unexpected,omitempty"`
	TotalUnits *int              `json:"total_units,omitempty"`
	Invalid    map[string]string `json:"invalid,omitempty"`
}

// SubmitResult is the outcome of Submit
type SubmitResult struct {
	Accepted  bool                     `json:"accepted"`
	Location  string                   `json:"location,omitempty"`
	Record    *models.PredictionRecord `json:"record,omitempty"`
	Rejection *Rejection               `json:"rejection,omitempty"`
}

// Session is one week's episode
type Session struct {
	id       string
	week     int
	day      string
	games    []models.Game
	byID     map[string]models.Game
	guard    *budget.Guard
	searcher Searcher
	records  storage.BlobStore
	now      func() time.Time
	log      zerolog.Logger

	mu    sync.Mutex
	state State
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Overview describes the slate and the remaining resources
func (s *Session) Overview() Overview {
	return Overview{
		SessionID:         s.id,
		Week:              s.week,
		Day:               s.day,
		State:             s.State(),
		Games:             s.games,
		UnitsAvailable:    UnitsPerWeek,
		MinUnitsPerGame:   MinUnits,
		MaxUnitsPerGame:   MaxUnits,
		SearchesPerGame:   budget.DefaultPerGame,
		SearchesAllowed:   s.guard.Allowed(),
		SearchesRemaining: s.guard.Remaining(),
	}
}

// Search spends one unit of the research budget on a successful search.
// Refused and failed searches cost nothing and come back in the response's
// Error field. A closed session never reaches the adapter.
func (s *Session) Search(ctx context.Context, req models.SearchRequest) models.SearchResponse {
	if s.State() == StateClosed {
		return models.SearchResponse{Results: []models.SearchResult{}, Error: "Session closed: picks were already accepted"}
	}
	if strings.TrimSpace(req.Query) == "" {
		return models.SearchResponse{Results: []models.SearchResult{}, Error: "Search error: query is required"}
	}

	reservation, refusal := s.guard.Acquire()
	if refusal != nil {
		s.log.Info().Int("allowed", refusal.Allowed).Int("games", refusal.Games).Msg("Search refused, budget exhausted")
		return models.SearchResponse{Results: []models.SearchResult{}, Error: refusal.Message}
	}

	resp := s.searcher.Search(ctx, req)
	if resp.Error != "" {
		reservation.Release()
		return resp
	}

	reservation.Commit()
	s.log.Debug().
		Str("query", req.Query).
		Int("remaining", s.guard.Remaining()).
		Msg("Search served")
	return resp
}

// Submit validates a full set of picks and, if valid, persists it and closes
// the session. Checks run in order: completeness, stake bounds, unit total,
// per-pick.
func (s *Session) Submit(ctx context.Context, preds models.Predictions) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return reject(&Rejection{Reason: ReasonClosed, Message: "Picks for this session were already accepted"}), nil
	}

	if r := s.checkCompleteness(preds); r != nil {
		return reject(r), nil
	}

	// Stakes above the weekly total can overflow the sum
	if r := s.checkStakeBounds(preds); r != nil {
		return reject(r), nil
	}

	if total := preds.TotalUnits(); total != UnitsPerWeek {
		return reject(&Rejection{
			Reason:     ReasonUnitTotal,
			Message:    fmt.Sprintf("Must use exactly %d units, got %d", UnitsPerWeek, total),
			TotalUnits: &total,
		}), nil
	}

	if r := s.checkPicks(preds); r != nil {
		return reject(r), nil
	}

	record := models.PredictionRecord{
		Week:        s.week,
		Predictions: preds,
		Timestamp:   s.now().Format(timestampLayout),
	}
	if s.day != "" {
		day := s.day
		record.Day = &day
	}

	location, err := s.persist(ctx, record)
	if err != nil {
		return SubmitResult{}, err
	}

	s.state = StateClosed
	s.log.Info().
		Str("session_id", s.id).
		Int("week", s.week).
		Str("location", location).
		Msg("Predictions accepted")

	return SubmitResult{Accepted: true, Location: location, Record: &record}, nil
}

func reject(r *Rejection) SubmitResult {
	return SubmitResult{Accepted: false, Rejection: r}
}

func (s *Session) checkCompleteness(preds models.Predictions) *Rejection {
	var missing, unexpected []string
	for _, g := range s.games {
		if _, ok := preds[g.GameID]; !ok {
			missing = append(missing, g.GameID)
		}
	}
	for id := range preds {
		if _, ok := s.byID[id]; !ok {
			unexpected = append(unexpected, id)
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}

	sort.Strings(unexpected)
	return &Rejection{
		Reason:     ReasonIncomplete,
		Message:    fmt.Sprintf("Must pick every game exactly once: %d missing, %d unexpected", len(missing), len(unexpected)),
		Missing:    missing,
		Unexpected: unexpected,
	}
}

func (s *Session) checkPicks(preds models.Predictions) *Rejection {
	invalid := make(map[string]string)
	for id, p := range preds {
		g := s.byID[id]
		if p.Units < MinUnits {
			invalid[id] = fmt.Sprintf("units must be at least %d, got %d", MinUnits, p.Units)
			continue
		}
		if !namesSide(g, p.Pick) {
			invalid[id] = fmt.Sprintf("pick %q must be %q or %q", p.Pick, g.HomeTeam, g.AwayTeam)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	return &Rejection{
		Reason:  ReasonInvalidPick,
		Message: fmt.Sprintf("%d pick(s) are invalid", len(invalid)),
		Invalid: invalid,
	}
}

func (s *Session) checkStakeBounds(preds models.Predictions) *Rejection {
	invalid := make(map[string]string)
	for id, p := range preds {
		if p.Units > UnitsPerWeek {
			invalid[id] = fmt.Sprintf("units must be at most %d, got %d", UnitsPerWeek, p.Units)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	return &Rejection{
		Reason:  ReasonInvalidPick,
		Message: fmt.Sprintf("%d pick(s) stake more than the %d-unit weekly total", len(invalid), UnitsPerWeek),
		Invalid: invalid,
	}
}

func namesSide(g models.Game, pick string) bool {
	pick = strings.TrimSpace(pick)
	switch {
	case strings.EqualFold(pick, g.HomeTeam), strings.EqualFold(pick, g.AwayTeam):
		return true
	case strings.EqualFold(pick, "home"), strings.EqualFold(pick, "away"):
		return true
	}
	return false
}

// persist writes the record under a key unique to week, day and time. A
// collision within the same second gets a random suffix.
func (s *Session) persist(ctx context.Context, record models.PredictionRecord) (string, error) {
	name := fmt.Sprintf("predictions_week_%d", s.week)
	if s.day != "" {
		name += "_" + s.day
	}
	base := fmt.Sprintf("predictions/week_%d/%s_%s", s.week, name, record.Timestamp)

	key := base + ".json"
	exists, err := s.records.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check prediction record: %w", err)
	}
	if exists {
		key = fmt.Sprintf("%s_%s.json", base, uuid.NewString()[:8])
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode prediction record: %w", err)
	}
	if err := s.records.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("failed to save prediction record: %w", err)
	}
	return key, nil
}
