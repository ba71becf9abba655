package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oscillatelabsllc/nflpicker/internal/models"
	"github.com/oscillatelabsllc/nflpicker/internal/odds"
	"github.com/oscillatelabsllc/nflpicker/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	games []models.Game
}

func (f fakeSource) Games(ctx context.Context, week int, day string) ([]models.Game, error) {
	if len(f.games) == 0 {
		return nil, fmt.Errorf("%w for week %d; run pull-lines first", odds.ErrNoSlate, week)
	}
	return f.games, nil
}

type fakeSearcher struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *fakeSearcher) Search(ctx context.Context, req models.SearchRequest) models.SearchResponse {
	f.calls.Add(1)
	if f.fail.Load() {
		return models.SearchResponse{Results: []models.SearchResult{}, Error: "Search error: upstream down"}
	}
	return models.SearchResponse{Results: []models.SearchResult{{Title: req.Query, URL: "https://example.com"}}}
}

func threeGames() []models.Game {
	return []models.Game{
		{GameID: "g1", HomeTeam: "Buffalo Bills", AwayTeam: "Miami Dolphins", GameTime: "2025-09-19T00:15:00Z"},
		{GameID: "g2", HomeTeam: "Kansas City Chiefs", AwayTeam: "New York Giants", GameTime: "2025-09-22T00:20:00Z"},
		{GameID: "g3", HomeTeam: "Detroit Lions", AwayTeam: "Baltimore Ravens", GameTime: "2025-09-23T00:15:00Z"},
	}
}

var fixedNow = time.Date(2025, 9, 18, 14, 30, 0, 0, time.UTC)

func setupEnv(t *testing.T, games []models.Game) (*Environment, *fakeSearcher, *storage.FileStore) {
	t.Helper()
	blobs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	searcher := &fakeSearcher{}
	env := NewEnvironment(fakeSource{games: games}, searcher, blobs, zerolog.Nop(), WithClock(func() time.Time { return fixedNow }))
	return env, searcher, blobs
}

func validPicks() models.Predictions {
	return models.Predictions{
		"g1": {Pick: "Buffalo Bills", Units: 2},
		"g2": {Pick: "New York Giants", Units: 3},
		"g3": {Pick: "Detroit Lions", Units: 45},
	}
}

func TestStart(t *testing.T) {
	ctx := context.Background()

	t.Run("exposes slate and budgets", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())

		s, err := env.Start(ctx, 3, "")
		require.NoError(t, err)

		ov := s.Overview()
		assert.Equal(t, 3, ov.Week)
		assert.Len(t, ov.Games, 3)
		assert.Equal(t, 50, ov.UnitsAvailable)
		assert.Equal(t, 3, ov.SearchesPerGame)
		assert.Equal(t, 9, ov.SearchesAllowed)
		assert.Equal(t, 9, ov.SearchesRemaining)
		assert.Equal(t, StateOpen, ov.State)
		assert.NotEmpty(t, ov.SessionID)
	})

	t.Run("no slate is fatal", func(t *testing.T) {
		env, _, _ := setupEnv(t, nil)

		_, err := env.Start(ctx, 3, "")
		assert.True(t, errors.Is(err, odds.ErrNoSlate))

		_, err = env.Current()
		assert.True(t, errors.Is(err, ErrNoSession))
	})

	t.Run("invalid week", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())
		_, err := env.Start(ctx, 0, "")
		assert.Error(t, err)
	})

	t.Run("restart discards previous session", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())

		first, err := env.Start(ctx, 3, "")
		require.NoError(t, err)
		env.Search(ctx, models.SearchRequest{Query: "q"})
		assert.Equal(t, 8, first.Overview().SearchesRemaining)

		second, err := env.Start(ctx, 3, "")
		require.NoError(t, err)
		assert.NotEqual(t, first.ID(), second.ID())
		assert.Equal(t, 9, second.Overview().SearchesRemaining)

		current, err := env.Current()
		require.NoError(t, err)
		assert.Equal(t, second.ID(), current.ID())
	})
}

func TestSearchBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("ninth search served, tenth refused", func(t *testing.T) {
		env, searcher, _ := setupEnv(t, threeGames())
		_, err := env.Start(ctx, 3, "")
		require.NoError(t, err)

		for i := 0; i < 9; i++ {
			resp := env.Search(ctx, models.SearchRequest{Query: fmt.Sprintf("query %d", i)})
			require.Empty(t, resp.Error, "search %d", i+1)
			require.Len(t, resp.Results, 1)
		}

		resp := env.Search(ctx, models.SearchRequest{Query: "one more"})
		assert.Contains(t, resp.Error, "9 searches for 3 games")
		assert.Empty(t, resp.Results)
		assert.Equal(t, int32(9), searcher.calls.Load())
	})

	t.Run("failed searches do not consume budget", func(t *testing.T) {
		env, searcher, _ := setupEnv(t, threeGames()[:1])
		s, err := env.Start(ctx, 3, "")
		require.NoError(t, err)

		searcher.fail.Store(true)
		for i := 0; i < 5; i++ {
			resp := env.Search(ctx, models.SearchRequest{Query: "q"})
			assert.Equal(t, "Search error: upstream down", resp.Error)
		}
		assert.Equal(t, 3, s.Overview().SearchesRemaining)

		searcher.fail.Store(false)
		for i := 0; i < 3; i++ {
			assert.Empty(t, env.Search(ctx, models.SearchRequest{Query: "q"}).Error)
		}
		assert.Contains(t, env.Search(ctx, models.SearchRequest{Query: "q"}).Error, "3 searches for 1 games")
	})

	t.Run("empty query rejected without spending", func(t *testing.T) {
		env, searcher, _ := setupEnv(t, threeGames())
		s, _ := env.Start(ctx, 3, "")

		resp := env.Search(ctx, models.SearchRequest{Query: "   "})
		assert.NotEmpty(t, resp.Error)
		assert.Equal(t, int32(0), searcher.calls.Load())
		assert.Equal(t, 9, s.Overview().SearchesRemaining)
	})

	t.Run("search without session", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())
		resp := env.Search(ctx, models.SearchRequest{Query: "q"})
		assert.Equal(t, ErrNoSession.Error(), resp.Error)
		assert.NotNil(t, resp.Results)
	})
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts complete picks summing to 50", func(t *testing.T) {
		env, _, blobs := setupEnv(t, threeGames())
		s, err := env.Start(ctx, 3, "")
		require.NoError(t, err)

		res, err := env.Submit(ctx, validPicks())
		require.NoError(t, err)
		require.True(t, res.Accepted)
		assert.Nil(t, res.Rejection)
		assert.Equal(t, "predictions/week_3/predictions_week_3_20250918_143000.json", res.Location)
		assert.Equal(t, StateClosed, s.State())

		raw, err := blobs.Get(ctx, res.Location)
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(raw, &doc))
		assert.Equal(t, float64(3), doc["week"])
		assert.Nil(t, doc["day"])
		assert.Equal(t, "20250918_143000", doc["timestamp"])
		assert.Len(t, doc["predictions"], 3)
	})

	t.Run("unit totals of 49 and 51 rejected with actual total", func(t *testing.T) {
		for _, g3Units := range []int{44, 46} {
			env, _, _ := setupEnv(t, threeGames())
			s, _ := env.Start(ctx, 3, "")

			picks := validPicks()
			picks["g3"] = models.Pick{Pick: "Detroit Lions", Units: g3Units}

			res, err := env.Submit(ctx, picks)
			require.NoError(t, err)
			assert.False(t, res.Accepted)
			require.NotNil(t, res.Rejection)
			assert.Equal(t, ReasonUnitTotal, res.Rejection.Reason)
			require.NotNil(t, res.Rejection.TotalUnits)
			assert.Equal(t, 5+g3Units, *res.Rejection.TotalUnits)
			assert.Equal(t, StateOpen, s.State())
		}
	})

	t.Run("stakes that overflow to 50 rejected", func(t *testing.T) {
		env, _, blobs := setupEnv(t, threeGames())
		s, _ := env.Start(ctx, 3, "")

		res, err := env.Submit(ctx, models.Predictions{
			"g1": {Pick: "home", Units: math.MaxInt},
			"g2": {Pick: "home", Units: math.MaxInt},
			"g3": {Pick: "home", Units: 52},
		})
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		require.NotNil(t, res.Rejection)
		assert.Equal(t, ReasonInvalidPick, res.Rejection.Reason)
		assert.Contains(t, res.Rejection.Invalid, "g1")
		assert.Contains(t, res.Rejection.Invalid, "g2")
		assert.Contains(t, res.Rejection.Invalid, "g3")
		assert.Equal(t, StateOpen, s.State())

		keys, err := blobs.List(ctx, "predictions/")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("subset of slate rejected", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())
		env.Start(ctx, 3, "")

		picks := validPicks()
		delete(picks, "g2")
		picks["g1"] = models.Pick{Pick: "Buffalo Bills", Units: 5}

		res, err := env.Submit(ctx, picks)
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		assert.Equal(t, ReasonIncomplete, res.Rejection.Reason)
		assert.Equal(t, []string{"g2"}, res.Rejection.Missing)
	})

	t.Run("superset of slate rejected", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())
		env.Start(ctx, 3, "")

		picks := validPicks()
		picks["g9"] = models.Pick{Pick: "Chicago Bears", Units: 1}
		picks["g3"] = models.Pick{Pick: "Detroit Lions", Units: 44}

		res, err := env.Submit(ctx, picks)
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		assert.Equal(t, ReasonIncomplete, res.Rejection.Reason)
		assert.Equal(t, []string{"g9"}, res.Rejection.Unexpected)
	})

	t.Run("completeness checked before unit total", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())
		env.Start(ctx, 3, "")

		res, err := env.Submit(ctx, models.Predictions{"g1": {Pick: "Buffalo Bills", Units: 1}})
		require.NoError(t, err)
		assert.Equal(t, ReasonIncomplete, res.Rejection.Reason)
	})

	t.Run("pick must name a side", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())
		env.Start(ctx, 3, "")

		picks := validPicks()
		picks["g1"] = models.Pick{Pick: "Green Bay Packers", Units: 2}

		res, err := env.Submit(ctx, picks)
		require.NoError(t, err)
		assert.Equal(t, ReasonInvalidPick, res.Rejection.Reason)
		assert.Contains(t, res.Rejection.Invalid, "g1")
	})

	t.Run("home and away keywords and case-insensitive names", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())
		env.Start(ctx, 3, "")

		res, err := env.Submit(ctx, models.Predictions{
			"g1": {Pick: "home", Units: 20},
			"g2": {Pick: "AWAY", Units: 20},
			"g3": {Pick: "detroit lions", Units: 10},
		})
		require.NoError(t, err)
		assert.True(t, res.Accepted)
	})

	t.Run("zero units rejected even when total is 50", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())
		env.Start(ctx, 3, "")

		res, err := env.Submit(ctx, models.Predictions{
			"g1": {Pick: "home", Units: 0},
			"g2": {Pick: "home", Units: 25},
			"g3": {Pick: "home", Units: 25},
		})
		require.NoError(t, err)
		assert.Equal(t, ReasonInvalidPick, res.Rejection.Reason)
	})

	t.Run("retry after rejection succeeds", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())
		env.Start(ctx, 3, "")

		bad := validPicks()
		bad["g3"] = models.Pick{Pick: "Detroit Lions", Units: 1}
		res, _ := env.Submit(ctx, bad)
		require.False(t, res.Accepted)

		res, err := env.Submit(ctx, validPicks())
		require.NoError(t, err)
		assert.True(t, res.Accepted)
	})

	t.Run("closed session rejects further submissions", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())
		env.Start(ctx, 3, "")

		res, _ := env.Submit(ctx, validPicks())
		require.True(t, res.Accepted)

		res, err := env.Submit(ctx, validPicks())
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		assert.Equal(t, ReasonClosed, res.Rejection.Reason)
	})

	t.Run("closed session serves no searches", func(t *testing.T) {
		env, searcher, _ := setupEnv(t, threeGames())
		s, _ := env.Start(ctx, 3, "")

		res, _ := env.Submit(ctx, validPicks())
		require.True(t, res.Accepted)

		resp := env.Search(ctx, models.SearchRequest{Query: "after close"})
		assert.Contains(t, resp.Error, "Session closed")
		assert.NotNil(t, resp.Results)
		assert.Empty(t, resp.Results)
		assert.Equal(t, int32(0), searcher.calls.Load())
		assert.Equal(t, 9, s.Overview().SearchesRemaining)
	})

	t.Run("repeat sessions never overwrite records", func(t *testing.T) {
		env, _, blobs := setupEnv(t, threeGames())

		var locations []string
		for i := 0; i < 3; i++ {
			_, err := env.Start(ctx, 3, "Sunday")
			require.NoError(t, err)
			res, err := env.Submit(ctx, validPicks())
			require.NoError(t, err)
			require.True(t, res.Accepted)
			locations = append(locations, res.Location)
		}

		assert.Equal(t, "predictions/week_3/predictions_week_3_sunday_20250918_143000.json", locations[0])
		assert.NotEqual(t, locations[0], locations[1])
		assert.NotEqual(t, locations[1], locations[2])

		keys, err := blobs.List(ctx, "predictions/week_3/")
		require.NoError(t, err)
		assert.Len(t, keys, 3)

		raw, _ := blobs.Get(ctx, locations[0])
		var rec models.PredictionRecord
		require.NoError(t, json.Unmarshal(raw, &rec))
		require.NotNil(t, rec.Day)
		assert.Equal(t, "sunday", *rec.Day)
	})

	t.Run("submit without session", func(t *testing.T) {
		env, _, _ := setupEnv(t, threeGames())
		_, err := env.Submit(ctx, validPicks())
		assert.True(t, errors.Is(err, ErrNoSession))
	})
}
