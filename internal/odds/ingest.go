package odds

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oscillatelabsllc/nflpicker/internal/models"
	"github.com/rs/zerolog"
)

// Fetcher supplies raw events for ingestion
type Fetcher interface {
	FetchNFL(ctx context.Context) ([]Event, error)
}

// Ingestor pulls the current week's lines and stores them as a slate
type Ingestor struct {
	fetcher  Fetcher
	store    *Store
	calendar Calendar
}

// NewIngestor creates an ingestor
func NewIngestor(fetcher Fetcher, store *Store, calendar Calendar) *Ingestor {
	return &Ingestor{fetcher: fetcher, store: store, calendar: calendar}
}

// Pull fetches events, keeps those inside the week containing now, reduces
// them to consensus lines, applies the day filter and saves the slate.
func (i *Ingestor) Pull(ctx context.Context, now time.Time, day string) (string, models.Slate, error) {
	day, err := NormalizeDay(day)
	if err != nil {
		return "", models.Slate{}, err
	}

	events, err := i.fetcher.FetchNFL(ctx)
	if err != nil {
		return "", models.Slate{}, fmt.Errorf("failed to fetch odds: %w", err)
	}

	week := i.calendar.Week(now)
	weekStart, weekEnd := i.calendar.Bounds(now)

	var games []models.Game
	for _, ev := range events {
		kickoff, err := time.Parse(time.RFC3339, ev.CommenceTime)
		if err != nil {
			continue
		}
		if kickoff.Before(weekStart) || kickoff.After(weekEnd) {
			continue
		}
		games = append(games, ProcessEvent(ev))
	}

	games = FilterByDay(games, day)
	sort.SliceStable(games, func(a, b int) bool { return games[a].GameTime < games[b].GameTime })
	if games == nil {
		games = []models.Game{}
	}

	dayFilter := day
	if dayFilter == "" {
		dayFilter = "all"
	}

	slate := models.Slate{
		Meta: models.SlateMeta{
			PullTimestamp: now.In(Pacific).Format(time.RFC3339),
			Week:          week,
			Season:        i.calendar.Season,
			WeekStart:     weekStart.Format(time.RFC3339),
			WeekEnd:       weekEnd.Format(time.RFC3339),
			DayFilter:     dayFilter,
			GamesCount:    len(games),
		},
		Games: games,
	}

	key, err := i.store.Save(ctx, slate, now)
	if err != nil {
		return "", models.Slate{}, err
	}
	return key, slate, nil
}

// PullJob adapts an Ingestor to a scheduled job
type PullJob struct {
	Ingestor *Ingestor
	Day      string
	Timeout  time.Duration
	Now      func() time.Time
	Log      zerolog.Logger
}

// Name identifies the job in scheduler logs
func (j *PullJob) Name() string {
	if j.Day != "" {
		return "pull-lines-" + j.Day
	}
	return "pull-lines"
}

// Run pulls and stores the current week's lines
func (j *PullJob) Run() error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	key, slate, err := j.Ingestor.Pull(ctx, now(), j.Day)
	if err != nil {
		return err
	}

	j.Log.Info().
		Str("key", key).
		Int("week", slate.Meta.Week).
		Int("games", slate.Meta.GamesCount).
		Msg("Lines pulled")
	return nil
}
