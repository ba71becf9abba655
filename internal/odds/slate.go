package odds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oscillatelabsllc/nflpicker/internal/models"
	"github.com/oscillatelabsllc/nflpicker/internal/storage"
)

// ErrNoSlate means no pulled lines match the requested week and day
var ErrNoSlate = errors.New("no slate data found")

// SlateKey names the blob a line pull is written to
func SlateKey(week int, day string, pulledAt time.Time) string {
	name := fmt.Sprintf("nfl_lines_week_%d", week)
	if day != "" {
		name += "_" + day
	}
	return fmt.Sprintf("data/week_%d/%s_%s.json", week, name, pulledAt.Format(timestampLayout))
}

// Store reads and writes line slates through a BlobStore
type Store struct {
	blobs storage.BlobStore
}

// NewStore creates a slate store
func NewStore(blobs storage.BlobStore) *Store {
	return &Store{blobs: blobs}
}

// Save persists a slate and returns its key
func (s *Store) Save(ctx context.Context, slate models.Slate, pulledAt time.Time) (string, error) {
	day := ""
	if slate.Meta.DayFilter != "all" {
		day = slate.Meta.DayFilter
	}
	key := SlateKey(slate.Meta.Week, day, pulledAt)

	data, err := json.MarshalIndent(slate, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode slate: %w", err)
	}
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("failed to save slate: %w", err)
	}
	return key, nil
}

type slateFile struct {
	key       string
	day       string
	timestamp string
}

// parseSlateKey splits a key into its day filter and pull timestamp
func parseSlateKey(prefix, key string) (slateFile, bool) {
	rest := strings.TrimSuffix(strings.TrimPrefix(key, prefix), ".json")
	if len(rest) < len(timestampLayout) {
		return slateFile{}, false
	}
	ts := rest[len(rest)-len(timestampLayout):]
	if _, err := time.Parse(timestampLayout, ts); err != nil {
		return slateFile{}, false
	}
	day := strings.TrimSuffix(rest[:len(rest)-len(timestampLayout)], "_")
	return slateFile{key: key, day: day, timestamp: ts}, true
}

// Games returns the newest slate for week. With a day filter the newest
// day-specific pull wins; failing that the newest full-week pull is
// narrowed to games kicking off on that Pacific weekday.
func (s *Store) Games(ctx context.Context, week int, day string) ([]models.Game, error) {
	day, err := NormalizeDay(day)
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("data/week_%d/nfl_lines_week_%d_", week, week)
	keys, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list slates: %w", err)
	}

	var exact, full []slateFile
	for _, key := range keys {
		f, ok := parseSlateKey(prefix, key)
		if !ok {
			continue
		}
		switch f.day {
		case day:
			exact = append(exact, f)
		case "":
			full = append(full, f)
		}
	}

	var (
		chosen *slateFile
		narrow bool
	)
	if latest := newest(exact); latest != nil {
		chosen = latest
	} else if latest := newest(full); latest != nil && day != "" {
		chosen, narrow = latest, true
	}

	if chosen == nil {
		return nil, noSlate(week, day)
	}

	raw, err := s.blobs.Get(ctx, chosen.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read slate: %w", err)
	}

	var slate models.Slate
	if err := json.Unmarshal(raw, &slate); err != nil {
		return nil, fmt.Errorf("failed to decode slate %s: %w", chosen.key, err)
	}

	games := slate.Games
	if narrow {
		games = FilterByDay(games, day)
	}
	if len(games) == 0 {
		return nil, noSlate(week, day)
	}
	return games, nil
}

func newest(files []slateFile) *slateFile {
	if len(files) == 0 {
		return nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].timestamp < files[j].timestamp })
	return &files[len(files)-1]
}

func noSlate(week int, day string) error {
	if day != "" {
		return fmt.Errorf("%w for week %d (%s); run pull-lines --day %s first", ErrNoSlate, week, day, day)
	}
	return fmt.Errorf("%w for week %d; run pull-lines first", ErrNoSlate, week)
}

// FilterByDay keeps games whose Pacific kickoff falls on day. Games with an
// unparseable kickoff are dropped.
func FilterByDay(games []models.Game, day string) []models.Game {
	if day == "" {
		return games
	}
	var out []models.Game
	for _, g := range games {
		wd, err := Weekday(g.GameTime)
		if err == nil && wd == day {
			out = append(out, g)
		}
	}
	return out
}
