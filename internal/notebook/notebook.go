// Package notebook implements the per-agent persistent scratchpad: a free-text
// store with a hard token ceiling, line-context search and usage stats.
package notebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/oscillatelabsllc/nflpicker/internal/models"
	"github.com/oscillatelabsllc/nflpicker/internal/storage"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxTokens = 20000

	appendSeparator = "\n\n"
	matchSeparator  = "\n---\n"
	maxMatches      = 3
)

// ErrInvalidIdentity is returned for an empty agent identity
var ErrInvalidIdentity = errors.New("invalid notebook identity")

// Store manages the scratchpads of one season
type Store struct {
	blobs     storage.BlobStore
	tokenizer Tokenizer
	season    int
	maxTokens int
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a notebook store for season backed by blobs
func NewStore(blobs storage.BlobStore, tokenizer Tokenizer, season, maxTokens int, log zerolog.Logger) *Store {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Store{
		blobs:     blobs,
		tokenizer: tokenizer,
		season:    season,
		maxTokens: maxTokens,
		log:       log.With().Str("component", "notebook").Logger(),
		locks:     make(map[string]*sync.Mutex),
	}
}

// MaxTokens returns the token ceiling applied to every write
func (s *Store) MaxTokens() int {
	return s.maxTokens
}

// key escapes the identity into a single path segment so that distinct
// identities never share a blob.
func (s *Store) key(identity string) (string, error) {
	if strings.TrimSpace(identity) == "" {
		return "", ErrInvalidIdentity
	}
	return fmt.Sprintf("scratchpads/%d/%s.json", s.season, url.PathEscape(identity)), nil
}

func (s *Store) lock(identity string) func() {
	s.mu.Lock()
	l, ok := s.locks[identity]
	if !ok {
		l = &sync.Mutex{}
		s.locks[identity] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Store) load(ctx context.Context, identity string) (models.NotebookData, error) {
	var data models.NotebookData

	key, err := s.key(identity)
	if err != nil {
		return data, err
	}

	raw, err := s.blobs.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("failed to load notebook: %w", err)
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("failed to decode notebook %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) save(ctx context.Context, identity string, data models.NotebookData) error {
	key, err := s.key(identity)
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode notebook: %w", err)
	}

	if err := s.blobs.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to save notebook: %w", err)
	}
	return nil
}

// Read returns the notebook content, or "" if nothing was ever written
func (s *Store) Read(ctx context.Context, identity string) (string, error) {
	data, err := s.load(ctx, identity)
	if err != nil {
		return "", err
	}
	return data.Content, nil
}

// Search finds lines containing query (case-insensitive) and returns up to
// three windows of one line before and after each hit.
func (s *Store) Search(ctx context.Context, identity, query string) (string, error) {
	data, err := s.load(ctx, identity)
	if err != nil {
		return "", err
	}

	notFound := fmt.Sprintf("No mentions of '%s' found", query)
	needle := strings.ToLower(query)
	// A blank query would match every line; treat it as no match
	if strings.TrimSpace(needle) == "" {
		return notFound, nil
	}

	lines := strings.Split(data.Content, "\n")
	var matches []string
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		start := max(0, i-1)
		end := min(len(lines), i+2)
		matches = append(matches, strings.Join(lines[start:end], "\n"))
	}

	if len(matches) == 0 {
		return notFound, nil
	}

	shown := matches
	if len(shown) > maxMatches {
		shown = shown[:maxMatches]
	}
	return fmt.Sprintf("Found %d mention(s) of '%s':\n\n", len(matches), query) + strings.Join(shown, matchSeparator), nil
}

// Write appends to or replaces the notebook. A result over the token ceiling
// is rejected whole and nothing is persisted. week, when non-nil, becomes the
// notebook's last-updated marker.
func (s *Store) Write(ctx context.Context, identity, content string, appendMode bool, week *int) (models.WriteResult, error) {
	if _, err := s.key(identity); err != nil {
		return models.WriteResult{}, err
	}

	unlock := s.lock(identity)
	defer unlock()

	data, err := s.load(ctx, identity)
	if err != nil {
		return models.WriteResult{}, err
	}

	candidate := content
	if appendMode && data.Content != "" {
		candidate = data.Content + appendSeparator + content
	}

	tokens := s.tokenizer.Count(candidate)
	if tokens > s.maxTokens {
		s.log.Info().
			Str("identity", identity).
			Int("token_count", tokens).
			Int("max_tokens", s.maxTokens).
			Msg("Rejected notebook write over token limit")
		return models.WriteResult{
			Success:    false,
			Message:    fmt.Sprintf("Exceeds %d token limit (%d tokens)", s.maxTokens, tokens),
			TokenCount: tokens,
			MaxTokens:  s.maxTokens,
		}, nil
	}

	data.Content = candidate
	if week != nil {
		data.WeekUpdated = *week
	}
	if err := s.save(ctx, identity, data); err != nil {
		return models.WriteResult{}, err
	}

	s.log.Debug().
		Str("identity", identity).
		Bool("append", appendMode).
		Int("token_count", tokens).
		Msg("Notebook updated")

	return models.WriteResult{
		Success:         true,
		TokenCount:      tokens,
		TokensRemaining: s.maxTokens - tokens,
	}, nil
}

// Stats reports token usage and the last week the notebook was updated
func (s *Store) Stats(ctx context.Context, identity string) (models.NotebookStats, error) {
	data, err := s.load(ctx, identity)
	if err != nil {
		return models.NotebookStats{}, err
	}

	tokens := s.tokenizer.Count(data.Content)
	// Content stored under a higher ceiling can exceed the current one
	return models.NotebookStats{
		Model:           identity,
		TokenCount:      tokens,
		TokensRemaining: max(0, s.maxTokens-tokens),
		LastWeekUpdated: data.WeekUpdated,
		HasContent:      data.Content != "",
	}, nil
}
