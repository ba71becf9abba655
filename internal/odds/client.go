// Package odds ingests NFL betting lines and serves weekly slates to the
// picking session.
package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/oscillatelabsllc/nflpicker/internal/models"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://api.the-odds-api.com/v4"
	sportKey       = "americanfootball_nfl"
)

// Outcome is one side of a bookmaker market
type Outcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point"`
}

// Market is a bookmaker's line for one market key (spreads, totals)
type Market struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

// Bookmaker groups the markets quoted by one book
type Bookmaker struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Markets []Market `json:"markets"`
}

// Event is a game as returned by The Odds API
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	CommenceTime string      `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Client handles communication with The Odds API
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new odds client
func NewClient(apiKey, baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("component", "odds").Logger(),
	}
}

// FetchNFL returns upcoming NFL events with US spreads and totals
func (c *Client) FetchNFL(ctx context.Context) ([]Event, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("ODDS_API_KEY is not set")
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", "us")
	params.Set("markets", "spreads,totals")
	params.Set("oddsFormat", "american")

	endpoint := fmt.Sprintf("%s/sports/%s/odds?%s", c.baseURL, sportKey, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call odds API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("odds API returned status %d: %s", resp.StatusCode, string(body))
	}

	c.log.Info().
		Str("requests_remaining", headerOr(resp, "x-requests-remaining")).
		Str("requests_used", headerOr(resp, "x-requests-used")).
		Msg("Odds API usage")

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return events, nil
}

func headerOr(resp *http.Response, name string) string {
	if v := resp.Header.Get(name); v != "" {
		return v
	}
	return "N/A"
}

// ProcessEvent reduces every bookmaker's quotes to median consensus lines
func ProcessEvent(ev Event) models.Game {
	var homeSpreads, awaySpreads, totals []float64

	for _, book := range ev.Bookmakers {
		for _, market := range book.Markets {
			switch market.Key {
			case "spreads":
				for _, o := range market.Outcomes {
					if o.Point == nil {
						continue
					}
					if o.Name == ev.HomeTeam {
						homeSpreads = append(homeSpreads, *o.Point)
					} else {
						awaySpreads = append(awaySpreads, *o.Point)
					}
				}
			case "totals":
				for _, o := range market.Outcomes {
					if o.Name == "Over" && o.Point != nil {
						totals = append(totals, *o.Point)
					}
				}
			}
		}
	}

	return models.Game{
		GameID:         ev.ID,
		HomeTeam:       ev.HomeTeam,
		AwayTeam:       ev.AwayTeam,
		GameTime:       ev.CommenceTime,
		BookmakerCount: len(ev.Bookmakers),
		HomeSpread:     median(homeSpreads),
		AwaySpread:     median(awaySpreads),
		Total:          median(totals),
	}
}

// median averages the two middle values for even-length input; nil when empty
func median(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	m := sorted[mid]
	if len(sorted)%2 == 0 {
		m = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &m
}
