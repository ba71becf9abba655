package models

import "time"

// Game is one matchup on a weekly slate, reduced to consensus lines
type Game struct {
	GameID         string   `json:"game_id"`
	HomeTeam       string   `json:"home_team"`
	AwayTeam       string   `json:"away_team"`
	GameTime       string   `json:"game_time"` // ISO 8601
	BookmakerCount int      `json:"bookmaker_count,omitempty"`
	HomeSpread     *float64 `json:"home_spread"`
	AwaySpread     *float64 `json:"away_spread,omitempty"`
	Total          *float64 `json:"total"`
}

// Kickoff parses GameTime. The odds feed uses a trailing Z for UTC.
func (g Game) Kickoff() (time.Time, error) {
	return time.Parse(time.RFC3339, g.GameTime)
}

// SlateMeta describes how and when a slate was pulled
type SlateMeta struct {
	PullTimestamp string `json:"pull_timestamp"`
	Week          int    `json:"week"`
	Season        int    `json:"season"`
	WeekStart     string `json:"week_start"`
	WeekEnd       string `json:"week_end"`
	DayFilter     string `json:"day_filter"`
	GamesCount    int    `json:"games_count"`
}

// Slate is the persisted output of a line pull
type Slate struct {
	Meta  SlateMeta `json:"meta"`
	Games []Game    `json:"games"`
}
