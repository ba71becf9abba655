package models

// Pick is the agent's selection for a single game
type Pick struct {
	Pick  string `json:"pick"`
	Units int    `json:"units"`
}

// Predictions maps game ID to pick. A submission covers the whole slate.
type Predictions map[string]Pick

// TotalUnits sums the stakes across all picks
func (p Predictions) TotalUnits() int {
	total := 0
	for _, pick := range p {
		total += pick.Units
	}
	return total
}

// PredictionRecord is the write-once artifact persisted on acceptance
type PredictionRecord struct {
	Week        int         `json:"week"`
	Day         *string     `json:"day"`
	Predictions Predictions `json:"predictions"`
	Timestamp   string      `json:"timestamp"` // YYYYMMDD_HHMMSS
}
