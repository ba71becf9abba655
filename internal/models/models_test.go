package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameKickoff(t *testing.T) {
	g := Game{GameID: "g1", HomeTeam: "Buffalo Bills", AwayTeam: "Miami Dolphins", GameTime: "2025-09-12T00:15:00Z"}

	kickoff, err := g.Kickoff()
	require.NoError(t, err)
	assert.True(t, kickoff.Equal(time.Date(2025, 9, 12, 0, 15, 0, 0, time.UTC)))

	g.GameTime = "not a time"
	_, err = g.Kickoff()
	assert.Error(t, err)
}

func TestPredictionsTotalUnits(t *testing.T) {
	preds := Predictions{
		"g1": {Pick: "Buffalo Bills", Units: 2},
		"g2": {Pick: "Kansas City Chiefs", Units: 3},
		"g3": {Pick: "Detroit Lions", Units: 45},
	}
	assert.Equal(t, 50, preds.TotalUnits())
	assert.Equal(t, 0, Predictions{}.TotalUnits())
}
