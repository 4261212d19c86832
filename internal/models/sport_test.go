package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSports() []SportConfig {
	return []SportConfig{
		{Key: "basketball_nba", Title: "NBA", MarginSlope: 12.0, Active: true},
		{Key: "americanfootball_nfl", Title: "NFL", MarginSlope: 14.0, Active: false},
	}
}

func TestSportTableLookup(t *testing.T) {
	table, err := NewSportTable(testSports())
	require.NoError(t, err)

	sc, err := table.Lookup("basketball_nba")
	require.NoError(t, err)
	assert.Equal(t, "NBA", sc.Title)

	_, err = table.Lookup("cricket_ipl")
	assert.ErrorIs(t, err, ErrUnknownSport)

	// Inactive sports are configured but not servable.
	_, err = table.Lookup("americanfootball_nfl")
	assert.ErrorIs(t, err, ErrUnknownSport)
}

func TestSportTableRejectsDuplicates(t *testing.T) {
	_, err := NewSportTable([]SportConfig{
		{Key: "basketball_nba", Title: "NBA", MarginSlope: 12.0, Active: true},
		{Key: "basketball_nba", Title: "NBA again", MarginSlope: 10.0, Active: true},
	})
	assert.Error(t, err)
}

func TestSportTableKeys(t *testing.T) {
	table, err := NewSportTable(testSports())
	require.NoError(t, err)
	assert.Equal(t, []string{"basketball_nba"}, table.Keys())
}

func TestExpectedMargin(t *testing.T) {
	sc := SportConfig{MarginSlope: 12.0}
	assert.Equal(t, 0.0, sc.ExpectedMargin(0.5))
	assert.InDelta(t, 4.8, sc.ExpectedMargin(0.7), 1e-9)
	assert.InDelta(t, -4.8, sc.ExpectedMargin(0.3), 1e-9)
	// Monotonic in the probability.
	assert.Greater(t, sc.ExpectedMargin(0.9), sc.ExpectedMargin(0.7))
}
