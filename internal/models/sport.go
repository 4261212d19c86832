package models

import "fmt"

// SportConfig is one row of the enumerated sport table. Sport keys are
// validated against this table at startup; an unmapped key is a typed
// error, never a silent fallback to a default league.
type SportConfig struct {
	Key         string  `mapstructure:"key" json:"key" validate:"required"`
	Title       string  `mapstructure:"title" json:"title" validate:"required"`
	MarginSlope float64 `mapstructure:"margin_slope" json:"margin_slope" validate:"gt=0"`
	Active      bool    `mapstructure:"active" json:"active"`
}

// SportTable is the validated set of configured sports.
type SportTable struct {
	sports map[string]SportConfig
}

// NewSportTable builds the table from configuration, rejecting duplicate
// or inactive-only input.
func NewSportTable(configs []SportConfig) (*SportTable, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("sport table is empty")
	}
	sports := make(map[string]SportConfig, len(configs))
	for _, sc := range configs {
		if _, dup := sports[sc.Key]; dup {
			return nil, fmt.Errorf("duplicate sport key %q", sc.Key)
		}
		sports[sc.Key] = sc
	}
	return &SportTable{sports: sports}, nil
}

// Lookup returns the configuration for a sport key.
func (t *SportTable) Lookup(key string) (SportConfig, error) {
	sc, ok := t.sports[key]
	if !ok || !sc.Active {
		return SportConfig{}, fmt.Errorf("sport %q: %w", key, ErrUnknownSport)
	}
	return sc, nil
}

// Keys returns the active sport keys.
func (t *SportTable) Keys() []string {
	keys := make([]string, 0, len(t.sports))
	for k, sc := range t.sports {
		if sc.Active {
			keys = append(keys, k)
		}
	}
	return keys
}

// ExpectedMargin maps an ensemble win probability to a point-spread
// equivalent estimate for the sport. The mapping is monotonic in the
// probability; the slope comes from the external tuning table.
func (sc SportConfig) ExpectedMargin(probability float64) float64 {
	return sc.MarginSlope * (probability - 0.5) * 2.0
}
