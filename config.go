package cryptotax

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// Config carries the run parameters of a tax computation. Threshold and rate
// are configuration inputs, never hardcoded inside the engine; the matching
// method is an explicit, auditable choice, never an implicit default.
type Config struct {
	// Method selects the lot matching order, "fifo" or "lifo".
	Method MatchingMethod `json:"method"`
	// Rate is the flat tax rate applied to the taxable amount, e.g. 0.26.
	Rate decimal.Decimal `json:"rate"`
	// ThresholdByYear maps a calendar year to its exemption threshold in
	// EUR. Years without an entry have no exemption.
	ThresholdByYear map[int]decimal.Decimal `json:"thresholdByYear,omitempty"`
	// Sources names the data sources to synchronize, e.g. ["kraken"].
	Sources []string `json:"sources,omitempty"`
}

// LoadConfig reads and validates a JSON config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// The zero MatchingMethod is a valid method, so an absent field would
	// silently select it. The method must be an explicit choice.
	var probe struct {
		Method *string `json:"method"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if probe.Method == nil {
		return nil, fmt.Errorf("%w: %s: missing matching method", ErrInvalidConfig, path)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration. A failure here is fatal: the run aborts
// before any computation or persistence.
func (c *Config) Validate() error {
	if s := c.Method.String(); s != "fifo" && s != "lifo" {
		return fmt.Errorf("%w: unknown matching method", ErrInvalidConfig)
	}
	if c.Rate.IsNegative() || c.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: rate %s outside [0, 1]", ErrInvalidConfig, c.Rate)
	}
	for year, threshold := range c.ThresholdByYear {
		if threshold.IsNegative() {
			return fmt.Errorf("%w: negative threshold %s for year %d", ErrInvalidConfig, threshold, year)
		}
	}
	return nil
}

// Threshold returns the exemption threshold for a year, zero when unset.
func (c *Config) Threshold(year int) decimal.Decimal {
	return c.ThresholdByYear[year]
}
