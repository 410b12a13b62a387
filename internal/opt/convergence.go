package opt

import (
	"log/slog"
	"math"
)

// ConvergenceConfig defines parameters for detecting stagnation of an
// evolutionary run.
type ConvergenceConfig struct {
	// Enabled controls whether convergence detection is active
	Enabled bool

	// Patience is the number of generations with no significant improvement
	// before the run is considered converged
	Patience int

	// Threshold is the minimum relative improvement that counts as progress.
	// Relative improvement = (fitness - lastSignificant) / max(|lastSignificant|, 1)
	Threshold float64
}

// DefaultConvergenceConfig returns sensible defaults for convergence detection
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  20,
		Threshold: 0.001,
	}
}

// DisabledConvergenceConfig returns a config with convergence detection disabled
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled: false,
	}
}

func (c ConvergenceConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Patience <= 0 {
		return &ConfigError{Field: "Convergence.Patience", Reason: "must be positive"}
	}
	if c.Threshold < 0 {
		return &ConfigError{Field: "Convergence.Threshold", Reason: "cannot be negative"}
	}
	return nil
}

// ConvergenceTracker detects stagnation of the best fitness. Fitness is
// maximized.
type ConvergenceTracker struct {
	config          ConvergenceConfig
	updates         int
	lastSignificant float64
	staleCount      int
}

// NewConvergenceTracker creates a new convergence tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		lastSignificant: math.Inf(-1),
	}
}

// Update records a new fitness value and returns true if convergence is detected
func (c *ConvergenceTracker) Update(fitness float64) bool {
	c.updates++
	if !c.config.Enabled {
		return false
	}

	if c.updates == 1 {
		c.lastSignificant = fitness
		return false
	}

	relativeImprovement := (fitness - c.lastSignificant) / math.Max(math.Abs(c.lastSignificant), 1)

	if relativeImprovement > c.config.Threshold {
		c.lastSignificant = fitness
		c.staleCount = 0
		return false
	}

	c.staleCount++
	slog.Debug("No significant fitness improvement",
		"fitness", fitness,
		"last_significant", c.lastSignificant,
		"relative_improvement", relativeImprovement,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)

	return c.staleCount >= c.config.Patience
}

// StaleCount returns the current number of updates without improvement
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}
