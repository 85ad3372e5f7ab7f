package smoothing

import (
	"errors"
	"fmt"
)

// Default filter parameters.
const (
	DefaultWindowLength    = 7
	DefaultPolynomialOrder = 2
)

// ErrInvalidConfig is matched by every ConfigError via errors.Is.
var ErrInvalidConfig = errors.New("invalid smoothing config")

// ConfigError reports an unusable (window, order) combination.
type ConfigError struct {
	WindowLength    int
	PolynomialOrder int
	Reason          string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid smoothing config (window=%d, order=%d): %s",
		e.WindowLength, e.PolynomialOrder, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidConfig) hold for any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Config selects the Savitzky-Golay filter applied to landmark channels.
type Config struct {
	WindowLength    int
	PolynomialOrder int
	Enabled         bool
	// Workers bounds how many channels are filtered concurrently.
	// Zero means GOMAXPROCS.
	Workers int
}

// DefaultConfig returns the 7-frame quadratic filter, enabled.
func DefaultConfig() Config {
	return Config{
		WindowLength:    DefaultWindowLength,
		PolynomialOrder: DefaultPolynomialOrder,
		Enabled:         true,
	}
}

// Validate checks the window/order invariant.
func (c Config) Validate() error {
	return validate(c.WindowLength, c.PolynomialOrder)
}

func validate(window, order int) error {
	switch {
	case order < 0:
		return &ConfigError{window, order, "polynomial order must be non-negative"}
	case window%2 != 1:
		return &ConfigError{window, order, "window length must be odd"}
	case window < 3:
		return &ConfigError{window, order, "window length must be at least 3"}
	case window < order+2:
		return &ConfigError{window, order, "window too small for polynomial order"}
	}
	return nil
}
