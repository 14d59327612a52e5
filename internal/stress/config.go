// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"errors"
	"fmt"
	"time"

	"code.hybscloud.com/lfsync"
)

// Config controls every scenario of a run.
type Config struct {
	// Duration is how long each scenario runs.
	Duration time.Duration
	// Producers is the number of producer goroutines in fan-in scenarios.
	Producers int
	// Capacity is the requested queue capacity.
	Capacity int
	// Spins is the semaphore spin budget before parking.
	Spins int
	// Rate caps each fan-in producer at Rate pushes per second.
	// Zero means unlimited.
	Rate float64
}

// DefaultConfig returns the configuration used when no flag is given.
func DefaultConfig() Config {
	return Config{
		Duration:  time.Second,
		Producers: 4,
		Capacity:  1024,
		Spins:     lfsync.DefaultMaxSpins,
	}
}

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("stress: invalid config")

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidConfig, c.Duration)
	case c.Producers < 1:
		return fmt.Errorf("%w: producers must be >= 1, got %d", ErrInvalidConfig, c.Producers)
	case c.Capacity < 1:
		return fmt.Errorf("%w: capacity must be >= 1, got %d", ErrInvalidConfig, c.Capacity)
	case c.Spins < 0:
		return fmt.Errorf("%w: spins must be >= 0, got %d", ErrInvalidConfig, c.Spins)
	case c.Rate < 0:
		return fmt.Errorf("%w: rate must be >= 0, got %g", ErrInvalidConfig, c.Rate)
	}
	return nil
}
