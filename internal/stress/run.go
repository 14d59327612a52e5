// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stress runs soak workloads against the lfsync primitives and
// reports throughput. Each scenario also checks the ordering or exclusion
// guarantee it exercises and fails with ErrViolation when it breaks.
package stress

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Result is the outcome of one scenario.
type Result struct {
	Scenario string
	Ops      int64
	Elapsed  time.Duration
}

// OpsPerSec returns the throughput of the run.
func (r Result) OpsPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// Run executes the named scenarios in order, each for cfg.Duration.
// An empty names runs every scenario. Run stops at the first failure and
// returns the results collected so far.
func Run(ctx context.Context, names []string, cfg Config, logger zerolog.Logger) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = Names()
	}

	results := make([]Result, 0, len(names))
	for _, name := range names {
		sc, ok := Lookup(name)
		if !ok {
			return results, fmt.Errorf("stress: unknown scenario %q", name)
		}
		logger.Debug().Str("scenario", name).Dur("duration", cfg.Duration).Msg("starting scenario")

		start := time.Now()
		sctx, cancel := context.WithDeadline(ctx, start.Add(cfg.Duration))
		ops, err := sc.run(sctx, cfg, logger)
		cancel()
		res := Result{Scenario: name, Ops: ops, Elapsed: time.Since(start)}

		if err != nil {
			logger.Error().Err(err).Str("scenario", name).Int64("ops", ops).Msg("scenario failed")
			return results, fmt.Errorf("stress: %s: %w", name, err)
		}
		logger.Info().
			Str("scenario", name).
			Int64("ops", res.Ops).
			Dur("elapsed", res.Elapsed).
			Float64("ops_per_sec", res.OpsPerSec()).
			Msg("scenario finished")
		results = append(results, res)

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, nil
}
