// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command lfstress soaks the lfsync queues and blocking primitives and
// reports throughput per scenario.
//
//	lfstress                       # every scenario, 1s each
//	lfstress mpsc --producers 8    # one scenario
//	LFSTRESS_DURATION=10s lfstress # flags can be set from the environment
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"code.hybscloud.com/lfsync/internal/stress"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("lfstress failed")
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	defaults := stress.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "lfstress [scenario...]",
		Short: "Soak test for lock-free queues and blocking primitives",
		Long: `lfstress runs each scenario for a fixed duration, checks the ordering
or exclusion guarantee it exercises, and prints the throughput.

Scenarios run in order: ` + strings.Join(stress.Names(), ", ") + `.
Every flag can also be set as LFSTRESS_<FLAG>, e.g. LFSTRESS_DURATION=5s.`,
		ValidArgs:     stress.Names(),
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(v.GetString("log-level")); err != nil {
				return err
			}
			cfg := stress.Config{
				Duration:  v.GetDuration("duration"),
				Producers: v.GetInt("producers"),
				Capacity:  v.GetInt("capacity"),
				Spins:     v.GetInt("spins"),
				Rate:      v.GetFloat64("rate"),
			}
			results, err := stress.Run(cmd.Context(), args, cfg, log.Logger)
			printResults(cmd, results)
			return err
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.Duration("duration", defaults.Duration, "How long each scenario runs")
	flags.Int("producers", defaults.Producers, "Producer goroutines in the mpsc scenario")
	flags.Int("capacity", defaults.Capacity, "Queue capacity (rounded up to a power of 2)")
	flags.Int("spins", defaults.Spins, "Semaphore spin budget before parking")
	flags.Float64("rate", 0, "Pushes per second per mpsc producer (0 = unlimited)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	v.SetEnvPrefix("LFSTRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	rootCmd.AddCommand(newListCommand())
	return rootCmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, sc := range stress.Scenarios() {
				fmt.Fprintf(w, "%s\t%s\n", sc.Name, sc.Description)
			}
			return w.Flush()
		},
	}
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return nil
}

func printResults(cmd *cobra.Command, results []stress.Result) {
	if len(results) == 0 {
		return
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SCENARIO\tOPS\tELAPSED\tOPS/SEC\t")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\t\n", r.Scenario, r.Ops, r.Elapsed.Round(time.Millisecond), r.OpsPerSec())
	}
	_ = w.Flush()
}
