package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eligo-vote/facematch/internal/config"
	"github.com/eligo-vote/facematch/internal/database"
	"github.com/eligo-vote/facematch/internal/evaluation"
	"github.com/eligo-vote/facematch/internal/repository"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		threshold       float64
		impostorSamples int
		gridStart       float64
		gridEnd         float64
		gridStep        float64
		seed            int64
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Calibrate the face-match threshold against the enrollment corpus",
		Long: `Builds genuine and impostor similarity-score populations from the full
enrollment corpus, reports FAR and FRR at the given threshold, and sweeps
a threshold grid to estimate the Equal Error Rate. The report is written
to stdout as JSON.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			evalCfg := evaluation.Config{
				ImpostorSamplesPerIdentity: impostorSamples,
				GridStart:                  gridStart,
				GridEnd:                    gridEnd,
				GridStep:                   gridStep,
				Seed:                       seed,
			}
			// Distinguish an explicit --threshold 0 from an unset flag;
			// 0.0 is a legal operating point.
			if cmd.Flags().Changed("threshold") {
				evalCfg.Threshold = &threshold
			}
			return runEvaluate(evalCfg)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "operating threshold to report FAR/FRR at (default from MATCH_THRESHOLD)")
	cmd.Flags().IntVar(&impostorSamples, "impostor-samples", 0, "impostor samples drawn per identity (default from IMPOSTOR_SAMPLES_PER_IDENTITY)")
	cmd.Flags().Float64Var(&gridStart, "grid-start", 0.40, "lower bound of the EER threshold sweep")
	cmd.Flags().Float64Var(&gridEnd, "grid-end", 0.80, "upper bound of the EER threshold sweep")
	cmd.Flags().Float64Var(&gridStep, "grid-step", 0.01, "step of the EER threshold sweep")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for impostor sampling (0 seeds from the clock)")

	return cmd
}

func runEvaluate(evalCfg evaluation.Config) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	if evalCfg.Threshold == nil {
		evalCfg.Threshold = &cfg.MatchThreshold
	}
	if evalCfg.ImpostorSamplesPerIdentity == 0 {
		evalCfg.ImpostorSamplesPerIdentity = cfg.ImpostorSamplesPerIdentity
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	harness := evaluation.New(repository.NewEnrollmentRepository(pool), logger, evalCfg)

	report, err := harness.Run(ctx)
	if err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
