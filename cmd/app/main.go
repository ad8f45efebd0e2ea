package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Aktiemotor/internal/di"
	"Aktiemotor/pkg/config"
	"Aktiemotor/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configPath      string
	evaluateTimeout time.Duration
	scanTimeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "aktiemotor",
	Short: "Swing-trading signal engine for Nasdaq Stockholm",
	Long: `Aktiemotor evaluates a watchlist of Stockholm equities during market hours,
emits pending buy and sell recommendations for manual confirmation and keeps
a paper ledger of the resulting positions.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler, API and background consumers",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <ticker>",
	Short: "Score one ticker against live data without writing anything",
	Example: `  aktiemotor evaluate EVO
  aktiemotor evaluate "EMBRAC B" --config config/config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Score the universe and rotate the watchlist now",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	evaluateCmd.Flags().DurationVar(&evaluateTimeout, "timeout", 2*time.Minute, "overall deadline")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 10*time.Minute, "overall deadline")
	rootCmd.AddCommand(serveCmd, evaluateCmd, scanCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	return app.Run()
}

// engine loads config, builds the one-shot engine and seeds the watchlist
// from the strategies file.
func engine(timeout time.Duration) (*di.Engine, context.Context, func(), error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config load failed: %w", err)
	}
	eng, cleanup, err := di.InitializeEngine(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("engine initialization failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	done := func() {
		cancel()
		stop()
		cleanup()
	}
	if err := eng.Strategies.Load(ctx); err != nil {
		eng.Logger.Warn("strategies not loaded, using stored watchlist", logger.Error(err))
	}
	return eng, ctx, done, nil
}

func runEvaluate(_ *cobra.Command, args []string) error {
	eng, ctx, done, err := engine(evaluateTimeout)
	if err != nil {
		return err
	}
	defer done()

	res, err := eng.Evaluator.DryRun(ctx, args[0])
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", args[0], err)
	}
	return printJSON(res)
}

func runScan(_ *cobra.Command, _ []string) error {
	eng, ctx, done, err := engine(scanTimeout)
	if err != nil {
		return err
	}
	defer done()

	report, err := eng.Scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return printJSON(report)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
