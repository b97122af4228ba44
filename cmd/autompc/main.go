package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	plotFile   string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "autompc",
		Short:         "system identification and model predictive control of the cartpole",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "run config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&plotFile, "plot", "", "save plot to PNG file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	sysidCmd := &cobra.Command{
		Use:   "sysid",
		Short: "train a model on generated cartpole data and evaluate it on holdout data",
		Args:  cobra.NoArgs,
		RunE:  runSysID,
	}

	controlCmd := &cobra.Command{
		Use:   "control",
		Short: "train a model and stabilize the cartpole with LQR",
		Args:  cobra.NoArgs,
		RunE:  runControl,
	}

	rootCmd.AddCommand(sysidCmd, controlCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
