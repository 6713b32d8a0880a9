package main

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootCmd is deliberately thin, the same shape as medusa's cmd.rootCmd:
// global flags live here, every subcommand does its own work in RunE.
var rootCmd = &cobra.Command{
	Use:   "ivsym",
	Short: "Symbolic execution engine for an intermediate verification language",
	Long:  "ivsym runs and enumerates symbolic test cases over an already-parsed, already-typed IVL program",
}

var (
	flagProgram    string
	flagLogLevel   string
	flagUseZ3      bool
	flagCacheFile  string
	flagBound      int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProgram, "program", "", "path to a program IR file (JSON)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "trace|debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&flagUseZ3, "z3", true, "use the z3 solver backend instead of the trivial fallback")
	rootCmd.PersistentFlags().StringVar(&flagCacheFile, "cache", "", "bbolt witness cache file (disabled if empty)")
	rootCmd.PersistentFlags().IntVar(&flagBound, "bound", 64, "integer enumeration bound for the trivial solver")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(enumerateCmd)
}

// Execute runs the command tree; main only ever calls this.
func Execute() error {
	return rootCmd.Execute()
}

// newRunID tags each invocation the way medusa tags a fuzzing campaign,
// for both the log line prefix and the witness cache key namespace.
func newRunID() string { return uuid.NewString() }

func loggerFromFlags() zerolog.Logger {
	return newLogger(parseLevel(flagLogLevel))
}
