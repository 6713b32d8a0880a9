package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	ivsym "github.com/ivsym/ivsym"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the program's entry point once and report its test case",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	log := loggerFromFlags()
	runID := newRunID()
	log = log.With().Str("run", runID).Logger()

	lp, err := loadProgram(flagProgram)
	if err != nil {
		return err
	}
	log.Info().Str("entry", lp.EntryPoint).Msg("loaded program")

	gen := ivsym.NewDFSGenerator()
	solver := buildSolver(gen)

	tc := ivsym.ExecuteProgram(context.Background(), lp.Program, lp.Types, solver, true, gen, lp.EntryPoint)

	class := tc.Classify()
	log.Info().
		Str("classification", class).
		Int("solveCalls", tc.Stats.SolveN).
		Dur("solveTime", tc.Stats.SolveTime).
		Msg("run complete")

	if tc.Failure != nil {
		fmt.Println(tc.Failure.Error())
	}
	fmt.Println(class)
	return nil
}
