package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	ivsym "github.com/ivsym/ivsym"
)

var (
	flagMaxRuns int
	flagDFS     bool
)

var enumerateCmd = &cobra.Command{
	Use:   "enumerate",
	Short: "Drive the entry point through successive choice paths, aggregating classifications",
	RunE:  runEnumerate,
}

func init() {
	enumerateCmd.Flags().IntVar(&flagMaxRuns, "max-runs", 1000, "stop after this many runs even if paths remain")
	enumerateCmd.Flags().BoolVar(&flagDFS, "dfs", false, "use the depth-first generator (last alternative first) instead of the exhaustive generator (first alternative first)")
}

// pathGenerator is the subset of Generator the enumerate loop drives
// directly, shared by ExhaustiveGenerator and DFSGenerator.
type pathGenerator interface {
	ivsym.Generator
	Path() []int
	NextRun() bool
	Exhausted() bool
}

func runEnumerate(cmd *cobra.Command, args []string) error {
	log := loggerFromFlags()
	runID := newRunID()
	log = log.With().Str("run", runID).Logger()

	lp, err := loadProgram(flagProgram)
	if err != nil {
		return err
	}
	log.Info().Str("entry", lp.EntryPoint).Msg("loaded program")

	var cache *witnessCache
	if flagCacheFile != "" {
		cache, err = openWitnessCache(flagCacheFile)
		if err != nil {
			return err
		}
		defer cache.Close()
	}

	var gen pathGenerator
	if flagDFS {
		gen = ivsym.NewDFSGenerator()
	} else {
		gen = ivsym.NewExhaustiveGenerator()
	}

	counts := map[string]int{}
	runs := 0
	for runs < flagMaxRuns {
		sig := pathSignature(runID, gen.Path())

		var class string
		if cache != nil {
			if w, ok := cache.Get(sig); ok {
				class = w.Classification
				log.Debug().Str("path", sig).Str("classification", class).Msg("cache hit")
			}
		}

		if class == "" {
			solver := buildSolver(gen)
			tc := ivsym.ExecuteProgram(context.Background(), lp.Program, lp.Types, solver, false, gen, lp.EntryPoint)
			class = tc.Classify()
			if cache != nil {
				_ = cache.Put(sig, cachedWitness{Classification: class, Assignment: witnessAssignment(lp, tc)})
			}
		}

		counts[class]++
		runs++

		if !gen.NextRun() {
			break
		}
	}

	log.Info().Int("runs", runs).Interface("counts", counts).Msg("enumeration complete")
	for class, n := range counts {
		fmt.Printf("%s: %d\n", class, n)
	}
	return nil
}

// witnessAssignment pulls a printable snapshot of every known name's
// final value out of a test case's memory, for the witness cache —
// best-effort: only names whose thunk has already settled to a literal
// are included.
func witnessAssignment(lp *loadedProgram, tc *ivsym.TestCase) map[string]string {
	out := map[string]string{}
	if tc.FinalMemory == nil {
		return out
	}
	for name := range lp.Types.scopes {
		e, _, ok := tc.FinalMemory.LookupVar(name)
		if !ok {
			continue
		}
		if v, ok := ivsym.AsLiteral(e); ok {
			out[name] = v.String()
		}
	}
	return out
}
