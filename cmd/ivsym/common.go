package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	ivsym "github.com/ivsym/ivsym"
	"github.com/ivsym/ivsym/z3solver"
)

// loadedProgram bundles everything ExecuteProgram needs that this
// driver derives from one program file.
type loadedProgram struct {
	Program    *ivsym.Program
	Types      *flatTypeContext
	EntryPoint string
}

func loadProgram(path string) (*loadedProgram, error) {
	if path == "" {
		return nil, errors.New("--program is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	decls, entry, err := decodeProgram(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	var f irFile
	// decodeProgram already validated the document; re-decode just the
	// file shape here to build the type table from the same source.
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	types, err := newFlatTypeContext(f)
	if err != nil {
		return nil, errors.Wrapf(err, "building type context for %s", path)
	}
	return &loadedProgram{
		Program:    ivsym.Preprocess(decls),
		Types:      types,
		EntryPoint: entry,
	}, nil
}

func buildSolver(gen ivsym.Generator) ivsym.Solver {
	if flagUseZ3 {
		return z3solver.NewSolver()
	}
	return ivsym.NewTrivialSolver(gen, flagBound)
}
