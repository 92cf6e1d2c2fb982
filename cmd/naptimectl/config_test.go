package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"naptime/pkg/naptime"
)

func TestRunFileAppliesUnlessFlagChanged(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "run.yaml"), `
baseline: strategies/baseline
progenitor: strategies/progenitor
population: 20
mutation_rate: 0.25
repeats: 3
generations: 50
output: best
seed: 77
workers: 4
selection: tournament
tournament_size: 5
arena:
  max_steps: 1000
  treats: 12
`)
	file, err := loadRunFile(path)
	require.NoError(t, err)

	var req naptime.RunRequest
	flags := pflag.NewFlagSet("evolve", pflag.ContinueOnError)
	flags.IntVar(&req.Population, "pop", 100, "")
	flags.IntVar(&req.Generations, "gens", 10, "")
	flags.Int64Var(&req.Seed, "seed", 1, "")
	require.NoError(t, flags.Parse([]string{"--gens", "2", "--seed", "5"}))

	file.apply(&req, flags)
	assert.Equal(t, naptime.RunRequest{
		Baseline:       "strategies/baseline",
		Progenitor:     "strategies/progenitor",
		Population:     20,
		MutationRate:   0.25,
		Repeats:        3,
		Generations:    2,
		Seed:           5,
		Workers:        4,
		Selection:      "tournament",
		TournamentSize: 5,
		OutDir:         "best",
		Arena:          req.Arena,
	}, req)
	assert.Equal(t, 1000, req.Arena.MaxSteps)
	assert.Equal(t, 12, req.Arena.Treats)
}

func TestRunFileKeepsFlagDefaultsForAbsentKeys(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "run.yaml"), "population: 6\n")
	file, err := loadRunFile(path)
	require.NoError(t, err)

	req := naptime.RunRequest{Population: 100, Generations: 10, Selection: "roulette"}
	file.apply(&req, pflag.NewFlagSet("evolve", pflag.ContinueOnError))
	assert.Equal(t, 6, req.Population)
	assert.Equal(t, 10, req.Generations)
	assert.Equal(t, "roulette", req.Selection)
}

func TestLoadRunFileErrors(t *testing.T) {
	_, err := loadRunFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, filepath.Join(t.TempDir(), "bad.yaml"), "population: nope\n")
	_, err = loadRunFile(bad)
	assert.Error(t, err)
}

func TestSampleRunFileLoads(t *testing.T) {
	file, err := loadRunFile(filepath.Join("..", "..", "testdata", "run.yaml"))
	require.NoError(t, err)

	var req naptime.RunRequest
	file.apply(&req, pflag.NewFlagSet("evolve", pflag.ContinueOnError))
	assert.Equal(t, "testdata/strategies/baseline.sexp", req.Baseline)
	assert.Equal(t, 20, req.Population)
	assert.Equal(t, 2000, req.Arena.MaxSteps)
	assert.NoError(t, validateRunRequest(req))
}
