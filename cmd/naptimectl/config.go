package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"naptime/pkg/naptime"
)

// runFile is the optional YAML run configuration. Absent keys keep the flag
// values.
type runFile struct {
	Baseline       *string   `yaml:"baseline"`
	Progenitor     *string   `yaml:"progenitor"`
	Population     *int      `yaml:"population"`
	MutationRate   *float64  `yaml:"mutation_rate"`
	Repeats        *int      `yaml:"repeats"`
	Generations    *int      `yaml:"generations"`
	Output         *string   `yaml:"output"`
	Seed           *int64    `yaml:"seed"`
	Workers        *int      `yaml:"workers"`
	Selection      *string   `yaml:"selection"`
	TournamentSize *int      `yaml:"tournament_size"`
	Arena          arenaFile `yaml:"arena"`
}

type arenaFile struct {
	MaxSteps *int `yaml:"max_steps"`
	Treats   *int `yaml:"treats"`
}

func loadRunFile(path string) (runFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runFile{}, fmt.Errorf("read run config: %w", err)
	}
	var cfg runFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return runFile{}, fmt.Errorf("parse run config %s: %w", path, err)
	}
	return cfg, nil
}

// apply copies every key set in the file onto req, except where the
// matching flag was given explicitly on the command line.
func (f runFile) apply(req *naptime.RunRequest, flags *pflag.FlagSet) {
	override(&req.Baseline, f.Baseline, flags, "baseline")
	override(&req.Progenitor, f.Progenitor, flags, "progenitor")
	override(&req.Population, f.Population, flags, "pop")
	override(&req.MutationRate, f.MutationRate, flags, "rate")
	override(&req.Repeats, f.Repeats, flags, "repeats")
	override(&req.Generations, f.Generations, flags, "gens")
	override(&req.OutDir, f.Output, flags, "out")
	override(&req.Seed, f.Seed, flags, "seed")
	override(&req.Workers, f.Workers, flags, "workers")
	override(&req.Selection, f.Selection, flags, "selection")
	override(&req.TournamentSize, f.TournamentSize, flags, "tournament-size")
	override(&req.Arena.MaxSteps, f.Arena.MaxSteps, flags, "max-steps")
	override(&req.Arena.Treats, f.Arena.Treats, flags, "treats")
}

func override[T any](dst *T, v *T, flags *pflag.FlagSet, name string) {
	if v != nil && !flags.Changed(name) {
		*dst = *v
	}
}
