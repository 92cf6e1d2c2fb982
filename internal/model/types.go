package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Run describes one evolution run and, once generations complete, its best
// strategy so far.
type Run struct {
	VersionedRecord
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Simulator    string    `json:"simulator"`
	Baseline     string    `json:"baseline"`
	Progenitor   string    `json:"progenitor"`
	Population   int       `json:"population"`
	MutationRate float64   `json:"mutation_rate"`
	Repeats      int       `json:"repeats"`
	Generations  int       `json:"generations"`
	Selection    string    `json:"selection"`
	Seed         int64     `json:"seed"`
	Workers      int       `json:"workers"`

	Completed    bool     `json:"completed"`
	BestFitness  float64  `json:"best_fitness"`
	BestPrograms []string `json:"best_programs,omitempty"`
}

type GenerationRecord struct {
	VersionedRecord
	RunID           string   `json:"run_id"`
	Index           int      `json:"index"`
	Mean            float64  `json:"mean"`
	Max             float64  `json:"max"`
	Min             float64  `json:"min"`
	Diversity       int      `json:"diversity"`
	Evaluations     int      `json:"evaluations"`
	AbortedRuns     int      `json:"aborted_runs"`
	FittestID       string   `json:"fittest_id"`
	FittestPrograms []string `json:"fittest_programs"`
}
