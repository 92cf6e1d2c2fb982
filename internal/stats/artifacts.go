package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

const (
	runIndexFile       = "run_index.json"
	configFile         = "config.json"
	fitnessHistoryFile = "fitness_history.json"
	fitnessSeriesFile  = "fitness_series.csv"
	bestProgramsFile   = "best_programs.json"
)

type ArenaConfig struct {
	MaxSteps int `json:"max_steps,omitempty"`
	Treats   int `json:"treats,omitempty"`
}

type RunConfig struct {
	RunID          string      `json:"run_id"`
	Simulator      string      `json:"simulator"`
	Baseline       string      `json:"baseline"`
	Progenitor     string      `json:"progenitor"`
	Population     int         `json:"population"`
	MutationRate   float64     `json:"mutation_rate"`
	Repeats        int         `json:"repeats"`
	Generations    int         `json:"generations"`
	Seed           int64       `json:"seed"`
	Workers        int         `json:"workers"`
	Selection      string      `json:"selection"`
	TournamentSize int         `json:"tournament_size,omitempty"`
	Arena          ArenaConfig `json:"arena"`
}

// GenerationSummary is one line of the fitness history.
type GenerationSummary struct {
	Generation  int     `json:"generation"`
	Mean        float64 `json:"mean"`
	Max         float64 `json:"max"`
	Min         float64 `json:"min"`
	Diversity   int     `json:"diversity"`
	AbortedRuns int     `json:"aborted_runs,omitempty"`
}

type FitnessHistory struct {
	Generations      []GenerationSummary `json:"generations"`
	FinalBestFitness float64             `json:"final_best_fitness"`
}

type RunArtifacts struct {
	Config           RunConfig           `json:"config"`
	History          []GenerationSummary `json:"history"`
	FinalBestFitness float64             `json:"final_best_fitness"`
	BestPrograms     []string            `json:"best_programs"`
	CreatedAt        time.Time           `json:"created_at"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Simulator        string  `json:"simulator"`
	Population       int     `json:"population"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	Workers          int     `json:"workers"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

// WriteRunArtifacts writes the run directory baseDir/<run id>, records the
// run in the index and returns the run directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	history := artifacts.History
	if history == nil {
		history = []GenerationSummary{}
	}
	if err := writeJSON(filepath.Join(runDir, fitnessHistoryFile), FitnessHistory{
		Generations:      history,
		FinalBestFitness: artifacts.FinalBestFitness,
	}); err != nil {
		return "", err
	}
	if err := writeFitnessSeries(filepath.Join(runDir, fitnessSeriesFile), history); err != nil {
		return "", err
	}
	best := artifacts.BestPrograms
	if best == nil {
		best = []string{}
	}
	if err := writeJSON(filepath.Join(runDir, bestProgramsFile), best); err != nil {
		return "", err
	}

	createdAt := artifacts.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	cfg := artifacts.Config
	if err := AppendRunIndex(baseDir, RunIndexEntry{
		RunID:            cfg.RunID,
		Simulator:        cfg.Simulator,
		Population:       cfg.Population,
		Generations:      cfg.Generations,
		Seed:             cfg.Seed,
		Workers:          cfg.Workers,
		FinalBestFitness: artifacts.FinalBestFitness,
		CreatedAtUTC:     createdAt.UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return "", err
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first. A missing index is empty.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}
	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", runIndexFile, err)
	}
	return entries, nil
}

// ExportRunArtifacts copies a run directory to outDir/<run id>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{configFile, fitnessHistoryFile, bestProgramsFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	seriesPath := filepath.Join(src, fitnessSeriesFile)
	if _, err := os.Stat(seriesPath); err == nil {
		if err := copyFile(seriesPath, filepath.Join(dst, fitnessSeriesFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadFitnessHistory(baseDir, runID string) (FitnessHistory, bool, error) {
	var history FitnessHistory
	ok, err := readJSON(filepath.Join(baseDir, runID, fitnessHistoryFile), &history)
	return history, ok, err
}

func ReadBestPrograms(baseDir, runID string) ([]string, bool, error) {
	var programs []string
	ok, err := readJSON(filepath.Join(baseDir, runID, bestProgramsFile), &programs)
	return programs, ok, err
}

// writeFitnessSeries writes generation,mean,max,min rows for plotting tools.
func writeFitnessSeries(path string, history []GenerationSummary) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "mean", "max", "min"}); err != nil {
		return err
	}
	for _, gen := range history {
		if err := writer.Write([]string{
			strconv.Itoa(gen.Generation),
			strconv.FormatFloat(gen.Mean, 'f', -1, 64),
			strconv.FormatFloat(gen.Max, 'f', -1, 64),
			strconv.FormatFloat(gen.Min, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
