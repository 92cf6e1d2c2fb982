// Package naptime evolves forage team strategies written as S-expression
// programs and keeps a record of every run.
package naptime

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"naptime/internal/evo"
	"naptime/internal/logging"
	"naptime/internal/metrics"
	"naptime/internal/model"
	"naptime/internal/scape"
	"naptime/internal/stats"
	"naptime/internal/storage"
)

const (
	defaultDBPath     = "naptime.db"
	defaultExportsDir = "exports"
	defaultRunsLimit  = 20
)

type Options struct {
	StoreKind string
	DBPath    string
	// ArtifactsDir receives a directory per run plus run_index.json. Empty
	// disables artifact files.
	ArtifactsDir string
	ExportsDir   string
	Logger       *zap.Logger
	// Metrics, when set, observes every generation of every run.
	Metrics *metrics.Recorder
}

type Client struct {
	store        storage.Store
	artifactsDir string
	exportsDir   string
	logger       *zap.Logger
	metrics      *metrics.Recorder
	now          func() time.Time
}

type RunRequest struct {
	Baseline       string
	Progenitor     string
	Population     int
	MutationRate   float64
	Repeats        int
	Generations    int
	Seed           int64
	Workers        int
	Selection      string
	TournamentSize int
	Arena          scape.ForageConfig
	// OutDir, when set, receives the fittest strategy as 1.sexp, 2.sexp, ...
	OutDir string
}

// Generation is the per-generation summary reported while a run progresses.
type Generation struct {
	Index       int
	Mean        float64
	Max         float64
	Min         float64
	Diversity   int
	Evaluations int
	AbortedRuns int
}

type RunSummary struct {
	RunID        string
	Generations  []Generation
	BestFitness  float64
	BestPrograms []string
	ArtifactsDir string
}

type RunItem struct {
	RunID       string
	CreatedAt   time.Time
	Simulator   string
	Population  int
	Generations int
	Seed        int64
	Completed   bool
	BestFitness float64
}

type RunDetail struct {
	RunItem
	BestPrograms []string
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := storage.Open(context.Background(), opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		store:        store,
		artifactsDir: opts.ArtifactsDir,
		exportsDir:   exportsDir,
		logger:       logger,
		metrics:      opts.Metrics,
		now:          time.Now,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (req RunRequest) validate() error {
	switch {
	case req.Baseline == "":
		return errors.New("baseline strategy path is required")
	case req.Progenitor == "":
		return errors.New("progenitor strategy path is required")
	case req.Generations <= 0:
		return errors.New("generations must be > 0")
	}
	return nil
}

// Evolve runs req.Generations generations. report, when non-nil, is called
// after each generation in order. On failure the summary holds the
// generations completed so far.
func (c *Client) Evolve(ctx context.Context, req RunRequest, report func(Generation)) (RunSummary, error) {
	if err := req.validate(); err != nil {
		return RunSummary{}, err
	}
	baseline, err := evo.LoadIndividual("baseline", req.Baseline)
	if err != nil {
		return RunSummary{}, fmt.Errorf("load baseline: %w", err)
	}
	progenitor, err := evo.LoadIndividual("progenitor", req.Progenitor)
	if err != nil {
		return RunSummary{}, fmt.Errorf("load progenitor: %w", err)
	}
	c.warnDeprecations(req.Baseline, baseline)
	c.warnDeprecations(req.Progenitor, progenitor)
	selector, err := evo.SelectorByName(req.Selection, req.TournamentSize)
	if err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	logger := c.logger.With(zap.String("run_id", runID))
	sim := scape.NewForage(req.Arena, logger)
	run := model.Run{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		CreatedAt:       c.now().UTC(),
		Simulator:       sim.Name(),
		Baseline:        req.Baseline,
		Progenitor:      req.Progenitor,
		Population:      req.Population,
		MutationRate:    req.MutationRate,
		Repeats:         req.Repeats,
		Generations:     req.Generations,
		Selection:       selector.Name(),
		Seed:            req.Seed,
		Workers:         req.Workers,
	}

	summary := RunSummary{RunID: runID}
	observers := []evo.Observer{
		&storeObserver{store: c.store, runID: runID},
		evo.ObserverFunc(func(_ context.Context, gen evo.Generation) error {
			g := summarize(gen)
			summary.Generations = append(summary.Generations, g)
			if report != nil {
				report(g)
			}
			return nil
		}),
	}
	if c.metrics != nil {
		observers = append(observers, c.metrics)
	}

	pop, err := evo.NewPopulation(evo.PopulationConfig{
		Simulator:    sim,
		Baseline:     baseline,
		Progenitor:   progenitor,
		Size:         req.Population,
		MutationRate: req.MutationRate,
		Repeats:      req.Repeats,
		Seed:         req.Seed,
		Workers:      req.Workers,
		Selector:     selector,
		Observers:    observers,
		Logger:       logger,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, fmt.Errorf("save run: %w", err)
	}

	logger.Info("run started",
		zap.Int("population", req.Population),
		zap.Int("generations", req.Generations),
		zap.Int64("seed", req.Seed),
		zap.String("selection", selector.Name()),
	)
	for i := 0; i < req.Generations; i++ {
		if _, err := pop.Evolve(ctx); err != nil {
			return summary, fmt.Errorf("generation %d: %w", pop.Generation(), err)
		}
	}

	best := pop.Best()
	summary.BestFitness, _ = best.Fitness()
	summary.BestPrograms = printPrograms(best)

	run.Completed = true
	run.BestFitness = summary.BestFitness
	run.BestPrograms = summary.BestPrograms
	if err := c.store.SaveRun(ctx, run); err != nil {
		return summary, fmt.Errorf("save run: %w", err)
	}

	if req.OutDir != "" {
		if err := best.Write(req.OutDir); err != nil {
			return summary, fmt.Errorf("write fittest strategy: %w", err)
		}
	}
	if c.artifactsDir != "" {
		dir, err := stats.WriteRunArtifacts(c.artifactsDir, runArtifacts(run, req, summary))
		if err != nil {
			return summary, fmt.Errorf("write run artifacts: %w", err)
		}
		summary.ArtifactsDir = filepath.Clean(dir)
	}
	logger.Info("run completed", zap.Float64("best_fitness", summary.BestFitness))
	return summary, nil
}

func runArtifacts(run model.Run, req RunRequest, summary RunSummary) stats.RunArtifacts {
	arena := scape.NewForage(req.Arena, nil).Config()
	history := make([]stats.GenerationSummary, 0, len(summary.Generations))
	for _, g := range summary.Generations {
		history = append(history, stats.GenerationSummary{
			Generation:  g.Index,
			Mean:        g.Mean,
			Max:         g.Max,
			Min:         g.Min,
			Diversity:   g.Diversity,
			AbortedRuns: g.AbortedRuns,
		})
	}
	return stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:          run.ID,
			Simulator:      run.Simulator,
			Baseline:       run.Baseline,
			Progenitor:     run.Progenitor,
			Population:     run.Population,
			MutationRate:   run.MutationRate,
			Repeats:        run.Repeats,
			Generations:    run.Generations,
			Seed:           run.Seed,
			Workers:        run.Workers,
			Selection:      run.Selection,
			TournamentSize: req.TournamentSize,
			Arena:          stats.ArenaConfig{MaxSteps: arena.MaxSteps, Treats: arena.Treats},
		},
		History:          history,
		FinalBestFitness: summary.BestFitness,
		BestPrograms:     summary.BestPrograms,
		CreatedAt:        run.CreatedAt,
	}
}

func summarize(gen evo.Generation) Generation {
	return Generation{
		Index:       gen.Index,
		Mean:        gen.Mean,
		Max:         gen.Max,
		Min:         gen.Min,
		Diversity:   gen.Diversity,
		Evaluations: gen.Evaluations,
		AbortedRuns: gen.AbortedRuns,
	}
}

func printPrograms(ind *evo.Individual) []string {
	if ind == nil {
		return nil
	}
	out := make([]string, 0, len(ind.Programs()))
	for _, program := range ind.Programs() {
		out = append(out, program.Print())
	}
	return out
}

// Runs lists stored runs, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]RunItem, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs, err := c.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunItem{
			RunID:       run.ID,
			CreatedAt:   run.CreatedAt,
			Simulator:   run.Simulator,
			Population:  run.Population,
			Generations: run.Generations,
			Seed:        run.Seed,
			Completed:   run.Completed,
			BestFitness: run.BestFitness,
		})
	}
	return out, nil
}

// History returns the stored generation summaries of a run.
func (c *Client) History(ctx context.Context, runID string) ([]Generation, error) {
	if runID == "" {
		return nil, errors.New("run id is required")
	}
	records, ok, err := c.store.GetGenerations(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.artifactHistory(runID)
	}
	out := make([]Generation, 0, len(records))
	for _, rec := range records {
		out = append(out, Generation{
			Index:       rec.Index,
			Mean:        rec.Mean,
			Max:         rec.Max,
			Min:         rec.Min,
			Diversity:   rec.Diversity,
			Evaluations: rec.Evaluations,
			AbortedRuns: rec.AbortedRuns,
		})
	}
	return out, nil
}

// artifactHistory reads the generations of a run the store does not know,
// such as one recorded by an earlier process with the memory store.
func (c *Client) artifactHistory(runID string) ([]Generation, error) {
	if c.artifactsDir == "" {
		return nil, fmt.Errorf("run %s has no stored generations", runID)
	}
	history, ok, err := stats.ReadFitnessHistory(c.artifactsDir, runID)
	if err != nil {
		return nil, fmt.Errorf("read artifacts of run %s: %w", runID, err)
	}
	if !ok {
		return nil, fmt.Errorf("run %s has no stored generations", runID)
	}
	out := make([]Generation, 0, len(history.Generations))
	for _, gen := range history.Generations {
		out = append(out, Generation{
			Index:       gen.Generation,
			Mean:        gen.Mean,
			Max:         gen.Max,
			Min:         gen.Min,
			Diversity:   gen.Diversity,
			AbortedRuns: gen.AbortedRuns,
		})
	}
	return out, nil
}

// Run returns one run with its fittest programs. Runs missing from the store
// are read back from the artifacts directory; those carry no creation time.
func (c *Client) Run(ctx context.Context, runID string) (RunDetail, error) {
	if runID == "" {
		return RunDetail{}, errors.New("run id is required")
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return RunDetail{}, err
	}
	if ok {
		return RunDetail{
			RunItem: RunItem{
				RunID:       run.ID,
				CreatedAt:   run.CreatedAt,
				Simulator:   run.Simulator,
				Population:  run.Population,
				Generations: run.Generations,
				Seed:        run.Seed,
				Completed:   run.Completed,
				BestFitness: run.BestFitness,
			},
			BestPrograms: run.BestPrograms,
		}, nil
	}
	if c.artifactsDir == "" {
		return RunDetail{}, fmt.Errorf("run %s not found", runID)
	}

	cfg, ok, err := stats.ReadRunConfig(c.artifactsDir, runID)
	if err != nil {
		return RunDetail{}, fmt.Errorf("read artifacts of run %s: %w", runID, err)
	}
	if !ok {
		return RunDetail{}, fmt.Errorf("run %s not found", runID)
	}
	history, _, err := stats.ReadFitnessHistory(c.artifactsDir, runID)
	if err != nil {
		return RunDetail{}, fmt.Errorf("read artifacts of run %s: %w", runID, err)
	}
	programs, _, err := stats.ReadBestPrograms(c.artifactsDir, runID)
	if err != nil {
		return RunDetail{}, fmt.Errorf("read artifacts of run %s: %w", runID, err)
	}
	return RunDetail{
		RunItem: RunItem{
			RunID:       cfg.RunID,
			Simulator:   cfg.Simulator,
			Population:  cfg.Population,
			Generations: cfg.Generations,
			Seed:        cfg.Seed,
			// Artifacts are only written once a run finishes.
			Completed:   true,
			BestFitness: history.FinalBestFitness,
		},
		BestPrograms: programs,
	}, nil
}

// Export copies a run's artifact directory to outDir, or to the client's
// exports directory when outDir is empty. An empty runID exports the newest
// indexed run.
func (c *Client) Export(_ context.Context, runID, outDir string) (string, error) {
	if c.artifactsDir == "" {
		return "", errors.New("artifacts directory is not configured")
	}
	if outDir == "" {
		outDir = c.exportsDir
	}
	if runID == "" {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}
	dir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, outDir)
	if err != nil {
		return "", err
	}
	return filepath.Clean(dir), nil
}
