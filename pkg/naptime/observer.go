package naptime

import (
	"context"
	"fmt"

	"naptime/internal/evo"
	"naptime/internal/model"
	"naptime/internal/storage"
)

// storeObserver persists one record per generation.
type storeObserver struct {
	store storage.Store
	runID string
}

func (o *storeObserver) ObserveGeneration(ctx context.Context, gen evo.Generation) error {
	rec := model.GenerationRecord{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           o.runID,
		Index:           gen.Index,
		Mean:            gen.Mean,
		Max:             gen.Max,
		Min:             gen.Min,
		Diversity:       gen.Diversity,
		Evaluations:     gen.Evaluations,
		AbortedRuns:     gen.AbortedRuns,
	}
	if gen.Fittest != nil {
		rec.FittestID = gen.Fittest.ID
		rec.FittestPrograms = printPrograms(gen.Fittest)
	}
	if err := o.store.SaveGeneration(ctx, rec); err != nil {
		return fmt.Errorf("save generation %d: %w", gen.Index, err)
	}
	return nil
}
