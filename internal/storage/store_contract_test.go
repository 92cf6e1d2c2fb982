package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"naptime/internal/model"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleRun(id string, created time.Time) model.Run {
	return model.Run{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		CreatedAt:       created.UTC(),
		Simulator:       "forage",
		Population:      4,
		MutationRate:    0.1,
		Repeats:         1,
		Generations:     2,
		Selection:       "roulette",
		Seed:            7,
	}
}

// exerciseStore checks the Store contract shared by every backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}

	updated := sampleRun("run-1", base.Add(time.Minute))
	updated.Completed = true
	updated.BestFitness = 0.5
	updated.BestPrograms = []string{"(step (pickUp))"}
	if err := store.SaveRun(ctx, updated); err != nil {
		t.Fatalf("update run: %v", err)
	}
	got, ok, err := store.GetRun(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(updated, got); diff != "" {
		t.Fatalf("run mismatch (-want +got):\n%s", diff)
	}
	if _, ok, err := store.GetRun(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing run: ok=%v err=%v", ok, err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "run-2" || runs[2].ID != "run-0" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
	limited, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(limited) != 2 || limited[1].ID != "run-1" {
		t.Fatalf("unexpected limited listing: %+v", limited)
	}

	for _, idx := range []int{1, 0, 2} {
		record := model.GenerationRecord{
			VersionedRecord: CurrentVersion(),
			RunID:           "run-1",
			Index:           idx,
			Max:             float64(idx),
			FittestPrograms: []string{"(step)"},
		}
		if err := store.SaveGeneration(ctx, record); err != nil {
			t.Fatalf("save generation: %v", err)
		}
	}
	generations, ok, err := store.GetGenerations(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get generations: ok=%v err=%v", ok, err)
	}
	if len(generations) != 3 {
		t.Fatalf("expected 3 generations, got %d", len(generations))
	}
	for i, record := range generations {
		if record.Index != i || record.Max != float64(i) {
			t.Fatalf("generation %d out of order: %+v", i, record)
		}
	}
	if _, ok, err := store.GetGenerations(ctx, "run-0"); ok || err != nil {
		t.Fatalf("run without generations: ok=%v err=%v", ok, err)
	}
}
