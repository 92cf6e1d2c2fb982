package evo

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"naptime/internal/grammar"
	"naptime/internal/scape"
)

var ErrEmptyStrategy = errors.New("strategy contains no programs")

// Individual is one candidate strategy: a program per robot slot, and the
// fitness of its last evaluation.
type Individual struct {
	ID       string
	programs []*grammar.Expr

	fitness   float64
	evaluated bool
	aborted   int
}

func NewIndividual(id string, programs []*grammar.Expr) (*Individual, error) {
	if len(programs) == 0 {
		return nil, ErrEmptyStrategy
	}
	for i, program := range programs {
		if program == nil {
			return nil, fmt.Errorf("program %d is nil", i)
		}
		if program.Kind != grammar.KindStep {
			return nil, fmt.Errorf("program %d: root must be step, got %s", i, program.Name())
		}
	}
	return &Individual{ID: id, programs: programs}, nil
}

// LoadIndividual reads a strategy from a single program file or from a
// directory holding one program file per slot.
func LoadIndividual(id, path string) (*Individual, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		program, err := grammar.ReadProgram(path)
		if err != nil {
			return nil, err
		}
		return NewIndividual(id, []*grammar.Expr{program})
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyStrategy)
	}
	sort.Slice(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })

	programs := make([]*grammar.Expr, 0, len(names))
	for _, name := range names {
		program, err := grammar.ReadProgram(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		programs = append(programs, program)
	}
	return NewIndividual(id, programs)
}

// LoadIndividualOrDefault loads an optional strategy. When path is empty or
// cannot be loaded the error is logged and a single (step) program stands in.
func LoadIndividualOrDefault(id, path string, logger *zap.Logger) *Individual {
	if path != "" {
		loaded, err := LoadIndividual(id, path)
		if err == nil {
			return loaded
		}
		if logger != nil {
			logger.Warn("falling back to default strategy", zap.String("path", path), zap.Error(err))
		}
	}
	return &Individual{ID: id, programs: []*grammar.Expr{{Kind: grammar.KindStep}}}
}

// Programs returns the slot programs. They must not be modified.
func (ind *Individual) Programs() []*grammar.Expr {
	return ind.programs
}

// Program returns the program for slot, wrapping around the slot count.
func (ind *Individual) Program(slot int) *grammar.Expr {
	n := len(ind.programs)
	return ind.programs[((slot%n)+n)%n]
}

func (ind *Individual) Fitness() (float64, bool) {
	return ind.fitness, ind.evaluated
}

// AbortedRuns is the number of runs of the last evaluation that stopped on a
// program error.
func (ind *Individual) AbortedRuns() int {
	return ind.aborted
}

// Fingerprint identifies the printed programs, so equal strategies share it.
func (ind *Individual) Fingerprint() string {
	h := sha1.New()
	for _, program := range ind.programs {
		h.Write([]byte(program.Print()))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Mutate returns a mutated copy under a new id.
func (ind *Individual) Mutate(id string, rate float64, rng *rand.Rand) (*Individual, error) {
	programs := make([]*grammar.Expr, len(ind.programs))
	for i, program := range ind.programs {
		mutated, err := reparse(Mutate(program, rate, rng))
		if err != nil {
			return nil, fmt.Errorf("mutate slot %d: %w", i, err)
		}
		programs[i] = mutated
	}
	return NewIndividual(id, programs)
}

// CrossoverAndMutate produces two offspring. One slot, drawn over the shorter
// program list, is crossed over between the parents before mutation; every
// other slot is a mutated copy of that parent's own program.
func (ind *Individual) CrossoverAndMutate(mate *Individual, ids [2]string, rate float64, rng *rand.Rand) (*Individual, *Individual, error) {
	if mate == nil {
		return nil, nil, fmt.Errorf("mate is required")
	}
	shared := len(ind.programs)
	if len(mate.programs) < shared {
		shared = len(mate.programs)
	}
	slot := rng.Intn(shared)

	crossed, err := Crossover(ind.programs[slot], mate.programs[slot], rng)
	if err != nil {
		return nil, nil, err
	}
	left, err := offspring(ind.programs, slot, crossed.A, rate, rng)
	if err != nil {
		return nil, nil, err
	}
	right, err := offspring(mate.programs, slot, crossed.B, rate, rng)
	if err != nil {
		return nil, nil, err
	}
	first, err := NewIndividual(ids[0], left)
	if err != nil {
		return nil, nil, err
	}
	second, err := NewIndividual(ids[1], right)
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

func offspring(parent []*grammar.Expr, slot int, crossed string, rate float64, rng *rand.Rand) ([]*grammar.Expr, error) {
	programs := make([]*grammar.Expr, len(parent))
	for i, program := range parent {
		source := program
		if i == slot {
			var err error
			source, err = reparse(crossed)
			if err != nil {
				return nil, fmt.Errorf("crossover slot %d: %w", i, err)
			}
		}
		mutated, err := reparse(Mutate(source, rate, rng))
		if err != nil {
			return nil, fmt.Errorf("mutate slot %d: %w", i, err)
		}
		programs[i] = mutated
	}
	return programs, nil
}

func reparse(text string) (*grammar.Expr, error) {
	return grammar.ParseProgram(text)
}

// Evaluate scores the individual against opponent over repeats runs and
// caches the mean. Run r uses scape.SeedFor(seed, r), so every individual
// evaluated with the same seed faces the same initial conditions.
func (ind *Individual) Evaluate(ctx context.Context, sim scape.Simulator, opponent []*grammar.Expr, repeats int, seed int64) (float64, error) {
	if sim == nil {
		return 0, fmt.Errorf("simulator is required")
	}
	if repeats < 1 {
		return 0, fmt.Errorf("repeats must be >= 1")
	}
	total := 0.0
	aborted := 0
	for r := 0; r < repeats; r++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		result, err := sim.RunOnce(ctx, scape.Match{
			Team:     ind.programs,
			Opponent: opponent,
			Seed:     scape.SeedFor(seed, r),
		})
		if err != nil {
			return 0, fmt.Errorf("evaluate %s: %w", ind.ID, err)
		}
		if result.Aborted() {
			aborted++
		}
		total += result.Fitness
	}
	ind.fitness = total / float64(repeats)
	ind.evaluated = true
	ind.aborted = aborted
	return ind.fitness, nil
}

// Write stores each program in pretty form as 1.sexp, 2.sexp, ... under dir.
func (ind *Individual) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, program := range ind.programs {
		path := filepath.Join(dir, strconv.Itoa(i+1)+".sexp")
		if err := os.WriteFile(path, []byte(program.Pretty()), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// naturalLess orders names so embedded numbers compare by value:
// "2.sexp" sorts before "10.sexp".
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		da, db := isDigit(a[0]), isDigit(b[0])
		switch {
		case da && db:
			na, restA := leadingDigits(a)
			nb, restB := leadingDigits(b)
			ta, tb := strings.TrimLeft(na, "0"), strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) < len(tb)
			}
			if ta != tb {
				return ta < tb
			}
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			a, b = restA, restB
		case a[0] != b[0]:
			return a[0] < b[0]
		default:
			a, b = a[1:], b[1:]
		}
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func leadingDigits(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}
