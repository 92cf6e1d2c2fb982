package naptime

import (
	"fmt"

	"naptime/internal/evo"
	"naptime/internal/grammar"
)

type ProgramInfo struct {
	Path         string
	Slot         int
	Pretty       string
	Size         int
	Depth        int
	Deprecations []string
}

// Validate loads the strategy at path, checks every program's categories and
// returns one entry per program in slot order.
func (c *Client) Validate(path string) ([]ProgramInfo, error) {
	ind, err := evo.LoadIndividual(path, path)
	if err != nil {
		return nil, err
	}
	if err := checkPrograms(ind); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.warnDeprecations(path, ind)

	out := make([]ProgramInfo, 0, len(ind.Programs()))
	for slot, program := range ind.Programs() {
		out = append(out, ProgramInfo{
			Path:         path,
			Slot:         slot + 1,
			Pretty:       program.Pretty(),
			Size:         program.Size(),
			Depth:        program.Depth(),
			Deprecations: grammar.Deprecations(program),
		})
	}
	return out, nil
}
