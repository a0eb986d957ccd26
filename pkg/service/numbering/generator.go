package numbering

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vistoria-lab/vistoria/pkg/domain/interfaces"
)

// Generator produces human-readable display numbers of the form
// {PREFIX}-{YYYY}-{NNN}, e.g. ASM-2025-014. Numbers are monotonically
// increasing per (prefix, year) pair across the whole system and never
// reused, even when the caller's subsequent insert fails: the underlying
// sequence is advanced atomically by the repository, never derived by
// counting rows. Gaps are acceptable; duplicates are not.
type Generator struct {
	seq interfaces.SequenceRepository
}

// New creates a Generator over the given sequence repository
func New(seq interfaces.SequenceRepository) *Generator {
	return &Generator{seq: seq}
}

// Next returns the next display number for the prefix and year
func (g *Generator) Next(ctx context.Context, prefix string, year int) (string, error) {
	if prefix == "" {
		return "", goerr.New("sequence prefix cannot be empty")
	}
	if year < 1000 || year > 9999 {
		return "", goerr.New("year out of range", goerr.V("year", year))
	}

	key := fmt.Sprintf("%s-%04d", prefix, year)
	n, err := g.seq.Next(ctx, key)
	if err != nil {
		return "", goerr.Wrap(err, "failed to advance sequence", goerr.V("key", key))
	}

	// %03d grows naturally past 999
	return fmt.Sprintf("%s-%04d-%03d", prefix, year, n), nil
}
