package search

import (
	"context"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

// BigramQuery selects units of the given texts in which two feature
// indices co-occur.
type BigramQuery struct {
	Word1    int
	Word2    int
	Feature  string
	UnitType string
	TextIDs  []core.ID
}

// FindBigrams returns the units realizing both words on distinct tokens.
//
// The store narrows the search to units carrying both indices. A candidate is
// kept only if some token realizes Word1 but not Word2 and some token realizes
// Word2 but not Word1, so a single token carrying both does not count.
// As a consequence Word1 == Word2 never matches.
func FindBigrams(ctx context.Context, units storage.UnitRepository, q BigramQuery) ([]*core.Unit, error) {
	if units == nil {
		return nil, ErrUnitRepositoryRequired
	}
	if len(q.TextIDs) == 0 {
		return []*core.Unit{}, nil
	}

	candidates, err := units.FindUnitsWithFeatures(ctx, storage.UnitQuery{
		TextIDs:  q.TextIDs,
		UnitType: q.UnitType,
		Feature:  q.Feature,
		Indices:  []int{q.Word1, q.Word2},
	})
	if err != nil {
		return nil, err
	}

	results := make([]*core.Unit, 0, len(candidates))
	for _, unit := range candidates {
		if distinctPositions(unit, q.Feature, q.Word1, q.Word2) {
			results = append(results, unit)
		}
	}
	return results, nil
}

// distinctPositions reports whether the token positions of w1 and w2 in the
// unit each contain a position the other lacks.
func distinctPositions(unit *core.Unit, feature string, w1, w2 int) bool {
	onlyFirst, onlySecond := false, false
	for _, tok := range unit.Tokens {
		has1, has2 := tok.Has(feature, w1), tok.Has(feature, w2)
		onlyFirst = onlyFirst || (has1 && !has2)
		onlySecond = onlySecond || (has2 && !has1)
	}
	return onlyFirst && onlySecond
}
