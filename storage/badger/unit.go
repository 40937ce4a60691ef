package badger

import (
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

// UnitRepository stores text units with two indices: unit order within a
// text, and (text, unit type, feature, feature index) membership.
type UnitRepository struct {
	session *Session
}

var _ storage.UnitRepository = (*UnitRepository)(nil)

// AddUnits adds units through a write batch, maintaining both indices.
func (r *UnitRepository) AddUnits(ctx context.Context, units ...*core.Unit) ([]*core.Unit, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	for _, unit := range units {
		if err := core.ValidateUnit(unit); err != nil {
			return nil, err
		}
	}
	backend := r.session.backend
	err := backend.WithWriteBatch(func(wb *badger.WriteBatch) error {
		for _, unit := range units {
			id, err := backend.NextID(unitIDSeq)
			if err != nil {
				return err
			}
			unit.Id = id
			if err := wb.Set(makeUnitKey(unit.Id), storage.MarshalUnit(unit)); err != nil {
				return err
			}
			idValue := storage.MarshalID(unit.Id)
			if err := wb.Set(makeUnitTextKey(unit.TextID, unit.UnitType, unit.Index, unit.Id), idValue); err != nil {
				return err
			}
			for feature, indices := range featureIndices(unit) {
				for _, idx := range indices {
					key := makeUnitFeatureKey(unit.TextID, unit.UnitType, feature, idx, unit.Id)
					if err := wb.Set(key, idValue); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return units, nil
}

// featureIndices collects the distinct feature indices realized anywhere in a unit.
func featureIndices(unit *core.Unit) map[string][]int {
	out := make(map[string][]int)
	for _, tok := range unit.Tokens {
		for feature, indices := range tok.Features {
			out[feature] = append(out[feature], indices...)
		}
	}
	for feature, indices := range out {
		slices.Sort(indices)
		out[feature] = slices.Compact(indices)
	}
	return out
}

// GetUnit retrieves a single unit by ID.
func (r *UnitRepository) GetUnit(ctx context.Context, id core.ID) (*core.Unit, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	var result *core.Unit
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readValue(tx, makeUnitKey(id), storage.UnmarshalUnit)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListUnits retrieves the units of one type of a text, ordered by unit index.
func (r *UnitRepository) ListUnits(ctx context.Context, textID core.ID, unitType string) ([]*core.Unit, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	var results []*core.Unit
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := scanIDs(tx, makePartialUnitTextKey(textID, unitType))
		if err != nil {
			return err
		}
		results, err = readUnits(tx, ids)
		return err
	}, false)
	return results, err
}

// FindUnitsWithFeatures intersects the feature index of every requested
// index, per text, and loads the surviving units.
func (r *UnitRepository) FindUnitsWithFeatures(ctx context.Context, q storage.UnitQuery) ([]*core.Unit, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	if len(q.Indices) == 0 || q.Feature == "" {
		return nil, fmt.Errorf("%w: feature and at least one index are required", storage.ErrInvalidQuery)
	}
	indices := slices.Clone(q.Indices)
	slices.Sort(indices)
	indices = slices.Compact(indices)

	var results []*core.Unit
	seen := make(map[core.ID]bool, len(q.TextIDs))
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		for _, textID := range q.TextIDs {
			if seen[textID] {
				continue
			}
			seen[textID] = true

			var candidates []core.ID
			for i, idx := range indices {
				ids, err := scanIDs(tx, makePartialUnitFeatureKey(textID, q.UnitType, q.Feature, idx))
				if err != nil {
					return err
				}
				if i == 0 {
					candidates = ids
				} else {
					candidates = intersect(candidates, ids)
				}
				if len(candidates) == 0 {
					break
				}
			}

			units, err := readUnits(tx, candidates)
			if err != nil {
				return err
			}
			slices.SortFunc(units, func(a, b *core.Unit) int {
				return a.Index - b.Index
			})
			results = append(results, units...)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// intersect keeps the IDs of a that are also in b. Both are sorted ascending.
func intersect(a, b []core.ID) []core.ID {
	var out []core.ID
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func readUnits(tx *badger.Txn, ids []core.ID) ([]*core.Unit, error) {
	units := make([]*core.Unit, 0, len(ids))
	for _, id := range ids {
		unit, err := readValue(tx, makeUnitKey(id), storage.UnmarshalUnit)
		if err != nil {
			return nil, err
		}
		if unit != nil {
			units = append(units, unit)
		}
	}
	return units, nil
}
