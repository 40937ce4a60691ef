package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

// FeatureRepository stores the feature vocabulary, indexed by token and by
// feature index within a (language, feature type) pair.
type FeatureRepository struct {
	session *Session
}

var _ storage.FeatureRepository = (*FeatureRepository)(nil)

// AddFeatures adds one or more features to storage.
func (r *FeatureRepository) AddFeatures(ctx context.Context, features ...*core.Feature) ([]*core.Feature, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	for _, feature := range features {
		if err := core.ValidateFeature(feature); err != nil {
			return nil, err
		}
	}
	backend := r.session.backend
	err := backend.WithTx(func(tx *badger.Txn) error {
		for _, feature := range features {
			tokenKey := makeFeatureTokenKey(feature.Language, feature.Feature, feature.Token)
			indexKey := makeFeatureIndexKey(feature.Language, feature.Feature, feature.Index)
			for _, key := range [][]byte{tokenKey, indexKey} {
				exists, err := keyExists(tx, key)
				if err != nil {
					return err
				}
				if exists {
					return fmt.Errorf("%w: %s %s %q (index %d)", storage.ErrDuplicateKey,
						feature.Language, feature.Feature, feature.Token, feature.Index)
				}
			}

			id, err := backend.NextID(featureIDSeq)
			if err != nil {
				return err
			}
			feature.Id = id
			if feature.Frequencies == nil {
				feature.Frequencies = make(map[core.ID]int)
			}
			if err := tx.Set(makeFeatureKey(feature.Id), storage.MarshalFeature(feature)); err != nil {
				return err
			}
			idValue := storage.MarshalID(feature.Id)
			if err := tx.Set(tokenKey, idValue); err != nil {
				return err
			}
			if err := tx.Set(indexKey, idValue); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return features, nil
}

// UpdateFeatures updates existing features. Token and index are immutable.
func (r *FeatureRepository) UpdateFeatures(ctx context.Context, features ...*core.Feature) ([]*core.Feature, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		for _, feature := range features {
			key := makeFeatureKey(feature.Id)
			old, err := readValue(tx, key, storage.UnmarshalFeature)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}
			old.Frequencies = feature.Frequencies
			if err := tx.Set(key, storage.MarshalFeature(old)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return features, nil
}

// FindFeaturesByToken looks up features of one type by token.
func (r *FeatureRepository) FindFeaturesByToken(ctx context.Context, language, feature string, tokens ...string) ([]*core.Feature, error) {
	keys := make([][]byte, len(tokens))
	for i, token := range tokens {
		keys[i] = makeFeatureTokenKey(language, feature, token)
	}
	return r.lookup(ctx, keys)
}

// GetFeaturesByIndex looks up features of one type by index.
func (r *FeatureRepository) GetFeaturesByIndex(ctx context.Context, language, feature string, indices ...int) ([]*core.Feature, error) {
	keys := make([][]byte, len(indices))
	for i, idx := range indices {
		keys[i] = makeFeatureIndexKey(language, feature, idx)
	}
	return r.lookup(ctx, keys)
}

// lookup resolves index keys to features, skipping keys that are absent.
func (r *FeatureRepository) lookup(ctx context.Context, keys [][]byte) ([]*core.Feature, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	var results []*core.Feature
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			id, err := readValue(tx, key, func(val []byte) (*core.ID, error) {
				id, err := storage.UnmarshalID(val)
				return &id, err
			})
			if err != nil {
				return err
			}
			if id == nil {
				continue
			}
			feature, err := readValue(tx, makeFeatureKey(*id), storage.UnmarshalFeature)
			if err != nil {
				return err
			}
			if feature != nil {
				results = append(results, feature)
			}
		}
		return nil
	}, false)
	return results, err
}

func keyExists(tx *badger.Txn, key []byte) (bool, error) {
	_, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
