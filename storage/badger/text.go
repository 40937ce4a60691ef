package badger

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

// TextRepository stores text metadata.
type TextRepository struct {
	session *Session
}

var _ storage.TextRepository = (*TextRepository)(nil)

// AddTexts adds one or more texts to storage.
func (r *TextRepository) AddTexts(ctx context.Context, texts ...*core.Text) ([]*core.Text, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	backend := r.session.backend
	err := backend.WithTx(func(tx *badger.Txn) error {
		for _, text := range texts {
			id, err := backend.NextID(textIDSeq)
			if err != nil {
				return err
			}
			text.Id = id
			text.InsertedAt = time.Now().UTC()
			text.UpdatedAt = text.InsertedAt
			if err := tx.Set(makeTextKey(text.Id), storage.MarshalText(text)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return texts, nil
}

// UpdateTexts updates existing texts.
func (r *TextRepository) UpdateTexts(ctx context.Context, texts ...*core.Text) ([]*core.Text, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		for _, text := range texts {
			key := makeTextKey(text.Id)
			old, err := readValue(tx, key, storage.UnmarshalText)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}
			text.InsertedAt = old.InsertedAt
			text.UpdatedAt = time.Now().UTC()
			if err := tx.Set(key, storage.MarshalText(text)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return texts, nil
}

// GetText retrieves a single text by ID.
func (r *TextRepository) GetText(ctx context.Context, id core.ID) (*core.Text, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	var result *core.Text
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readValue(tx, makeTextKey(id), storage.UnmarshalText)
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

// ListTexts retrieves every text ordered by ID.
func (r *TextRepository) ListTexts(ctx context.Context) ([]*core.Text, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	var results []*core.Text
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(textPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var text *core.Text
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				text, err = storage.UnmarshalText(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, text)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	// Primary keys are decimal, so key order is not numeric order
	slices.SortFunc(results, func(a, b *core.Text) int {
		return cmp.Compare(a.Id, b.Id)
	})
	return results, nil
}
