package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

// MatchRepository stores matcher results indexed by job.
type MatchRepository struct {
	session *Session
}

var _ storage.MatchRepository = (*MatchRepository)(nil)

// AddMatches bulk inserts matches through a write batch.
func (r *MatchRepository) AddMatches(ctx context.Context, matches ...*core.Match) ([]*core.Match, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return matches, nil
	}
	backend := r.session.backend
	err := backend.WithWriteBatch(func(wb *badger.WriteBatch) error {
		for _, match := range matches {
			id, err := backend.NextID(matchIDSeq)
			if err != nil {
				return err
			}
			match.Id = id
			if err := wb.Set(makeMatchKey(match.Id), storage.MarshalMatch(match)); err != nil {
				return err
			}
			if err := wb.Set(makeMatchJobKey(match.JobID, match.Id), storage.MarshalID(match.Id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// GetMatchesByJob retrieves all matches of a job in insertion order.
func (r *MatchRepository) GetMatchesByJob(ctx context.Context, jobID core.ID) ([]*core.Match, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	var results []*core.Match
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := scanIDs(tx, makePartialMatchJobKey(jobID))
		if err != nil {
			return err
		}
		for _, id := range ids {
			match, err := readValue(tx, makeMatchKey(id), storage.UnmarshalMatch)
			if err != nil {
				return err
			}
			if match != nil {
				results = append(results, match)
			}
		}
		return nil
	}, false)
	return results, err
}
