package badger

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

// JobRepository stores search jobs with a results ID index and a
// fingerprint digest index.
type JobRepository struct {
	session *Session
}

var _ storage.JobRepository = (*JobRepository)(nil)

// AddJob inserts a new job.
func (r *JobRepository) AddJob(ctx context.Context, job *core.Job) (*core.Job, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	backend := r.session.backend

	id, err := backend.NextID(jobIDSeq)
	if err != nil {
		return nil, err
	}
	job.Id = id
	job.Parameters.Method.Stopwords = core.CanonicalStopwords(job.Parameters.Method.Stopwords)
	job.InsertedAt = time.Now().UTC()
	job.UpdatedAt = job.InsertedAt

	err = backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeJobKey(job.Id), storage.MarshalJob(job)); err != nil {
			return err
		}
		idValue := storage.MarshalID(job.Id)
		if err := tx.Set(makeJobResultsKey(job.ResultsID, job.Id), idValue); err != nil {
			return err
		}
		if err := tx.Set(makeJobFingerprintKey(job.Parameters.Digest(), job.Id), idValue); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateJob persists the status and message of an existing job.
// Parameters and results ID are immutable once inserted.
func (r *JobRepository) UpdateJob(ctx context.Context, job *core.Job) (*core.Job, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(job.Id)
		old, err := readValue(tx, key, storage.UnmarshalJob)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		if old.Status.Terminal() {
			return fmt.Errorf("%w: job %d is %s", storage.ErrImmutableRecord, old.Id, old.Status)
		}

		old.Status = job.Status
		old.Message = job.Message
		old.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalJob(old)); err != nil {
			return err
		}
		job.UpdatedAt = old.UpdatedAt
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob retrieves a single job by ID.
func (r *JobRepository) GetJob(ctx context.Context, id core.ID) (*core.Job, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	var result *core.Job
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readValue(tx, makeJobKey(id), storage.UnmarshalJob)
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

// GetJobByResultsID retrieves the most recently inserted job carrying resultsID.
func (r *JobRepository) GetJobByResultsID(ctx context.Context, resultsID string) (*core.Job, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	var result *core.Job
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := scanIDs(tx, makePartialJobResultsKey(resultsID))
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return storage.ErrNotFound
		}
		result, err = readValue(tx, makeJobKey(ids[len(ids)-1]), storage.UnmarshalJob)
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

// FindJobsByFingerprint scans the digest index and keeps the jobs whose
// parameters are Equal to params. Digest collisions are filtered out by
// the equality check.
func (r *JobRepository) FindJobsByFingerprint(ctx context.Context, params core.Parameters) ([]*core.Job, error) {
	if err := r.session.ready(ctx); err != nil {
		return nil, err
	}
	var results []*core.Job
	err := r.session.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := scanIDs(tx, makePartialJobFingerprintKey(params.Digest()))
		if err != nil {
			return err
		}
		for _, id := range ids {
			job, err := readValue(tx, makeJobKey(id), storage.UnmarshalJob)
			if err != nil {
				return err
			}
			if job != nil && job.Parameters.Equal(params) {
				results = append(results, job)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(results, func(a, b *core.Job) int {
		return cmp.Compare(a.Id, b.Id)
	})
	return results, nil
}

