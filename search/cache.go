package search

import (
	"context"
	"fmt"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

// CacheResolver finds a previous job with the same fingerprint whose
// results can be reused.
type CacheResolver struct {
	jobs storage.JobRepository
}

// NewCacheResolver returns a resolver reading from jobs.
func NewCacheResolver(jobs storage.JobRepository) (*CacheResolver, error) {
	if jobs == nil {
		return nil, ErrJobRepositoryRequired
	}
	return &CacheResolver{jobs: jobs}, nil
}

// Resolve returns the results ID of the earliest job matching the
// fingerprint. Only that job is considered: it is a hit unless its current
// status is Failed. A Running or Initialized job is a hit, so callers may be
// handed results that are still being produced.
//
// Store faults are returned to the caller rather than reported as a miss.
func (c *CacheResolver) Resolve(ctx context.Context, source, target core.UnitSelector, method core.Method) (string, bool, error) {
	params := core.Parameters{Source: source, Target: target, Method: method}
	candidates, err := c.jobs.FindJobsByFingerprint(ctx, params)
	if err != nil {
		return "", false, fmt.Errorf("find jobs by fingerprint: %w", err)
	}
	if len(candidates) == 0 {
		return "", false, nil
	}

	job, err := c.jobs.GetJob(ctx, candidates[0].Id)
	if err != nil {
		return "", false, fmt.Errorf("read job %d: %w", candidates[0].Id, err)
	}
	if job.Status == core.JobStatusFailed {
		return "", false, nil
	}
	return job.ResultsID, true, nil
}
