package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/matcher"
	"github.com/stephrichter/tesserae-v5/storage"
)

// Searcher submits searches to a Pool, answering from the fingerprint
// cache when an equivalent search already ran.
type Searcher struct {
	pool    *Pool
	session storage.Session
	cache   *CacheResolver
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewSearcher starts a pool and opens a session for cache lookups and
// result queries. Options are applied to the pool.
func NewSearcher(connector storage.Connector, registry *matcher.Registry, opts ...PoolOption) (*Searcher, error) {
	if connector == nil {
		return nil, ErrConnectorRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	sess, err := connector.Connect(context.Background())
	if err != nil {
		return nil, fmt.Errorf("connect query session: %w", err)
	}
	pool, err := NewPool(connector, registry, opts...)
	if err != nil {
		sess.Close()
		return nil, err
	}
	cache, err := NewCacheResolver(sess.Jobs())
	if err != nil {
		pool.Shutdown()
		sess.Close()
		return nil, err
	}

	return &Searcher{
		pool:    pool,
		session: sess,
		cache:   cache,
		logger:  pool.logger,
	}, nil
}

// Pool returns the underlying pool.
func (s *Searcher) Pool() *Pool {
	return s.pool
}

// Submit returns the results ID of an equivalent earlier search if one is
// reusable, with cached set. Otherwise it enqueues a new search under a fresh
// results ID. Identical searches submitted concurrently are not merged.
func (s *Searcher) Submit(ctx context.Context, algorithm string, params core.SearchParams) (resultsID string, cached bool, err error) {
	fingerprint := params.Fingerprint(algorithm)
	resultsID, cached, err = s.cache.Resolve(ctx, fingerprint.Source, fingerprint.Target, fingerprint.Method)
	if err != nil {
		return "", false, err
	}
	if cached {
		s.logger.Debug("search served from cache", "results_id", resultsID, "algorithm", algorithm)
		return resultsID, true, nil
	}

	resultsID = uuid.NewString()
	if err := s.pool.Enqueue(ctx, resultsID, algorithm, params); err != nil {
		return "", false, err
	}
	s.logger.Debug("search enqueued", "results_id", resultsID, "algorithm", algorithm)
	return resultsID, false, nil
}

// Status returns the latest job recorded under resultsID.
// Returns storage.ErrNotFound while no worker has claimed the request.
func (s *Searcher) Status(ctx context.Context, resultsID string) (*core.Job, error) {
	return s.session.Jobs().GetJobByResultsID(ctx, resultsID)
}

// Results returns the matches of a Done job.
// Returns ErrResultsNotReady if the job has not reached Done.
func (s *Searcher) Results(ctx context.Context, resultsID string) ([]*core.Match, error) {
	job, err := s.Status(ctx, resultsID)
	if err != nil {
		return nil, err
	}
	if job.Status != core.JobStatusDone {
		return nil, fmt.Errorf("%w: job %d is %s", ErrResultsNotReady, job.Id, job.Status)
	}
	return s.session.Matches().GetMatchesByJob(ctx, job.Id)
}

// Bigrams runs FindBigrams against the query session.
func (s *Searcher) Bigrams(ctx context.Context, q BigramQuery) ([]*core.Unit, error) {
	return FindBigrams(ctx, s.session.Units(), q)
}

// Close shuts the pool down and closes the query session.
func (s *Searcher) Close() error {
	s.closeOnce.Do(func() {
		s.pool.Shutdown()
		s.closeErr = s.session.Close()
	})
	return s.closeErr
}
