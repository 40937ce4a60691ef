package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/matcher"
	"github.com/stephrichter/tesserae-v5/storage"
)

var (
	errDiskFull     = errors.New("disk full")
	errWriteTimeout = errors.New("write timed out")
)

// faultyConnector hands out sessions whose match inserts and Done updates
// can be made to fail.
type faultyConnector struct {
	inner          storage.Connector
	failMatches    bool
	failDoneUpdate bool
}

func (c *faultyConnector) Connect(ctx context.Context) (storage.Session, error) {
	sess, err := c.inner.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &faultySession{Session: sess, connector: c}, nil
}

type faultySession struct {
	storage.Session
	connector *faultyConnector
}

func (s *faultySession) Jobs() storage.JobRepository {
	return &faultyJobs{JobRepository: s.Session.Jobs(), fail: s.connector.failDoneUpdate}
}

func (s *faultySession) Matches() storage.MatchRepository {
	return &faultyMatches{MatchRepository: s.Session.Matches(), fail: s.connector.failMatches}
}

type faultyJobs struct {
	storage.JobRepository
	fail bool
}

func (r *faultyJobs) UpdateJob(ctx context.Context, job *core.Job) (*core.Job, error) {
	if r.fail && job.Status == core.JobStatusDone {
		return nil, errWriteTimeout
	}
	return r.JobRepository.UpdateJob(ctx, job)
}

type faultyMatches struct {
	storage.MatchRepository
	fail bool
}

func (r *faultyMatches) AddMatches(ctx context.Context, matches ...*core.Match) ([]*core.Match, error) {
	if r.fail {
		return nil, errDiskFull
	}
	return r.MatchRepository.AddMatches(ctx, matches...)
}

func oneMatch(_ context.Context, jobID core.ID, _ core.SearchParams) ([]*core.Match, error) {
	return []*core.Match{{JobID: jobID, SourceUnit: 1, TargetUnit: 2, Features: []int{0, 1}, Score: 1.5}}, nil
}

func TestRunner_PersistenceFaults(t *testing.T) {
	tests := []struct {
		name      string
		connector func(storage.Connector) *faultyConnector
		contains  []string
	}{
		{
			name: "storing matches fails",
			connector: func(inner storage.Connector) *faultyConnector {
				return &faultyConnector{inner: inner, failMatches: true}
			},
			contains: []string{"store matches", errDiskFull.Error()},
		},
		{
			name: "marking the job done fails",
			connector: func(inner storage.Connector) *faultyConnector {
				return &faultyConnector{inner: inner, failDoneUpdate: true}
			},
			contains: []string{"mark job done", errWriteTimeout.Error()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newTestBackend(t)
			sess := connect(t, backend)
			params := seedCorpus(t, sess)

			registry := matcher.NewRegistry()
			register(t, registry, "ok", oneMatch)
			monitor := newRecordingMonitor()
			pool := newTestPool(t, tt.connector(backend), registry, WithWorkers(1), WithMonitor(monitor))

			require.NoError(t, pool.Enqueue(context.Background(), "results", "ok", params))

			job := waitTerminal(t, sess, "results")
			assert.Equal(t, core.JobStatusFailed, job.Status)
			for _, s := range tt.contains {
				assert.Contains(t, job.Message, s)
			}
			assert.Contains(t, job.Message, "runner.go", "failure message carries a stack trace")
		})
	}
}

func TestRunner_NilMatch(t *testing.T) {
	backend := newTestBackend(t)
	sess := connect(t, backend)
	params := seedCorpus(t, sess)

	registry := matcher.NewRegistry()
	register(t, registry, "sloppy", func(ctx context.Context, jobID core.ID, params core.SearchParams) ([]*core.Match, error) {
		matches, _ := oneMatch(ctx, jobID, params)
		return append(matches, nil), nil
	})
	monitor := newRecordingMonitor()
	pool := newTestPool(t, backend, registry, WithWorkers(1), WithMonitor(monitor))

	require.NoError(t, pool.Enqueue(context.Background(), "results", "sloppy", params))

	job := waitTerminal(t, sess, "results")
	assert.Equal(t, core.JobStatusFailed, job.Status)
	assert.Contains(t, job.Message, ErrNilMatch.Error())
	assert.Contains(t, job.Message, "position 1 of 2")
	assert.NotContains(t, job.Message, "matcher panicked")

	matches, err := sess.Matches().GetMatchesByJob(context.Background(), job.Id)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
