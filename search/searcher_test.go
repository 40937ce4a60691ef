package search

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/matcher"
	"github.com/stephrichter/tesserae-v5/storage"
)

func newTestSearcher(t *testing.T, connector storage.Connector, opts ...PoolOption) *Searcher {
	t.Helper()
	registry := matcher.NewRegistry()
	require.NoError(t, matcher.RegisterBuiltins(registry, nil))
	searcher, err := NewSearcher(connector, registry, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { searcher.Close() })
	return searcher
}

func TestNewSearcher(t *testing.T) {
	backend := newTestBackend(t)
	registry := matcher.NewRegistry()

	t.Run("valid configuration", func(t *testing.T) {
		searcher := newTestSearcher(t, backend, WithWorkers(1))
		assert.NotNil(t, searcher.Pool())
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher := newTestSearcher(t, backend, WithWorkers(1), WithLogger(nil))
		assert.Equal(t, slog.Default(), searcher.logger)
	})

	t.Run("nil connector", func(t *testing.T) {
		_, err := NewSearcher(nil, registry)
		assert.Equal(t, ErrConnectorRequired, err)
	})

	t.Run("nil registry", func(t *testing.T) {
		_, err := NewSearcher(backend, nil)
		assert.Equal(t, ErrRegistryRequired, err)
	})

	t.Run("pool failure closes the query session", func(t *testing.T) {
		connector := &countingConnector{inner: backend, allow: 1}
		_, err := NewSearcher(connector, registry, WithWorkers(1))
		assert.ErrorIs(t, err, ErrWorkerBootstrap)
		require.Len(t, connector.opened, 1)
		assert.True(t, connector.opened[0].closed)
	})
}

func TestSearcher_SubmitAndResults(t *testing.T) {
	backend := newTestBackend(t)
	sess := connect(t, backend)
	params := seedCorpus(t, sess)
	searcher := newTestSearcher(t, backend, WithWorkers(2))
	ctx := context.Background()

	resultsID, cached, err := searcher.Submit(ctx, matcher.OriginalName, params)
	require.NoError(t, err)
	assert.False(t, cached)
	_, err = uuid.Parse(resultsID)
	assert.NoError(t, err)

	job := waitTerminal(t, sess, resultsID)
	require.Equal(t, core.JobStatusDone, job.Status)

	status, err := searcher.Status(ctx, resultsID)
	require.NoError(t, err)
	assert.Equal(t, job.Id, status.Id)

	matches, err := searcher.Results(ctx, resultsID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, job.Id, matches[0].JobID)

	// an empty stopword list has the same fingerprint as none
	again := params
	again.Stopwords = []string{}
	cachedID, cached, err := searcher.Submit(ctx, matcher.OriginalName, again)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, resultsID, cachedID)
}

func TestSearcher_FailedJobIsResubmitted(t *testing.T) {
	backend := newTestBackend(t)
	sess := connect(t, backend)
	params := seedCorpus(t, sess)
	searcher := newTestSearcher(t, backend, WithWorkers(1))
	ctx := context.Background()

	first, _, err := searcher.Submit(ctx, "nonexistent", params)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, waitTerminal(t, sess, first).Status)

	_, err = searcher.Results(ctx, first)
	assert.ErrorIs(t, err, ErrResultsNotReady)

	second, cached, err := searcher.Submit(ctx, "nonexistent", params)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotEqual(t, first, second)
}

func TestSearcher_StatusUnknown(t *testing.T) {
	searcher := newTestSearcher(t, newTestBackend(t), WithWorkers(1))

	_, err := searcher.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = searcher.Results(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSearcher_Bigrams(t *testing.T) {
	backend := newTestBackend(t)
	sess := connect(t, backend)
	params := seedCorpus(t, sess)
	searcher := newTestSearcher(t, backend, WithWorkers(1))

	units, err := searcher.Bigrams(context.Background(), BigramQuery{
		Word1:    0,
		Word2:    1,
		Feature:  core.FeatureLemmata,
		UnitType: core.UnitTypeLine,
		TextIDs:  []core.ID{params.Source.ObjectID, params.Target.ObjectID},
	})
	require.NoError(t, err)
	assert.Len(t, units, 2)
}

func TestSearcher_Close(t *testing.T) {
	backend := newTestBackend(t)
	sess := connect(t, backend)
	params := seedCorpus(t, sess)

	registry := matcher.NewRegistry()
	searcher, err := NewSearcher(backend, registry, WithWorkers(1))
	require.NoError(t, err)

	require.NoError(t, searcher.Close())
	require.NoError(t, searcher.Close())

	_, _, err = searcher.Submit(context.Background(), matcher.OriginalName, params)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, searcher.Pool().Enqueue(context.Background(), "x", matcher.OriginalName, params), ErrPoolClosed)
}
