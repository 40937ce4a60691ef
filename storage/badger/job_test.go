package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

func testParams(stopwords ...string) core.Parameters {
	return core.Parameters{
		Source: core.UnitSelector{ObjectID: 1, Units: core.UnitTypeLine},
		Target: core.UnitSelector{ObjectID: 2, Units: core.UnitTypeLine},
		Method: core.Method{
			Name:          "original",
			Feature:       core.FeatureLemmata,
			Stopwords:     stopwords,
			FreqBasis:     core.FreqBasisTexts,
			MaxDistance:   10,
			DistanceBasis: core.DistanceBasisFrequency,
		},
	}
}

func TestJobRepository_AddAndGet(t *testing.T) {
	_, sess := newTestSession(t)
	ctx := context.Background()
	jobs := sess.Jobs()

	job, err := jobs.AddJob(ctx, core.NewJob("results-1", testParams("b", "a")))
	require.NoError(t, err)
	require.NotZero(t, job.Id)
	assert.False(t, job.InsertedAt.IsZero())
	assert.Equal(t, []string{"a", "b"}, job.Parameters.Method.Stopwords)

	got, err := jobs.GetJob(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusInit, got.Status)
	assert.Empty(t, got.Message)
	assert.Equal(t, "results-1", got.ResultsID)

	byResults, err := jobs.GetJobByResultsID(ctx, "results-1")
	require.NoError(t, err)
	assert.Equal(t, job.Id, byResults.Id)

	_, err = jobs.GetJob(ctx, job.Id+100)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = jobs.GetJobByResultsID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestJobRepository_GetJobByResultsID_Latest(t *testing.T) {
	_, sess := newTestSession(t)
	ctx := context.Background()
	jobs := sess.Jobs()

	_, err := jobs.AddJob(ctx, core.NewJob("shared", testParams()))
	require.NoError(t, err)
	second, err := jobs.AddJob(ctx, core.NewJob("shared", testParams("et")))
	require.NoError(t, err)

	got, err := jobs.GetJobByResultsID(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, second.Id, got.Id)
}

func TestJobRepository_GetJobByResultsID_ExactMatch(t *testing.T) {
	_, sess := newTestSession(t)
	ctx := context.Background()
	jobs := sess.Jobs()

	batch, err := jobs.AddJob(ctx, core.NewJob("batch", testParams()))
	require.NoError(t, err)
	_, err = jobs.AddJob(ctx, core.NewJob("batch:2", testParams("et")))
	require.NoError(t, err)
	_, err = jobs.AddJob(ctx, core.NewJob("batch2", testParams("in")))
	require.NoError(t, err)

	got, err := jobs.GetJobByResultsID(ctx, "batch")
	require.NoError(t, err)
	assert.Equal(t, batch.Id, got.Id)
	assert.Equal(t, "batch", got.ResultsID)

	got, err = jobs.GetJobByResultsID(ctx, "batch:2")
	require.NoError(t, err)
	assert.Equal(t, "batch:2", got.ResultsID)

	_, err = jobs.GetJobByResultsID(ctx, "bat")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestJobRepository_Update(t *testing.T) {
	_, sess := newTestSession(t)
	ctx := context.Background()
	jobs := sess.Jobs()

	job, err := jobs.AddJob(ctx, core.NewJob("results-1", testParams()))
	require.NoError(t, err)

	require.NoError(t, job.Transition(core.JobStatusRun, ""))
	_, err = jobs.UpdateJob(ctx, job)
	require.NoError(t, err)

	require.NoError(t, job.Transition(core.JobStatusDone, "Done in 0.5 seconds"))
	_, err = jobs.UpdateJob(ctx, job)
	require.NoError(t, err)

	got, err := jobs.GetJob(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusDone, got.Status)
	assert.Equal(t, "Done in 0.5 seconds", got.Message)
	assert.False(t, got.UpdatedAt.Before(got.InsertedAt))

	// Terminal records are immutable
	got.Status = core.JobStatusFailed
	_, err = jobs.UpdateJob(ctx, got)
	assert.ErrorIs(t, err, storage.ErrImmutableRecord)

	_, err = jobs.UpdateJob(ctx, &core.Job{Id: job.Id + 100, Status: core.JobStatusRun})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestJobRepository_FindJobsByFingerprint(t *testing.T) {
	_, sess := newTestSession(t)
	ctx := context.Background()
	jobs := sess.Jobs()

	first, err := jobs.AddJob(ctx, core.NewJob("r1", testParams("a", "b")))
	require.NoError(t, err)
	second, err := jobs.AddJob(ctx, core.NewJob("r2", testParams("b", "a")))
	require.NoError(t, err)
	_, err = jobs.AddJob(ctx, core.NewJob("r3", testParams("a")))
	require.NoError(t, err)

	other := testParams("a", "b")
	other.Method.MaxDistance = 11
	_, err = jobs.AddJob(ctx, core.NewJob("r4", other))
	require.NoError(t, err)

	found, err := jobs.FindJobsByFingerprint(ctx, testParams("b", "a", "a"))
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, first.Id, found[0].Id)
	assert.Equal(t, second.Id, found[1].Id)

	found, err = jobs.FindJobsByFingerprint(ctx, testParams("c"))
	require.NoError(t, err)
	assert.Empty(t, found)
}
