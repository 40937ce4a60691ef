package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/matcher"
	"github.com/stephrichter/tesserae-v5/storage"
)

// PanicError is a panic recovered while a job was executing.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("matcher panicked: %v", e.Value)
}

// Format prints the recovered goroutine stack with %+v.
func (e *PanicError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s\n%s", e.Error(), e.Stack)
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// expectedFault reports whether err is a domain fault rather than a defect.
func expectedFault(err error) bool {
	return errors.Is(err, matcher.ErrUnknownAlgorithm) || errors.Is(err, core.ErrInvalidSearchParams)
}

// doneMessage is the message stored on a job that completed successfully.
func doneMessage(elapsed time.Duration) string {
	return "Done in " + strconv.FormatFloat(elapsed.Seconds(), 'f', -1, 64) + " seconds"
}

// run executes one claimed request: it creates the job, runs the matcher,
// stores its results and records the terminal status.
func (p *Pool) run(ctx context.Context, sess storage.Session, logger *slog.Logger, req request) {
	start := time.Now()
	logger = logger.With("results_id", req.resultsID, "algorithm", req.algorithm)

	job, err := sess.Jobs().AddJob(ctx, core.NewJob(req.resultsID, req.params.Fingerprint(req.algorithm)))
	if err != nil {
		logger.Error("failed to create job", "err", err)
		p.monitor.Failed(req.algorithm, err, false)
		return
	}
	logger = logger.With("job", job.Id)
	p.monitor.Started(req.algorithm)

	count, err := p.execute(ctx, sess, job, req)
	if err != nil {
		p.fail(ctx, sess, logger, job, req.algorithm, err)
		return
	}

	elapsed := time.Since(start)
	done := *job
	if err := done.Transition(core.JobStatusDone, doneMessage(elapsed)); err != nil {
		p.fail(ctx, sess, logger, job, req.algorithm, err)
		return
	}
	if _, err := sess.Jobs().UpdateJob(ctx, &done); err != nil {
		p.fail(ctx, sess, logger, job, req.algorithm, fmt.Errorf("mark job done: %w", err))
		return
	}

	logger.Info("job done", "matches", count, "elapsed", elapsed)
	p.monitor.Finished(req.algorithm, elapsed)
}

// execute resolves the matcher and runs it. A panic inside is returned as a *PanicError.
func (p *Pool) execute(ctx context.Context, sess storage.Session, job *core.Job, req request) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	m, err := p.registry.New(req.algorithm, sess)
	if err != nil {
		return 0, err
	}
	if err := core.ValidateSearchParams(&req.params); err != nil {
		return 0, err
	}

	if err := job.Transition(core.JobStatusRun, ""); err != nil {
		return 0, err
	}
	if _, err := sess.Jobs().UpdateJob(ctx, job); err != nil {
		return 0, fmt.Errorf("mark job running: %w", err)
	}

	matches, err := m.Match(ctx, job.Id, req.params)
	if err != nil {
		return 0, err
	}
	if i := slices.IndexFunc(matches, func(m *core.Match) bool { return m == nil }); i >= 0 {
		return 0, fmt.Errorf("%w at position %d of %d", ErrNilMatch, i, len(matches))
	}
	if len(matches) > 0 {
		if _, err := sess.Matches().AddMatches(ctx, matches...); err != nil {
			return 0, fmt.Errorf("store matches: %w", err)
		}
	}
	return len(matches), nil
}

// fail records cause as the job's terminal fault.
func (p *Pool) fail(ctx context.Context, sess storage.Session, logger *slog.Logger, job *core.Job, algorithm string, cause error) {
	expected := expectedFault(cause)
	if expected {
		logger.Warn("job rejected", "err", cause)
	} else {
		logger.Error("job failed", "err", cause)
	}
	p.monitor.Failed(algorithm, cause, expected)

	failed := *job
	if err := failed.Transition(core.JobStatusFailed, fmt.Sprintf("%+v", pkgerrors.WithStack(cause))); err != nil {
		logger.Error("cannot mark job failed", "status", job.Status, "err", err)
		return
	}
	if _, err := sess.Jobs().UpdateJob(ctx, &failed); err != nil {
		logger.Error("failed to persist job failure", "err", err)
	}
}
