package badger

import (
	"context"
	"sync/atomic"

	"github.com/stephrichter/tesserae-v5/storage"
)

// Session is a handle on a Backend. Closing a session leaves the
// backend and other sessions untouched.
type Session struct {
	backend *Backend
	closed  atomic.Bool

	jobs     *JobRepository
	matches  *MatchRepository
	units    *UnitRepository
	texts    *TextRepository
	features *FeatureRepository
}

var _ storage.Session = (*Session)(nil)

func newSession(backend *Backend) *Session {
	s := &Session{backend: backend}
	s.jobs = &JobRepository{session: s}
	s.matches = &MatchRepository{session: s}
	s.units = &UnitRepository{session: s}
	s.texts = &TextRepository{session: s}
	s.features = &FeatureRepository{session: s}
	return s
}

func (s *Session) Jobs() storage.JobRepository         { return s.jobs }
func (s *Session) Matches() storage.MatchRepository    { return s.matches }
func (s *Session) Units() storage.UnitRepository       { return s.units }
func (s *Session) Texts() storage.TextRepository       { return s.texts }
func (s *Session) Features() storage.FeatureRepository { return s.features }

// Close marks the session closed.
func (s *Session) Close() error {
	s.closed.Store(true)
	return nil
}

// ready reports why an operation cannot run, if it cannot.
func (s *Session) ready(ctx context.Context) error {
	if s.closed.Load() || s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}
