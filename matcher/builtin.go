package matcher

import (
	"context"
	"log/slog"

	"github.com/stephrichter/tesserae-v5/ai"
	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

// RegisterBuiltins registers the shipped matchers. The semantic matcher is
// only registered when an embedder is available.
func RegisterBuiltins(r *Registry, embedder ai.Embedder, opts ...SemanticOption) error {
	err := r.Register(OriginalName, func(sess storage.Session) Matcher {
		return NewOriginal(sess)
	})
	if err != nil {
		return err
	}
	if embedder == nil {
		slog.Debug("no embedder configured, semantic matcher disabled")
		return nil
	}
	if _, err := NewSemantic(nil, embedder, opts...); err != nil {
		return err
	}
	return r.Register(SemanticName, func(sess storage.Session) Matcher {
		m, err := NewSemantic(sess, embedder, opts...)
		if err != nil {
			return failing{err: err}
		}
		return m
	})
}

// failing is a matcher whose every run fails with err.
type failing struct {
	err error
}

func (f failing) Match(_ context.Context, _ core.ID, _ core.SearchParams) ([]*core.Match, error) {
	return nil, f.err
}
