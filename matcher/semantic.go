package matcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stephrichter/tesserae-v5/ai"
	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

const (
	// SemanticName is the registry name of the embedding matcher.
	SemanticName = "semantic"

	defaultSemanticThreshold = 0.8
	defaultSemanticBatchSize = 64
)

// Semantic pairs every source unit with every target unit whose embedded
// text has a cosine similarity of at least the threshold. The score is the
// similarity; Features lists the shared indices of the requested feature.
type Semantic struct {
	session   storage.Session
	embedder  ai.Embedder
	threshold float64
	batchSize int
	logger    *slog.Logger
}

var _ Matcher = (*Semantic)(nil)

// SemanticOption configures a Semantic matcher.
type SemanticOption func(*Semantic) error

// WithThreshold sets the minimum cosine similarity, in (0, 1].
func WithThreshold(threshold float64) SemanticOption {
	return func(s *Semantic) error {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("threshold must be in (0, 1], got %v", threshold)
		}
		s.threshold = threshold
		return nil
	}
}

// WithBatchSize sets how many unit texts are embedded per call.
func WithBatchSize(size int) SemanticOption {
	return func(s *Semantic) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		s.batchSize = size
		return nil
	}
}

// NewSemantic returns the embedding matcher bound to sess.
func NewSemantic(sess storage.Session, embedder ai.Embedder, opts ...SemanticOption) (*Semantic, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	s := &Semantic{
		session:   sess,
		embedder:  embedder,
		threshold: defaultSemanticThreshold,
		batchSize: defaultSemanticBatchSize,
		logger:    slog.Default().With("matcher", SemanticName),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Match implements Matcher.
func (s *Semantic) Match(ctx context.Context, jobID core.ID, params core.SearchParams) ([]*core.Match, error) {
	sourceUnits, err := s.session.Units().ListUnits(ctx, params.Source.ObjectID, params.Source.Units)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	targetUnits, err := s.session.Units().ListUnits(ctx, params.Target.ObjectID, params.Target.Units)
	if err != nil {
		return nil, fmt.Errorf("load target: %w", err)
	}

	sourceVectors, err := s.embed(ctx, sourceUnits)
	if err != nil {
		return nil, fmt.Errorf("embed source: %w", err)
	}
	targetVectors, err := s.embed(ctx, targetUnits)
	if err != nil {
		return nil, fmt.Errorf("embed target: %w", err)
	}

	none := map[int]bool{}
	var matches []*core.Match
	for i, su := range sourceUnits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j, tu := range targetUnits {
			sim, err := ai.CosineSimilarity(sourceVectors[i], targetVectors[j])
			if err != nil {
				return nil, err
			}
			if sim < s.threshold {
				continue
			}
			matches = append(matches, &core.Match{
				JobID:      jobID,
				SourceUnit: su.Id,
				TargetUnit: tu.Id,
				Features:   intersectSorted(unitIndices(su, params.Feature, none), unitIndices(tu, params.Feature, none)),
				Score:      sim,
			})
		}
	}

	s.logger.Debug("matched units", "job", jobID, "matches", len(matches))
	return matches, nil
}

func (s *Semantic) embed(ctx context.Context, units []*core.Unit) ([][]float32, error) {
	vectors := make([][]float32, 0, len(units))
	for start := 0; start < len(units); start += s.batchSize {
		end := min(start+s.batchSize, len(units))
		texts := make([]string, 0, end-start)
		for _, unit := range units[start:end] {
			texts = append(texts, unit.Text())
		}
		batch, err := s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func intersectSorted(a, b []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
