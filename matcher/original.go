package matcher

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

// OriginalName is the registry name of the shared-feature matcher.
const OriginalName = "original"

// Original pairs source and target units that share at least two
// non-stopword features and scores each pair by the rarity of the shared
// features over the distance between them:
//
//	score = ln((Σ 1/f(source token) + Σ 1/f(target token)) / (d_source + d_target))
//
// where f is the relative frequency of a token's rarest shared feature and
// d is the distance, in tokens and inclusive, between either the first and
// last matched tokens ("span") or the two rarest matched tokens ("frequency").
type Original struct {
	session storage.Session
	logger  *slog.Logger
}

var _ Matcher = (*Original)(nil)

// NewOriginal returns the shared-feature matcher bound to sess.
func NewOriginal(sess storage.Session) *Original {
	return &Original{
		session: sess,
		logger:  slog.Default().With("matcher", OriginalName),
	}
}

// side holds one half of a comparison.
type side struct {
	text  *core.Text
	units []*core.Unit
	freq  map[int]float64 // feature index -> relative frequency
}

// Match implements Matcher.
func (m *Original) Match(ctx context.Context, jobID core.ID, params core.SearchParams) ([]*core.Match, error) {
	source, err := m.load(ctx, params.Source)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	target, err := m.load(ctx, params.Target)
	if err != nil {
		return nil, fmt.Errorf("load target: %w", err)
	}

	stop, err := m.stopIndices(ctx, source.text.Language, params.Feature, params.Stopwords)
	if err != nil {
		return nil, err
	}
	if err := m.frequencies(ctx, source, params); err != nil {
		return nil, err
	}
	if err := m.frequencies(ctx, target, params); err != nil {
		return nil, err
	}

	// Inverted index over the target: feature index -> positions in target.units
	postings := make(map[int][]int)
	targetIndices := make([][]int, len(target.units))
	for i, unit := range target.units {
		targetIndices[i] = unitIndices(unit, params.Feature, stop)
		for _, idx := range targetIndices[i] {
			postings[idx] = append(postings[idx], i)
		}
	}

	var matches []*core.Match
	for _, su := range source.units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		shared := make(map[int][]int)
		for _, idx := range unitIndices(su, params.Feature, stop) {
			for _, ti := range postings[idx] {
				shared[ti] = append(shared[ti], idx)
			}
		}

		targets := make([]int, 0, len(shared))
		for ti, indices := range shared {
			if len(indices) >= 2 {
				targets = append(targets, ti)
			}
		}
		slices.Sort(targets)

		for _, ti := range targets {
			indices := shared[ti]
			tu := target.units[ti]

			sumSource, distSource := weigh(su, params.Feature, indices, source.freq, params.DistanceBasis)
			sumTarget, distTarget := weigh(tu, params.Feature, indices, target.freq, params.DistanceBasis)
			if params.MaxDistance > 0 && (distSource > params.MaxDistance || distTarget > params.MaxDistance) {
				continue
			}

			matches = append(matches, &core.Match{
				JobID:      jobID,
				SourceUnit: su.Id,
				TargetUnit: tu.Id,
				Features:   indices,
				Score:      math.Log((sumSource + sumTarget) / float64(distSource+distTarget)),
			})
		}
	}

	m.logger.Debug("matched units",
		"job", jobID,
		"source_units", len(source.units),
		"target_units", len(target.units),
		"matches", len(matches))
	return matches, nil
}

func (m *Original) load(ctx context.Context, sel core.UnitSelector) (*side, error) {
	text, err := m.session.Texts().GetText(ctx, sel.ObjectID)
	if err != nil {
		return nil, err
	}
	units, err := m.session.Units().ListUnits(ctx, sel.ObjectID, sel.Units)
	if err != nil {
		return nil, err
	}
	return &side{text: text, units: units}, nil
}

func (m *Original) stopIndices(ctx context.Context, language, feature string, stopwords []string) (map[int]bool, error) {
	stop := make(map[int]bool, len(stopwords))
	if len(stopwords) == 0 {
		return stop, nil
	}
	found, err := m.session.Features().FindFeaturesByToken(ctx, language, feature, stopwords...)
	if err != nil {
		return nil, fmt.Errorf("resolve stopwords: %w", err)
	}
	for _, f := range found {
		stop[f.Index] = true
	}
	return stop, nil
}

// frequencies fills s.freq for every feature index present in s.units.
// Indices without stored counts fall back to counts over the loaded units.
func (m *Original) frequencies(ctx context.Context, s *side, params core.SearchParams) error {
	local := make(map[int]int)
	localTokens := 0
	for _, unit := range s.units {
		for _, tok := range unit.Tokens {
			localTokens++
			for _, idx := range tok.Features[params.Feature] {
				local[idx]++
			}
		}
	}

	indices := make([]int, 0, len(local))
	for idx := range local {
		indices = append(indices, idx)
	}
	slices.Sort(indices)

	features, err := m.session.Features().GetFeaturesByIndex(ctx, s.text.Language, params.Feature, indices...)
	if err != nil {
		return fmt.Errorf("load frequencies: %w", err)
	}

	var count func(*core.Feature) int
	var total int
	if params.FreqBasis == core.FreqBasisCorpus {
		texts, err := m.session.Texts().ListTexts(ctx)
		if err != nil {
			return fmt.Errorf("load corpus size: %w", err)
		}
		for _, t := range texts {
			if t.Language == s.text.Language {
				total += t.TokenCount
			}
		}
		count = (*core.Feature).TotalFrequency
	} else {
		total = s.text.TokenCount
		count = func(f *core.Feature) int { return f.Frequency(s.text.Id) }
	}

	s.freq = make(map[int]float64, len(local))
	for idx, n := range local {
		s.freq[idx] = float64(n) / float64(max(localTokens, 1))
	}
	if total <= 0 {
		return nil
	}
	for _, f := range features {
		if n := count(f); n > 0 {
			s.freq[f.Index] = float64(n) / float64(total)
		}
	}
	return nil
}

// unitIndices returns the distinct non-stopword feature indices of a unit.
func unitIndices(unit *core.Unit, feature string, stop map[int]bool) []int {
	var out []int
	for _, tok := range unit.Tokens {
		for _, idx := range tok.Features[feature] {
			if !stop[idx] {
				out = append(out, idx)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

type matchedToken struct {
	pos  int
	freq float64
}

// weigh returns Σ 1/f over the unit's tokens realizing a shared index and
// the distance between matched tokens.
func weigh(unit *core.Unit, feature string, shared []int, freq map[int]float64, basis string) (float64, int) {
	var tokens []matchedToken
	for pos, tok := range unit.Tokens {
		best := math.Inf(1)
		for _, idx := range tok.Features[feature] {
			if _, ok := slices.BinarySearch(shared, idx); ok && freq[idx] < best {
				best = freq[idx]
			}
		}
		if !math.IsInf(best, 1) {
			tokens = append(tokens, matchedToken{pos: pos, freq: best})
		}
	}

	var sum float64
	for _, t := range tokens {
		if t.freq > 0 {
			sum += 1 / t.freq
		}
	}
	return sum, distance(tokens, basis)
}

func distance(tokens []matchedToken, basis string) int {
	if len(tokens) < 2 {
		return 1
	}
	if basis == core.DistanceBasisFrequency {
		rarest := slices.Clone(tokens)
		slices.SortStableFunc(rarest, func(a, b matchedToken) int {
			return cmp.Compare(a.freq, b.freq)
		})
		d := rarest[0].pos - rarest[1].pos
		if d < 0 {
			d = -d
		}
		return d + 1
	}
	return tokens[len(tokens)-1].pos - tokens[0].pos + 1
}
