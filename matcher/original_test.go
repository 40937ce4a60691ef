package matcher

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
	"github.com/stephrichter/tesserae-v5/storage/badger"
)

// fixture is a two-text corpus with lemmata indices
// a=0 b=1 c=2 d=3 x=4.
type fixture struct {
	sess    storage.Session
	source  *core.Text
	target  *core.Text
	sources []*core.Unit
	targets []*core.Unit
}

func lemma(display string, idx ...int) core.Token {
	return core.Token{Display: display, Features: map[string][]int{core.FeatureLemmata: idx}}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, err := badger.NewMemoryBackend()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	ctx := context.Background()
	sess, err := backend.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	texts, err := sess.Texts().AddTexts(ctx,
		&core.Text{Title: "source", Language: "latin"},
		&core.Text{Title: "target", Language: "latin"},
	)
	require.NoError(t, err)
	f := &fixture{sess: sess, source: texts[0], target: texts[1]}

	f.sources, err = sess.Units().AddUnits(ctx,
		&core.Unit{TextID: f.source.Id, UnitType: core.UnitTypeLine, Index: 0, Tokens: []core.Token{lemma("a", 0), lemma("b", 1), lemma("c", 2)}},
		&core.Unit{TextID: f.source.Id, UnitType: core.UnitTypeLine, Index: 1, Tokens: []core.Token{lemma("a", 0), lemma("d", 3)}},
	)
	require.NoError(t, err)
	f.targets, err = sess.Units().AddUnits(ctx,
		&core.Unit{TextID: f.target.Id, UnitType: core.UnitTypeLine, Index: 0, Tokens: []core.Token{lemma("x", 4), lemma("a", 0), lemma("b", 1)}},
		&core.Unit{TextID: f.target.Id, UnitType: core.UnitTypeLine, Index: 1, Tokens: []core.Token{lemma("a", 0), lemma("d", 3)}},
		&core.Unit{TextID: f.target.Id, UnitType: core.UnitTypeLine, Index: 2, Tokens: []core.Token{lemma("b", 1)}},
	)
	require.NoError(t, err)

	var features []*core.Feature
	for i, token := range []string{"a", "b", "c", "d", "x"} {
		features = append(features, &core.Feature{Language: "latin", Feature: core.FeatureLemmata, Token: token, Index: i})
	}
	_, err = sess.Features().AddFeatures(ctx, features...)
	require.NoError(t, err)
	return f
}

func (f *fixture) params() core.SearchParams {
	return core.SearchParams{
		Source:        core.UnitSelector{ObjectID: f.source.Id, Units: core.UnitTypeLine},
		Target:        core.UnitSelector{ObjectID: f.target.Id, Units: core.UnitTypeLine},
		Feature:       core.FeatureLemmata,
		FreqBasis:     core.FreqBasisTexts,
		DistanceBasis: core.DistanceBasisSpan,
	}
}

func TestOriginal_SharedFeatures(t *testing.T) {
	f := newFixture(t)
	matches, err := NewOriginal(f.sess).Match(context.Background(), 42, f.params())
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, core.ID(42), matches[0].JobID)
	assert.Equal(t, f.sources[0].Id, matches[0].SourceUnit)
	assert.Equal(t, f.targets[0].Id, matches[0].TargetUnit)
	assert.Equal(t, []int{0, 1}, matches[0].Features)

	assert.Equal(t, f.sources[1].Id, matches[1].SourceUnit)
	assert.Equal(t, f.targets[1].Id, matches[1].TargetUnit)
	assert.Equal(t, []int{0, 3}, matches[1].Features)

	// No stored counts: frequencies come from the loaded units.
	// source a=2/5 b=1/5, target a=2/6 b=2/6, both spans are 2.
	expected := math.Log((1/0.4 + 1/0.2 + 3 + 3) / 4)
	assert.InDelta(t, expected, matches[0].Score, 1e-9)
}

func TestOriginal_Stopwords(t *testing.T) {
	f := newFixture(t)
	params := f.params()
	params.Stopwords = []string{"a"}

	matches, err := NewOriginal(f.sess).Match(context.Background(), 1, params)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestOriginal_MaxDistance(t *testing.T) {
	f := newFixture(t)
	params := f.params()

	params.MaxDistance = 1
	matches, err := NewOriginal(f.sess).Match(context.Background(), 1, params)
	require.NoError(t, err)
	assert.Empty(t, matches)

	params.MaxDistance = 2
	params.DistanceBasis = core.DistanceBasisFrequency
	matches, err = NewOriginal(f.sess).Match(context.Background(), 1, params)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestOriginal_StoredFrequencies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.source.TokenCount = 10
	_, err := f.sess.Texts().UpdateTexts(ctx, f.source)
	require.NoError(t, err)

	found, err := f.sess.Features().FindFeaturesByToken(ctx, "latin", core.FeatureLemmata, "a")
	require.NoError(t, err)
	require.Len(t, found, 1)
	found[0].Frequencies = map[core.ID]int{f.source.Id: 5}
	_, err = f.sess.Features().UpdateFeatures(ctx, found[0])
	require.NoError(t, err)

	matches, err := NewOriginal(f.sess).Match(ctx, 1, f.params())
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	// source a=5/10 from storage, b falls back to 1/5
	expected := math.Log((1/0.5 + 1/0.2 + 3 + 3) / 4)
	assert.InDelta(t, expected, matches[0].Score, 1e-9)
}

func TestOriginal_MissingText(t *testing.T) {
	f := newFixture(t)
	params := f.params()
	params.Source.ObjectID = 999

	_, err := NewOriginal(f.sess).Match(context.Background(), 1, params)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
