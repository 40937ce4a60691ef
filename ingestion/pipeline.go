package ingestion

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

// Pipeline stores corpora through one storage session.
type Pipeline struct {
	session        storage.Session
	pool           *ants.Pool
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many unit batches are stored concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithProgress writes unit progress to w every interval units.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Pipeline) error {
		p.progress = w
		p.reportInterval = interval
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(session storage.Session, opts ...Option) (*Pipeline, error) {
	if session == nil {
		return nil, ErrSessionRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		session:        session,
		pool:           pool,
		reportInterval: 100,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Report summarizes one ingestion.
type Report struct {
	Features int       // Features added; entries already stored are skipped
	Texts    []core.ID // IDs of the stored texts, in corpus order
	Units    int
}

// vocabulary groups feature indices by language and feature type.
type vocabulary struct {
	language string
	feature  string
}

// Ingest stores the corpus. Features already present (same language, feature
// type and index) are left untouched, so a vocabulary can be shared across
// corpus files. Texts are always added as new texts.
func (p *Pipeline) Ingest(ctx context.Context, corpus *Corpus) (*Report, error) {
	if corpus == nil {
		return nil, ErrCorpusRequired
	}
	if err := validateCorpus(corpus); err != nil {
		return nil, err
	}
	report := &Report{}

	added, err := p.addFeatures(ctx, corpus.Features)
	if err != nil {
		return nil, err
	}
	report.Features = added

	texts := make([]*core.Text, len(corpus.Texts))
	for i, t := range corpus.Texts {
		texts[i] = &core.Text{
			Title:    t.Title,
			Author:   t.Author,
			Language: t.Language,
			Year:     t.Year,
			Path:     t.Path,
		}
	}
	texts, err = p.session.Texts().AddTexts(ctx, texts...)
	if err != nil {
		return nil, fmt.Errorf("failed to add texts: %w", err)
	}
	for _, t := range texts {
		report.Texts = append(report.Texts, t.Id)
	}

	units, err := p.addUnits(ctx, corpus, texts)
	if err != nil {
		return nil, err
	}
	report.Units = units

	if err := p.updateFrequencies(ctx, corpus, texts); err != nil {
		return nil, err
	}

	p.logger.Info("corpus ingested", "features", report.Features, "texts", len(report.Texts), "units", report.Units)
	return report, nil
}

func (p *Pipeline) addFeatures(ctx context.Context, entries []CorpusFeature) (int, error) {
	groups := make(map[vocabulary][]CorpusFeature)
	for _, f := range entries {
		key := vocabulary{language: f.Language, feature: f.Feature}
		groups[key] = append(groups[key], f)
	}

	total := 0
	for key, group := range groups {
		indices := make([]int, len(group))
		for i, f := range group {
			indices[i] = f.Index
		}
		existing, err := p.session.Features().GetFeaturesByIndex(ctx, key.language, key.feature, indices...)
		if err != nil {
			return 0, fmt.Errorf("failed to look up features: %w", err)
		}
		stored := make(map[int]bool, len(existing))
		for _, f := range existing {
			stored[f.Index] = true
		}

		var features []*core.Feature
		for _, f := range group {
			if stored[f.Index] {
				continue
			}
			stored[f.Index] = true
			features = append(features, &core.Feature{
				Language: f.Language,
				Feature:  f.Feature,
				Token:    f.Token,
				Index:    f.Index,
			})
		}
		if len(features) == 0 {
			continue
		}
		if _, err := p.session.Features().AddFeatures(ctx, features...); err != nil {
			return 0, fmt.Errorf("failed to add %s %s features: %w", key.language, key.feature, err)
		}
		total += len(features)
	}
	return total, nil
}

// addUnits stores the units of every text, one ants task per (text, unit type).
func (p *Pipeline) addUnits(ctx context.Context, corpus *Corpus, texts []*core.Text) (int, error) {
	var batches [][]*core.Unit
	total := 0
	for i, t := range corpus.Texts {
		byType := make(map[string][]*core.Unit)
		for _, u := range t.Units {
			byType[u.Type] = append(byType[u.Type], toUnit(texts[i].Id, u))
		}
		for _, unitType := range slices.Sorted(maps.Keys(byType)) {
			batches = append(batches, byType[unitType])
			total += len(byType[unitType])
		}
	}

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, total, p.reportInterval)
		tracker.Start()
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, batch := range batches {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if _, err := p.session.Units().AddUnits(ctx, batch...); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("failed to add units of text %d: %w", batch[0].TextID, err))
				mu.Unlock()
				return
			}
			if tracker != nil {
				tracker.Increment(len(batch))
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}
	if err := errors.Join(errs...); err != nil {
		return 0, err
	}
	return total, nil
}

func toUnit(textID core.ID, u CorpusUnit) *core.Unit {
	tokens := make([]core.Token, len(u.Tokens))
	for i, tok := range u.Tokens {
		tokens[i] = core.Token{Display: tok.Display, Features: tok.Features}
	}
	return &core.Unit{
		TextID:   textID,
		UnitType: u.Type,
		Index:    u.Index,
		Snippet:  u.Snippet,
		Tokens:   tokens,
	}
}

// updateFrequencies counts feature occurrences and tokens per text. Lines are
// counted when a text has any; otherwise its phrases are.
func (p *Pipeline) updateFrequencies(ctx context.Context, corpus *Corpus, texts []*core.Text) error {
	counts := make(map[vocabulary]map[int]map[core.ID]int)
	for i, t := range corpus.Texts {
		text := texts[i]
		unitType := core.UnitTypePhrase
		if slices.ContainsFunc(t.Units, func(u CorpusUnit) bool { return u.Type == core.UnitTypeLine }) {
			unitType = core.UnitTypeLine
		}

		text.TokenCount = 0
		for _, u := range t.Units {
			if u.Type != unitType {
				continue
			}
			text.TokenCount += len(u.Tokens)
			for _, tok := range u.Tokens {
				for feature, indices := range tok.Features {
					key := vocabulary{language: text.Language, feature: feature}
					if counts[key] == nil {
						counts[key] = make(map[int]map[core.ID]int)
					}
					for _, idx := range indices {
						if counts[key][idx] == nil {
							counts[key][idx] = make(map[core.ID]int)
						}
						counts[key][idx][text.Id]++
					}
				}
			}
		}
	}

	if _, err := p.session.Texts().UpdateTexts(ctx, texts...); err != nil {
		return fmt.Errorf("failed to update token counts: %w", err)
	}

	keys := slices.SortedFunc(maps.Keys(counts), func(a, b vocabulary) int {
		return cmp.Or(cmp.Compare(a.language, b.language), cmp.Compare(a.feature, b.feature))
	})
	for _, key := range keys {
		byIndex := counts[key]
		indices := slices.Sorted(maps.Keys(byIndex))
		features, err := p.session.Features().GetFeaturesByIndex(ctx, key.language, key.feature, indices...)
		if err != nil {
			return fmt.Errorf("failed to load features: %w", err)
		}
		if len(features) < len(indices) {
			p.logger.Debug("tokens reference features missing from the vocabulary",
				"language", key.language, "feature", key.feature, "missing", len(indices)-len(features))
		}
		if len(features) == 0 {
			continue
		}
		for _, f := range features {
			if f.Frequencies == nil {
				f.Frequencies = make(map[core.ID]int)
			}
			maps.Copy(f.Frequencies, byIndex[f.Index])
		}
		if _, err := p.session.Features().UpdateFeatures(ctx, features...); err != nil {
			return fmt.Errorf("failed to update frequencies: %w", err)
		}
	}
	return nil
}
