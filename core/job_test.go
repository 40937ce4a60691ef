package core

import (
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
)

func testFingerprint() Parameters {
	return Parameters{
		Source: UnitSelector{ObjectID: 7, Units: UnitTypeLine},
		Target: UnitSelector{ObjectID: 9, Units: UnitTypePhrase},
		Method: Method{
			Name:          "original",
			Feature:       FeatureLemmata,
			Stopwords:     []string{"non", "et", "in", "et"},
			FreqBasis:     FreqBasisTexts,
			MaxDistance:   10,
			DistanceBasis: DistanceBasisSpan,
		},
	}
}

func TestJobStatusTransitions(t *testing.T) {
	all := []JobStatus{JobStatusInit, JobStatusRun, JobStatusDone, JobStatusFailed}
	allowed := map[[2]JobStatus]bool{
		{JobStatusInit, JobStatusRun}:    true,
		{JobStatusInit, JobStatusFailed}: true,
		{JobStatusRun, JobStatusDone}:    true,
		{JobStatusRun, JobStatusFailed}:  true,
	}

	for _, from := range all {
		for _, to := range all {
			got := from.CanTransition(to)
			if got != allowed[[2]JobStatus{from, to}] {
				t.Errorf("%s.CanTransition(%s) = %v", from, to, got)
			}
		}
	}
}

func TestJobStatusString(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   string
	}{
		{JobStatusInit, "Initialized"},
		{JobStatusRun, "Running"},
		{JobStatusDone, "Done"},
		{JobStatusFailed, "Failed"},
		{JobStatus(0), "JobStatus(0)"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if JobStatusRun.Terminal() || !JobStatusDone.Terminal() || !JobStatusFailed.Terminal() {
		t.Error("only Done and Failed are terminal")
	}
}

func TestJobTransition(t *testing.T) {
	job := NewJob("results", testFingerprint())
	if job.Status != JobStatusInit || job.Message != "" {
		t.Fatalf("new job = %s %q, want Initialized with empty message", job.Status, job.Message)
	}

	if err := job.Transition(JobStatusDone, "skipped"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Init -> Done error = %v, want ErrInvalidTransition", err)
	}
	if job.Status != JobStatusInit {
		t.Fatalf("rejected transition changed status to %s", job.Status)
	}

	if err := job.Transition(JobStatusRun, ""); err != nil {
		t.Fatalf("Init -> Run: %v", err)
	}
	if err := job.Transition(JobStatusDone, "Done in 1 seconds"); err != nil {
		t.Fatalf("Run -> Done: %v", err)
	}
	if job.Message != "Done in 1 seconds" {
		t.Errorf("message = %q", job.Message)
	}
	if err := job.Transition(JobStatusFailed, "late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Done -> Failed error = %v, want ErrInvalidTransition", err)
	}
}

func TestParametersEqual(t *testing.T) {
	base := testFingerprint()

	tests := []struct {
		name   string
		mutate func(*Parameters)
		want   bool
	}{
		{"identical", func(*Parameters) {}, true},
		{"stopwords reordered", func(p *Parameters) { p.Method.Stopwords = []string{"in", "non", "et"} }, true},
		{"stopwords subset", func(p *Parameters) { p.Method.Stopwords = []string{"in", "non"} }, false},
		{"stopwords superset", func(p *Parameters) { p.Method.Stopwords = []string{"in", "non", "et", "sed"} }, false},
		{"max distance off by one", func(p *Parameters) { p.Method.MaxDistance = 11 }, false},
		{"algorithm", func(p *Parameters) { p.Method.Name = "semantic" }, false},
		{"feature", func(p *Parameters) { p.Method.Feature = FeatureForm }, false},
		{"freq basis", func(p *Parameters) { p.Method.FreqBasis = FreqBasisCorpus }, false},
		{"distance basis", func(p *Parameters) { p.Method.DistanceBasis = DistanceBasisFrequency }, false},
		{"source text", func(p *Parameters) { p.Source.ObjectID = 8 }, false},
		{"target units", func(p *Parameters) { p.Target.Units = UnitTypeLine }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := testFingerprint()
			tt.mutate(&other)
			if got := base.Equal(other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
			if got := base.Digest() == other.Digest(); got != tt.want {
				t.Errorf("digest equality = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStopwordsEqual(t *testing.T) {
	if !StopwordsEqual(nil, []string{}) {
		t.Error("nil and empty stopwords should be equal")
	}
	if !StopwordsEqual([]string{"a", "b"}, []string{"b", "a", "a"}) {
		t.Error("stopwords should compare as sets")
	}
	if StopwordsEqual([]string{"a"}, []string{"b"}) {
		t.Error("different stopwords compared equal")
	}

	words := []string{"b", "a"}
	CanonicalStopwords(words)
	if words[0] != "b" {
		t.Error("CanonicalStopwords modified its input")
	}
}

func TestParametersEqual_DuplicateStopwords(t *testing.T) {
	params := SearchParams{
		Source:        UnitSelector{ObjectID: 7, Units: UnitTypeLine},
		Target:        UnitSelector{ObjectID: 9, Units: UnitTypeLine},
		Feature:       FeatureLemmata,
		Stopwords:     []string{"et"},
		FreqBasis:     FreqBasisTexts,
		DistanceBasis: DistanceBasisSpan,
	}
	repeated := params
	repeated.Stopwords = []string{"et", "et"}

	a, b := params.Fingerprint("original"), repeated.Fingerprint("original")
	if !a.Equal(b) {
		t.Error("a repeated stopword should not change the fingerprint")
	}
	if a.Digest() != b.Digest() {
		t.Errorf("Digest() = %d and %d, want equal", a.Digest(), b.Digest())
	}
	if got := b.Method.Stopwords; len(got) != 1 || got[0] != "et" {
		t.Errorf("Stopwords = %v, want [et]", got)
	}
}

func TestFingerprint(t *testing.T) {
	params := SearchParams{
		Source:        UnitSelector{ObjectID: 7, Units: UnitTypeLine},
		Target:        UnitSelector{ObjectID: 9, Units: UnitTypePhrase},
		Feature:       FeatureLemmata,
		Stopwords:     []string{"et", "non", "in"},
		FreqBasis:     FreqBasisTexts,
		MaxDistance:   10,
		DistanceBasis: DistanceBasisSpan,
	}
	fp := params.Fingerprint("original")
	if !fp.Equal(testFingerprint()) {
		t.Errorf("Fingerprint() = %+v", fp)
	}
	if len(fp.Method.Stopwords) != 3 || fp.Method.Stopwords[0] != "et" {
		t.Errorf("stopwords not canonical: %v", fp.Method.Stopwords)
	}
}

func TestParametersCanonical(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "canonical_fingerprint", []byte(testFingerprint().Canonical()))
}
