package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Unit types produced by ingestion.
const (
	UnitTypeLine   = "line"
	UnitTypePhrase = "phrase"
)

// Feature types carried by tokens.
const (
	FeatureForm    = "form"
	FeatureLemmata = "lemmata"
)

// Text is the metadata of a single ingested work.
type Text struct {
	Id         ID
	Title      string
	Author     string
	Language   string
	Year       int
	Path       string
	TokenCount int // Number of tokens across the text's line units
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Token is the atomic lexical element of a Unit.
// Features maps a feature type (e.g. "lemmata") to the set of feature indices
// the token realizes. A token may realize several indices of one type.
type Token struct {
	Display  string
	Features map[string][]int
}

// Has reports whether the token realizes index under the given feature type.
func (t Token) Has(feature string, index int) bool {
	for _, idx := range t.Features[feature] {
		if idx == index {
			return true
		}
	}
	return false
}

// Unit is an immutable span of source text, either a line or a phrase.
type Unit struct {
	Id       ID
	TextID   ID
	UnitType string
	Index    int // Position of the unit within its text
	Snippet  string
	Tokens   []Token
}

// Text returns the snippet, or the joined token displays when no snippet was stored.
func (u *Unit) Text() string {
	if u.Snippet != "" {
		return u.Snippet
	}
	parts := make([]string, 0, len(u.Tokens))
	for _, tok := range u.Tokens {
		if tok.Display != "" {
			parts = append(parts, tok.Display)
		}
	}
	return strings.Join(parts, " ")
}

// Feature is a normalized lexical form (a surface form or a lemma) of one language.
type Feature struct {
	Id          ID
	Language    string
	Feature     string
	Token       string
	Index       int
	Frequencies map[ID]int // Occurrences keyed by text ID
}

// Frequency returns the number of occurrences of the feature in a text.
func (f *Feature) Frequency(textID ID) int {
	return f.Frequencies[textID]
}

// TotalFrequency returns the number of occurrences across all texts.
func (f *Feature) TotalFrequency() int {
	total := 0
	for _, n := range f.Frequencies {
		total += n
	}
	return total
}

// Match is a single result record produced by a matcher for a job.
type Match struct {
	Id         ID
	JobID      ID
	SourceUnit ID
	TargetUnit ID
	Features   []int // Feature indices shared by both units
	Score      float64
}
