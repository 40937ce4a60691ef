package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stephrichter/tesserae-v5/core"
)

// Corpus is a tokenized corpus document.
type Corpus struct {
	Features []CorpusFeature `yaml:"features"`
	Texts    []CorpusText    `yaml:"texts"`
}

// CorpusFeature is one vocabulary entry.
type CorpusFeature struct {
	Language string `yaml:"language"`
	Feature  string `yaml:"feature"`
	Token    string `yaml:"token"`
	Index    int    `yaml:"index"`
}

// CorpusText is a text with its units.
type CorpusText struct {
	Title    string       `yaml:"title"`
	Author   string       `yaml:"author,omitempty"`
	Language string       `yaml:"language"`
	Year     int          `yaml:"year,omitempty"`
	Path     string       `yaml:"path,omitempty"`
	Units    []CorpusUnit `yaml:"units"`
}

// CorpusUnit is a line or phrase.
type CorpusUnit struct {
	Type    string        `yaml:"type"`
	Index   int           `yaml:"index"`
	Snippet string        `yaml:"snippet,omitempty"`
	Tokens  []CorpusToken `yaml:"tokens"`
}

// CorpusToken is a token with the feature indices it realizes, keyed by feature type.
type CorpusToken struct {
	Display  string           `yaml:"display"`
	Features map[string][]int `yaml:"features"`
}

// LoadCorpus reads and parses a corpus file.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}
	return ParseCorpus(bytes.NewReader(data))
}

// ParseCorpus decodes a corpus document. Unknown fields are rejected.
func ParseCorpus(r io.Reader) (*Corpus, error) {
	var corpus Corpus
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&corpus); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %w", ErrInvalidCorpus, err)
	}
	if err := validateCorpus(&corpus); err != nil {
		return nil, err
	}
	return &corpus, nil
}

func validateCorpus(c *Corpus) error {
	if len(c.Texts) == 0 {
		return fmt.Errorf("%w: no texts", ErrInvalidCorpus)
	}
	for i, f := range c.Features {
		feature := &core.Feature{Language: f.Language, Feature: f.Feature, Token: f.Token, Index: f.Index}
		if err := core.ValidateFeature(feature); err != nil {
			return fmt.Errorf("%w: features[%d]: %w", ErrInvalidCorpus, i, err)
		}
		if f.Feature == "" {
			return fmt.Errorf("%w: features[%d]: feature type is required", ErrInvalidCorpus, i)
		}
	}
	for i, t := range c.Texts {
		if err := core.ValidateText(&core.Text{Title: t.Title, Language: t.Language}); err != nil {
			return fmt.Errorf("%w: texts[%d]: %w", ErrInvalidCorpus, i, err)
		}
		for j, u := range t.Units {
			if err := core.ValidateUnitType(u.Type); err != nil {
				return fmt.Errorf("%w: texts[%d].units[%d]: %w", ErrInvalidCorpus, i, j, err)
			}
		}
	}
	return nil
}
