package ingestion

import "errors"

var (
	// ErrSessionRequired is returned when a storage session is not provided.
	ErrSessionRequired = errors.New("storage session required")

	// ErrCorpusRequired is returned when Ingest is called without a corpus.
	ErrCorpusRequired = errors.New("corpus required")

	// ErrInvalidCorpus is returned when a corpus document is malformed.
	ErrInvalidCorpus = errors.New("invalid corpus")
)
