package matcher

import "errors"

var (
	// ErrUnknownAlgorithm indicates no matcher is registered under the requested name.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrDuplicateAlgorithm indicates a name was registered twice.
	ErrDuplicateAlgorithm = errors.New("algorithm already registered")

	// ErrInvalidRegistration indicates an empty name or a nil factory.
	ErrInvalidRegistration = errors.New("invalid matcher registration")

	// ErrEmbedderRequired indicates the semantic matcher was built without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)
