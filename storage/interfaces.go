package storage

import (
	"context"

	"github.com/stephrichter/tesserae-v5/core"
)

// Connector hands out sessions on a store. Each worker of the search pool
// holds one session for its whole lifetime.
type Connector interface {
	// Connect opens a new session.
	// Returns ErrStorageClosed if the underlying store is closed.
	Connect(ctx context.Context) (Session, error)
}

// Session is one exclusive handle on the store, grouping the repositories.
type Session interface {
	Jobs() JobRepository
	Matches() MatchRepository
	Units() UnitRepository
	Texts() TextRepository
	Features() FeatureRepository

	// Close releases the session. Operations on a closed session
	// return ErrStorageClosed. Close is idempotent.
	Close() error
}

type JobRepository interface {
	// AddJob inserts a new job, assigning its ID and timestamps.
	// Returns the job with the generated ID populated.
	AddJob(ctx context.Context, job *core.Job) (*core.Job, error)

	// UpdateJob persists the mutated status and message of an existing job.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, job *core.Job) (*core.Job, error)

	// GetJob retrieves a single job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id core.ID) (*core.Job, error)

	// GetJobByResultsID retrieves the most recent job carrying resultsID.
	// Returns ErrNotFound if no job carries it.
	GetJobByResultsID(ctx context.Context, resultsID string) (*core.Job, error)

	// FindJobsByFingerprint returns every job whose parameters are Equal to
	// params, in insertion order. Stopwords are compared as sets.
	FindJobsByFingerprint(ctx context.Context, params core.Parameters) ([]*core.Job, error)
}

type MatchRepository interface {
	// AddMatches bulk inserts match records without uniqueness checks.
	// Generates new IDs from sequence.
	AddMatches(ctx context.Context, matches ...*core.Match) ([]*core.Match, error)

	// GetMatchesByJob retrieves all matches produced by a job, in insertion order.
	GetMatchesByJob(ctx context.Context, jobID core.ID) ([]*core.Match, error)
}

// UnitQuery is the coarse co-occurrence filter over stored units.
type UnitQuery struct {
	TextIDs  []core.ID // Texts to search; empty matches nothing
	UnitType string
	Feature  string
	Indices  []int // Every index must appear somewhere in the unit
}

type UnitRepository interface {
	// AddUnits adds one or more units to storage, generating IDs from sequence.
	// Maintains the per-text and per-feature indices.
	AddUnits(ctx context.Context, units ...*core.Unit) ([]*core.Unit, error)

	// GetUnit retrieves a single unit by ID.
	// Returns ErrNotFound if the unit doesn't exist.
	GetUnit(ctx context.Context, id core.ID) (*core.Unit, error)

	// ListUnits retrieves the units of one type of a text, ordered by unit index.
	ListUnits(ctx context.Context, textID core.ID, unitType string) ([]*core.Unit, error)

	// FindUnitsWithFeatures returns the units matching every predicate of q,
	// ordered by text then unit index.
	FindUnitsWithFeatures(ctx context.Context, q UnitQuery) ([]*core.Unit, error)
}

type TextRepository interface {
	// AddTexts adds one or more texts to storage, generating IDs from sequence.
	AddTexts(ctx context.Context, texts ...*core.Text) ([]*core.Text, error)

	// UpdateTexts updates existing texts.
	// Returns ErrNotFound if any text doesn't exist.
	UpdateTexts(ctx context.Context, texts ...*core.Text) ([]*core.Text, error)

	// GetText retrieves a single text by ID.
	// Returns ErrNotFound if the text doesn't exist.
	GetText(ctx context.Context, id core.ID) (*core.Text, error)

	// ListTexts retrieves every text ordered by ID.
	ListTexts(ctx context.Context) ([]*core.Text, error)
}

type FeatureRepository interface {
	// AddFeatures adds one or more features to storage.
	// Returns ErrDuplicateKey if (language, feature, token) or
	// (language, feature, index) is already taken.
	AddFeatures(ctx context.Context, features ...*core.Feature) ([]*core.Feature, error)

	// UpdateFeatures updates existing features.
	// Returns ErrNotFound if any feature doesn't exist.
	UpdateFeatures(ctx context.Context, features ...*core.Feature) ([]*core.Feature, error)

	// FindFeaturesByToken looks up features of one type by token.
	// Tokens without a stored feature are skipped.
	FindFeaturesByToken(ctx context.Context, language, feature string, tokens ...string) ([]*core.Feature, error)

	// GetFeaturesByIndex looks up features of one type by index.
	// Indices without a stored feature are skipped.
	GetFeaturesByIndex(ctx context.Context, language, feature string, indices ...int) ([]*core.Feature, error)
}
