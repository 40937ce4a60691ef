package core

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// JobStatus is the lifecycle state of a search job.
type JobStatus int

const (
	// JobStatusInit is set when a worker creates the job record.
	JobStatusInit JobStatus = iota + 1
	// JobStatusRun is set once the matcher has been resolved and is about to run.
	JobStatusRun
	// JobStatusDone is terminal: the matcher succeeded and its results are stored.
	JobStatusDone
	// JobStatusFailed is terminal: any fault happened while executing the job.
	JobStatusFailed
)

// String returns the persisted name of the status.
func (s JobStatus) String() string {
	switch s {
	case JobStatusInit:
		return "Initialized"
	case JobStatusRun:
		return "Running"
	case JobStatusDone:
		return "Done"
	case JobStatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("JobStatus(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// CanTransition reports whether the state machine allows moving from s to next.
//
//	Init -> Run -> Done
//	Init -> Failed
//	Run  -> Failed
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusInit:
		return next == JobStatusRun || next == JobStatusFailed
	case JobStatusRun:
		return next == JobStatusDone || next == JobStatusFailed
	default:
		return false
	}
}

// UnitSelector identifies the units of one text taking part in a search.
type UnitSelector struct {
	ObjectID ID     `validate:"required"`          // Text ID
	Units    string `validate:"oneof=line phrase"` // Unit type
}

// Method is the algorithm half of a job fingerprint.
type Method struct {
	Name          string
	Feature       string
	Stopwords     []string
	FreqBasis     string
	MaxDistance   int
	DistanceBasis string
}

// Parameters is the fingerprint of a job: the canonical (source, target, method) tuple.
type Parameters struct {
	Source UnitSelector
	Target UnitSelector
	Method Method
}

// Equal reports whether two fingerprints describe the same search.
// Scalars must match exactly; stopwords compare as sets.
func (p Parameters) Equal(other Parameters) bool {
	if p.Source != other.Source || p.Target != other.Target {
		return false
	}
	a, b := p.Method, other.Method
	if a.Name != b.Name ||
		a.Feature != b.Feature ||
		a.FreqBasis != b.FreqBasis ||
		a.MaxDistance != b.MaxDistance ||
		a.DistanceBasis != b.DistanceBasis {
		return false
	}
	return StopwordsEqual(a.Stopwords, b.Stopwords)
}

// StopwordsEqual compares two stopword lists as sets: same cardinality, same members.
func StopwordsEqual(a, b []string) bool {
	sa, sb := CanonicalStopwords(a), CanonicalStopwords(b)
	return slices.Equal(sa, sb)
}

// CanonicalStopwords returns the sorted, de-duplicated stopword set.
func CanonicalStopwords(words []string) []string {
	if len(words) == 0 {
		return []string{}
	}
	out := slices.Clone(words)
	slices.Sort(out)
	return slices.Compact(out)
}

// Canonical returns the deterministic textual encoding of the fingerprint.
// Two fingerprints that are Equal always have the same encoding.
func (p Parameters) Canonical() string {
	var sb strings.Builder
	field := func(name, value string) {
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(value)
		sb.WriteByte('\n')
	}
	field("source.object_id", strconv.FormatUint(uint64(p.Source.ObjectID), 10))
	field("source.units", strconv.Quote(p.Source.Units))
	field("target.object_id", strconv.FormatUint(uint64(p.Target.ObjectID), 10))
	field("target.units", strconv.Quote(p.Target.Units))
	field("method.name", strconv.Quote(p.Method.Name))
	field("method.feature", strconv.Quote(p.Method.Feature))

	stopwords := CanonicalStopwords(p.Method.Stopwords)
	quoted := make([]string, len(stopwords))
	for i, w := range stopwords {
		quoted[i] = strconv.Quote(w)
	}
	field("method.stopwords", "["+strings.Join(quoted, ",")+"]")
	field("method.freq_basis", strconv.Quote(p.Method.FreqBasis))
	field("method.max_distance", strconv.Itoa(p.Method.MaxDistance))
	field("method.distance_basis", strconv.Quote(p.Method.DistanceBasis))
	return sb.String()
}

// Digest returns a content ID of the canonical encoding, used to index jobs by fingerprint.
func (p Parameters) Digest() ID {
	return IDFromContent(p.Canonical())
}

// Job is the persisted record of one search execution.
type Job struct {
	Id         ID
	ResultsID  string
	Status     JobStatus
	Message    string
	Parameters Parameters
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// NewJob returns a job in the Init state with an empty message.
func NewJob(resultsID string, params Parameters) *Job {
	return &Job{
		ResultsID:  resultsID,
		Status:     JobStatusInit,
		Parameters: params,
	}
}

// Transition moves the job to next, enforcing the lifecycle.
func (j *Job) Transition(next JobStatus, message string) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	j.Status = next
	j.Message = message
	return nil
}
