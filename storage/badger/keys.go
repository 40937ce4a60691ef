package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/stephrichter/tesserae-v5/core"
)

const (
	jobPrefix            = "job"
	jobResultsPrefix     = "jobres"
	jobFingerprintPrefix = "jobfp"
	jobIDSeq             = "jobseq"
	matchPrefix          = "match"
	matchJobPrefix       = "matchjob"
	matchIDSeq           = "matchseq"
	unitPrefix           = "unit"
	unitTextPrefix       = "unittext"
	unitFeaturePrefix    = "unitfeat"
	unitIDSeq            = "unitseq"
	textPrefix           = "text"
	textIDSeq            = "textseq"
	featurePrefix        = "feat"
	featureTokenPrefix   = "feattok"
	featureIndexPrefix   = "featidx"
	featureIDSeq         = "featseq"
)

// keyBuilder appends key segments. Numbers are written BigEndian so
// lexicographic key order matches numeric order. Strings carry a length
// prefix so that no segment value is a key prefix of another.
type keyBuilder []byte

func newKey(prefix string) keyBuilder {
	return keyBuilder(prefix + ":")
}

func (k keyBuilder) uint(v uint64) keyBuilder {
	return binary.BigEndian.AppendUint64(k, v)
}

func (k keyBuilder) id(v core.ID) keyBuilder {
	return k.uint(uint64(v))
}

func (k keyBuilder) str(v string) keyBuilder {
	k = binary.BigEndian.AppendUint32(k, uint32(len(v)))
	return append(k, v...)
}

// makeJobKey generates a key for a job by ID.
func makeJobKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", jobPrefix, id))
}

// makeJobResultsKey generates a composite key for the results ID index.
// Format: prefix:len(resultsID) resultsID jobID
func makeJobResultsKey(resultsID string, id core.ID) []byte {
	return newKey(jobResultsPrefix).str(resultsID).id(id)
}

// makePartialJobResultsKey generates a partial key for results ID lookups.
func makePartialJobResultsKey(resultsID string) []byte {
	return newKey(jobResultsPrefix).str(resultsID)
}

// makeJobFingerprintKey generates a composite key for the fingerprint index.
// Format: prefix:digest:jobID
func makeJobFingerprintKey(digest, id core.ID) []byte {
	return newKey(jobFingerprintPrefix).id(digest).id(id)
}

// makePartialJobFingerprintKey generates a partial key for fingerprint lookups.
func makePartialJobFingerprintKey(digest core.ID) []byte {
	return newKey(jobFingerprintPrefix).id(digest)
}

// makeMatchKey generates a key for a match by ID.
func makeMatchKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", matchPrefix, id))
}

// makeMatchJobKey generates a composite key for the job index.
// Format: prefix:jobID:matchID
func makeMatchJobKey(jobID, id core.ID) []byte {
	return newKey(matchJobPrefix).id(jobID).id(id)
}

func makePartialMatchJobKey(jobID core.ID) []byte {
	return newKey(matchJobPrefix).id(jobID)
}

// makeUnitKey generates a key for a unit by ID.
func makeUnitKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", unitPrefix, id))
}

// makeUnitTextKey generates a composite key ordering units within a text.
// Format: prefix:textID len(unitType) unitType index unitID
func makeUnitTextKey(textID core.ID, unitType string, index int, id core.ID) []byte {
	return makePartialUnitTextKey(textID, unitType).uint(uint64(index)).id(id)
}

func makePartialUnitTextKey(textID core.ID, unitType string) keyBuilder {
	return newKey(unitTextPrefix).id(textID).str(unitType)
}

// makeUnitFeatureKey generates a composite key for the feature index.
// Format: prefix:textID len(unitType) unitType len(feature) feature featureIndex unitID
func makeUnitFeatureKey(textID core.ID, unitType, feature string, featureIndex int, id core.ID) []byte {
	return makePartialUnitFeatureKey(textID, unitType, feature, featureIndex).id(id)
}

func makePartialUnitFeatureKey(textID core.ID, unitType, feature string, featureIndex int) keyBuilder {
	return newKey(unitFeaturePrefix).id(textID).str(unitType).str(feature).uint(uint64(featureIndex))
}

// makeTextKey generates a key for a text by ID.
func makeTextKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", textPrefix, id))
}

// makeFeatureKey generates a key for a feature by ID.
func makeFeatureKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", featurePrefix, id))
}

// makeFeatureTokenKey generates a composite key for feature lookup by token.
// Format: prefix:len(language) language len(feature) feature token
func makeFeatureTokenKey(language, feature, token string) []byte {
	return append(newKey(featureTokenPrefix).str(language).str(feature), token...)
}

// makeFeatureIndexKey generates a composite key for feature lookup by index.
// Format: prefix:len(language) language len(feature) feature index
func makeFeatureIndexKey(language, feature string, index int) []byte {
	return newKey(featureIndexPrefix).str(language).str(feature).uint(uint64(index))
}
