package core

// Frequency bases accepted by matchers.
const (
	FreqBasisTexts  = "texts"
	FreqBasisCorpus = "corpus"
)

// Distance bases accepted by matchers.
const (
	DistanceBasisSpan      = "span"
	DistanceBasisFrequency = "frequency"
)

// SearchParams is the payload of a queued search request.
// It is not validated when enqueued; workers validate it before running a matcher.
type SearchParams struct {
	Source        UnitSelector
	Target        UnitSelector
	Feature       string   `validate:"required"`
	Stopwords     []string `validate:"omitempty,dive,required"`
	FreqBasis     string   `validate:"oneof=texts corpus"`
	MaxDistance   int      `validate:"gte=0"`
	DistanceBasis string   `validate:"oneof=span frequency"`
}

// Fingerprint builds the job parameters for running algorithm with these settings.
func (p SearchParams) Fingerprint(algorithm string) Parameters {
	return Parameters{
		Source: p.Source,
		Target: p.Target,
		Method: Method{
			Name:          algorithm,
			Feature:       p.Feature,
			Stopwords:     CanonicalStopwords(p.Stopwords),
			FreqBasis:     p.FreqBasis,
			MaxDistance:   p.MaxDistance,
			DistanceBasis: p.DistanceBasis,
		},
	}
}
