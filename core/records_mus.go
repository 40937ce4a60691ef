package core

import (
	"math"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS codecs for persisted records. Each codec exposes the Marshal, Unmarshal
// and Size triple used by the storage layer. Maps are written in key order so
// equal records always encode to equal bytes.
var (
	IDMUS      = idMUS{}
	TextMUS    = textMUS{}
	UnitMUS    = unitMUS{}
	FeatureMUS = featureMUS{}
	JobMUS     = jobMUS{}
	MatchMUS   = matchMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

// timestamps are stored as Unix microseconds
func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func marshalFloat(f float64, bs []byte) int {
	return varint.Uint64.Marshal(math.Float64bits(f), bs)
}

func unmarshalFloat(bs []byte) (float64, int, error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return math.Float64frombits(u), n, err
}

func sizeFloat(f float64) int {
	return varint.Uint64.Size(math.Float64bits(f))
}

func marshalInts(vs []int, bs []byte) (n int) {
	n = varint.Int.Marshal(len(vs), bs)
	for _, v := range vs {
		n += varint.Int.Marshal(v, bs[n:])
	}
	return
}

func unmarshalInts(bs []byte) (vs []int, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		return nil, n, ErrMalformedRecord
	}
	vs = make([]int, length)
	var n1 int
	for i := range vs {
		vs[i], n1, err = varint.Int.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func sizeInts(vs []int) (size int) {
	size = varint.Int.Size(len(vs))
	for _, v := range vs {
		size += varint.Int.Size(v)
	}
	return
}

func marshalStrings(vs []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(vs), bs)
	for _, v := range vs {
		n += ord.String.Marshal(v, bs[n:])
	}
	return
}

func unmarshalStrings(bs []byte) (vs []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		return nil, n, ErrMalformedRecord
	}
	vs = make([]string, length)
	var n1 int
	for i := range vs {
		vs[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func sizeStrings(vs []string) (size int) {
	size = varint.Int.Size(len(vs))
	for _, v := range vs {
		size += ord.String.Size(v)
	}
	return
}

type textMUS struct{}

func (textMUS) Marshal(v Text, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Author, bs[n:])
	n += ord.String.Marshal(v.Language, bs[n:])
	n += varint.Int.Marshal(v.Year, bs[n:])
	n += ord.String.Marshal(v.Path, bs[n:])
	n += varint.Int.Marshal(v.TokenCount, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (textMUS) Unmarshal(bs []byte) (v Text, n int, err error) {
	var n1 int
	steps := []func([]byte) (int, error){
		func(b []byte) (m int, e error) { v.Id, m, e = IDMUS.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Title, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Author, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Language, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Year, m, e = varint.Int.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Path, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.TokenCount, m, e = varint.Int.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.InsertedAt, m, e = unmarshalTime(b); return },
		func(b []byte) (m int, e error) { v.UpdatedAt, m, e = unmarshalTime(b); return },
	}
	for _, step := range steps {
		n1, err = step(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (textMUS) Size(v Text) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Author)
	size += ord.String.Size(v.Language)
	size += varint.Int.Size(v.Year)
	size += ord.String.Size(v.Path)
	size += varint.Int.Size(v.TokenCount)
	size += sizeTime(v.InsertedAt)
	return size + sizeTime(v.UpdatedAt)
}

func sortedKeys[K ~string | ~uint64, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func marshalToken(v Token, bs []byte) (n int) {
	n = ord.String.Marshal(v.Display, bs)
	n += varint.Int.Marshal(len(v.Features), bs[n:])
	for _, k := range sortedKeys(v.Features) {
		n += ord.String.Marshal(k, bs[n:])
		n += marshalInts(v.Features[k], bs[n:])
	}
	return
}

func unmarshalToken(bs []byte) (v Token, n int, err error) {
	var n1, length int
	if v.Display, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if length, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if length < 0 || length > len(bs)-n {
		return v, n, ErrMalformedRecord
	}
	v.Features = make(map[string][]int, length)
	for range length {
		var key string
		var idx []int
		if key, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			n += n1
			return
		}
		n += n1
		if idx, n1, err = unmarshalInts(bs[n:]); err != nil {
			n += n1
			return
		}
		n += n1
		v.Features[key] = idx
	}
	return
}

func sizeToken(v Token) (size int) {
	size = ord.String.Size(v.Display)
	size += varint.Int.Size(len(v.Features))
	for k, idx := range v.Features {
		size += ord.String.Size(k) + sizeInts(idx)
	}
	return
}

type unitMUS struct{}

func (unitMUS) Marshal(v Unit, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.TextID, bs[n:])
	n += ord.String.Marshal(v.UnitType, bs[n:])
	n += varint.Int.Marshal(v.Index, bs[n:])
	n += ord.String.Marshal(v.Snippet, bs[n:])
	n += varint.Int.Marshal(len(v.Tokens), bs[n:])
	for _, tok := range v.Tokens {
		n += marshalToken(tok, bs[n:])
	}
	return
}

func (unitMUS) Unmarshal(bs []byte) (v Unit, n int, err error) {
	var n1, length int
	steps := []func([]byte) (int, error){
		func(b []byte) (m int, e error) { v.Id, m, e = IDMUS.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.TextID, m, e = IDMUS.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.UnitType, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Index, m, e = varint.Int.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Snippet, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { length, m, e = varint.Int.Unmarshal(b); return },
	}
	for _, step := range steps {
		n1, err = step(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	if length < 0 || length > len(bs)-n {
		return v, n, ErrMalformedRecord
	}
	v.Tokens = make([]Token, length)
	for i := range v.Tokens {
		v.Tokens[i], n1, err = unmarshalToken(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (unitMUS) Size(v Unit) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.TextID)
	size += ord.String.Size(v.UnitType)
	size += varint.Int.Size(v.Index)
	size += ord.String.Size(v.Snippet)
	size += varint.Int.Size(len(v.Tokens))
	for _, tok := range v.Tokens {
		size += sizeToken(tok)
	}
	return
}

type featureMUS struct{}

func (featureMUS) Marshal(v Feature, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Language, bs[n:])
	n += ord.String.Marshal(v.Feature, bs[n:])
	n += ord.String.Marshal(v.Token, bs[n:])
	n += varint.Int.Marshal(v.Index, bs[n:])
	n += varint.Int.Marshal(len(v.Frequencies), bs[n:])
	for _, textID := range sortedKeys(v.Frequencies) {
		n += IDMUS.Marshal(textID, bs[n:])
		n += varint.Int.Marshal(v.Frequencies[textID], bs[n:])
	}
	return
}

func (featureMUS) Unmarshal(bs []byte) (v Feature, n int, err error) {
	var n1, length int
	steps := []func([]byte) (int, error){
		func(b []byte) (m int, e error) { v.Id, m, e = IDMUS.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Language, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Feature, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Token, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Index, m, e = varint.Int.Unmarshal(b); return },
		func(b []byte) (m int, e error) { length, m, e = varint.Int.Unmarshal(b); return },
	}
	for _, step := range steps {
		n1, err = step(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	if length < 0 || length > len(bs)-n {
		return v, n, ErrMalformedRecord
	}
	v.Frequencies = make(map[ID]int, length)
	for range length {
		var textID ID
		var count int
		if textID, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
			n += n1
			return
		}
		n += n1
		if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			n += n1
			return
		}
		n += n1
		v.Frequencies[textID] = count
	}
	return
}

func (featureMUS) Size(v Feature) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Language)
	size += ord.String.Size(v.Feature)
	size += ord.String.Size(v.Token)
	size += varint.Int.Size(v.Index)
	size += varint.Int.Size(len(v.Frequencies))
	for textID, count := range v.Frequencies {
		size += IDMUS.Size(textID) + varint.Int.Size(count)
	}
	return
}

func marshalSelector(v UnitSelector, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ObjectID, bs)
	n += ord.String.Marshal(v.Units, bs[n:])
	return
}

func unmarshalSelector(bs []byte) (v UnitSelector, n int, err error) {
	var n1 int
	if v.ObjectID, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	v.Units, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func sizeSelector(v UnitSelector) int {
	return IDMUS.Size(v.ObjectID) + ord.String.Size(v.Units)
}

type jobMUS struct{}

func (jobMUS) Marshal(v Job, bs []byte) (n int) {
	p := v.Parameters
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.ResultsID, bs[n:])
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	n += ord.String.Marshal(v.Message, bs[n:])
	n += marshalSelector(p.Source, bs[n:])
	n += marshalSelector(p.Target, bs[n:])
	n += ord.String.Marshal(p.Method.Name, bs[n:])
	n += ord.String.Marshal(p.Method.Feature, bs[n:])
	n += marshalStrings(p.Method.Stopwords, bs[n:])
	n += ord.String.Marshal(p.Method.FreqBasis, bs[n:])
	n += varint.Int.Marshal(p.Method.MaxDistance, bs[n:])
	n += ord.String.Marshal(p.Method.DistanceBasis, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (jobMUS) Unmarshal(bs []byte) (v Job, n int, err error) {
	var n1, status int
	p := &v.Parameters
	steps := []func([]byte) (int, error){
		func(b []byte) (m int, e error) { v.Id, m, e = IDMUS.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.ResultsID, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { status, m, e = varint.Int.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Message, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { p.Source, m, e = unmarshalSelector(b); return },
		func(b []byte) (m int, e error) { p.Target, m, e = unmarshalSelector(b); return },
		func(b []byte) (m int, e error) { p.Method.Name, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { p.Method.Feature, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { p.Method.Stopwords, m, e = unmarshalStrings(b); return },
		func(b []byte) (m int, e error) { p.Method.FreqBasis, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { p.Method.MaxDistance, m, e = varint.Int.Unmarshal(b); return },
		func(b []byte) (m int, e error) { p.Method.DistanceBasis, m, e = ord.String.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.InsertedAt, m, e = unmarshalTime(b); return },
		func(b []byte) (m int, e error) { v.UpdatedAt, m, e = unmarshalTime(b); return },
	}
	for _, step := range steps {
		n1, err = step(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	v.Status = JobStatus(status)
	return
}

func (jobMUS) Size(v Job) (size int) {
	p := v.Parameters
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.ResultsID)
	size += varint.Int.Size(int(v.Status))
	size += ord.String.Size(v.Message)
	size += sizeSelector(p.Source)
	size += sizeSelector(p.Target)
	size += ord.String.Size(p.Method.Name)
	size += ord.String.Size(p.Method.Feature)
	size += sizeStrings(p.Method.Stopwords)
	size += ord.String.Size(p.Method.FreqBasis)
	size += varint.Int.Size(p.Method.MaxDistance)
	size += ord.String.Size(p.Method.DistanceBasis)
	size += sizeTime(v.InsertedAt)
	return size + sizeTime(v.UpdatedAt)
}

type matchMUS struct{}

func (matchMUS) Marshal(v Match, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.JobID, bs[n:])
	n += IDMUS.Marshal(v.SourceUnit, bs[n:])
	n += IDMUS.Marshal(v.TargetUnit, bs[n:])
	n += marshalInts(v.Features, bs[n:])
	n += marshalFloat(v.Score, bs[n:])
	return
}

func (matchMUS) Unmarshal(bs []byte) (v Match, n int, err error) {
	var n1 int
	steps := []func([]byte) (int, error){
		func(b []byte) (m int, e error) { v.Id, m, e = IDMUS.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.JobID, m, e = IDMUS.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.SourceUnit, m, e = IDMUS.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.TargetUnit, m, e = IDMUS.Unmarshal(b); return },
		func(b []byte) (m int, e error) { v.Features, m, e = unmarshalInts(b); return },
		func(b []byte) (m int, e error) { v.Score, m, e = unmarshalFloat(b); return },
	}
	for _, step := range steps {
		n1, err = step(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (matchMUS) Size(v Match) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.JobID)
	size += IDMUS.Size(v.SourceUnit)
	size += IDMUS.Size(v.TargetUnit)
	size += sizeInts(v.Features)
	return size + sizeFloat(v.Score)
}
