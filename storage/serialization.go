// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"

	"github.com/stephrichter/tesserae-v5/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalJob serializes a Job to bytes.
func MarshalJob(job *core.Job) []byte {
	buf := make([]byte, core.JobMUS.Size(*job))
	core.JobMUS.Marshal(*job, buf)
	return buf
}

// UnmarshalJob deserializes a Job from bytes.
func UnmarshalJob(data []byte) (*core.Job, error) {
	job, _, err := core.JobMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: job: %w", ErrSerializationFailed, err)
	}
	return &job, nil
}

// MarshalMatch serializes a Match to bytes.
func MarshalMatch(match *core.Match) []byte {
	buf := make([]byte, core.MatchMUS.Size(*match))
	core.MatchMUS.Marshal(*match, buf)
	return buf
}

// UnmarshalMatch deserializes a Match from bytes.
func UnmarshalMatch(data []byte) (*core.Match, error) {
	match, _, err := core.MatchMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: match: %w", ErrSerializationFailed, err)
	}
	return &match, nil
}

// MarshalUnit serializes a Unit to bytes.
func MarshalUnit(unit *core.Unit) []byte {
	buf := make([]byte, core.UnitMUS.Size(*unit))
	core.UnitMUS.Marshal(*unit, buf)
	return buf
}

// UnmarshalUnit deserializes a Unit from bytes.
func UnmarshalUnit(data []byte) (*core.Unit, error) {
	unit, _, err := core.UnitMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: unit: %w", ErrSerializationFailed, err)
	}
	return &unit, nil
}

// MarshalText serializes a Text to bytes.
func MarshalText(text *core.Text) []byte {
	buf := make([]byte, core.TextMUS.Size(*text))
	core.TextMUS.Marshal(*text, buf)
	return buf
}

// UnmarshalText deserializes a Text from bytes.
func UnmarshalText(data []byte) (*core.Text, error) {
	text, _, err := core.TextMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: text: %w", ErrSerializationFailed, err)
	}
	return &text, nil
}

// MarshalFeature serializes a Feature to bytes.
func MarshalFeature(feature *core.Feature) []byte {
	buf := make([]byte, core.FeatureMUS.Size(*feature))
	core.FeatureMUS.Marshal(*feature, buf)
	return buf
}

// UnmarshalFeature deserializes a Feature from bytes.
func UnmarshalFeature(data []byte) (*core.Feature, error) {
	feature, _, err := core.FeatureMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: feature: %w", ErrSerializationFailed, err)
	}
	return &feature, nil
}
