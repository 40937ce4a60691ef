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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidSearchParams indicates a queued search request failed validation.
	ErrInvalidSearchParams = errors.New("invalid search parameters")

	// ErrInvalidTransition indicates a job status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrInvalidUnit indicates a Unit failed validation.
	ErrInvalidUnit = errors.New("invalid unit")

	// ErrInvalidText indicates a Text failed validation.
	ErrInvalidText = errors.New("invalid text")

	// ErrInvalidFeature indicates a Feature failed validation.
	ErrInvalidFeature = errors.New("invalid feature")

	// ErrInvalidUnitType indicates a unit type other than line or phrase.
	ErrInvalidUnitType = errors.New("invalid unit type")

	// ErrEmptyTitle indicates the Text title is empty.
	ErrEmptyTitle = errors.New("text title cannot be empty")

	// ErrEmptyLanguage indicates a language field is empty.
	ErrEmptyLanguage = errors.New("language cannot be empty")

	// ErrEmptyToken indicates the Feature token is empty.
	ErrEmptyToken = errors.New("feature token cannot be empty")

	// ErrMalformedRecord indicates encoded record bytes declare impossible lengths.
	ErrMalformedRecord = errors.New("malformed record encoding")

	// ErrMissingText indicates a Unit does not reference a text.
	ErrMissingText = errors.New("unit must reference a text")
)
