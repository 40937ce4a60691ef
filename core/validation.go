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

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateSearchParams checks a queued search request before a matcher runs.
//
// Validation rules:
//   - Source and Target must reference a text and a unit type (line or phrase)
//   - Feature must not be empty
//   - Stopwords must not contain empty strings
//   - FreqBasis must be "texts" or "corpus"
//   - MaxDistance must not be negative (0 means unlimited)
//   - DistanceBasis must be "span" or "frequency"
func ValidateSearchParams(params *SearchParams) error {
	if params == nil {
		return fmt.Errorf("%w: params is nil", ErrInvalidSearchParams)
	}

	if err := validate.Struct(params); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrInvalidSearchParams, describe(verrs))
		}
		return fmt.Errorf("%w: %w", ErrInvalidSearchParams, err)
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// ValidateUnitType validates that a unit type is line or phrase.
func ValidateUnitType(unitType string) error {
	if unitType != UnitTypeLine && unitType != UnitTypePhrase {
		return fmt.Errorf("%w: %q", ErrInvalidUnitType, unitType)
	}
	return nil
}

// ValidateText validates a Text according to domain rules.
//
// NOT validated (populated by ingestion):
//   - TokenCount
//   - ID (0 is valid from database sequences)
func ValidateText(text *Text) error {
	if text == nil {
		return fmt.Errorf("%w: text is nil", ErrInvalidText)
	}
	if text.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidText, ErrEmptyTitle)
	}
	if text.Language == "" {
		return fmt.Errorf("%w: %w", ErrInvalidText, ErrEmptyLanguage)
	}
	return nil
}

// ValidateUnit validates a Unit according to domain rules.
func ValidateUnit(unit *Unit) error {
	if unit == nil {
		return fmt.Errorf("%w: unit is nil", ErrInvalidUnit)
	}
	if unit.TextID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidUnit, ErrMissingText)
	}
	if err := ValidateUnitType(unit.UnitType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUnit, err)
	}
	return nil
}

// ValidateFeature validates a Feature according to domain rules.
func ValidateFeature(feature *Feature) error {
	if feature == nil {
		return fmt.Errorf("%w: feature is nil", ErrInvalidFeature)
	}
	if feature.Language == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFeature, ErrEmptyLanguage)
	}
	if feature.Token == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFeature, ErrEmptyToken)
	}
	return nil
}
