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
	"fmt"
	"regexp"
	"strings"
)

var (
	programCodePattern       = regexp.MustCompile(`^\d{2}\.\d{4}$`)
	programFamilyCodePattern = regexp.MustCompile(`^\d{2}$`)
	careerCodePattern        = regexp.MustCompile(`^\d{2}-\d{4}$`)
)

// ValidateQuery rejects queries that are empty after trimming.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// ValidateSearchOptions validates caller supplied search options.
//
// Validation rules:
//   - MaxResults must not be negative (0 selects the configured default)
//   - MinRelevance must be within 0..MaxScore (0 selects the configured default)
func ValidateSearchOptions(opts SearchOptions) error {
	if opts.MaxResults < 0 {
		return fmt.Errorf("%w: max results %d is negative", ErrInvalidSearchOptions, opts.MaxResults)
	}
	if opts.MinRelevance < 0 || opts.MinRelevance > MaxScore {
		return fmt.Errorf("%w: min relevance %d outside 0..%d", ErrInvalidSearchOptions, opts.MinRelevance, MaxScore)
	}
	return nil
}

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - InstitutionID must not be empty
//   - Description must not be empty
//
// NOT validated:
//   - ClassificationCode (high-school records usually carry none; verifiers judge the rest)
//   - Level (free text from the source data)
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if strings.TrimSpace(record.InstitutionID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyInstitution)
	}
	if strings.TrimSpace(record.Description) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyDescription)
	}
	return nil
}

// IsProgramCode reports whether code has the full NN.NNNN program classification format.
func IsProgramCode(code string) bool {
	return programCodePattern.MatchString(strings.TrimSpace(code))
}

// IsProgramFamilyCode reports whether code is a bare two-digit program family.
func IsProgramFamilyCode(code string) bool {
	return programFamilyCodePattern.MatchString(strings.TrimSpace(code))
}

// IsCareerCode reports whether code has the NN-NNNN occupation classification format.
func IsCareerCode(code string) bool {
	return careerCodePattern.MatchString(strings.TrimSpace(code))
}

// FamilyPrefix returns the two-digit family of a program or occupation code, or "" when
// the code does not start with two digits.
func FamilyPrefix(code string) string {
	code = strings.TrimSpace(code)
	if len(code) < 2 || !isDigit(code[0]) || !isDigit(code[1]) {
		return ""
	}
	if len(code) > 2 && isDigit(code[2]) {
		return ""
	}
	return code[:2]
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
