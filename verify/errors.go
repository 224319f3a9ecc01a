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

package verify

import "errors"

var (
	// ErrClassifierRequired is returned when a verifier is built without a classifier.
	ErrClassifierRequired = errors.New("classifier required")

	// ErrOracleRequired is returned when an oracle-backed classifier is built without an oracle.
	ErrOracleRequired = errors.New("oracle required")

	// ErrInvalidConfig is returned when verifier settings are out of range.
	ErrInvalidConfig = errors.New("invalid verify config")
)
