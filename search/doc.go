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

// Package search turns a free-text query into a ranked list of program
// records.
//
// A search runs four stages in order:
//   - Intent extraction: the oracle restates the query as a primary topic,
//     related terms, an intent kind and an optional level
//   - Prefiltering: a lenient substring match over the record set, with a
//     fallback ladder that never returns nothing when records exist
//   - Ranking: candidates are scored 1-10 in batches; candidates the oracle
//     skips keep a default score instead of disappearing
//   - Reflection: the result set is scored for quality and the search is
//     repeated with a broadened intent until it is good enough or the attempt
//     budget runs out
//
// Every oracle-backed step has a deterministic fallback, so Search only fails
// on invalid input or a canceled context.
package search
