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

// Package verify cross-checks the classification codes attached to program
// records against what the conversation is actually asking for.
//
// Two verifiers share one discipline: group the work by distinct code, send
// it to a classifier in batches, and fall back to a deterministic local check
// when the classifier cannot answer.
//
//   - ProgramVerifier validates program classification codes (NN.NNNN). It
//     may correct a code whose family does not fit the conversation. Its
//     local fallback only checks the format and never corrects.
//   - CareerVerifier filters occupation codes (NN-NNNN). Its local fallback
//     keeps every well-formed code, preferring an extra career code over a
//     missing one.
//
// Both verifiers return exactly one result per input, in input order.
package verify
