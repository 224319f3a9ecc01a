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

// Package ai provides abstractions for the language-understanding oracle used
// by Pathways.
//
// The oracle is an external completion service that answers a system
// instruction plus user content with JSON-shaped text. Every classifier in the
// search and verify packages goes through it, and every one of them treats its
// output as untrusted: replies are extracted, repaired, validated against a
// JSON schema and only then decoded.
//
// # Design Principles
//
// The package is designed around two interfaces:
//
//   - Oracle: Completes a prompt and returns raw text
//   - AIProvider: Aggregates AI services for convenient initialization
//
// Decoding helpers live alongside them:
//
//   - ExtractJSON strips code fences and prose and repairs common defects
//   - Decode returns a Parsed value, either Decoded[T] or Malformed
//   - Ask combines a completion with bounded re-asks on malformed replies
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewOracle) return INTERFACE
// types to enforce abstraction. Test utility constructors (mock.NewMockOracle)
// return CONCRETE types to enable test assertions and behavior injection via
// the mock's public fields and methods (CompleteFunc, CallCount, Reset).
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	reply, err := ai.Ask[myReply](ctx, provider.Oracle(), system, user, schema, 3)
package ai
