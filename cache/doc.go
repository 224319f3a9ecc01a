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

// Package cache memoizes oracle-derived results by fingerprint.
//
// A Layer sits in front of a storage.Cache backend and adds JSON encoding,
// a default time-to-live, metrics and in-flight deduplication: concurrent
// requests for the same key run the computation once. Backend failures are
// logged and treated as misses, so the cache never changes an answer, only
// how often the oracle is asked for it.
//
// A nil *Layer is valid and caches nothing.
package cache
