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

// Package file implements storage.RecordStore over flat files.
//
// The record file holds one JSON object per line or a single JSON array of
// objects. Region tables are JSON objects mapping a region name to a list of
// institution identifiers or school names. Everything is read once when the
// store is opened and served from memory afterwards.
package file
