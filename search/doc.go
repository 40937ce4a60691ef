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


// Package search runs text-similarity search jobs asynchronously.
//
// A Pool owns a bounded request queue and a fixed set of workers. Each worker
// holds its own storage session and, for every request it claims:
//   - creates the job record in the Initialized state
//   - resolves the algorithm through the matcher registry and runs it
//   - stores the matches and records Done, or Failed with a diagnostic trace
//
// The CacheResolver answers whether an equivalent search already ran, and
// FindBigrams selects units in which two features co-occur. Searcher ties
// these together for callers that want a single entry point.
package search
