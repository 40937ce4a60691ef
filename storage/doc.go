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


// Package storage defines the persistence contracts of the search core.
//
// A Connector hands out Sessions. Each Session groups the repositories a
// caller needs and must not be shared between workers; the search pool opens
// one per worker goroutine. The badger subpackage implements the contracts on
// BadgerDB.
//
// # Repositories
//
//   - JobRepository: job records, looked up by id, results id or fingerprint
//   - MatchRepository: matcher output, grouped by job
//   - UnitRepository: text units and the feature index over them
//   - TextRepository: text metadata and token counts
//   - FeatureRepository: the feature vocabulary and per-text frequencies
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	sess, err := backend.Connect(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	job, err := sess.Jobs().GetJobByResultsID(ctx, resultsID)
//
// Use in tests with in-memory storage:
//
//	backend, err := badger.NewMemoryBackend()
//
// # Errors
//
// Lookups of missing records return ErrNotFound. Any call on a session whose
// backend was closed returns ErrStorageClosed.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
