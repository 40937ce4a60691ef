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


package search

import "errors"

var (
	// ErrConnectorRequired is returned when a storage connector is not provided.
	ErrConnectorRequired = errors.New("storage connector required")

	// ErrRegistryRequired is returned when a matcher registry is not provided.
	ErrRegistryRequired = errors.New("matcher registry required")

	// ErrJobRepositoryRequired is returned when a job repository is not provided.
	ErrJobRepositoryRequired = errors.New("job repository required")

	// ErrUnitRepositoryRequired is returned when a unit repository is not provided.
	ErrUnitRepositoryRequired = errors.New("unit repository required")

	// ErrPoolClosed is returned by Enqueue once Shutdown has begun.
	ErrPoolClosed = errors.New("search pool closed")

	// ErrWorkerBootstrap is returned by NewPool when a worker cannot start.
	ErrWorkerBootstrap = errors.New("worker bootstrap failed")

	// ErrNilMatch is recorded when a matcher returns a nil match.
	ErrNilMatch = errors.New("matcher returned a nil match")

	// ErrResultsNotReady is returned when results are requested for a job that is not Done.
	ErrResultsNotReady = errors.New("results not ready")
)
