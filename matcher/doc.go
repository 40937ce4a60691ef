// Package matcher holds the algorithm registry consulted by search workers
// and the matchers shipped with it.
//
// A Registry maps algorithm names to factories. Workers resolve the name of
// each dequeued request through Registry.New, binding the matcher to the
// worker's own storage session. An unregistered name yields
// ErrUnknownAlgorithm, which the worker records as a failed job.
//
// Two matchers are provided:
//
//   - "original": shared-feature matching scored by feature rarity and distance
//   - "semantic": cosine similarity of unit embeddings, via ai.Embedder
package matcher
