// Package ingestion loads pre-tokenized corpora into storage.
//
// A corpus document (YAML) lists a feature vocabulary and texts with their
// line and phrase units. Pipeline.Ingest stores:
//   - the features not already present
//   - the texts
//   - the units, one batch per text and unit type, concurrently
//
// It then records per-text feature frequencies and token counts, which the
// original matcher uses as its frequency basis.
package ingestion
