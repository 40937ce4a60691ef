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


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	tesserae "github.com/stephrichter/tesserae-v5"
	"github.com/stephrichter/tesserae-v5/ai"
	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/ingestion"
	"github.com/stephrichter/tesserae-v5/matcher"
	"github.com/stephrichter/tesserae-v5/metrics"
	"github.com/stephrichter/tesserae-v5/search"
	"github.com/stephrichter/tesserae-v5/storage"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := newApp(cfg).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(cfg *config) *cli.App {
	return &cli.App{
		Name:  "tesserae",
		Usage: "Intertext search over tokenized corpora",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   cfg.LogLevel,
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Load tokenized corpus files into the database",
				Action: ingestCommand,
				Flags: []cli.Flag{
					dbFlag(cfg),
					&cli.StringSliceFlag{
						Name:     "corpus",
						Aliases:  []string{"c"},
						Usage:    "Path to a YAML corpus file (repeatable)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of unit batches stored concurrently",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N units",
						Value: 100,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Run a search and print its matches",
				Action: searchCommand,
				Flags: []cli.Flag{
					dbFlag(cfg),
					&cli.StringFlag{
						Name:    "algorithm",
						Aliases: []string{"a"},
						Usage:   "Matcher to run (original, semantic)",
						Value:   matcher.OriginalName,
					},
					&cli.Uint64Flag{
						Name:     "source",
						Usage:    "Source text ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source-units",
						Usage: "Source unit type (line, phrase)",
						Value: core.UnitTypeLine,
					},
					&cli.Uint64Flag{
						Name:     "target",
						Usage:    "Target text ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "target-units",
						Usage: "Target unit type (line, phrase)",
						Value: core.UnitTypeLine,
					},
					&cli.StringFlag{
						Name:  "feature",
						Usage: "Feature type to match on",
						Value: core.FeatureLemmata,
					},
					&cli.StringSliceFlag{
						Name:  "stopword",
						Usage: "Token excluded from matching (repeatable)",
					},
					&cli.StringFlag{
						Name:  "freq-basis",
						Usage: "Frequency basis (texts, corpus)",
						Value: core.FreqBasisTexts,
					},
					&cli.IntFlag{
						Name:  "max-distance",
						Usage: "Maximum distance between matched tokens, 0 for no limit",
						Value: 10,
					},
					&cli.StringFlag{
						Name:  "distance-basis",
						Usage: "Distance basis (span, frequency)",
						Value: core.DistanceBasisSpan,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of search workers, 0 for the default",
						Value: cfg.Workers,
					},
					&cli.IntFlag{
						Name:  "queue-capacity",
						Usage: "Number of searches waiting for a worker before submission blocks",
						Value: cfg.QueueCapacity,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: cfg.EmbeddingHost,
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
						Value: cfg.EmbeddingModel,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Give up waiting for the search after this long",
						Value: 10 * time.Minute,
					},
					&cli.StringFlag{
						Name:  "metrics-file",
						Usage: "Write search metrics in Prometheus text format to this file",
					},
				},
			},
			{
				Name:      "status",
				Usage:     "Show the job recorded under a results ID",
				ArgsUsage: "<results-id>",
				Action:    statusCommand,
				Flags: []cli.Flag{
					dbFlag(cfg),
				},
			},
			{
				Name:   "bigram",
				Usage:  "List units containing both words at distinct positions",
				Action: bigramCommand,
				Flags: []cli.Flag{
					dbFlag(cfg),
					&cli.IntFlag{
						Name:     "word1",
						Usage:    "First feature index",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "word2",
						Usage:    "Second feature index",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "feature",
						Usage: "Feature type of both words",
						Value: core.FeatureLemmata,
					},
					&cli.StringFlag{
						Name:  "unit-type",
						Usage: "Unit type (line, phrase)",
						Value: core.UnitTypeLine,
					},
					&cli.Uint64SliceFlag{
						Name:     "text",
						Usage:    "Text ID to search (repeatable)",
						Required: true,
					},
				},
			},
		},
	}
}

func dbFlag(cfg *config) cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Value:    cfg.DB,
		Required: cfg.DB == "",
	}
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := tesserae.NewDatabase(c.String("db"), tesserae.WithoutEmbeddings())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline(
		ingestion.WithPoolSize(c.Int("pool-size")),
		ingestion.WithProgress(os.Stderr, c.Int("report-interval")),
	)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	for _, path := range c.StringSlice("corpus") {
		corpus, err := ingestion.LoadCorpus(path)
		if err != nil {
			return err
		}
		report, err := pipeline.Ingest(ctx, corpus)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		for i, id := range report.Texts {
			fmt.Fprintf(c.App.Writer, "%d\t%s\n", id, corpus.Texts[i].Title)
		}
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()
	algorithm := c.String("algorithm")

	dbOpts := []tesserae.DatabaseOption{tesserae.WithoutEmbeddings()}
	if algorithm == matcher.SemanticName {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
		)
		if err := aiConfig.Validate(); err != nil {
			return fmt.Errorf("invalid AI configuration: %w", err)
		}
		dbOpts = []tesserae.DatabaseOption{tesserae.WithAIConfig(aiConfig)}
	}

	db, err := tesserae.NewDatabase(c.String("db"), dbOpts...)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	monitor, err := metrics.NewJobMonitor(registry)
	if err != nil {
		return err
	}

	poolOpts := []search.PoolOption{
		search.WithMonitor(monitor),
		search.WithQueueCapacity(c.Int("queue-capacity")),
	}
	if workers := c.Int("workers"); workers > 0 {
		poolOpts = append(poolOpts, search.WithWorkers(workers))
	}
	searcher, err := db.NewSearcher(poolOpts...)
	if err != nil {
		return fmt.Errorf("failed to start searcher: %w", err)
	}
	defer searcher.Close()

	if err := metrics.RegisterQueueDepth(registry, searcher.Pool()); err != nil {
		return err
	}

	params := core.SearchParams{
		Source:        core.UnitSelector{ObjectID: core.ID(c.Uint64("source")), Units: c.String("source-units")},
		Target:        core.UnitSelector{ObjectID: core.ID(c.Uint64("target")), Units: c.String("target-units")},
		Feature:       c.String("feature"),
		Stopwords:     c.StringSlice("stopword"),
		FreqBasis:     c.String("freq-basis"),
		MaxDistance:   c.Int("max-distance"),
		DistanceBasis: c.String("distance-basis"),
	}

	resultsID, cached, err := searcher.Submit(ctx, algorithm, params)
	if err != nil {
		return fmt.Errorf("failed to submit search: %w", err)
	}
	slog.Info("search submitted", "results_id", resultsID, "cached", cached)

	job, err := waitForJob(ctx, searcher, resultsID, c.Duration("timeout"))
	if err != nil {
		return err
	}

	if path := c.String("metrics-file"); path != "" {
		if err := metrics.WriteTextfile(path, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	fmt.Fprintf(c.App.Writer, "results %s: %s\n", resultsID, job.Status)
	if job.Status != core.JobStatusDone {
		return fmt.Errorf("search failed: %s", firstLine(job.Message))
	}

	matches, err := searcher.Results(ctx, resultsID)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tTARGET\tSCORE\tFEATURES")
	for _, m := range matches {
		fmt.Fprintf(w, "%d\t%d\t%.4f\t%v\n", m.SourceUnit, m.TargetUnit, m.Score, m.Features)
	}
	return w.Flush()
}

// waitForJob polls until the job under resultsID is terminal.
func waitForJob(ctx context.Context, searcher *search.Searcher, resultsID string, timeout time.Duration) (*core.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		job, err := searcher.Status(ctx, resultsID)
		switch {
		case err == nil && job.Status.Terminal():
			return job, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for search %s: %w", resultsID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func statusCommand(c *cli.Context) error {
	resultsID := c.Args().First()
	if resultsID == "" {
		return fmt.Errorf("results ID is required")
	}

	db, err := tesserae.NewDatabase(c.String("db"), tesserae.WithoutEmbeddings())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	job, err := db.Session().Jobs().GetJobByResultsID(ctx, resultsID)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "job %d: %s\n", job.Id, job.Status)
	fmt.Fprintf(c.App.Writer, "algorithm: %s\n", job.Parameters.Method.Name)
	if job.Message != "" {
		fmt.Fprintf(c.App.Writer, "message: %s\n", firstLine(job.Message))
	}
	if job.Status == core.JobStatusDone {
		matches, err := db.Session().Matches().GetMatchesByJob(ctx, job.Id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "matches: %d\n", len(matches))
	}
	return nil
}

func bigramCommand(c *cli.Context) error {
	db, err := tesserae.NewDatabase(c.String("db"), tesserae.WithoutEmbeddings())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var textIDs []core.ID
	for _, id := range c.Uint64Slice("text") {
		textIDs = append(textIDs, core.ID(id))
	}
	units, err := search.FindBigrams(context.Background(), db.Session().Units(), search.BigramQuery{
		Word1:    c.Int("word1"),
		Word2:    c.Int("word2"),
		Feature:  c.String("feature"),
		UnitType: c.String("unit-type"),
		TextIDs:  textIDs,
	})
	if err != nil {
		return err
	}

	for _, u := range units {
		fmt.Fprintf(c.App.Writer, "%d\t%d\t%d\t%s\n", u.Id, u.TextID, u.Index, u.Text())
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
