package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	tesserae "github.com/stephrichter/tesserae-v5"
	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/ingestion"
)

const corpusPath = "../../ingestion/testdata/corpus.yaml"

func testConfig() *config {
	return &config{
		QueueCapacity:  16,
		EmbeddingHost:  "http://localhost:11434/v1",
		EmbeddingModel: "embeddinggemma",
		LogLevel:       "error",
	}
}

func runApp(t *testing.T, cfg *config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp(cfg)
	app.Writer = &out
	err := app.Run(append([]string{"tesserae"}, args...))
	return out.String(), err
}

// ingestFixture stores the test corpus and returns the IDs of its texts.
func ingestFixture(t *testing.T, dbPath string) []core.ID {
	t.Helper()
	db, err := tesserae.NewDatabase(dbPath, tesserae.WithoutEmbeddings())
	require.NoError(t, err)
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	corpus, err := ingestion.LoadCorpus(corpusPath)
	require.NoError(t, err)
	report, err := pipeline.Ingest(context.Background(), corpus)
	require.NoError(t, err)
	return report.Texts
}

func findFlag(t *testing.T, cmd *cli.Command, name string) cli.Flag {
	t.Helper()
	for _, flag := range cmd.Flags {
		for _, n := range flag.Names() {
			if n == name {
				return flag
			}
		}
	}
	t.Fatalf("flag %q not found on %s", name, cmd.Name)
	return nil
}

func TestSetupLogger(t *testing.T) {
	_, err := runApp(t, testConfig(), "--log-level", "verbose", "status", "--db", t.TempDir(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestFlagDefaultsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.DB = "/var/lib/tesserae"
	cfg.Workers = 3
	app := newApp(cfg)

	var search *cli.Command
	for _, cmd := range app.Commands {
		if cmd.Name == "search" {
			search = cmd
		}
	}
	require.NotNil(t, search)

	db := findFlag(t, search, "db").(*cli.StringFlag)
	assert.Equal(t, "/var/lib/tesserae", db.Value)
	assert.False(t, db.Required)

	workers := findFlag(t, search, "workers").(*cli.IntFlag)
	assert.Equal(t, 3, workers.Value)

	queue := findFlag(t, search, "queue-capacity").(*cli.IntFlag)
	assert.Equal(t, 16, queue.Value)
}

func TestDBRequiredWithoutConfig(t *testing.T) {
	_, err := runApp(t, testConfig(), "bigram", "--word1", "0", "--word2", "1", "--text", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TESSERAE_DB", "/data/tesserae")
	t.Setenv("TESSERAE_WORKERS", "6")
	t.Setenv("TESSERAE_EMBEDDING_MODEL", "nomic-embed-text")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/data/tesserae", cfg.DB)
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, 1024, cfg.QueueCapacity)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_InvalidNumber(t *testing.T) {
	t.Setenv("TESSERAE_WORKERS", "many")

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestIngestCommand(t *testing.T) {
	dbPath := t.TempDir()

	out, err := runApp(t, testConfig(), "ingest", "--db", dbPath, "--corpus", corpusPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Aeneid")
	assert.Contains(t, out, "Pharsalia")

	_, err = runApp(t, testConfig(), "ingest", "--db", dbPath, "--corpus", "missing.yaml")
	assert.Error(t, err)
}

func TestSearchCommand(t *testing.T) {
	dbPath := t.TempDir()
	texts := ingestFixture(t, dbPath)
	aeneid := strconv.FormatUint(uint64(texts[0]), 10)
	metricsFile := filepath.Join(t.TempDir(), "search.prom")

	out, err := runApp(t, testConfig(), "search",
		"--db", dbPath,
		"--source", aeneid, "--source-units", "phrase",
		"--target", aeneid, "--target-units", "line",
		"--freq-basis", "corpus",
		"--workers", "1",
		"--metrics-file", metricsFile,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Done")
	assert.Contains(t, out, "[0 1 2]")

	written, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(written), "tesserae_search_jobs_started_total")
}

func TestSearchCommand_UnknownAlgorithm(t *testing.T) {
	dbPath := t.TempDir()
	texts := ingestFixture(t, dbPath)
	aeneid := strconv.FormatUint(uint64(texts[0]), 10)

	out, err := runApp(t, testConfig(), "search",
		"--db", dbPath,
		"--algorithm", "nonexistent",
		"--source", aeneid,
		"--target", aeneid,
		"--workers", "1",
	)
	require.Error(t, err)
	assert.Contains(t, out, "Failed")
	assert.Contains(t, err.Error(), "unknown algorithm")
}

func TestStatusCommand(t *testing.T) {
	dbPath := t.TempDir()
	ingestFixture(t, dbPath)

	_, err := runApp(t, testConfig(), "status", "--db", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "results ID is required")

	_, err = runApp(t, testConfig(), "status", "--db", dbPath, "missing")
	assert.Error(t, err)
}

func TestBigramCommand(t *testing.T) {
	dbPath := t.TempDir()
	texts := ingestFixture(t, dbPath)

	out, err := runApp(t, testConfig(), "bigram",
		"--db", dbPath,
		"--word1", "0", "--word2", "1",
		"--unit-type", "phrase",
		"--text", strconv.FormatUint(uint64(texts[0]), 10),
		"--text", strconv.FormatUint(uint64(texts[1]), 10),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "arma virumque cano arma")
}
