package main

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// config holds process defaults read from the environment. Command line
// flags override every field.
type config struct {
	DB             string `envconfig:"TESSERAE_DB" default:""`
	Workers        int    `envconfig:"TESSERAE_WORKERS" default:"0"`
	QueueCapacity  int    `envconfig:"TESSERAE_QUEUE_CAPACITY" default:"1024"`
	EmbeddingHost  string `envconfig:"TESSERAE_EMBEDDING_HOST" default:"http://localhost:11434/v1"`
	EmbeddingModel string `envconfig:"TESSERAE_EMBEDDING_MODEL" default:"embeddinggemma"`
	LogLevel       string `envconfig:"TESSERAE_LOG_LEVEL" default:"info"`
}

// loadConfig reads an optional .env file from the working directory, then
// the environment. Variables already set take precedence over .env entries.
func loadConfig() (*config, error) {
	_ = godotenv.Load()

	cfg := new(config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
