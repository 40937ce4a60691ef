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


package tesserae

import (
	"context"
	"log/slog"

	"github.com/stephrichter/tesserae-v5/ai"
	"github.com/stephrichter/tesserae-v5/ai/openai"
	"github.com/stephrichter/tesserae-v5/ingestion"
	"github.com/stephrichter/tesserae-v5/matcher"
	"github.com/stephrichter/tesserae-v5/search"
	"github.com/stephrichter/tesserae-v5/storage"
	"github.com/stephrichter/tesserae-v5/storage/badger"
)

type Database struct {
	backend  *badger.Backend
	session  storage.Session
	provider ai.Provider
	registry *matcher.Registry
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig    *ai.Config
	provider    ai.Provider
	noEmbedder  bool
	inMemory    bool
	semanticOps []matcher.SemanticOption
	logger      *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
func WithProvider(provider ai.Provider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithoutEmbeddings disables the embedding provider and the semantic matcher.
func WithoutEmbeddings() DatabaseOption {
	return func(o *databaseOptions) {
		o.noEmbedder = true
	}
}

// WithSemanticOptions configures the semantic matcher.
func WithSemanticOptions(opts ...matcher.SemanticOption) DatabaseOption {
	return func(o *databaseOptions) {
		o.semanticOps = append(o.semanticOps, opts...)
	}
}

// InMemory keeps all data in memory; filePath is ignored.
func InMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory, badger.WithLogger(options.logger))
	if err != nil {
		return nil, err
	}

	session, err := backend.Connect(context.Background())
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil && !options.noEmbedder {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			session.Close()
			backend.Close()
			return nil, err
		}
	}

	var embedder ai.Embedder
	if provider != nil && !options.noEmbedder {
		embedder = provider.Embedder()
	}
	registry := matcher.NewRegistry()
	if err := matcher.RegisterBuiltins(registry, embedder, options.semanticOps...); err != nil {
		if provider != nil {
			provider.Close()
		}
		session.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:  backend,
		session:  session,
		provider: provider,
		registry: registry,
		logger:   options.logger,
	}, nil
}

func (db *Database) Close() error {
	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
		}
	}

	if err := db.session.Close(); err != nil {
		db.logger.Error("error closing session", "err", err)
		return err
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Connector opens additional sessions on the database.
func (db *Database) Connector() storage.Connector {
	return db.backend
}

// Session is the database's own session, shared by ingestion pipelines.
func (db *Database) Session() storage.Session {
	return db.session
}

// Registry holds the matchers available to searchers.
func (db *Database) Registry() *matcher.Registry {
	return db.registry
}

func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(db.session, opts...)
}

// NewSearcher starts a search pool on the database. The caller must Close it
// before closing the database.
func (db *Database) NewSearcher(opts ...search.PoolOption) (*search.Searcher, error) {
	opts = append([]search.PoolOption{search.WithLogger(db.logger)}, opts...)
	return search.NewSearcher(db.backend, db.registry, opts...)
}
