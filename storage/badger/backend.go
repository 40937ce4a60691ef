package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

const (
	defaultSequenceBandwidth = 100
)

// Backend wraps a BadgerDB instance and provides low-level operations.
// It implements storage.Connector; every session shares the ID sequences
// held here.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger

	seqMu     sync.Mutex
	sequences map[string]*badger.Sequence
	closeOnce sync.Once
	closeErr  error
}

var _ storage.Connector = (*Backend)(nil)

// BackendOption configures a Backend.
type BackendOption func(*Backend)

// WithLogger sets the logger used by the backend and by BadgerDB itself.
func WithLogger(logger *slog.Logger) BackendOption {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool, opts ...BackendOption) (*Backend, error) {
	b := &Backend{
		logger:    slog.Default(),
		sequences: make(map[string]*badger.Sequence),
	}
	for _, opt := range opts {
		opt(b)
	}

	var dbOpts badger.Options
	if inMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := ensureDir(filePath); err != nil {
			return nil, err
		}
		dbOpts = badger.DefaultOptions(filePath)
	}

	dbOpts.Logger = &badgerLoggerAdapter{logger: b.logger}
	dbOpts.Compression = options.None

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	b.db = db
	return b, nil
}

func ensureDir(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(filePath, 0755); err != nil {
			return err
		}
		if info, err = os.Stat(filePath); err != nil {
			return err
		}
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filePath)
	}
	return nil
}

// Close releases the ID sequences and closes the BadgerDB database.
// Close is idempotent.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		b.seqMu.Lock()
		var errs []error
		for name, seq := range b.sequences {
			if err := seq.Release(); err != nil {
				errs = append(errs, fmt.Errorf("release %s: %w", name, err))
			}
		}
		b.sequences = nil
		b.seqMu.Unlock()
		errs = append(errs, b.db.Close())
		b.closeErr = errors.Join(errs...)
	})
	return b.closeErr
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// Connect opens a new session on the backend.
// Implements storage.Connector interface.
func (b *Backend) Connect(ctx context.Context) (storage.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return newSession(b), nil
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// WithWriteBatch writes entries through a BadgerDB write batch, which splits
// oversized bulk inserts across as many transactions as needed.
func (b *Backend) WithWriteBatch(fn func(wb *badger.WriteBatch) error) error {
	if b.IsClosed() {
		return storage.ErrStorageClosed
	}
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	if err := fn(wb); err != nil {
		return err
	}
	return wb.Flush()
}

// NextID returns the next ID of the named sequence.
// BadgerDB sequences can return 0 on first call, so it is skipped.
func (b *Backend) NextID(name string) (core.ID, error) {
	seq, err := b.sequence(name)
	if err != nil {
		return 0, err
	}
	next, err := seq.Next()
	if err != nil {
		return 0, err
	}
	if next == 0 {
		if next, err = seq.Next(); err != nil {
			return 0, err
		}
	}
	return core.ID(next), nil
}

func (b *Backend) sequence(name string) (*badger.Sequence, error) {
	b.seqMu.Lock()
	defer b.seqMu.Unlock()
	if b.sequences == nil {
		return nil, storage.ErrStorageClosed
	}
	if seq, ok := b.sequences[name]; ok {
		return seq, nil
	}
	seq, err := b.db.GetSequence([]byte(name), defaultSequenceBandwidth)
	if err != nil {
		return nil, err
	}
	b.sequences[name] = seq
	return seq, nil
}

// readValue loads and decodes the value stored at key.
// Returns nil, nil if the key does not exist.
func readValue[T any](tx *badger.Txn, key []byte, decode func([]byte) (*T, error)) (*T, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out *T
	err = item.Value(func(val []byte) error {
		var err error
		out, err = decode(val)
		return err
	})
	return out, err
}

// scanIDs collects the IDs stored as values under prefix, in key order.
func scanIDs(tx *badger.Txn, prefix []byte) ([]core.ID, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var id core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
