package badger

import (
	"context"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittoiod/internal/logger"
	"github.com/marmos91/dittoiod/pkg/store/object"
	"github.com/marmos91/dittoiod/pkg/store/object/internal"
)

// BadgerContainer implements object.Container using BadgerDB for persistence.
//
// BadgerDB provides durable, crash-safe storage; versioning on top of it is
// explicit in the key layout (see keys.go) rather than delegated to badger's
// own MVCC timestamps, so that transactions can be aborted after the fact
// and reads can target any past read context.
//
// Thread Safety:
// BadgerDB is safe for concurrent use. writeMu serializes the
// check-then-write mutations (object creation and exclusive inserts) so
// that exactly one of two racing inserts of the same key succeeds. Plain
// writes and all reads run without it.
type BadgerContainer struct {
	name string

	// db is the BadgerDB database handle
	db *badger.DB

	// ids leases object IDs for AllocateIDs
	ids *badger.Sequence

	// idMu keeps a multi-ID allocation contiguous
	idMu sync.Mutex

	// writeMu serializes Create and Insert
	writeMu sync.Mutex

	// closeOnce guards Close
	closeOnce sync.Once

	// mu protects closed
	mu     sync.RWMutex
	closed bool

	handles *internal.HandleTable
}

// BadgerContainerConfig contains configuration for a BadgerDB container.
type BadgerContainerConfig struct {
	// Name is the container name reported by Name()
	Name string `mapstructure:"name"`

	// DBPath is the directory where BadgerDB stores its files.
	// Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without touching disk
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites makes every write durable before returning
	SyncWrites bool `mapstructure:"sync_writes"`

	// IDLeaseSize is how many IDs are leased from the sequence at once
	// (default: 1000)
	IDLeaseSize uint64 `mapstructure:"id_lease_size"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// NewBadgerContainer opens (or creates) a BadgerDB-backed container.
//
// Parameters:
//   - ctx: Context for cancellation during initialization
//   - config: Database location and tuning
//
// Returns:
//   - *BadgerContainer: A container ready for concurrent use
//   - error: Error if the database cannot be opened
func NewBadgerContainer(ctx context.Context, config BadgerContainerConfig) (*BadgerContainer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.DBPath == "" {
			return nil, fmt.Errorf("badger container requires db_path unless in_memory is set")
		}
		opts = badger.DefaultOptions(config.DBPath)
	}

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}

	opts = opts.
		WithLogger(badgerLogger{}).
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None). // Records are tiny
		WithSyncWrites(config.SyncWrites).
		WithBlockCacheSize(blockCacheMB << 20).
		WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %q: %w", config.DBPath, err)
	}

	lease := config.IDLeaseSize
	if lease == 0 {
		lease = 1000
	}
	seq, err := db.GetSequence([]byte(keyIDSequence), lease)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open id sequence: %w", err)
	}

	name := config.Name
	if name == "" {
		name = "badger"
	}

	return &BadgerContainer{
		name:    name,
		db:      db,
		ids:     seq,
		handles: internal.NewHandleTable(),
	}, nil
}

// Name returns the container name.
func (s *BadgerContainer) Name() string {
	return s.name
}

// OpenHandles returns the number of handles currently open.
func (s *BadgerContainer) OpenHandles() int {
	return s.handles.Len()
}

func (s *BadgerContainer) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return object.NewError(object.ErrClosed, "container is closed")
	}
	return nil
}

// Abort discards every write and creation made under wtid.
//
// The undo log of the transaction is scanned in a read transaction and the
// named keys are removed through a WriteBatch, so aborting a transaction
// with many writes does not run into badger's per-transaction size limit.
func (s *BadgerContainer) Abort(ctx context.Context, wtid object.TransID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var undo [][]byte
	prefix := keyUndoPrefix(wtid)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			undo = append(undo, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return ioError("failed to scan undo log", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range undo {
		if err := wb.Delete(key[len(prefix):]); err != nil {
			return ioError("failed to discard write", err)
		}
		if err := wb.Delete(key); err != nil {
			return ioError("failed to discard undo entry", err)
		}
	}
	if err := wb.Set(keyAborted(wtid), nil); err != nil {
		return ioError("failed to mark transaction aborted", err)
	}
	if err := wb.Flush(); err != nil {
		return ioError("failed to flush abort", err)
	}

	logger.Debug("badger container %s: aborted transaction %d (%d writes discarded)", s.name, wtid, len(undo))
	return nil
}

// AllocateIDs reserves n consecutive IDs from the persistent sequence.
func (s *BadgerContainer) AllocateIDs(ctx context.Context, n uint64) (object.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return object.UndefinedID, err
	}
	if n == 0 {
		return object.UndefinedID, object.NewError(object.ErrInvalidArgument, "cannot allocate zero ids")
	}
	if err := s.checkOpen(); err != nil {
		return object.UndefinedID, err
	}

	s.idMu.Lock()
	defer s.idMu.Unlock()

	var first uint64
	for i := uint64(0); i < n; i++ {
		next, err := s.ids.Next()
		if err != nil {
			return object.UndefinedID, ioError("failed to allocate id", err)
		}
		if i == 0 {
			first = next
		}
	}
	// Sequence values start at 0; shift so that 0 is never handed out.
	return object.ObjectID(first + 1), nil
}

// Close releases the ID lease and closes BadgerDB.
func (s *BadgerContainer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.handles.Reset()
		if relErr := s.ids.Release(); relErr != nil {
			logger.Warn("badger container %s: failed to release id lease: %v", s.name, relErr)
		}
		if closeErr := s.db.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close BadgerDB: %w", closeErr)
		}
	})
	return err
}

func ioError(message string, err error) error {
	return fmt.Errorf("%w: %v", object.NewError(object.ErrIOError, message), err)
}

// badgerLogger routes badger's internal logging into the process logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any)   { logger.Error("badger: "+format, args...) }
func (badgerLogger) Warningf(format string, args ...any) { logger.Warn("badger: "+format, args...) }
func (badgerLogger) Infof(format string, args ...any)    { logger.Debug("badger: "+format, args...) }
func (badgerLogger) Debugf(format string, args ...any)   { logger.Debug("badger: "+format, args...) }
