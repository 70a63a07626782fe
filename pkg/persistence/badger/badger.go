package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/vsc-eco/vsc-client-go/pkg/persistence"
	"go.uber.org/zap"
)

const (
	keyPrefixNonce       = "nonce:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	gcInterval = 5 * time.Minute
)

// BadgerPersistence keeps the nonce cache on disk so it survives restarts.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool

	// serializes write transactions; concurrent read-modify-write
	// transactions on one key otherwise fail with ErrConflict
	writeMu sync.Mutex
}

var _ persistence.INoncePersistence = (*BadgerPersistence)(nil)

// NewBadgerPersistence opens (or creates) the database at dataPath and starts
// background value log GC.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	if dataPath == "" {
		return nil, fmt.Errorf("badger data path cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}
	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger nonce cache initialized", "path", absPath)
	return bp, nil
}

func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		if err := item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		}); err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}
		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}
		return nil
	})
}

func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		}
	}
}

func nonceKey(keyGroup string) []byte {
	return []byte(keyPrefixNonce + keyGroup)
}

func readNonce(txn *badgerdb.Txn, keyGroup string) (uint64, bool, error) {
	item, err := txn.Get(nonceKey(keyGroup))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var nonce uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("invalid nonce encoding of %d bytes", len(val))
		}
		nonce = binary.BigEndian.Uint64(val)
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return nonce, true, nil
}

func writeNonce(txn *badgerdb.Txn, keyGroup string, nonce uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, nonce)
	return txn.Set(nonceKey(keyGroup), buf)
}

func (b *BadgerPersistence) GetNonce(_ context.Context, keyGroup string) (uint64, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, false, persistence.ErrClosed
	}

	var (
		nonce uint64
		found bool
	)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		var err error
		nonce, found, err = readNonce(txn, keyGroup)
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to load nonce: %w", err)
	}
	return nonce, found, nil
}

func (b *BadgerPersistence) SetNonce(_ context.Context, keyGroup string, nonce uint64) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := b.db.Update(func(txn *badgerdb.Txn) error {
		return writeNonce(txn, keyGroup, nonce)
	}); err != nil {
		return fmt.Errorf("failed to save nonce: %w", err)
	}
	return nil
}

func (b *BadgerPersistence) IncrementNonce(_ context.Context, keyGroup string) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, persistence.ErrClosed
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	var next uint64
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		nonce, found, err := readNonce(txn, keyGroup)
		if err != nil {
			return err
		}
		if !found {
			return persistence.ErrNonceNotFound
		}
		next = nonce + 1
		return writeNonce(txn, keyGroup, next)
	})
	if errors.Is(err, persistence.ErrNonceNotFound) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment nonce: %w", err)
	}
	return next, nil
}

func (b *BadgerPersistence) DeleteNonce(_ context.Context, keyGroup string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(nonceKey(keyGroup))
	}); err != nil {
		return fmt.Errorf("failed to delete nonce: %w", err)
	}
	return nil
}

func (b *BadgerPersistence) HealthCheck(_ context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}
	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err != nil {
			return fmt.Errorf("schema version not readable: %w", err)
		}
		return nil
	})
}

func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	b.logger.Sugar().Info("Badger nonce cache closed")
	return nil
}
