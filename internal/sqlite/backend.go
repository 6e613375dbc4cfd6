package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/confsched/internal/logging"
	"github.com/mesh-intelligence/confsched/internal/metrics"
	"github.com/mesh-intelligence/confsched/internal/notify"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// DatabaseFile is the name of the database inside Config.DataDir.
const DatabaseFile = "schedule.db"

// Connection defaults applied when Config leaves them unset.
const (
	DefaultBusyTimeoutMS = 5000
	DefaultJournalMode   = "wal"
)

// Backend implements types.Store on a single SQLite database.
//
// Readers share mu; writers additionally serialize on writeMu so that each
// mutation or batch runs alone. Wipe and the lifecycle methods take mu
// exclusively.
type Backend struct {
	mu       sync.RWMutex
	writeMu  sync.Mutex
	attached bool
	config   types.Config
	dbPath   string
	db       *sql.DB

	notifier types.Notifier
	sync     types.SyncController
	log      zerolog.Logger
}

var _ types.Store = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithNotifier sets the receiver of change notifications. The default
// discards them.
func WithNotifier(n types.Notifier) Option {
	return func(b *Backend) {
		if n != nil {
			b.notifier = n
		}
	}
}

// WithSyncController sets the sync collaborator that is paused around
// schema upgrades.
func WithSyncController(s types.SyncController) Option {
	return func(b *Backend) { b.sync = s }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// NewBackend creates a detached backend. Call Attach before use.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		notifier: notify.Nop{},
		log:      logging.WithComponent("sqlite"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens the database in config.DataDir, creating it at
// CurrentVersion if it is new and upgrading it if it is older. A sync
// collaborator, if set, is cancelled before an upgrade and asked to resync
// after it.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, DatabaseFile)

	db, err := openDB(dbPath, config)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := b.prepareSchema(ctx, db); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.dbPath = dbPath
	b.config = config
	b.attached = true
	b.log.Debug().Str("path", dbPath).Msg("store attached")
	return nil
}

func openDB(path string, config types.Config) (*sql.DB, error) {
	busy := config.BusyTimeoutMS
	if busy == 0 {
		busy = DefaultBusyTimeoutMS
	}
	mode := config.JournalMode
	if mode == "" {
		mode = DefaultJournalMode
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(%s)", path, busy, mode)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return db, nil
}

// prepareSchema brings db to CurrentVersion.
func (b *Backend) prepareSchema(ctx context.Context, db *sql.DB) error {
	v, err := readVersion(ctx, db)
	if err != nil {
		return err
	}
	switch {
	case v == CurrentVersion:
		return nil
	case v == 0:
		if err := createSchema(ctx, db); err != nil {
			return err
		}
		metrics.RecordMigration(metrics.KindCreate)
		b.log.Info().Int("version", CurrentVersion).Msg("schema created")
		return nil
	}

	if b.sync != nil {
		if err := b.sync.CancelSync(ctx); err != nil {
			b.log.Warn().Err(err).Msg("cancelling sync before upgrade")
		}
	}
	if _, err := upgradeSchema(ctx, db, v); err != nil {
		return err
	}
	if b.sync != nil {
		if err := b.sync.RequestSync(ctx); err != nil {
			b.log.Warn().Err(err).Msg("requesting sync after upgrade")
		}
	}
	return nil
}

// Detach closes the database. After Detach every operation returns
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	db := b.db
	b.db = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Version returns the schema version stored in the database.
func (b *Backend) Version(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return 0, types.ErrStoreDetached
	}
	return readVersion(context.WithoutCancel(ctx), b.db)
}

// Wipe deletes the database files and creates an empty store at
// CurrentVersion in their place.
func (b *Backend) Wipe(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	if err := b.db.Close(); err != nil {
		b.log.Warn().Err(err).Msg("closing database before wipe")
	}
	b.db = nil
	b.attached = false

	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(b.dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", b.dbPath+suffix, err)
		}
	}

	db, err := openDB(b.dbPath, b.config)
	if err != nil {
		return err
	}
	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return err
	}
	b.db = db
	b.attached = true
	metrics.RecordMigration(metrics.KindWipe)
	b.log.Warn().Str("path", b.dbPath).Msg("store wiped")
	return nil
}

// reader returns the database for a read, holding mu shared. The caller
// must invoke the returned release func.
func (b *Backend) reader() (*sql.DB, func(), error) {
	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return nil, nil, types.ErrStoreDetached
	}
	return b.db, b.mu.RUnlock, nil
}

// writer is reader plus the write lock.
func (b *Backend) writer() (*sql.DB, func(), error) {
	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return nil, nil, types.ErrStoreDetached
	}
	b.writeMu.Lock()
	return b.db, func() {
		b.writeMu.Unlock()
		b.mu.RUnlock()
	}, nil
}
