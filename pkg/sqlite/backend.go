// Package sqlite provides the public constructor for the SQLite schedule
// store while keeping the implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/confsched/internal/sqlite"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// Option configures a store created by NewBackend.
type Option = sqlite.Option

// WithNotifier sets the collaborator that receives change notifications.
func WithNotifier(n types.Notifier) Option { return sqlite.WithNotifier(n) }

// WithSyncController sets the collaborator that is paused around schema
// upgrades.
func WithSyncController(s types.SyncController) Option { return sqlite.WithSyncController(s) }

// NewBackend creates a new SQLite store. It is not attached; call Attach
// with a Config before use.
//
// Example:
//
//	store := sqlite.NewBackend()
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: dataDir,
//	})
//	defer store.Detach()
func NewBackend(opts ...Option) types.Store {
	return sqlite.NewBackend(opts...)
}
