package types

import "context"

// Provider is the single entry point UI collaborators use to read and mutate
// schedule data. Targets are resource identifiers such as
// "content://<authority>/sessions/<id>".
//
// A mutation is treated as coming from the trusted sync collaborator when its
// identifier carries the caller_is_syncadapter=true parameter or, for batch
// operations, when Operation.FromSync is set. Only the sync path should set
// it; nothing enforces that.
type Provider interface {
	// TypeOf returns the MIME-like type of the identifier: a collection
	// ("dir") or a single item.
	TypeOf(uri string) (string, error)

	// Query runs the query plan for uri and returns the matching rows.
	Query(ctx context.Context, uri string, q Query) (*ResultSet, error)

	// Insert writes values into the table behind uri, replacing any row with
	// the same natural key, and returns the identifier of the stored item.
	Insert(ctx context.Context, uri string, values Values) (string, error)

	// Update applies values to the rows selected by uri and selection.
	Update(ctx context.Context, uri string, values Values, selection string, args ...any) (int64, error)

	// Delete removes the rows selected by uri and selection. Deleting the
	// root identifier erases the whole store.
	Delete(ctx context.Context, uri string, selection string, args ...any) (int64, error)

	// ApplyBatch runs ops in one transaction. If any operation fails the
	// whole batch is rolled back and a *BatchError is returned.
	ApplyBatch(ctx context.Context, ops []Operation) ([]Result, error)
}

// Store is a Provider with a lifecycle and storage maintenance operations.
type Store interface {
	Provider

	// Attach opens, creates or upgrades the store described by config.
	// Returns ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases the store. Idempotent.
	Detach() error

	// RebuildSearchIndex regenerates the session full-text index from the
	// current session and speaker rows.
	RebuildSearchIndex(ctx context.Context) error

	// Version returns the schema version of the attached store.
	Version(ctx context.Context) (int, error)
}

// Change is a change notification for a mutated identifier.
type Change struct {
	URI string `json:"uri"`
	// SyncToNetwork is false when the mutation came from the sync
	// collaborator itself, so it must not be pushed back upstream.
	SyncToNetwork bool `json:"sync_to_network"`
}

// Notifier receives change notifications after successful mutations.
type Notifier interface {
	NotifyChange(ctx context.Context, c Change) error
	// RefreshWidgets broadcasts that home-screen widgets should reload.
	RefreshWidgets(ctx context.Context) error
}

// SyncController is the external sync collaborator as seen by the store.
type SyncController interface {
	// CancelSync stops any in-flight sync before a schema upgrade.
	CancelSync(ctx context.Context) error
	// RequestSync asks for a fresh sync once an upgrade has finished.
	RequestSync(ctx context.Context) error
}
