// Package store provides the long-term memory store contract and its SQLite
// implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/agent-recall/internal/model"
)

var (
	// ErrMemoryNotFound is returned for unknown ids and for cross-session
	// lookups; callers never learn whether the id exists in another session.
	ErrMemoryNotFound = errors.New("store: memory not found")

	// ErrSessionCapacity is returned by Persist once the per-session
	// memory cap is reached.
	ErrSessionCapacity = errors.New("store: session memory cap reached")
)

// ForgottenMarker is the superseded_by value of a logically deleted memory
// (superseded by nothing). Memory ids are ULIDs, so it cannot collide.
const ForgottenMarker = "forgotten"

// QueryParams filters a Query.
type QueryParams struct {
	Type              model.MemoryType
	MinConfidence     float64
	Limit             int
	IncludeSuperseded bool
}

// Store is the durable-memory contract this core persists through. Every
// operation is scoped to a session; no call can observe another session's
// rows.
type Store interface {
	// Persist validates and stores a memory, returning its id. Fails with
	// ErrSessionCapacity at the per-session cap (capacity-count failures
	// fail open and do not block persistence).
	Persist(ctx context.Context, in model.MemoryInput) (string, error)

	// Query returns memories matching the filters, newest first.
	// Superseded and forgotten memories are excluded unless requested.
	Query(ctx context.Context, sessionID string, p QueryParams) ([]model.StoredMemory, error)

	// Get retrieves one memory, verifying it belongs to sessionID.
	Get(ctx context.Context, sessionID, memoryID string) (*model.StoredMemory, error)

	// Supersede marks oldID as replaced by newID. An empty newID forgets
	// the memory (logical delete with no successor).
	Supersede(ctx context.Context, sessionID, oldID, newID string) error

	// Forget is Supersede with no successor.
	Forget(ctx context.Context, sessionID, memoryID string) error

	// Delete hard-deletes a memory and its links.
	Delete(ctx context.Context, sessionID, memoryID string) error

	// RecordAccess bumps access tracking. Best-effort: failures are
	// logged and swallowed, never surfaced.
	RecordAccess(ctx context.Context, sessionID, memoryID string)

	// Count returns the number of memories in the session.
	Count(ctx context.Context, sessionID string, includeSuperseded bool) (int, error)

	// Link records a typed relationship between two memories of the
	// same session.
	Link(ctx context.Context, sessionID, fromID, toID string, rel model.Relationship) error

	// QueryRelated returns memories linked to memoryID by rel, in either
	// direction.
	QueryRelated(ctx context.Context, sessionID, memoryID string, rel model.Relationship) ([]model.StoredMemory, error)

	Close() error
}
