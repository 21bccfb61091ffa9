package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
)

// Storage defines a unified interface for all storage operations.
// Playthrough snapshots live in a session store (Redis or SQLite); adventure
// documents are loaded from the filesystem.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session snapshots. A missing session loads as (nil, nil).
	SaveSnapshot(ctx context.Context, id uuid.UUID, snap *engine.Snapshot) error
	LoadSnapshot(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id uuid.UUID) error

	// Adventure documents. ListAdventures maps adventure id to title.
	// A missing adventure loads as (nil, nil).
	ListAdventures(ctx context.Context) (map[string]string, error)
	GetAdventure(ctx context.Context, id string) (*adventure.Adventure, error)
}
