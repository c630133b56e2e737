package index

import (
	"context"

	"github.com/intersect-sdl/sdl-doc-gen/internal/models"
)

// LinkIndex defines the read side of the link-graph store.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type LinkIndex interface {
	Lookup(ctx context.Context, uuid string) (*models.UUIDEntry, error)
	Backlinks(ctx context.Context, uuid string) (*models.Backlink, error)
	Entries(ctx context.Context, kind models.Kind) ([]models.UUIDEntry, error)
	Stats(ctx context.Context) (Stats, error)
	Orphans(ctx context.Context) ([]string, error)
	Close() error
}

// Verify *DB satisfies LinkIndex at compile time.
var _ LinkIndex = (*DB)(nil)
