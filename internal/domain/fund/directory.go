package fund

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
)

// DirectoryEntry is the persistent registry record of a fund: the
// durable facts about a fund that outlive any single controller
type DirectoryEntry struct {
	FundID       uuid.UUID
	ControllerID uuid.UUID
	Owner        uuid.UUID
	Name         string
	Symbol       string
	Denomination valueobject.AssetID
	CreatedAt    time.Time
}

// DirectoryRepository persists the fund directory
type DirectoryRepository interface {
	// Save inserts a new directory entry
	Save(ctx context.Context, entry DirectoryEntry) error
	// FindByID returns the entry for a fund, or nil when unknown
	FindByID(ctx context.Context, fundID uuid.UUID) (*DirectoryEntry, error)
	// List returns all directory entries ordered by creation time
	List(ctx context.Context) ([]DirectoryEntry, error)
	// UpdateController records a controller swap after an executed migration
	UpdateController(ctx context.Context, fundID, controllerID uuid.UUID) error
}
