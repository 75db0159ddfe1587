package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/fund"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"gorm.io/gorm"
)

// FundDirectoryModel is the persistence model of a fund directory entry
type FundDirectoryModel struct {
	FundID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	ControllerID uuid.UUID `gorm:"type:uuid;not null"`
	Owner        uuid.UUID `gorm:"type:uuid;not null;index"`
	Name         string    `gorm:"size:200;not null"`
	Symbol       string    `gorm:"size:20"`
	Denomination string    `gorm:"size:100;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the directory table name
func (FundDirectoryModel) TableName() string {
	return "fund_directory"
}

// GormFundDirectoryRepository implements fund.DirectoryRepository using GORM
type GormFundDirectoryRepository struct {
	db *gorm.DB
}

// NewGormFundDirectoryRepository creates a new GormFundDirectoryRepository
func NewGormFundDirectoryRepository(db *gorm.DB) *GormFundDirectoryRepository {
	return &GormFundDirectoryRepository{db: db}
}

// Migrate creates the directory table
func (r *GormFundDirectoryRepository) Migrate() error {
	return r.db.AutoMigrate(&FundDirectoryModel{})
}

// Save inserts a new directory entry
func (r *GormFundDirectoryRepository) Save(ctx context.Context, entry fund.DirectoryEntry) error {
	model := FundDirectoryModel{
		FundID:       entry.FundID,
		ControllerID: entry.ControllerID,
		Owner:        entry.Owner,
		Name:         entry.Name,
		Symbol:       entry.Symbol,
		Denomination: entry.Denomination.String(),
		CreatedAt:    entry.CreatedAt,
		UpdatedAt:    entry.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByID returns the entry for a fund
func (r *GormFundDirectoryRepository) FindByID(ctx context.Context, fundID uuid.UUID) (*fund.DirectoryEntry, error) {
	var model FundDirectoryModel
	if err := r.db.WithContext(ctx).First(&model, "fund_id = ?", fundID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	entry := toDirectoryEntry(model)
	return &entry, nil
}

// List returns all directory entries ordered by creation time
func (r *GormFundDirectoryRepository) List(ctx context.Context) ([]fund.DirectoryEntry, error) {
	var models []FundDirectoryModel
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&models).Error; err != nil {
		return nil, err
	}
	entries := make([]fund.DirectoryEntry, len(models))
	for i, m := range models {
		entries[i] = toDirectoryEntry(m)
	}
	return entries, nil
}

// UpdateController records a controller swap after an executed migration
func (r *GormFundDirectoryRepository) UpdateController(ctx context.Context, fundID, controllerID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&FundDirectoryModel{}).
		Where("fund_id = ?", fundID).
		Updates(map[string]interface{}{
			"controller_id": controllerID,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toDirectoryEntry(m FundDirectoryModel) fund.DirectoryEntry {
	return fund.DirectoryEntry{
		FundID:       m.FundID,
		ControllerID: m.ControllerID,
		Owner:        m.Owner,
		Name:         m.Name,
		Symbol:       m.Symbol,
		Denomination: valueobject.AssetID(m.Denomination),
		CreatedAt:    m.CreatedAt,
	}
}

var _ fund.DirectoryRepository = (*GormFundDirectoryRepository)(nil)
