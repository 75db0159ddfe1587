package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// JournalRecord is one persisted domain event. The journal is
// append-only and forms the protocol's durable audit trail: every
// settlement, policy rejection, migration phase and accessor change
// ends up here.
type JournalRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventType     string    `gorm:"size:100;not null;index"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null;index"`
	AggregateType string    `gorm:"size:100;not null"`
	FundID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Payload       string    `gorm:"type:text;not null"`
	OccurredAt    time.Time `gorm:"not null;index"`
	RecordedAt    time.Time `gorm:"not null"`
}

// TableName returns the journal table name
func (JournalRecord) TableName() string {
	return "event_journal"
}

// Journal persists every published domain event to the database
type Journal struct {
	db *gorm.DB
}

// NewJournal creates an event journal backed by the given database
func NewJournal(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

// Migrate creates the journal table
func (j *Journal) Migrate() error {
	return j.db.AutoMigrate(&JournalRecord{})
}

// EventTypes returns nil: the journal subscribes to all events
func (j *Journal) EventTypes() []string {
	return nil
}

// Handle serializes and appends one event to the journal
func (j *Journal) Handle(ctx context.Context, ev shared.DomainEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	record := JournalRecord{
		ID:            ev.EventID(),
		EventType:     ev.EventType(),
		AggregateID:   ev.AggregateID(),
		AggregateType: ev.AggregateType(),
		FundID:        ev.FundID(),
		Payload:       string(payload),
		OccurredAt:    ev.OccurredAt(),
		RecordedAt:    time.Now(),
	}
	return j.db.WithContext(ctx).Create(&record).Error
}

// ByFund returns a fund's journal entries in occurrence order
func (j *Journal) ByFund(ctx context.Context, fundID uuid.UUID, limit int) ([]JournalRecord, error) {
	var records []JournalRecord
	q := j.db.WithContext(ctx).
		Where("fund_id = ?", fundID).
		Order("occurred_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

var _ shared.EventHandler = (*Journal)(nil)
