package models

import (
	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/ledger"
)

// LedgerEntryModel is the persistence model for token ledger entries.
// Rows are insert-only; nothing in the codebase updates or deletes them
// except the cascading user delete.
type LedgerEntryModel struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Delta       int       `gorm:"not null"`
	Reason      string    `gorm:"type:varchar(30);not null;index"`
	Description string    `gorm:"type:text"`
	ExternalRef string    `gorm:"type:varchar(255);index"`
	Metadata    JSONMap   `gorm:"type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "token_ledger_entries"
}

// ToDomain converts the model to a domain ledger entry
func (m *LedgerEntryModel) ToDomain() *ledger.Entry {
	return &ledger.Entry{
		BaseEntity:  m.BaseModel.ToDomain(),
		UserID:      m.UserID,
		Delta:       m.Delta,
		Reason:      ledger.Reason(m.Reason),
		Description: m.Description,
		ExternalRef: m.ExternalRef,
		Metadata:    ledger.Metadata(m.Metadata),
	}
}

// LedgerEntryModelFromDomain converts a domain ledger entry to a persistence model
func LedgerEntryModelFromDomain(e *ledger.Entry) *LedgerEntryModel {
	m := &LedgerEntryModel{
		UserID:      e.UserID,
		Delta:       e.Delta,
		Reason:      string(e.Reason),
		Description: e.Description,
		ExternalRef: e.ExternalRef,
		Metadata:    JSONMap(e.Metadata),
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}
