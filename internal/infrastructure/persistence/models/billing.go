package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vidgen/backend/internal/domain/billing"
)

// SubscriptionModel is the persistence model for token purchases.
// The unique index on TransactionID enforces at-most-once processing of a
// payment event at the database level.
type SubscriptionModel struct {
	BaseModel
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	TokensPurchased int             `gorm:"not null"`
	AmountPaid      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PaymentStatus   string          `gorm:"type:varchar(20);not null"`
	PaymentMethod   string          `gorm:"type:varchar(20);not null"`
	TransactionID   string          `gorm:"type:varchar(255);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ToDomain converts the model to a domain subscription
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	return &billing.Subscription{
		BaseEntity:      m.BaseModel.ToDomain(),
		UserID:          m.UserID,
		TokensPurchased: m.TokensPurchased,
		AmountPaid:      m.AmountPaid,
		PaymentStatus:   billing.PaymentStatus(m.PaymentStatus),
		PaymentMethod:   m.PaymentMethod,
		TransactionID:   m.TransactionID,
	}
}

// SubscriptionModelFromDomain converts a domain subscription to a persistence model
func SubscriptionModelFromDomain(s *billing.Subscription) *SubscriptionModel {
	m := &SubscriptionModel{
		UserID:          s.UserID,
		TokensPurchased: s.TokensPurchased,
		AmountPaid:      s.AmountPaid,
		PaymentStatus:   string(s.PaymentStatus),
		PaymentMethod:   s.PaymentMethod,
		TransactionID:   s.TransactionID,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}
