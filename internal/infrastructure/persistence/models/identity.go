package models

import (
	"github.com/vidgen/backend/internal/domain/identity"
)

// UserModel is the persistence model for users
type UserModel struct {
	BaseModel
	Email          string `gorm:"type:varchar(255);not null;uniqueIndex"`
	FullName       string `gorm:"type:varchar(200);not null"`
	HashedPassword string `gorm:"type:varchar(255);not null"`
	Active         bool   `gorm:"not null;default:false"`
	// No default tag: gorm would omit a zero balance on insert and let the
	// column default overwrite it, desyncing users.tokens from the ledger.
	Tokens int `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the model to a domain user
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseEntity:     m.BaseModel.ToDomain(),
		Email:          m.Email,
		FullName:       m.FullName,
		HashedPassword: m.HashedPassword,
		Active:         m.Active,
		Tokens:         m.Tokens,
	}
}

// UserModelFromDomain converts a domain user to a persistence model
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Email:          u.Email,
		FullName:       u.FullName,
		HashedPassword: u.HashedPassword,
		Active:         u.Active,
		Tokens:         u.Tokens,
	}
	m.FromDomainBaseEntity(u.BaseEntity)
	return m
}
