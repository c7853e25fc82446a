package models

import (
	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/generation"
)

// GenerationModel is the persistence model for generation records
type GenerationModel struct {
	BaseModel
	UserID            uuid.UUID `gorm:"type:uuid;not null;index"`
	Prompt            string    `gorm:"type:text;not null"`
	Type              string    `gorm:"type:varchar(10);not null;index"`
	MediaReference    string    `gorm:"type:varchar(512)"`
	ReferenceImageKey string    `gorm:"type:varchar(512)"`
	Status            string    `gorm:"type:varchar(10);not null;default:'success'"`
}

// TableName returns the table name for GORM
func (GenerationModel) TableName() string {
	return "generations"
}

// ToDomain converts the model to a domain generation
func (m *GenerationModel) ToDomain() *generation.Generation {
	return &generation.Generation{
		BaseEntity:        m.BaseModel.ToDomain(),
		UserID:            m.UserID,
		Prompt:            m.Prompt,
		Type:              generation.Type(m.Type),
		MediaReference:    m.MediaReference,
		ReferenceImageKey: m.ReferenceImageKey,
		Status:            generation.Status(m.Status),
	}
}

// GenerationModelFromDomain converts a domain generation to a persistence model
func GenerationModelFromDomain(g *generation.Generation) *GenerationModel {
	m := &GenerationModel{
		UserID:            g.UserID,
		Prompt:            g.Prompt,
		Type:              string(g.Type),
		MediaReference:    g.MediaReference,
		ReferenceImageKey: g.ReferenceImageKey,
		Status:            string(g.Status),
	}
	m.FromDomainBaseEntity(g.BaseEntity)
	return m
}
