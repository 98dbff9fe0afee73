package form

import (
	"time"

	"formcraft/internal/domain"
)

// FormModel keeps fields and theme as JSON columns so field order survives
// every round trip.
type FormModel struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)"`
	Title       string         `gorm:"size:255;not null"`
	Description string         `gorm:"type:text"`
	Fields      []domain.Field `gorm:"serializer:json;type:text"`
	UserID      string         `gorm:"size:36;not null;index:idx_forms_owner,priority:1"`
	IsPublic    bool           `gorm:"not null;default:false"`
	Theme       domain.Theme   `gorm:"serializer:json;type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index:idx_forms_owner,priority:2"`
}

func (FormModel) TableName() string { return "forms" }

func FromDomain(f *domain.Form) *FormModel {
	c := f.Clone()
	return &FormModel{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Fields:      c.Fields,
		UserID:      c.UserID,
		IsPublic:    c.IsPublic,
		Theme:       c.Theme,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (m *FormModel) ToDomain() *domain.Form {
	fields := m.Fields
	if fields == nil {
		fields = []domain.Field{}
	}
	return &domain.Form{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Fields:      fields,
		UserID:      m.UserID,
		IsPublic:    m.IsPublic,
		Theme:       m.Theme.WithDefaults(),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
