package submission

import (
	"time"

	"formcraft/internal/domain"
)

type SubmissionModel struct {
	ID        string                  `gorm:"primaryKey;type:varchar(36)"`
	FormID    string                  `gorm:"size:36;not null;index"`
	Responses map[string]domain.Value `gorm:"serializer:json;type:text"`
	IPAddress string                  `gorm:"size:64"`
	UserAgent string                  `gorm:"size:512"`

	SubmittedAt time.Time `gorm:"not null;index"`
}

func (SubmissionModel) TableName() string { return "submissions" }

func FromDomain(s *domain.Submission) *SubmissionModel {
	return &SubmissionModel{
		ID:          s.ID,
		FormID:      s.FormID,
		Responses:   s.Responses.Clone(),
		IPAddress:   s.IPAddress,
		UserAgent:   s.UserAgent,
		SubmittedAt: s.SubmittedAt,
	}
}

func (m *SubmissionModel) ToDomain() *domain.Submission {
	r := domain.Responses(m.Responses)
	if r == nil {
		r = domain.Responses{}
	}
	return &domain.Submission{
		ID:          m.ID,
		FormID:      m.FormID,
		Responses:   r,
		SubmittedAt: m.SubmittedAt,
		Meta:        domain.Meta{IPAddress: m.IPAddress, UserAgent: m.UserAgent},
	}
}
