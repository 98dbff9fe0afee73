package domain

import (
	"context"
	"time"
)

const (
	DefaultPrimaryColor    = "#6366f1"
	DefaultBackgroundColor = "#ffffff"
	DefaultTextColor       = "#374151"
)

type Theme struct {
	PrimaryColor    string `json:"primaryColor"          bson:"primaryColor"`
	BackgroundColor string `json:"backgroundColor"       bson:"backgroundColor"`
	TextColor       string `json:"textColor"             bson:"textColor"`
	Logo            string `json:"logo,omitempty"        bson:"logo,omitempty"`
	CompanyName     string `json:"companyName,omitempty" bson:"companyName,omitempty"`
}

func DefaultTheme() Theme {
	return Theme{
		PrimaryColor:    DefaultPrimaryColor,
		BackgroundColor: DefaultBackgroundColor,
		TextColor:       DefaultTextColor,
	}
}

// WithDefaults fills every empty color from the fixed palette.
func (t Theme) WithDefaults() Theme {
	if t.PrimaryColor == "" {
		t.PrimaryColor = DefaultPrimaryColor
	}
	if t.BackgroundColor == "" {
		t.BackgroundColor = DefaultBackgroundColor
	}
	if t.TextColor == "" {
		t.TextColor = DefaultTextColor
	}
	return t
}

type Form struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Fields      []Field   `json:"fields"`
	UserID      string    `json:"userId"`
	IsPublic    bool      `json:"isPublic"`
	Theme       Theme     `json:"theme"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (f *Form) Field(id string) (Field, bool) {
	for _, fd := range f.Fields {
		if fd.ID == id {
			return fd, true
		}
	}
	return Field{}, false
}

func (f *Form) OwnedBy(userID string) bool { return userID != "" && f.UserID == userID }

// Clone deep-copies the field list so callers can't alias store state.
func (f Form) Clone() Form {
	f.Fields = cloneFields(f.Fields)
	return f
}

// FormPatch is a shallow partial update; nil members are left untouched.
type FormPatch struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Fields      *[]Field `json:"fields,omitempty"`
	IsPublic    *bool    `json:"isPublic,omitempty"`
	Theme       *Theme   `json:"theme,omitempty"`
}

// Apply returns a copy of f with p merged in. UpdatedAt is the caller's job.
func (f Form) Apply(p FormPatch) Form {
	out := f.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Fields != nil {
		out.Fields = cloneFields(*p.Fields)
		if out.Fields == nil {
			out.Fields = []Field{}
		}
	}
	if p.IsPublic != nil {
		out.IsPublic = *p.IsPublic
	}
	if p.Theme != nil {
		out.Theme = p.Theme.WithDefaults()
	}
	return out
}

type FormRepository interface {
	CreateForm(ctx context.Context, f *Form) error
	FindFormByID(ctx context.Context, id string) (*Form, error)
	// FindFormsByOwner returns most recently updated first.
	FindFormsByOwner(ctx context.Context, ownerID string) ([]Form, error)
	UpdateForm(ctx context.Context, id string, p FormPatch) (*Form, error)
	DeleteForm(ctx context.Context, id string) (*Form, error)
}
