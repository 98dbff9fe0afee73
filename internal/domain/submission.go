package domain

import (
	"context"
	"encoding/json"
	"time"
)

type ValueKind string

const (
	KindText    ValueKind = "text"
	KindChoices ValueKind = "choices"
	KindFile    ValueKind = "file"
)

// Value is one answer. Kind selects which member is meaningful:
// Text for KindText, Items for KindChoices, Text (the blob key) for KindFile.
type Value struct {
	Kind  ValueKind `json:"kind"            bson:"kind"`
	Text  string    `json:"text,omitempty"  bson:"text,omitempty"`
	Items []string  `json:"items,omitempty" bson:"items,omitempty"`
}

func TextValue(s string) Value   { return Value{Kind: KindText, Text: s} }
func FileValue(key string) Value { return Value{Kind: KindFile, Text: key} }
func ChoicesValue(items ...string) Value {
	return Value{Kind: KindChoices, Items: dedup(items)}
}

func (v Value) IsEmpty() bool {
	if v.Kind == KindChoices {
		return len(v.Items) == 0
	}
	return v.Text == ""
}

// Plain is the wire shape: a string, or a list of strings for choices.
func (v Value) Plain() any {
	if v.Kind == KindChoices {
		if v.Items == nil {
			return []string{}
		}
		return v.Items
	}
	return v.Text
}

func (v Value) clone() Value {
	v.Items = append([]string(nil), v.Items...)
	return v
}

// Responses maps field id to answer. It encodes to plain JSON values; stores keep
// the tagged form through map[string]Value.
type Responses map[string]Value

func (r Responses) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Plain()
	}
	return json.Marshal(out)
}

func (r Responses) Clone() Responses {
	if r == nil {
		return nil
	}
	out := make(Responses, len(r))
	for k, v := range r {
		out[k] = v.clone()
	}
	return out
}

// Meta is best-effort request metadata attached to a submission.
type Meta struct {
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

type Submission struct {
	ID          string    `json:"id"`
	FormID      string    `json:"formId"`
	Responses   Responses `json:"responses"`
	SubmittedAt time.Time `json:"submittedAt"`
	Meta
}

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, s *Submission) error
	FindSubmissionByID(ctx context.Context, id string) (*Submission, error)
	FindSubmissionsByForm(ctx context.Context, formID string) ([]Submission, error)
}

func dedup(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
