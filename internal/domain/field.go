package domain

// FieldType is the closed set of input kinds a form can contain.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldDate     FieldType = "date"
	FieldFile     FieldType = "file"
)

var fieldTypes = []FieldType{
	FieldText, FieldEmail, FieldNumber, FieldTextarea,
	FieldSelect, FieldRadio, FieldCheckbox, FieldDate, FieldFile,
}

// FieldTypes 返回调色板顺序
func FieldTypes() []FieldType { return append([]FieldType(nil), fieldTypes...) }

func (t FieldType) Valid() bool {
	for _, ft := range fieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// HasOptions reports whether the type is answered by picking from Field.Options.
func (t FieldType) HasOptions() bool {
	return t == FieldSelect || t == FieldRadio || t == FieldCheckbox
}

// ValueKind is the response variant a field of this type produces.
func (t FieldType) ValueKind() ValueKind {
	switch t {
	case FieldCheckbox:
		return KindChoices
	case FieldFile:
		return KindFile
	default:
		return KindText
	}
}

type Field struct {
	ID          string    `json:"id"                    bson:"id"`
	Type        FieldType `json:"type"                  bson:"type"`
	Label       string    `json:"label"                 bson:"label"`
	Placeholder string    `json:"placeholder,omitempty" bson:"placeholder,omitempty"`
	Required    bool      `json:"required"              bson:"required"`
	Options     []string  `json:"options,omitempty"     bson:"options,omitempty"`
}

func (f Field) HasOption(opt string) bool {
	for _, o := range f.Options {
		if o == opt {
			return true
		}
	}
	return false
}

func cloneFields(in []Field) []Field {
	if in == nil {
		return nil
	}
	out := make([]Field, len(in))
	for i, f := range in {
		f.Options = append([]string(nil), f.Options...)
		out[i] = f
	}
	return out
}
