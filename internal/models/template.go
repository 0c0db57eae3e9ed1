package models

// FieldHint describes one field the Smart Mapper should populate, rendered
// into the prompt as label/required/format/notes.
type FieldHint struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Format   string `json:"format,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Section groups related fields for prompt rendering and for the output
// schema's nesting (e.g. "seller", "buyer", "financials").
type Section struct {
	Name   string      `json:"name"`
	Fields []FieldHint `json:"fields"`
}

// Template is a declarative description of one document type's extraction
// shape. Templates are initialized once at startup and are read-only
// thereafter — adding a document type means adding a Template, not editing
// existing ones.
type Template struct {
	DocumentType DocumentType `json:"document_type"`
	Sections     []Section    `json:"sections"`
}

// FieldNames flattens the template into the ordered field-name list the
// Smart Mapper interface expects.
func (t *Template) FieldNames() []string {
	var names []string
	for _, sec := range t.Sections {
		for _, f := range sec.Fields {
			names = append(names, sec.Name+"."+f.Name)
		}
	}
	return names
}
