// Package models defines core data structures for records, queries, and search results.
package models

// Document is one searchable record (a school district or school): its stable
// identifier, the text the offline pipeline embedded, and arbitrary attributes
// (name, county, grades, ...) carried through to search results untouched.
type Document struct {
	ID    string                 `json:"id"`
	Text  string                 `json:"text"`
	Attrs map[string]interface{} `json:"attrs,omitempty"`
}

// Name returns the record's display name from Attrs["name"], or "" when the
// attribute is absent or not a string.
func (d *Document) Name() string {
	if d == nil || d.Attrs == nil {
		return ""
	}
	if name, ok := d.Attrs["name"].(string); ok {
		return name
	}
	return ""
}
