package outbound

import (
	"bytes"
	"fmt"
	"html/template"
)

// DefaultSupplierName is substituted when a contact row has no company.
const DefaultSupplierName = "Valued Supplier"

// TemplateData is the binding handed to the message template. Templates
// may reference any subset of these fields, including none.
type TemplateData struct {
	SupplierName string
	Token        string
	CollectionID string
	ProductDesc  string
}

// LoadTemplate parses the HTML message template at path.
func LoadTemplate(path string) (*template.Template, error) {
	tpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("loading template %s: %w", path, err)
	}
	return tpl, nil
}

// render executes tpl with the given binding.
func render(tpl *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering template: %w", err)
	}
	return buf.String(), nil
}
