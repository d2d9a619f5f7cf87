package outbound

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/khanhvu/outreach/internal/model"
)

// ContactsSheet is the worksheet recipients are read from.
const ContactsSheet = "contacts"

// Column headers recognized in the contacts sheet. Only Email is
// required; the others default to empty.
const (
	colEmail       = "Email"
	colCompany     = "Company Name"
	colCollection  = "Collection ID"
	colProductDesc = "Product description"
)

// LoadContacts reads recipients from the "contacts" sheet of an xlsx
// workbook. Header names are matched after trimming. Rows with an empty
// email are returned as-is; BulkSend skips them so the skip is visible
// in its logs.
func LoadContacts(path string) ([]model.Recipient, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening contacts workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(ContactsSheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", ContactsSheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", ContactsSheet)
	}

	cols := make(map[string]int)
	for i, name := range rows[0] {
		cols[strings.TrimSpace(name)] = i
	}
	if _, ok := cols[colEmail]; !ok {
		return nil, fmt.Errorf("contacts sheet is missing the required column %q", colEmail)
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var recipients []model.Recipient
	for _, row := range rows[1:] {
		recipients = append(recipients, model.Recipient{
			Email:        cell(row, colEmail),
			Company:      cell(row, colCompany),
			CollectionID: cell(row, colCollection),
			ProductDesc:  cell(row, colProductDesc),
		})
	}

	return recipients, nil
}
