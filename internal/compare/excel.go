package compare

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxSheetRows bounds how many rows of each sheet reach the prompt.
const maxSheetRows = 200

// workbookToText flattens every sheet of an Excel workbook into compact
// tab-separated blocks. A workbook that cannot be opened contributes a
// note instead of aborting the comparison.
func workbookToText(path string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	if err != nil {
		fmt.Fprintf(&b, "(unable to open: %v)\n", err)
		return b.String()
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		fmt.Fprintf(&b, "## Sheet: %s\n", sheet)

		rows, err := f.GetRows(sheet)
		if err != nil {
			fmt.Fprintf(&b, "(unable to read: %v)\n", err)
			continue
		}
		if len(rows) == 0 {
			b.WriteString("(empty sheet)\n")
			continue
		}
		if len(rows) > maxSheetRows {
			rows = rows[:maxSheetRows]
		}

		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}

	return b.String()
}
