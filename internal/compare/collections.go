// Package compare discovers saved bid spreadsheets per collection and
// asks a Bedrock model to compare them.
package compare

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/khanhvu/outreach/internal/textutil"
)

// excelExts are the spreadsheet extensions considered for comparison.
var excelExts = map[string]bool{".xlsx": true, ".xls": true}

func isExcel(name string) bool {
	return excelExts[strings.ToLower(filepath.Ext(name))]
}

// Collections lists the collection directories under baseDir that hold
// at least one Excel attachment, sorted by name.
func Collections(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading attachment dir %s: %w", baseDir, err)
	}

	var out []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		files, err := ExcelFiles(baseDir, entry.Name())
		if err == nil && len(files) > 0 {
			out = append(out, entry.Name())
		}
	}

	sort.Strings(out)
	return out, nil
}

// ExcelFiles returns the Excel file paths saved for a collection,
// sorted by name. The collection id is sanitized the same way the
// capture pipeline sanitized it when creating the directory.
func ExcelFiles(baseDir, collectionID string) ([]string, error) {
	dir := filepath.Join(baseDir, textutil.SanitizeFileName(collectionID, "uncategorized"))

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading collection dir %s: %w", dir, err)
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !isExcel(entry.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(out)
	return out, nil
}
