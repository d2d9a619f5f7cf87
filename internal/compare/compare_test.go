package compare

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("writing row %d: %v", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}
}

func seedCollection(t *testing.T, baseDir, collection string, files ...string) {
	t.Helper()

	dir := filepath.Join(baseDir, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range files {
		path := filepath.Join(dir, name)
		if strings.HasSuffix(name, ".xlsx") {
			writeWorkbook(t, path, [][]interface{}{{"Item", "Price"}, {"denim", 4.20}})
		} else if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

func TestCollections(t *testing.T) {
	baseDir := t.TempDir()
	seedCollection(t, baseDir, "SS26-DENIM", "Acme_ABA#1A2B3C4D.xlsx")
	seedCollection(t, baseDir, "FW26-WOOL", "Bravo_ABA#AAAA1111.xlsx")
	seedCollection(t, baseDir, "no-spreadsheets", "notes.txt")

	got, err := Collections(baseDir)
	if err != nil {
		t.Fatalf("Collections: %v", err)
	}

	want := []string{"FW26-WOOL", "SS26-DENIM"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCollectionsMissingBaseDir(t *testing.T) {
	got, err := Collections(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Collections: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestExcelFiles(t *testing.T) {
	baseDir := t.TempDir()
	seedCollection(t, baseDir, "SS26-DENIM",
		"b.xlsx", "a.xlsx", "readme.txt", "image.png")

	got, err := ExcelFiles(baseDir, "SS26-DENIM")
	if err != nil {
		t.Fatalf("ExcelFiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d files, want 2: %v", len(got), got)
	}
	if filepath.Base(got[0]) != "a.xlsx" || filepath.Base(got[1]) != "b.xlsx" {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestExcelFilesSanitizesCollectionID(t *testing.T) {
	baseDir := t.TempDir()
	// The capture pipeline writes "a/b" collections to a directory named "a_b".
	seedCollection(t, baseDir, "a_b", "quote.xlsx")

	got, err := ExcelFiles(baseDir, "a/b")
	if err != nil {
		t.Fatalf("ExcelFiles: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %v, want the sanitized directory's file", got)
	}
}

func TestWorkbookToText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quote.xlsx")
	writeWorkbook(t, path, [][]interface{}{
		{"Item", "Price", "MOQ"},
		{"denim", 4.20, 500},
	})

	text := workbookToText(path)
	if !strings.Contains(text, "# quote.xlsx") {
		t.Errorf("missing file heading: %q", text)
	}
	if !strings.Contains(text, "## Sheet: Sheet1") {
		t.Errorf("missing sheet heading: %q", text)
	}
	if !strings.Contains(text, "Item\tPrice\tMOQ") {
		t.Errorf("missing header row: %q", text)
	}
}

func TestWorkbookToTextUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	if err := os.WriteFile(path, []byte("not a workbook"), 0o644); err != nil {
		t.Fatal(err)
	}

	text := workbookToText(path)
	if !strings.Contains(text, "unable to open") {
		t.Errorf("expected a note for the unreadable workbook: %q", text)
	}
}

func TestBuildPromptTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quote.xlsx")
	rows := [][]interface{}{{"Item", "Price"}}
	for i := 0; i < 50; i++ {
		rows = append(rows, []interface{}{strings.Repeat("x", 100), i})
	}
	writeWorkbook(t, path, rows)

	prompt := buildPrompt([]string{path}, "", 500)
	if len(prompt) != 500 {
		t.Errorf("prompt length = %d, want the 500-char guard applied", len(prompt))
	}
}

func TestBuildPromptIncludesInstructions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quote.xlsx")
	writeWorkbook(t, path, [][]interface{}{{"Item"}})

	prompt := buildPrompt([]string{path}, "weight MOQ over price", 0)
	if !strings.Contains(prompt, "weight MOQ over price") {
		t.Error("extra instructions missing from prompt")
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "messages shape",
			raw:  `{"content":[{"type":"text","text":"Supplier A wins"}]}`,
			want: "Supplier A wins",
		},
		{
			name: "multiple blocks joined",
			raw:  `{"content":[{"type":"text","text":"one"},{"type":"text","text":"two"}]}`,
			want: "one\ntwo",
		},
		{
			name: "legacy completion field",
			raw:  `{"completion":"Supplier B wins"}`,
			want: "Supplier B wins",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractText([]byte(tt.raw))
			if err != nil {
				t.Fatalf("extractText: %v", err)
			}
			if got != tt.want {
				t.Errorf("extractText() = %q, want %q", got, tt.want)
			}
		})
	}
}
