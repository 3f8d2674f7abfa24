package document

import (
	"strings"
	"testing"

	"github.com/MapoMagpie/z7-vui/schema"
)

func renderedContains(lines []string, want string) bool {
	for _, line := range lines {
		if line == want {
			return true
		}
	}
	return false
}

func TestDocumentDropsUnclaimedLines(t *testing.T) {
	d := New(nil)
	d.Input("7-Zip 23.01 (x64) : Copyright (c) 1999-2023 Igor Pavlov")
	for _, line := range d.Output() {
		if strings.Contains(line, "7-Zip 23.01") {
			t.Fatalf("unclaimed line leaked into render: %q", line)
		}
	}
}

func TestDocumentSingleClaimer(t *testing.T) {
	d := New(nil)
	// carries both the archive-name and size markers; only the first
	// claimer in priority order may keep it
	line := "Listing archive: 1 file, a.7z"
	d.Input(line)
	count := 0
	for _, out := range d.Output() {
		if out == line {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected line rendered exactly once, got %d", count)
	}
}

func TestDocumentCollapsesConsecutiveDuplicates(t *testing.T) {
	d := New(nil)
	d.Input("ERROR: wrong password")
	d.Input("ERROR: wrong password")
	d.Input(testRule)
	d.Input(paddedRow(t, "a.png"))
	d.Input(paddedRow(t, "a.png"))
	out := d.Output()
	for i := 1; i < len(out); i++ {
		if out[i] != "" && out[i] == out[i-1] {
			t.Fatalf("consecutive duplicate rendered: %q", out[i])
		}
	}
}

func TestDocumentListLayoutOrder(t *testing.T) {
	d := New(nil)
	d.Input(schema.InputExtractFile + "/tmp/a.7z")
	d.Input(schema.InputExtractTo + "/tmp")
	d.Input("Listing archive: /tmp/a.7z")
	d.Input("1 file, 1234 bytes (2 KiB)")
	d.Input("Type = 7z")
	d.Input("Method = LZMA2:3m 7zAES")
	out := d.Output()
	if out[0] != Title {
		t.Fatalf("expected title first, got %q", out[0])
	}
	for _, want := range []string{
		schema.InputExtractFile + "/tmp/a.7z",
		schema.InputExtractTo + "/tmp",
		"Listing archive: /tmp/a.7z",
		"1 file, 1234 bytes (2 KiB)",
		"Type = 7z",
		"Method = LZMA2:3m 7zAES",
	} {
		if !renderedContains(out, want) {
			t.Fatalf("expected %q in render: %v", want, out)
		}
	}
}

func TestDocumentPasswordPromptRendersInputLine(t *testing.T) {
	d := New(nil)
	d.SetPasswordHistory([]string{"hunter2"})
	d.Input("Enter password (will not be echoed):")
	d.Input(schema.InputHistoryFile + "/home/u/.config/z7vui/password_history.txt")
	out := d.Output()
	if !renderedContains(out, schema.InputPassword) {
		t.Fatalf("expected empty password input line: %v", out)
	}
	if !renderedContains(out, "hunter2") {
		t.Fatalf("expected history suggestion: %v", out)
	}
	cursor := d.PasswordCursor()
	if cursor == nil {
		t.Fatalf("expected a cursor hint")
	}
	if out[cursor.Row] != schema.InputPassword {
		t.Fatalf("cursor row %d points at %q", cursor.Row, out[cursor.Row])
	}
	if cursor.Col != len(schema.InputPassword) {
		t.Fatalf("expected cursor at end of input line, got col %d", cursor.Col)
	}

	d.Input(schema.InputPassword + "secret")
	out = d.Output()
	if !renderedContains(out, schema.InputPassword+"secret") {
		t.Fatalf("expected entered password line: %v", out)
	}
	for _, line := range out {
		if line == schema.InputPassword {
			t.Fatalf("empty input line should be replaced once entered: %v", out)
		}
	}
}

func TestDocumentListingSurvivesLayoutSwitch(t *testing.T) {
	d := New(nil)
	d.Input(testRule)
	d.Input(paddedRow(t, "test/a.png"))
	d.Input(paddedRow(t, "test/b.png"))
	d.Input(testRule)
	d.Input("2024-01-02 10:11:12                200          200  2 files")

	d.LayoutExtract()
	files := d.Files()
	if len(files) != 2 {
		t.Fatalf("expected listing to survive extract layout, got %v", files)
	}
	if !renderedContains(d.Output(), paddedRow(t, "test/a.png")) {
		t.Fatalf("expected rows still rendered after layout switch")
	}

	d.LayoutList()
	if len(d.Files()) != 0 {
		t.Fatalf("expected fresh list layout to reset captured rows")
	}
}

func TestDocumentExtractToLine(t *testing.T) {
	d := New(nil)
	d.Input(schema.InputExtractFile + "/tmp/a.7z")
	d.Input(schema.InputExtractTo + "/tmp")
	index, ok := d.ExtractToLine()
	if !ok {
		t.Fatalf("expected extract-to line")
	}
	if d.Output()[index] != schema.InputExtractTo+"/tmp" {
		t.Fatalf("index %d points at %q", index, d.Output()[index])
	}
}

func TestDocumentErrorLine(t *testing.T) {
	d := New(nil)
	d.Input("ERROR: Wrong password : a.png")
	if !renderedContains(d.Output(), "ERROR: Wrong password : a.png") {
		t.Fatalf("expected error line in render")
	}
}
