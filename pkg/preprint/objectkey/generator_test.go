package objectkey

import (
	"testing"
	"time"
)

func TestTimestampGenerator(t *testing.T) {
	gen := NewTimestampGenerator()
	now := time.Date(2025, time.November, 5, 14, 30, 7, 999, time.UTC)

	tests := []struct {
		name     string
		filename string
		expected string
	}{
		{
			name:     "plain name",
			filename: "paper.pdf",
			expected: "20251105143007_paper.pdf",
		},
		{
			name:     "spaces become underscores",
			filename: "My Graph Paper.pdf",
			expected: "20251105143007_My_Graph_Paper.pdf",
		},
		{
			name:     "directory components dropped",
			filename: "../../etc/passwd",
			expected: "20251105143007_passwd",
		},
		{
			name:     "windows path",
			filename: `C:\Users\me\draft v2.pdf`,
			expected: "20251105143007_draft_v2.pdf",
		},
		{
			name:     "empty name",
			filename: "",
			expected: "20251105143007_upload.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := gen.GenerateKey(now, tt.filename)
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestTimestampGenerator_ConvertsToUTC(t *testing.T) {
	gen := NewTimestampGenerator()
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2025, time.January, 1, 1, 0, 0, 0, loc)

	result := gen.GenerateKey(now, "a.pdf")
	if result != "20241231220000_a.pdf" {
		t.Errorf("expected UTC stamp, got %s", result)
	}
}

func TestPrefixedGenerator(t *testing.T) {
	now := time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC)

	gen := NewPrefixedGenerator("/preprints/", nil)
	if got := gen.GenerateKey(now, "x.pdf"); got != "preprints/20250302000000_x.pdf" {
		t.Errorf("unexpected key %s", got)
	}

	empty := NewPrefixedGenerator("", nil)
	if got := empty.GenerateKey(now, "x.pdf"); got != "20250302000000_x.pdf" {
		t.Errorf("unexpected key %s", got)
	}
}

func TestEscapePath(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"20251105143007_paper.pdf", "20251105143007_paper.pdf"},
		{"20251105143007_draft#2.pdf", "20251105143007_draft%232.pdf"},
		{"20251105143007_50%off.pdf", "20251105143007_50%25off.pdf"},
		{"20251105143007_what?.pdf", "20251105143007_what%3F.pdf"},
		{"preprints/20251105143007_a b.pdf", "preprints/20251105143007_a%20b.pdf"},
	}

	for _, tt := range tests {
		if got := EscapePath(tt.key); got != tt.expected {
			t.Errorf("EscapePath(%q): expected %s, got %s", tt.key, tt.expected, got)
		}
	}
}
