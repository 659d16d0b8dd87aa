package lineio

import (
	"strings"
	"testing"
)

func TestFieldsCSV(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"whitespace only", "  1   2.5  3 ", []string{"1", "2.5", "3"}},
		{"commas", "1,2.5,3", []string{"1", "2.5", "3"}},
		{"mixed", "1, 2.5 ,3", []string{"1", "2.5", "3"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FieldsCSV(tt.line)
			if len(got) != len(tt.want) {
				t.Fatalf("FieldsCSV(%q) = %v, want %v", tt.line, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStripComment(t *testing.T) {
	if got := StripComment("68082 68083 -2.5 10.0 0.3 ! levee pair"); got != "68082 68083 -2.5 10.0 0.3 " {
		t.Errorf("StripComment = %q", got)
	}
	if got := StripComment("1 2 3"); got != "1 2 3" {
		t.Errorf("StripComment without comment = %q", got)
	}
}

func TestFloats(t *testing.T) {
	vals, err := Floats([]string{"1.5", "-99999.0", "2"})
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	want := []float64{1.5, -99999.0, 2}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("value %d = %v, want %v", i, vals[i], want[i])
		}
	}
	if _, err := Floats([]string{"1.5", "oops"}); err == nil {
		t.Error("expected error for non-numeric token")
	}
}

func TestCursor(t *testing.T) {
	c, err := NewCursor(strings.NewReader("a\nb\nc\nd\n"))
	if err != nil {
		t.Fatalf("NewCursor: %v", err)
	}
	if line, ok := c.Next(); !ok || line != "a" {
		t.Fatalf("Next = %q, %v", line, ok)
	}
	c.Skip(2)
	if got := c.Remaining(); got != 1 {
		t.Errorf("Remaining = %d, want 1", got)
	}
	if line, ok := c.Next(); !ok || line != "d" {
		t.Fatalf("Next after Skip = %q, %v", line, ok)
	}
	if _, ok := c.Next(); ok {
		t.Error("expected end of buffer")
	}
	c.Skip(10) // past the end is clamped, not a panic
	if got := c.Remaining(); got != 0 {
		t.Errorf("Remaining after over-skip = %d, want 0", got)
	}
}

func TestReaderNextNonBlank(t *testing.T) {
	r := NewReader(strings.NewReader("first\n\n   \nsecond\n"))
	if line, ok := r.NextNonBlank(); !ok || line != "first" {
		t.Fatalf("NextNonBlank = %q, %v", line, ok)
	}
	if line, ok := r.NextNonBlank(); !ok || line != "second" {
		t.Fatalf("NextNonBlank skipped blanks = %q, %v", line, ok)
	}
	if _, ok := r.NextNonBlank(); ok {
		t.Error("expected EOF")
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err = %v", err)
	}
}
