// Package lineio holds the line-level primitives shared by the ADCIRC
// readers: field splitting for the whitespace/comma grammars, comment
// stripping, and two ways of walking a file line by line.
package lineio

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Fields splits a line on whitespace.
func Fields(line string) []string {
	return strings.Fields(line)
}

// FieldsCSV splits a line on whitespace and commas. Some attribute value
// lines in the wild use comma-separated lists.
func FieldsCSV(line string) []string {
	return strings.Fields(strings.ReplaceAll(line, ",", " "))
}

// StripComment removes an inline !-comment. Levee/pipe records sometimes
// carry trailing annotations.
func StripComment(line string) string {
	if i := strings.IndexByte(line, '!'); i >= 0 {
		return line[:i]
	}
	return line
}

// Float decodes one numeric token. Decode failures propagate to the caller
// as format errors; nothing is swallowed here.
func Float(tok string) (float64, error) {
	return strconv.ParseFloat(tok, 64)
}

// Int decodes one integer token.
func Int(tok string) (int, error) {
	return strconv.Atoi(tok)
}

// Floats decodes every token in a slice.
func Floats(toks []string) ([]float64, error) {
	vals := make([]float64, len(toks))
	for i, tok := range toks {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// Cursor walks a pre-read slice of lines with an explicit position, for
// formats parsed out of a full line buffer (fort.14).
type Cursor struct {
	lines []string
	pos   int
}

// NewCursor reads all lines from r into a cursor.
func NewCursor(r io.Reader) (*Cursor, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &Cursor{lines: lines}, nil
}

// Next returns the next line and advances. ok is false at end of buffer.
func (c *Cursor) Next() (line string, ok bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}
	line = c.lines[c.pos]
	c.pos++
	return line, true
}

// Skip advances past n lines without decoding them.
func (c *Cursor) Skip(n int) {
	c.pos += n
	if c.pos > len(c.lines) {
		c.pos = len(c.lines)
	}
}

// Remaining reports how many lines are left.
func (c *Cursor) Remaining() int {
	return len(c.lines) - c.pos
}

// Reader streams lines from an underlying reader, for the single-pass
// formats (fort.13, solution files).
type Reader struct {
	sc *bufio.Scanner
}

// NewReader wraps r in a line reader.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{sc: sc}
}

// Next returns the next line. ok is false at EOF or on a read error.
func (r *Reader) Next() (line string, ok bool) {
	if !r.sc.Scan() {
		return "", false
	}
	return r.sc.Text(), true
}

// NextNonBlank skips blank lines. Some fort.13 files in the wild insert
// empty lines between attribute value blocks.
func (r *Reader) NextNonBlank() (line string, ok bool) {
	for {
		line, ok = r.Next()
		if !ok {
			return "", false
		}
		if strings.TrimSpace(line) != "" {
			return line, true
		}
	}
}

// Err reports a read error, if any, once Next has returned ok=false.
func (r *Reader) Err() error {
	return r.sc.Err()
}
