// Package report renders run summaries for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
)

// Printer writes headers, sections and aligned tables to w.
type Printer struct {
	w       io.Writer
	colored bool
}

// New creates a Printer. Colour is used only when colored is true.
func New(w io.Writer, colored bool) *Printer {
	return &Printer{w: w, colored: colored}
}

// NewAuto creates a Printer that colours output when the terminal supports it.
func NewAuto(w io.Writer) *Printer {
	return New(w, color.SupportColor())
}

func (p *Printer) paint(c color.Color, s string) string {
	if !p.colored {
		return s
	}
	return c.Sprint(s)
}

// Header prints a boxed title.
func (p *Printer) Header(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	rule := strings.Repeat("=", runewidth.StringWidth(title)+4)
	fmt.Fprintln(p.w, rule)
	fmt.Fprintf(p.w, "  %s\n", p.paint(color.Bold, title))
	fmt.Fprintln(p.w, rule)
}

// Section prints a bracketed section title.
func (p *Printer) Section(title string) {
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "[%s]\n", p.paint(color.Cyan, title))
	fmt.Fprintln(p.w, strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// KV prints an indented label/value line. Labels are padded to width.
func (p *Printer) KV(width int, label string, value interface{}) {
	fmt.Fprintf(p.w, "  %s %v\n", runewidth.FillRight(label+":", width+1), value)
}

// Item prints a bullet line.
func (p *Printer) Item(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "  - %s\n", fmt.Sprintf(format, args...))
}

// Status prints a PASS/WARN/FAIL line.
func (p *Printer) Status(level Level, format string, args ...interface{}) {
	fmt.Fprintf(p.w, "  %s %s\n", p.badge(level), fmt.Sprintf(format, args...))
}

// Level grades a status line.
type Level int

const (
	LevelOK Level = iota
	LevelWarn
	LevelFail
)

func (p *Printer) badge(level Level) string {
	switch level {
	case LevelOK:
		return p.paint(color.Green, "[PASS]")
	case LevelWarn:
		return p.paint(color.Yellow, "[WARN]")
	default:
		return p.paint(color.Red, "[FAIL]")
	}
}

// Table is a set of rows rendered with columns aligned by display width,
// so names with wide or combining characters line up.
type Table struct {
	headers []string
	right   []bool
	rows    [][]string
	maxCell int
}

// NewTable creates a table. Columns listed in rightAligned are right-aligned.
func NewTable(headers []string, rightAligned ...int) *Table {
	t := &Table{headers: headers, right: make([]bool, len(headers)), maxCell: 48}
	for _, i := range rightAligned {
		if i >= 0 && i < len(headers) {
			t.right[i] = true
		}
	}
	return t
}

// Append adds a row. Missing cells render empty.
func (t *Table) Append(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	for i, c := range row {
		if runewidth.StringWidth(c) > t.maxCell {
			row[i] = runewidth.Truncate(c, t.maxCell, "…")
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Table prints t.
func (p *Printer) Table(t *Table) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if w := runewidth.StringWidth(c); w > widths[i] {
				widths[i] = w
			}
		}
	}

	p.tableRow(t, t.headers, widths, true)
	rules := make([]string, len(widths))
	for i, w := range widths {
		rules[i] = strings.Repeat("-", w)
	}
	fmt.Fprintf(p.w, "  %s\n", strings.Join(rules, "  "))
	for _, row := range t.rows {
		p.tableRow(t, row, widths, false)
	}
}

func (p *Printer) tableRow(t *Table, cells []string, widths []int, header bool) {
	out := make([]string, len(cells))
	for i, c := range cells {
		var cell string
		if t.right[i] {
			cell = runewidth.FillLeft(c, widths[i])
		} else {
			cell = runewidth.FillRight(c, widths[i])
		}
		if header {
			cell = p.paint(color.Bold, cell)
		}
		out[i] = cell
	}
	fmt.Fprintf(p.w, "  %s\n", strings.TrimRight(strings.Join(out, "  "), " "))
}
