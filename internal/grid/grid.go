// Package grid holds the fixed-size text grid for the mascot art and the
// library of procedural effects that transform it.
//
// A Grid is an ordered sequence of rows, every row exactly Width runes wide.
// Effects take the padded base grid plus a frame index and return a new grid;
// the base grid is never mutated.
package grid

import "strings"

// Grid is a fixed-width block of text rows.
type Grid []string

// Load parses newline-delimited art into a Grid. Width is the longest row of
// the source; shorter rows are right-padded with spaces. A trailing newline
// does not produce an extra empty row.
func Load(src string) Grid {
	src = strings.TrimRight(src, "\n")
	if src == "" {
		return Grid{}
	}
	rows := strings.Split(src, "\n")
	width := 0
	for _, r := range rows {
		if n := len([]rune(r)); n > width {
			width = n
		}
	}
	g := make(Grid, len(rows))
	for i, r := range rows {
		g[i] = padRow(r, width)
	}
	return g
}

// Height returns the number of rows.
func (g Grid) Height() int { return len(g) }

// Width returns the rune width of the grid (0 for an empty grid).
func (g Grid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len([]rune(g[0]))
}

// Clone returns an independent copy of the grid.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	copy(out, g)
	return out
}

// String joins the rows with newlines.
func (g Grid) String() string { return strings.Join(g, "\n") }

// blankRow returns a row of n spaces.
func blankRow(n int) string { return strings.Repeat(" ", n) }

// padRow right-pads a row with spaces to exactly width runes.
func padRow(row string, width int) string {
	n := len([]rune(row))
	if n >= width {
		return row
	}
	return row + strings.Repeat(" ", width-n)
}

// shiftRow moves a row horizontally by offset (positive = right), filling the
// vacated space with blanks and keeping the row exactly width runes.
func shiftRow(row string, offset, width int) string {
	if offset == 0 || width == 0 {
		return row
	}
	runes := []rune(row)
	if offset > 0 {
		if offset > width {
			offset = width
		}
		shifted := append([]rune(blankRow(offset)), runes...)
		return string(shifted[:width])
	}
	off := -offset
	if off >= width {
		return blankRow(width)
	}
	return padRow(string(runes[off:]), width)
}

// clip truncates a grid to at most height rows.
func clip(g Grid, height int) Grid {
	if len(g) > height {
		return g[:height]
	}
	return g
}
