// Package layout computes the booklet sheet geometry: the fit-scale
// transform that places a source page inside a target cell and the fixed
// grid of stacked cells on each output sheet.
//
// Cells occupy only the left half of the sheet; the right half stays
// blank. That placement is deliberate and matches the layout this tool
// has always produced.
package layout

import "fmt"

// A4 page dimensions in PDF points.
const (
	A4Width  = 595.28
	A4Height = 841.89
)

// DefaultRows is the number of stacked cells per sheet.
const DefaultRows = 4

// Placement is a uniform scale plus a centering translation that fits a
// source rectangle into a target cell while preserving aspect ratio.
type Placement struct {
	Scale  float64
	Tx, Ty float64
}

// FitScale returns the placement for a w x h source inside a tw x th
// cell: scale = min(tw/w, th/h), with the leftover space in the
// non-limiting dimension split evenly on both sides.
func FitScale(w, h, tw, th float64) (Placement, error) {
	if w <= 0 || h <= 0 {
		return Placement{}, fmt.Errorf("invalid page dimensions %.2f x %.2f", w, h)
	}
	if tw <= 0 || th <= 0 {
		return Placement{}, fmt.Errorf("invalid cell dimensions %.2f x %.2f", tw, th)
	}

	s := tw / w
	if th/h < s {
		s = th / h
	}

	return Placement{
		Scale: s,
		Tx:    (tw - w*s) / 2,
		Ty:    (th - h*s) / 2,
	}, nil
}

// Cell is a target rectangle on a sheet, addressed by its lower-left
// corner.
type Cell struct {
	X, Y          float64
	Width, Height float64
}

// Rule is a straight dividing line drawn on top of a filled sheet.
type Rule struct {
	X1, Y1 float64
	X2, Y2 float64
}

// Grid describes one output sheet: Rows cells of half sheet width
// stacked top to bottom along the left edge.
type Grid struct {
	SheetWidth  float64
	SheetHeight float64
	Rows        int
}

// A4Grid returns the standard layout: four cells on an A4 sheet.
func A4Grid() Grid {
	return Grid{SheetWidth: A4Width, SheetHeight: A4Height, Rows: DefaultRows}
}

// Validate reports whether the grid has usable dimensions.
func (g Grid) Validate() error {
	if g.SheetWidth <= 0 || g.SheetHeight <= 0 {
		return fmt.Errorf("invalid sheet dimensions %.2f x %.2f", g.SheetWidth, g.SheetHeight)
	}
	if g.Rows < 1 {
		return fmt.Errorf("invalid row count %d", g.Rows)
	}
	return nil
}

// CellWidth returns the width of every cell (half the sheet).
func (g Grid) CellWidth() float64 { return g.SheetWidth / 2 }

// CellHeight returns the height of every cell.
func (g Grid) CellHeight() float64 { return g.SheetHeight / float64(g.Rows) }

// Cell returns the target rectangle for position q, 0 being the topmost
// cell.
func (g Grid) Cell(q int) Cell {
	return Cell{
		X:      0,
		Y:      g.SheetHeight - float64(q+1)*g.CellHeight(),
		Width:  g.CellWidth(),
		Height: g.CellHeight(),
	}
}

// Sheets returns the number of output sheets needed for n source pages.
func (g Grid) Sheets(n int) int {
	return (n + g.Rows - 1) / g.Rows
}

// Rules returns the dividing lines for the sheet: one vertical rule at
// the horizontal center spanning the full height, and one horizontal
// rule per interior band boundary spanning the full width.
func (g Grid) Rules() []Rule {
	rules := []Rule{
		{X1: g.SheetWidth / 2, Y1: 0, X2: g.SheetWidth / 2, Y2: g.SheetHeight},
	}
	for i := 1; i < g.Rows; i++ {
		y := float64(i) * g.CellHeight()
		rules = append(rules, Rule{X1: 0, Y1: y, X2: g.SheetWidth, Y2: y})
	}
	return rules
}
