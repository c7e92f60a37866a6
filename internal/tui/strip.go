package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ledbench/internal/color"
	"github.com/muurk/ledbench/internal/picker"
)

// HueStrip draws a picker.Strip as a grid of terminal cells: hue across,
// value falling downward
type HueStrip struct {
	Strip picker.Strip
	Cols  int
	Rows  int
}

// NewHueStrip creates a cols by rows grid over strip
func NewHueStrip(strip picker.Strip, cols, rows int) HueStrip {
	return HueStrip{Strip: strip, Cols: cols, Rows: rows}
}

// CellPoint maps a grid cell to the strip coordinate of its center. ok is
// false outside the grid.
func (s HueStrip) CellPoint(col, row int) (x, y float64, ok bool) {
	if col < 0 || row < 0 || col >= s.Cols || row >= s.Rows {
		return 0, 0, false
	}
	x = (float64(col) + 0.5) / float64(s.Cols) * s.Strip.Width
	y = (float64(row) + 0.5) / float64(s.Rows) * s.Strip.Height
	return x, y, true
}

// Pick returns the colour under a grid cell
func (s HueStrip) Pick(col, row int) (color.HSV, bool) {
	x, y, ok := s.CellPoint(col, row)
	if !ok {
		return color.HSV{}, false
	}
	h, sat, v := s.Strip.PointToHSV(x, y)
	return color.HSV{Hue: h, Saturation: sat, Value: v}, true
}

// Render draws the strip, marking the cell nearest sel when it is fully
// saturated
func (s HueStrip) Render(sel color.HSV) string {
	cx, cy := -1, -1
	if sel.Saturation >= 100 && s.Strip.Width > 0 && s.Strip.Height > 0 {
		x, y := s.Strip.HSVToPoint(sel.Hue, sel.Value)
		cx = min(int(math.Floor(x/s.Strip.Width*float64(s.Cols))), s.Cols-1)
		cy = min(int(math.Floor(y/s.Strip.Height*float64(s.Rows))), s.Rows-1)
	}

	var b strings.Builder
	for row := 0; row < s.Rows; row++ {
		for col := 0; col < s.Cols; col++ {
			c, _ := s.Pick(col, row)
			rgb := c.RGB()
			style := lipgloss.NewStyle().Background(lipgloss.Color(rgb.Hex()))
			if col == cx && row == cy {
				b.WriteString(style.Foreground(cursorColor(rgb)).Bold(true).Render("◆"))
				continue
			}
			b.WriteString(style.Render(" "))
		}
		if row < s.Rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
