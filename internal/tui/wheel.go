package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ledbench/internal/color"
	"github.com/muurk/ledbench/internal/picker"
)

// Wheel draws a picker.Circle as a grid of terminal cells. Cells are about
// twice as tall as they are wide, so the grid is twice as wide as it is
// tall to stay round.
type Wheel struct {
	Circle picker.Circle
	Rows   int
	Value  float64

	// Cursor is the selected hue and saturation
	Hue        float64
	Saturation float64
}

// NewWheel creates a wheel of rows terminal rows over circle
func NewWheel(circle picker.Circle, rows int) Wheel {
	return Wheel{Circle: circle, Rows: rows, Value: 100, Saturation: 100}
}

// Cols returns the grid width
func (w Wheel) Cols() int {
	return w.Rows * 2
}

// CellPoint maps a grid cell to the picker coordinate of its center. ok is
// false outside the grid or the disc.
func (w Wheel) CellPoint(col, row int) (x, y float64, ok bool) {
	if col < 0 || row < 0 || col >= w.Cols() || row >= w.Rows {
		return 0, 0, false
	}
	r := w.Circle.OuterRadius
	x = w.Circle.CenterX - r + (float64(col)+0.5)/float64(w.Cols())*2*r
	y = w.Circle.CenterY - r + (float64(row)+0.5)/float64(w.Rows)*2*r
	return x, y, w.Circle.Contains(x, y)
}

// PointCell is the inverse of CellPoint
func (w Wheel) PointCell(x, y float64) (col, row int) {
	r := w.Circle.OuterRadius
	col = int(math.Floor((x - (w.Circle.CenterX - r)) / (2 * r) * float64(w.Cols())))
	row = int(math.Floor((y - (w.Circle.CenterY - r)) / (2 * r) * float64(w.Rows)))
	return min(max(col, 0), w.Cols()-1), min(max(row, 0), w.Rows-1)
}

// Selected returns the cursor colour at the wheel's value
func (w Wheel) Selected() color.HSV {
	return color.HSV{Hue: w.Hue, Saturation: w.Saturation, Value: w.Value}.Normalize()
}

// CursorPoint returns the picker coordinate of the cursor
func (w Wheel) CursorPoint() (x, y float64) {
	return w.Circle.HueSatToPoint(w.Hue, w.Saturation)
}

// MoveTo puts the cursor on the colour under picker point (x, y)
func (w *Wheel) MoveTo(x, y float64) {
	w.Hue, w.Saturation = w.Circle.PointToHueSat(x, y)
}

// Nudge moves the cursor by hue degrees and saturation points
func (w *Wheel) Nudge(hue, sat float64) {
	w.Hue = color.NormalizeHue(w.Hue + hue)
	w.Saturation = color.ClampPercent(w.Saturation + sat)
}

// Render draws the disc with the cursor marked
func (w Wheel) Render() string {
	cx, cy := w.PointCell(w.CursorPoint())

	var b strings.Builder
	for row := 0; row < w.Rows; row++ {
		for col := 0; col < w.Cols(); col++ {
			x, y, ok := w.CellPoint(col, row)
			if !ok {
				b.WriteByte(' ')
				continue
			}
			hue, sat := w.Circle.PointToHueSat(x, y)
			rgb := color.HSVToRGB(hue, sat, w.Value)
			style := lipgloss.NewStyle().Background(lipgloss.Color(rgb.Hex()))
			if col == cx && row == cy {
				b.WriteString(style.Foreground(cursorColor(rgb)).Bold(true).Render("◆"))
				continue
			}
			b.WriteString(style.Render(" "))
		}
		if row < w.Rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// cursorColor picks black or white, whichever stands out on bg
func cursorColor(bg color.RGB) lipgloss.Color {
	l, _, _ := bg.Colorful().Lab()
	if l > 0.6 {
		return lipgloss.Color("#000000")
	}
	return lipgloss.Color("#FFFFFF")
}
