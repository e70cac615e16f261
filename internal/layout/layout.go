// Package layout maps matrix pixels to positions on an LED strip.
package layout

type Dim struct{ X, Y int }

// Serpentine describes how the strip snakes through the matrix.
type Serpentine struct {
	XFlipEveryRow bool // odd rows run right to left
	FromBottom    bool // row 0 is wired at the bottom edge
}

type Layout struct {
	Dim   Dim
	Order Serpentine
}

// Index maps x,y -> linear LED index (0..N-1)
func (l Layout) Index(x, y int) int {
	yy := y
	if l.Order.FromBottom {
		yy = l.Dim.Y - 1 - y
	}
	xx := x
	if yy%2 == 1 && l.Order.XFlipEveryRow {
		xx = l.Dim.X - 1 - x
	}
	return yy*l.Dim.X + xx
}

func (l Layout) Count() int {
	return l.Dim.X * l.Dim.Y
}
