package input

import "image"

// Strip lays out the indicator bar: Count equal cells across Rect with Gap
// pixels between them.
type Strip struct {
	Rect  image.Rectangle
	Count int
	Gap   int
}

// Cell is the rectangle of indicator i.
func (s Strip) Cell(i int) image.Rectangle {
	if s.Count <= 0 || i < 0 || i >= s.Count {
		return image.Rectangle{}
	}
	w := s.Rect.Dx() - s.Gap*(s.Count-1)
	if w < s.Count {
		w = s.Count
	}
	x0 := s.Rect.Min.X + i*(w/s.Count+s.Gap)
	x1 := x0 + w/s.Count
	if i == s.Count-1 {
		x1 = s.Rect.Max.X
	}
	return image.Rect(x0, s.Rect.Min.Y, x1, s.Rect.Max.Y)
}

// Hit returns the indicator under p, or -1. Gaps belong to the nearest
// cell on their left so the whole bar is clickable.
func (s Strip) Hit(p image.Point) int {
	if !p.In(s.Rect) || s.Count <= 0 {
		return -1
	}
	for i := s.Count - 1; i >= 0; i-- {
		if p.X >= s.Cell(i).Min.X {
			return i
		}
	}
	return 0
}
