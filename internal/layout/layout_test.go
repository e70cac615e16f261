package layout

import "testing"

func TestSerpentineIndex(t *testing.T) {
	l := Layout{Dim: Dim{X: 4, Y: 3}, Order: Serpentine{XFlipEveryRow: true}}
	if got := l.Index(0, 0); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := l.Index(0, 1); got != 7 {
		t.Fatalf("odd row should run backwards: expected 7, got %d", got)
	}
	if got := l.Index(3, 2); got != 11 {
		t.Fatalf("expected 11, got %d", got)
	}
	if l.Count() != 12 {
		t.Fatalf("expected 12 leds, got %d", l.Count())
	}
}

func TestIndexIsABijection(t *testing.T) {
	l := Layout{Dim: Dim{X: 5, Y: 4}, Order: Serpentine{XFlipEveryRow: true, FromBottom: true}}
	seen := make(map[int]bool)
	for y := 0; y < l.Dim.Y; y++ {
		for x := 0; x < l.Dim.X; x++ {
			i := l.Index(x, y)
			if i < 0 || i >= l.Count() || seen[i] {
				t.Fatalf("bad index %d for (%d,%d)", i, x, y)
			}
			seen[i] = true
		}
	}
	if got := l.Index(0, 3); got != 0 {
		t.Fatalf("bottom-left should be first, got %d", got)
	}
}
