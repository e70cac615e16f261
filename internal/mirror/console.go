package mirror

import (
	"image"

	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"
)

// drawerStrip feeds strip-ordered RGB bytes to a one-row display.Drawer.
type drawerStrip struct {
	d   display.Drawer
	row *image.NRGBA
}

// DrawerStrip adapts any one-row LED display to a Strip.
func DrawerStrip(d display.Drawer) Strip {
	return &drawerStrip{d: d}
}

// Console emulates an n-LED strip on the terminal, for machines without SPI.
func Console(n int) Strip {
	return DrawerStrip(screen.New(n))
}

func (s *drawerStrip) Write(p []byte) (int, error) {
	n := len(p) / 3
	if s.row == nil || s.row.Bounds().Dx() != n {
		s.row = image.NewNRGBA(image.Rect(0, 0, n, 1))
	}
	for i := 0; i < n; i++ {
		o := i * 4
		s.row.Pix[o], s.row.Pix[o+1], s.row.Pix[o+2], s.row.Pix[o+3] = p[i*3], p[i*3+1], p[i*3+2], 255
	}
	if err := s.d.Draw(s.d.Bounds(), s.row, image.Point{}); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *drawerStrip) Halt() error { return s.d.Halt() }
