// Package host runs the gallery in a desktop window.
package host

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/coreman2200/arcagallery/internal/app"
	"github.com/coreman2200/arcagallery/internal/gallery"
	"github.com/coreman2200/arcagallery/internal/input"
	"github.com/coreman2200/arcagallery/internal/lifecycle"
	"github.com/coreman2200/arcagallery/internal/render/ebitengpu"
)

const (
	stripHeight = 6
	stripMargin = 24
	stripGap    = 6
)

// Game hosts a Core in an ebiten window.
type Game struct {
	ctx  context.Context
	core *app.Core
	dev  *ebitengpu.Device
	ctl  *input.Controller

	pauseUnfocused bool
	visible        lifecycle.Edge
	inView         lifecycle.Edge
	size           image.Point
	touch          ebiten.TouchID
	touching       bool

	face *text.GoTextFace
	last time.Time
}

func NewGame(ctx context.Context, core *app.Core, dev *ebitengpu.Device, pauseUnfocused bool) *Game {
	g := &Game{
		ctx:            ctx,
		core:           core,
		dev:            dev,
		ctl:            input.NewController(core.Engine),
		pauseUnfocused: pauseUnfocused,
	}
	src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		log.Warn().Err(err).Msg("overlay font unavailable")
	} else {
		g.face = &text.GoTextFace{Source: src, Size: 18}
	}
	return g
}

func (g *Game) Update() error {
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	default:
	}
	now := time.Now()
	dt := time.Second / time.Duration(ebiten.TPS())
	if !g.last.IsZero() {
		dt = now.Sub(g.last)
	}
	g.last = now

	eng := g.core.Engine
	if v := !ebiten.IsWindowMinimized(); g.visible.Changed(v) {
		eng.Post(gallery.Visibility{Visible: v})
	}
	if in := ebiten.IsFocused() || !g.pauseUnfocused; g.inView.Changed(in) {
		eng.Post(gallery.Intersection{In: in})
	}
	g.ctl.Strip.Count = eng.Sequence().Len()
	g.pollInput()
	g.core.Step(dt)
	return nil
}

func (g *Game) pollInput() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		g.ctl.Key(input.KeyLeft)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		g.ctl.Key(input.KeyRight)
	case inpututil.IsKeyJustPressed(ebiten.KeyHome):
		g.ctl.Key(input.KeyHome)
	}

	x, y := ebiten.CursorPosition()
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		g.ctl.PointerDown(float64(x), float64(y))
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		g.ctl.PointerUp(float64(x), float64(y))
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		g.ctl.PointerMove(float64(x), float64(y))
	}

	// one finger at a time
	if !g.touching {
		if ids := inpututil.AppendJustPressedTouchIDs(nil); len(ids) > 0 {
			g.touch, g.touching = ids[0], true
			tx, ty := ebiten.TouchPosition(g.touch)
			g.ctl.PointerDown(float64(tx), float64(ty))
		}
		return
	}
	if inpututil.IsTouchJustReleased(g.touch) {
		tx, ty := inpututil.TouchPositionInPreviousTick(g.touch)
		g.ctl.PointerUp(float64(tx), float64(ty))
		g.touching = false
		return
	}
	tx, ty := ebiten.TouchPosition(g.touch)
	g.ctl.PointerMove(float64(tx), float64(ty))
}

func (g *Game) Draw(screen *ebiten.Image) {
	v := g.core.Engine.View()
	if v.Fallback != "" {
		g.drawText(screen, v.Fallback, 0.5, 0.5, 1)
		return
	}
	if c := g.dev.Canvas(); c != nil && v.Ready {
		screen.DrawImage(c, nil)
	}
	g.drawStrip(screen, v)
	if v.Notice != "" {
		g.drawText(screen, v.Notice, 0.5, 0.5, 1)
	}
	if v.Mode != gallery.Full || !v.Ready {
		return
	}
	g.drawText(screen, v.Counter, 0.92, 0.08, 1)
	g.drawText(screen, v.Title, 0.5, 0.78, v.TitleAlpha)
	g.drawText(screen, v.Description, 0.5, 0.84, v.DescriptionAlpha)
}

func (g *Game) drawStrip(screen *ebiten.Image, v gallery.View) {
	s := g.ctl.Strip
	for _, ind := range v.Indicators {
		r := s.Cell(ind.Index)
		if r.Empty() {
			continue
		}
		base := color.NRGBA{R: 255, G: 255, B: 255, A: 70}
		if ind.Failed {
			base = color.NRGBA{R: 200, G: 60, B: 60, A: 120}
		}
		x, y := float32(r.Min.X), float32(r.Min.Y)
		w, h := float32(r.Dx()), float32(r.Dy())
		vector.DrawFilledRect(screen, x, y, w, h, base, false)
		if ind.Index == v.Current && ind.Opacity > 0 {
			fill := w * float32(ind.Progress/100)
			a := uint8(230 * ind.Opacity)
			vector.DrawFilledRect(screen, x, y, fill, h, color.NRGBA{R: 255, G: 255, B: 255, A: a}, false)
		}
	}
}

// drawText centres s at a fraction of the screen size.
func (g *Game) drawText(screen *ebiten.Image, s string, fx, fy, alpha float64) {
	if g.face == nil || s == "" || alpha <= 0 {
		return
	}
	op := &text.DrawOptions{}
	op.PrimaryAlign = text.AlignCenter
	op.SecondaryAlign = text.AlignCenter
	op.GeoM.Translate(fx*float64(g.size.X), fy*float64(g.size.Y))
	op.ColorScale.ScaleAlpha(float32(alpha))
	text.Draw(screen, s, g.face, op)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	sz := image.Pt(outsideWidth, outsideHeight)
	if sz != g.size {
		g.size = sz
		g.ctl.Strip = input.Strip{
			Rect:  image.Rect(stripMargin, sz.Y-stripMargin-stripHeight, sz.X-stripMargin, sz.Y-stripMargin),
			Count: g.core.Engine.Sequence().Len(),
			Gap:   stripGap,
		}
		g.core.Engine.Post(gallery.Resize{W: sz.X, H: sz.Y})
	}
	return outsideWidth, outsideHeight
}
