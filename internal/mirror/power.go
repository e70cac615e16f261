package mirror

import "github.com/coreman2200/arcagallery/internal/effect"

// Power bounds what the strip may draw.
type Power struct {
	WhiteCap  float64 // per-LED cap of (R+G+B)/3 in 0..1; 0 or >=1 disables
	LimitAmps float64 // global budget; 0 disables
	ChanMA    float64 // mA per channel at full scale, WS2812 ≈ 20
	Knee      float64 // fraction of the budget where soft limiting begins
}

// Limit applies the per-LED white cap, then scales the whole frame so the
// estimated current stays under the budget, softly above the knee.
func (p Power) Limit(buf []effect.Color) {
	if p.WhiteCap > 0 && p.WhiteCap < 1 {
		wc := float32(p.WhiteCap * 3)
		for i := range buf {
			s := buf[i].R + buf[i].G + buf[i].B
			if s > wc && s > 0 {
				scale(&buf[i], wc/s)
			}
		}
	}

	budget := p.LimitAmps * 1000
	if budget <= 0 {
		return
	}
	chanMA := p.ChanMA
	if chanMA <= 0 {
		chanMA = 20
	}
	knee := p.Knee
	if knee <= 0 || knee >= 1 {
		knee = 0.9
	}
	total := Current(buf, chanMA)
	if total <= 0 {
		return
	}
	ratio := total / budget
	var s float64
	switch {
	case ratio <= knee:
		return
	case ratio <= 1:
		// map ratio in [knee,1] to scale in [1, budget/total]
		t := (ratio - knee) / (1 - knee)
		s = 1 - t*(1-budget/total)
	default:
		s = budget / total
	}
	if s >= 1 {
		return
	}
	for i := range buf {
		scale(&buf[i], float32(s))
	}
}

// Current estimates the frame's draw in mA.
func Current(buf []effect.Color, chanMA float64) float64 {
	var total float64
	for i := range buf {
		total += float64(buf[i].R+buf[i].G+buf[i].B) * chanMA
	}
	return total
}

func scale(c *effect.Color, s float32) {
	c.R *= s
	c.G *= s
	c.B *= s
}
