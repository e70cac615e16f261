package sequence

import "math"

// Keyframe is a value at time T (seconds); Ease shapes the segment that
// starts at this keyframe.
type Keyframe struct {
	T    float64 `yaml:"t" json:"t"`
	V    float64 `yaml:"v" json:"v"`
	Ease string  `yaml:"ease,omitempty" json:"ease,omitempty"` // see Ease
}

// Envelope is a list of keyframes sorted by T.
type Envelope struct {
	Keys []Keyframe `yaml:"keys" json:"keys"`
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// smootherstep: 6x^5 - 15x^4 + 10x^3
func smootherstep(x float64) float64 {
	return x * x * x * (x*(x*6-15) + 10)
}

// Ease maps x in [0,1] through the named curve. Unknown names are linear.
// Every curve is monotonic and maps 0->0 and 1->1.
func Ease(kind string, x float64) float64 {
	x = clamp01(x)
	switch kind {
	case "linear", "":
		return x
	case "smooth":
		return x * x * (3 - 2*x)
	case "cubic":
		return smootherstep(x)
	case "inOutCubic":
		if x < 0.5 {
			return 4 * x * x * x
		}
		return 1 - math.Pow(-2*x+2, 3)/2
	case "outExpo":
		if x >= 1 {
			return 1
		}
		return 1 - math.Pow(2, -10*x)
	default:
		return x
	}
}

// Eval returns the envelope value at t seconds. No keys yields 0; before the
// first key and after the last the end values hold.
func (e Envelope) Eval(t float64) float64 {
	n := len(e.Keys)
	if n == 0 {
		return 0
	}
	if n == 1 || t <= e.Keys[0].T {
		return e.Keys[0].V
	}
	if t >= e.Keys[n-1].T {
		return e.Keys[n-1].V
	}
	for i := 0; i < n-1; i++ {
		a, b := e.Keys[i], e.Keys[i+1]
		if t >= a.T && t <= b.T {
			den := b.T - a.T
			if den <= 0 {
				return b.V
			}
			u := Ease(a.Ease, (t-a.T)/den)
			return a.V + (b.V-a.V)*u
		}
	}
	return e.Keys[n-1].V
}

// Reveal returns a 0->1 envelope that starts after delay and lasts dur
// seconds, shaped by ease. Used for staggered title/description reveals.
func Reveal(delay, dur float64, ease string) Envelope {
	if dur <= 0 {
		dur = 0.001
	}
	return Envelope{Keys: []Keyframe{
		{T: delay, V: 0, Ease: ease},
		{T: delay + dur, V: 1},
	}}
}
