package gallery

import (
	"fmt"

	"github.com/coreman2200/arcagallery/internal/diagnostics"
	"github.com/coreman2200/arcagallery/internal/loader"
	"github.com/coreman2200/arcagallery/internal/render"
	"github.com/coreman2200/arcagallery/internal/sequence"
)

// Indicator is one cell of the navigation strip.
type Indicator struct {
	Index    int     `json:"index"`
	Label    string  `json:"label"`
	Progress float64 `json:"progress"` // fill, 0..100
	Opacity  float64 `json:"opacity"`
	Failed   bool    `json:"failed,omitempty"`
}

// View is everything a host needs to draw the chrome around the surface.
type View struct {
	Mode     Mode          `json:"mode"`
	Health   render.Health `json:"-"`
	Fallback string        `json:"fallback,omitempty"`
	Notice   string        `json:"notice,omitempty"` // shown over the empty surface
	Ready    bool          `json:"ready"`

	Current int    `json:"current"`
	Count   int    `json:"count"`
	Counter string `json:"counter,omitempty"`

	Title            string  `json:"title,omitempty"`
	Description      string  `json:"description,omitempty"`
	TitleAlpha       float64 `json:"title_alpha"`
	DescriptionAlpha float64 `json:"description_alpha"`

	Transition TransitionState `json:"transition"`
	Indicators []Indicator     `json:"indicators"`
}

// View snapshots the presentational state.
func (e *Engine) View() View {
	v := View{
		Mode:       e.opts.Mode,
		Health:     e.sup.Health,
		Ready:      e.started,
		Current:    e.st.From,
		Count:      len(e.seq),
		Transition: e.st,
	}
	if e.sup.Health == render.Unsupported {
		v.Fallback = diagnostics.Fallback
		return v
	}

	elapsed := 0.0
	if e.sched != nil {
		elapsed = e.sched.Elapsed()
	}
	v.Indicators = make([]Indicator, len(e.seq))
	for i, s := range e.seq {
		ind := Indicator{Index: i, Label: s.Label, Opacity: 1}
		switch {
		case e.st.Phase == Transitioning:
			ind.Opacity = 0
		case i == e.st.From:
			ind.Progress = elapsed * 100
		}
		ind.Failed = e.ld != nil && e.ld.State(i) == loader.Failed
		v.Indicators[i] = ind
	}

	if e.mounted && !e.started && e.ld.Settled() && e.ld.Ready() == 0 {
		v.Notice = diagnostics.NoSlides
	}
	if e.opts.Mode != Full || !e.started {
		return v
	}
	cur := e.seq[e.st.From]
	v.Counter = fmt.Sprintf("%02d / %02d", e.st.From+1, len(e.seq))
	v.Title, v.Description = cur.Title, cur.Description
	if e.st.Phase == Transitioning {
		fade := 1 - e.st.Progress
		v.TitleAlpha, v.DescriptionAlpha = fade, fade
		return v
	}
	t := e.reveal.Seconds()
	delay := e.opts.RevealDelay.Seconds()
	dur := e.opts.RevealDuration.Seconds()
	v.TitleAlpha = sequence.Reveal(delay, dur, "smooth").Eval(t)
	v.DescriptionAlpha = sequence.Reveal(delay+e.opts.RevealStagger.Seconds(), dur, "smooth").Eval(t)
	return v
}
