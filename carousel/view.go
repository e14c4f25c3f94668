package carousel

import "fmt"

// Control describes one of the arrow buttons injected beside the slides.
type Control struct {
	Class string
	Label string
	Glyph string
}

// Dot is one navigation indicator. There is one dot per slide, not per page.
type Dot struct {
	Index  int
	Label  string
	Active bool
}

// SlideView is the rendered state of a slide.
type SlideView struct {
	Index   int
	ID      string
	Visible bool
}

// View is the markup model of the carousel and its injected controls.
type View struct {
	Index   int
	PerView int
	Slides  []SlideView
	Dots    []Dot
	Prev    Control
	Next    Control
}

var (
	prevControl = Control{Class: "carousel-prev", Label: "Previous slide", Glyph: "‹"}
	nextControl = Control{Class: "carousel-next", Label: "Next slide", Glyph: "›"}
)

// ViewOf expands a frame into the full markup model.
func ViewOf(frame Frame) View {
	v := View{
		Index:   frame.Index,
		PerView: frame.PerView,
		Slides:  make([]SlideView, len(frame.Slides)),
		Dots:    make([]Dot, len(frame.Slides)),
		Prev:    prevControl,
		Next:    nextControl,
	}
	for i, s := range frame.Slides {
		v.Slides[i] = SlideView{Index: s.Index, ID: s.ID, Visible: s.Visible}
		v.Dots[i] = Dot{
			Index:  i,
			Label:  fmt.Sprintf("Go to slide %d", i+1),
			Active: i == frame.ActiveDot,
		}
	}
	return v
}

// View returns the markup model for the current state.
func (c *Controller) View() View {
	if c == nil {
		return View{}
	}
	return ViewOf(c.Frame())
}
