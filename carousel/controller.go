package carousel

import (
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultBreakpoint     = 768
	DefaultInterval       = 5000 * time.Millisecond
	DefaultResizeDebounce = 150 * time.Millisecond
)

// Options tunes a Controller. Zero values fall back to the defaults above.
type Options struct {
	// Breakpoint is the widest viewport, in logical pixels, still treated as mobile.
	Breakpoint     int
	Interval       time.Duration
	ResizeDebounce time.Duration
	Clock          Clock
	Sink           Sink
	Logger         *slog.Logger
}

// SlideChange is the computed visibility of one slide.
type SlideChange struct {
	Index   int
	ID      string
	Visible bool
}

// Frame is one render pass. All visibility decisions are made before the
// frame is handed to the sink, which applies them in a single call.
type Frame struct {
	Index     int
	PerView   int
	ActiveDot int
	Slides    []SlideChange
}

// VisibleCount reports how many slides the frame shows.
func (f Frame) VisibleCount() int {
	n := 0
	for _, s := range f.Slides {
		if s.Visible {
			n++
		}
	}
	return n
}

// Sink receives frames. Apply runs while the controller holds its lock and
// must not call back into the controller.
type Sink interface {
	Apply(Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame)

func (f SinkFunc) Apply(frame Frame) { f(frame) }

type discardSink struct{}

func (discardSink) Apply(Frame) {}

// Controller cycles through a fixed set of slides, showing one slide per view
// on narrow viewports and two otherwise. A nil *Controller is valid and every
// method on it is a no-op, which is what New returns for an empty carousel.
type Controller struct {
	mu sync.Mutex

	slides []string
	index  int
	mobile bool

	breakpoint int
	interval   time.Duration
	debounce   time.Duration
	clock      Clock
	sink       Sink
	logger     *slog.Logger

	autoTimer    Timer
	autoGen      uint64
	resizeTimer  Timer
	resizeGen    uint64
	pendingWidth int
	stopped      bool
}

// New builds a controller for the given slide IDs at the given viewport width
// and renders the initial window. It returns nil when there are no slides.
// Auto-advance does not run until Start is called.
func New(slides []string, width int, opts Options) *Controller {
	if len(slides) == 0 {
		return nil
	}
	if opts.Breakpoint <= 0 {
		opts.Breakpoint = DefaultBreakpoint
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ResizeDebounce <= 0 {
		opts.ResizeDebounce = DefaultResizeDebounce
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Sink == nil {
		opts.Sink = discardSink{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Controller{
		slides:     append([]string(nil), slides...),
		breakpoint: opts.Breakpoint,
		interval:   opts.Interval,
		debounce:   opts.ResizeDebounce,
		clock:      opts.Clock,
		sink:       opts.Sink,
		logger:     opts.Logger,
	}
	c.mobile = c.isMobileWidth(width)

	c.mu.Lock()
	c.render()
	c.mu.Unlock()
	return c
}

// Start begins auto-advance.
func (c *Controller) Start() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startAuto()
}

// Stop cancels auto-advance and any pending resize and keeps them from being
// scheduled again. Navigation keeps rendering after Stop.
func (c *Controller) Stop() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopAuto()
	c.stopResize()
	c.stopped = true
}

// Len returns the number of slides.
func (c *Controller) Len() int {
	if c == nil {
		return 0
	}
	return len(c.slides)
}

// Index returns the first visible slide.
func (c *Controller) Index() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// SlidesPerView returns 1 on mobile and 2 otherwise, from the cached classification.
func (c *Controller) SlidesPerView() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perView()
}

// Mobile reports the cached viewport classification.
func (c *Controller) Mobile() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mobile
}

// Paused reports whether no auto-advance timer is armed.
func (c *Controller) Paused() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoTimer == nil
}

// Frame recomputes the current frame without applying it.
func (c *Controller) Frame() Frame {
	if c == nil {
		return Frame{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame()
}

// Render recomputes visibility and hands the frame to the sink.
func (c *Controller) Render() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.render()
}

// GoTo jumps to the page of dot i. On desktop the window starts at 2*i and is
// pinned so that it never runs past the last slide.
func (c *Controller) GoTo(i int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.slides) {
		c.logger.Debug("carousel goto out of range", "index", i, "slides", len(c.slides))
		return
	}
	if c.mobile {
		c.index = i
	} else {
		c.index = i * 2
		if c.index+2 > len(c.slides) {
			c.index = max(len(c.slides)-2, 0)
		}
	}
	c.render()
	c.startAuto()
}

// Next advances by one window, wrapping to the first slide.
func (c *Controller) Next() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next()
}

// Prev moves back by one window, wrapping to the last full window.
func (c *Controller) Prev() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	spv := c.perView()
	c.index -= spv
	if c.index < 0 {
		c.index = max(len(c.slides)-spv, 0)
	}
	c.render()
	c.startAuto()
}

// MouseEnter pauses auto-advance.
func (c *Controller) MouseEnter() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopAuto()
}

// MouseLeave resumes auto-advance with a full interval; time spent hovering
// is not credited against the next advance.
func (c *Controller) MouseLeave() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startAuto()
}

// Resize records a new viewport width. The classification is recomputed once
// the width has been quiet for the debounce period, and the carousel
// re-renders only if it flipped between mobile and desktop.
func (c *Controller) Resize(width int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopResize()
	c.pendingWidth = width
	gen := c.resizeGen
	c.resizeTimer = c.clock.AfterFunc(c.debounce, func() { c.resizeSettled(gen) })
}

func (c *Controller) resizeSettled(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.resizeGen || c.resizeTimer == nil {
		return
	}
	c.resizeTimer = nil
	was := c.mobile
	c.mobile = c.isMobileWidth(c.pendingWidth)
	if was == c.mobile {
		return
	}
	c.logger.Debug("carousel layout switched", "width", c.pendingWidth, "mobile", c.mobile)
	c.render()
}

func (c *Controller) autoTick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.autoGen || c.autoTimer == nil {
		return
	}
	c.autoTimer = nil
	c.next()
}

func (c *Controller) next() {
	c.index += c.perView()
	if c.index >= len(c.slides) {
		c.index = 0
	}
	c.render()
	c.startAuto()
}

// startAuto always clears the previous timer before arming a new one.
func (c *Controller) startAuto() {
	c.stopAuto()
	if c.stopped {
		return
	}
	gen := c.autoGen
	c.autoTimer = c.clock.AfterFunc(c.interval, func() { c.autoTick(gen) })
}

func (c *Controller) stopAuto() {
	if c.autoTimer != nil {
		c.autoTimer.Stop()
		c.autoTimer = nil
	}
	// A callback that already fired but is still waiting for the lock sees a
	// newer generation and drops itself.
	c.autoGen++
}

func (c *Controller) stopResize() {
	if c.resizeTimer != nil {
		c.resizeTimer.Stop()
		c.resizeTimer = nil
	}
	c.resizeGen++
}

func (c *Controller) render() {
	c.sink.Apply(c.frame())
}

func (c *Controller) frame() Frame {
	spv := c.perView()
	changes := make([]SlideChange, len(c.slides))
	for i, id := range c.slides {
		changes[i] = SlideChange{
			Index:   i,
			ID:      id,
			Visible: i >= c.index && i < c.index+spv,
		}
	}
	dot := c.index
	if !c.mobile {
		dot = c.index / 2
	}
	return Frame{Index: c.index, PerView: spv, ActiveDot: dot, Slides: changes}
}

func (c *Controller) perView() int {
	if c.mobile {
		return 1
	}
	return 2
}

func (c *Controller) isMobileWidth(width int) bool {
	return width <= c.breakpoint
}
