package carousel

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	fired   bool
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance fires due timers in order, including ones armed by earlier callbacks.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var due *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.at > target {
				continue
			}
			if due == nil || t.at < due.at {
				due = t
			}
		}
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = due.at
		due.fired = true
		c.mu.Unlock()
		due.f()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

type recorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *recorder) Apply(f Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recorder) last() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

func slideIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("slide-%d", i)
	}
	return ids
}

func newTestController(t *testing.T, n, width int) (*Controller, *fakeClock, *recorder) {
	t.Helper()
	clock := &fakeClock{}
	rec := &recorder{}
	c := New(slideIDs(n), width, Options{Clock: clock, Sink: rec})
	require.NotNil(t, c)
	return c, clock, rec
}

func visibleIndices(f Frame) []int {
	var out []int
	for _, s := range f.Slides {
		if s.Visible {
			out = append(out, s.Index)
		}
	}
	return out
}

func activeDots(v View) int {
	n := 0
	for _, d := range v.Dots {
		if d.Active {
			n++
		}
	}
	return n
}

func TestSlidesPerViewFollowsBreakpoint(t *testing.T) {
	tests := []struct {
		width int
		want  int
	}{
		{width: 0, want: 1},
		{width: 320, want: 1},
		{width: 768, want: 1},
		{width: 769, want: 2},
		{width: 1440, want: 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("width_%d", tt.width), func(t *testing.T) {
			c, _, _ := newTestController(t, 4, tt.width)
			assert.Equal(t, tt.want, c.SlidesPerView())
		})
	}
}

func TestDesktopNextSequence(t *testing.T) {
	c, _, rec := newTestController(t, 6, 1024)

	initial := rec.last()
	want := Frame{
		Index:     0,
		PerView:   2,
		ActiveDot: 0,
		Slides: []SlideChange{
			{Index: 0, ID: "slide-0", Visible: true},
			{Index: 1, ID: "slide-1", Visible: true},
			{Index: 2, ID: "slide-2"},
			{Index: 3, ID: "slide-3"},
			{Index: 4, ID: "slide-4"},
			{Index: 5, ID: "slide-5"},
		},
	}
	if diff := cmp.Diff(want, initial); diff != "" {
		t.Fatalf("initial frame mismatch (-want +got):\n%s", diff)
	}

	var got []int
	for range 3 {
		c.Next()
		got = append(got, c.Index())
	}
	assert.Equal(t, []int{2, 4, 0}, got)
	assert.Equal(t, 0, rec.last().ActiveDot)
}

func TestMobileNextStepsByOne(t *testing.T) {
	c, _, rec := newTestController(t, 6, 375)

	var got []int
	for range 6 {
		c.Next()
		got = append(got, c.Index())
		assert.Equal(t, c.Index(), rec.last().ActiveDot)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 0}, got)
}

func TestVisibleWindowIsContiguous(t *testing.T) {
	for n := 1; n <= 7; n++ {
		for _, width := range []int{375, 1280} {
			t.Run(fmt.Sprintf("n%d_w%d", n, width), func(t *testing.T) {
				c, _, rec := newTestController(t, n, width)
				for step := 0; step <= n; step++ {
					f := rec.last()
					require.GreaterOrEqual(t, f.Index, 0)
					require.Less(t, f.Index, n)

					wantCount := min(f.PerView, n-f.Index)
					visible := visibleIndices(f)
					require.Len(t, visible, wantCount)
					for i, idx := range visible {
						assert.Equal(t, f.Index+i, idx)
					}
					assert.Equal(t, 1, activeDots(ViewOf(f)))
					c.Next()
				}
			})
		}
	}
}

func TestNextThenPrevRestoresIndex(t *testing.T) {
	t.Run("mobile", func(t *testing.T) {
		c, _, _ := newTestController(t, 5, 375)
		for start := 0; start < 4; start++ {
			c.GoTo(start)
			c.Next()
			c.Prev()
			assert.Equal(t, start, c.Index())
		}
	})
	t.Run("desktop", func(t *testing.T) {
		c, _, _ := newTestController(t, 6, 1024)
		for _, page := range []int{0, 1} {
			c.GoTo(page)
			start := c.Index()
			c.Next()
			c.Prev()
			assert.Equal(t, start, c.Index())

			c.Prev()
			c.Next()
			if start > 0 {
				assert.Equal(t, start, c.Index())
			}
		}
	})
}

func TestGoToPinsDesktopWindow(t *testing.T) {
	tests := []struct {
		name   string
		slides int
		width  int
		dot    int
		want   int
	}{
		{name: "mobile direct", slides: 6, width: 375, dot: 5, want: 5},
		{name: "desktop doubled", slides: 6, width: 1024, dot: 1, want: 2},
		{name: "desktop overflow", slides: 6, width: 1024, dot: 3, want: 4},
		{name: "desktop odd count", slides: 5, width: 1024, dot: 2, want: 3},
		{name: "desktop partial window", slides: 3, width: 1024, dot: 1, want: 1},
		{name: "desktop single slide", slides: 1, width: 1024, dot: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestController(t, tt.slides, tt.width)
			c.GoTo(tt.dot)
			assert.Equal(t, tt.want, c.Index())
		})
	}
}

func TestGoToIgnoresOutOfRange(t *testing.T) {
	c, _, rec := newTestController(t, 4, 375)
	before := rec.count()
	c.GoTo(-1)
	c.GoTo(4)
	assert.Equal(t, before, rec.count())
	assert.Equal(t, 0, c.Index())
}

func TestPrevWrapsToLastWindow(t *testing.T) {
	tests := []struct {
		slides int
		width  int
		want   int
	}{
		{slides: 6, width: 1024, want: 4},
		{slides: 5, width: 1024, want: 3},
		{slides: 5, width: 375, want: 4},
		{slides: 1, width: 1024, want: 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.slides, tt.width), func(t *testing.T) {
			c, _, _ := newTestController(t, tt.slides, tt.width)
			c.Prev()
			assert.Equal(t, tt.want, c.Index())
		})
	}
}

func TestAutoAdvance(t *testing.T) {
	c, clock, _ := newTestController(t, 6, 1024)
	c.Start()

	clock.Advance(4999 * time.Millisecond)
	assert.Equal(t, 0, c.Index())
	clock.Advance(time.Millisecond)
	assert.Equal(t, 2, c.Index())
	clock.Advance(5 * time.Second)
	assert.Equal(t, 4, c.Index())
	clock.Advance(5 * time.Second)
	assert.Equal(t, 0, c.Index())
	assert.Equal(t, 1, clock.Pending())
}

func TestManualNavigationResetsTimer(t *testing.T) {
	c, clock, _ := newTestController(t, 6, 1024)
	c.Start()

	clock.Advance(4 * time.Second)
	c.Next()
	assert.Equal(t, 2, c.Index())

	clock.Advance(4 * time.Second)
	assert.Equal(t, 2, c.Index(), "manual move should restart the full interval")
	clock.Advance(time.Second)
	assert.Equal(t, 4, c.Index())
	assert.Equal(t, 1, clock.Pending(), "only one auto-advance timer may be armed")
}

func TestHoverPausesAndLeaveRestartsFullInterval(t *testing.T) {
	c, clock, _ := newTestController(t, 6, 375)
	c.Start()

	clock.Advance(3 * time.Second)
	c.MouseEnter()
	assert.True(t, c.Paused())
	clock.Advance(10 * time.Second)
	assert.Equal(t, 0, c.Index())

	c.MouseLeave()
	clock.Advance(4999 * time.Millisecond)
	assert.Equal(t, 0, c.Index())
	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, c.Index())
}

func TestResizeIsDebouncedAndOnlyRendersOnFlip(t *testing.T) {
	c, clock, rec := newTestController(t, 6, 1024)
	c.Next()
	frames := rec.count()

	c.Resize(500)
	clock.Advance(100 * time.Millisecond)
	c.Resize(600)
	clock.Advance(149 * time.Millisecond)
	assert.False(t, c.Mobile())
	assert.Equal(t, frames, rec.count())

	clock.Advance(time.Millisecond)
	assert.True(t, c.Mobile())
	require.Equal(t, frames+1, rec.count())
	f := rec.last()
	assert.Equal(t, 1, f.PerView)
	assert.Equal(t, []int{2}, visibleIndices(f))
	assert.Equal(t, 2, f.ActiveDot)

	c.Resize(700)
	clock.Advance(time.Second)
	assert.Equal(t, frames+1, rec.count(), "same classification must not re-render")
}

func TestStopCancelsTimers(t *testing.T) {
	c, clock, _ := newTestController(t, 4, 1024)
	c.Start()
	c.Resize(320)
	require.Equal(t, 2, clock.Pending())

	c.Stop()
	assert.Equal(t, 0, clock.Pending())

	c.Next()
	c.MouseLeave()
	c.Resize(1600)
	assert.Equal(t, 0, clock.Pending())
	assert.Equal(t, 2, c.Index())
}

func TestEmptyCarouselIsNoop(t *testing.T) {
	c := New(nil, 1024, Options{})
	require.Nil(t, c)

	assert.NotPanics(t, func() {
		c.Start()
		c.Next()
		c.Prev()
		c.GoTo(3)
		c.MouseEnter()
		c.MouseLeave()
		c.Resize(100)
		c.Render()
		c.Stop()
	})
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.View().Dots)
}

func TestSystemClockLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New(slideIDs(4), 1024, Options{Interval: 5 * time.Millisecond, ResizeDebounce: time.Millisecond})
	c.Start()
	require.Eventually(t, func() bool { return c.Index() != 0 }, time.Second, time.Millisecond)
	c.Resize(300)
	c.Stop()
	assert.True(t, c.Paused())
}
