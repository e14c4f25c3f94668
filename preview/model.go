// Package preview renders the testimonials carousel in a terminal. It drives
// a real carousel.Controller on real timers: the terminal width stands in for
// the viewport width and hovering the slide row pauses auto-advance.
package preview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/7oh/landing-go/carousel"
)

// DefaultCellWidth is the number of logical pixels one terminal column counts for.
const DefaultCellWidth = 8

const headerLines = 2

// Slide is one testimonial as shown in the terminal.
type Slide struct {
	ID    string
	Name  string
	Role  string
	Quote string
}

type frameMsg carousel.Frame

// frameSink hands frames to the program without blocking the controller.
// Only the newest frame matters, so a pending stale frame is replaced.
type frameSink chan carousel.Frame

func (s frameSink) Apply(f carousel.Frame) {
	for {
		select {
		case s <- f:
			return
		default:
		}
		select {
		case <-s:
		default:
		}
	}
}

func waitForFrame(frames <-chan carousel.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return nil
		}
		return frameMsg(f)
	}
}

type styles struct {
	Title  lipgloss.Style
	Slide  lipgloss.Style
	Name   lipgloss.Style
	Role   lipgloss.Style
	Dot    lipgloss.Style
	DotOn  lipgloss.Style
	Help   lipgloss.Style
	Status lipgloss.Style
}

func defaultStyles() styles {
	brand := lipgloss.Color("#2e7d32")
	muted := lipgloss.Color("#9ca3af")
	return styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(brand),
		Slide:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(brand).Padding(0, 1),
		Name:   lipgloss.NewStyle().Bold(true),
		Role:   lipgloss.NewStyle().Foreground(muted),
		Dot:    lipgloss.NewStyle().Foreground(muted),
		DotOn:  lipgloss.NewStyle().Foreground(brand),
		Help:   lipgloss.NewStyle().Foreground(muted),
		Status: lipgloss.NewStyle().Foreground(muted).Italic(true),
	}
}

// Model is the bubbletea model hosting the controller.
type Model struct {
	ctrl      *carousel.Controller
	slides    map[string]Slide
	frames    frameSink
	frame     carousel.Frame
	keys      keyMap
	styles    styles
	cellWidth int
	width     int
	hovering  bool
	title     string
}

// Options configures a preview model.
type Options struct {
	Title     string
	Width     int
	CellWidth int
	Carousel  carousel.Options
}

// NewModel builds the controller for slides. The controller is not started
// until the program calls Init.
func NewModel(slides []Slide, opts Options) Model {
	if opts.CellWidth <= 0 {
		opts.CellWidth = DefaultCellWidth
	}
	if opts.Width <= 0 {
		opts.Width = 100
	}
	frames := make(frameSink, 1)
	ids := make([]string, len(slides))
	byID := make(map[string]Slide, len(slides))
	for i, s := range slides {
		ids[i] = s.ID
		byID[s.ID] = s
	}
	copts := opts.Carousel
	copts.Sink = frames
	ctrl := carousel.New(ids, opts.Width*opts.CellWidth, copts)

	return Model{
		ctrl:      ctrl,
		slides:    byID,
		frames:    frames,
		frame:     ctrl.Frame(),
		keys:      defaultKeyMap(),
		styles:    defaultStyles(),
		cellWidth: opts.CellWidth,
		width:     opts.Width,
		title:     opts.Title,
	}
}

// Controller returns the hosted controller.
func (m Model) Controller() *carousel.Controller {
	return m.ctrl
}

// Init starts auto-advance and begins listening for frames.
func (m Model) Init() tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	m.ctrl.Start()
	return waitForFrame(m.frames)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frame = carousel.Frame(msg)
		return m, waitForFrame(m.frames)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.ctrl.Resize(msg.Width * m.cellWidth)
		return m, nil

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionMotion {
			return m, nil
		}
		top, bottom := m.slideRows()
		inside := msg.Y >= top && msg.Y < bottom
		switch {
		case inside && !m.hovering:
			m.hovering = true
			m.ctrl.MouseEnter()
		case !inside && m.hovering:
			m.hovering = false
			m.ctrl.MouseLeave()
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.ctrl.Stop()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Prev):
			m.ctrl.Prev()
		case key.Matches(msg, m.keys.Next):
			m.ctrl.Next()
		case key.Matches(msg, m.keys.GoTo):
			m.ctrl.GoTo(int(msg.String()[0] - '1'))
		}
		return m, nil
	}
	return m, nil
}

// View renders the visible window, the dot row and a help line.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	if m.ctrl == nil {
		b.WriteString(m.styles.Status.Render("No testimonials to show."))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(m.renderSlides())
	b.WriteString("\n\n")
	b.WriteString(m.renderDots())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	b.WriteString("\n")
	return b.String()
}

func (m Model) header() string {
	title := m.title
	if title == "" {
		title = "Testimonials"
	}
	mode := "desktop"
	if m.frame.PerView == 1 {
		mode = "mobile"
	}
	state := "auto"
	if m.ctrl.Paused() {
		state = "paused"
	}
	return m.styles.Title.Render(title) + "  " +
		m.styles.Status.Render(fmt.Sprintf("%s · %dpx · %s", mode, m.width*m.cellWidth, state))
}

// slideRows is the half-open range of screen rows covered by the slide boxes.
func (m Model) slideRows() (int, int) {
	return headerLines, headerLines + lipgloss.Height(m.renderSlides())
}

func (m Model) renderSlides() string {
	perView := max(m.frame.PerView, 1)
	boxWidth := max((m.width-2*perView)/perView-4, 16)

	boxes := make([]string, 0, perView)
	for _, change := range m.frame.Slides {
		if !change.Visible {
			continue
		}
		s := m.slides[change.ID]
		body := lipgloss.NewStyle().Width(boxWidth).Render(s.Quote)
		author := m.styles.Name.Render(s.Name)
		if s.Role != "" {
			author += " " + m.styles.Role.Render(s.Role)
		}
		boxes = append(boxes, m.styles.Slide.Render(body+"\n\n"+author))
	}
	if len(boxes) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m Model) renderDots() string {
	dots := make([]string, len(m.frame.Slides))
	for i := range m.frame.Slides {
		if i == m.frame.ActiveDot {
			dots[i] = m.styles.DotOn.Render("●")
		} else {
			dots[i] = m.styles.Dot.Render("○")
		}
	}
	return "‹ " + strings.Join(dots, " ") + " ›"
}

func (m Model) renderHelp() string {
	parts := make([]string, 0, 4)
	for _, b := range m.keys.bindings() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.styles.Help.Render(strings.Join(parts, " • "))
}
