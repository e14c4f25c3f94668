package preview

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the carousel in the alternate screen until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, slides []Slide, opts Options) error {
	m := NewModel(slides, opts)
	defer m.ctrl.Stop()

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
