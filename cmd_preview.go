package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/7oh/landing-go/carousel"
	"github.com/7oh/landing-go/preview"
)

var (
	previewSlides int
	previewWidth  int
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Run the testimonials carousel in the terminal",
	Long: `Renders the testimonials as terminal cards and cycles through them with the
same rules as the page: two per view on wide terminals, one on narrow ones,
auto-advance every interval and a pause while the mouse hovers the cards.`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// The alternate screen owns stdout, so only errors are logged.
	logger := newLogger("error")

	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	quotes, err := svc.Testimonials(ctx)
	if err != nil {
		return err
	}
	if previewSlides > 0 && previewSlides < len(quotes) {
		quotes = quotes[:previewSlides]
	}
	slides := make([]preview.Slide, len(quotes))
	for i, q := range quotes {
		slides[i] = preview.Slide{ID: q.ID, Name: q.Name, Role: q.Role, Quote: q.Text}
	}

	width := previewWidth
	if width <= 0 {
		if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil {
			width = w
		}
	}

	return preview.Run(ctx, slides, preview.Options{
		Title: cfg.SiteName + " testimonials",
		Width: width,
		Carousel: carousel.Options{
			Breakpoint:     cfg.Carousel.Breakpoint,
			Interval:       cfg.Carousel.Interval(),
			ResizeDebounce: cfg.Carousel.ResizeDebounce(),
			Logger:         logger,
		},
	})
}
