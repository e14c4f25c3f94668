package site

import "errors"

var (
	// ErrInvalidTestimonial marks a testimonial file that cannot be rendered.
	ErrInvalidTestimonial = errors.New("invalid testimonial")
	// ErrUnsafeOutput is returned when the output directory overlaps a source directory.
	ErrUnsafeOutput = errors.New("output directory overlaps sources")
)
