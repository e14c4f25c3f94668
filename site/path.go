package site

import (
	"fmt"
	"path/filepath"
	"strings"
)

func isWithin(base, target string) bool {
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../")
}

// checkOutputDir refuses output directories that would replace or live inside
// one of the source trees, since a build swaps the whole output directory.
func checkOutputDir(output string, sources ...string) error {
	if strings.TrimSpace(output) == "" {
		return fmt.Errorf("%w: output directory not configured", ErrUnsafeOutput)
	}
	for _, src := range sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		if isWithin(output, src) || isWithin(src, output) {
			return fmt.Errorf("%w: %s and %s", ErrUnsafeOutput, output, src)
		}
	}
	return nil
}
