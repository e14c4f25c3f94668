package fsutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyTreeTransforms(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, WriteFile(filepath.Join(src, "css", "styles.css"), []byte("body { }")))
	require.NoError(t, WriteFile(filepath.Join(src, "images", "logo.png"), []byte{1, 2, 3}))

	dst := filepath.Join(t.TempDir(), "out")
	var seen []string
	err := CopyTree(src, dst, func(rel string, data []byte) ([]byte, error) {
		seen = append(seen, rel)
		return bytes.ToUpper(data), nil
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"css/styles.css", "images/logo.png"}, seen)
	got, err := os.ReadFile(filepath.Join(dst, "css", "styles.css"))
	require.NoError(t, err)
	assert.Equal(t, "BODY { }", string(got))
}

func TestCopyTreePlain(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, WriteFile(filepath.Join(src, "a", "b.txt"), []byte("hello")))
	dst := filepath.Join(t.TempDir(), "out")

	require.NoError(t, CopyTree(src, dst, nil))
	got, err := os.ReadFile(filepath.Join(dst, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestSwapDir(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "dist")

	first := filepath.Join(root, "stage-1")
	require.NoError(t, WriteFile(filepath.Join(first, "index.html"), []byte("v1")))
	require.NoError(t, SwapDir(first, final))

	second := filepath.Join(root, "stage-2")
	require.NoError(t, WriteFile(filepath.Join(second, "index.html"), []byte("v2")))
	require.NoError(t, SwapDir(second, final))

	got, err := os.ReadFile(filepath.Join(final, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
	assert.NoDirExists(t, final+".old")
	assert.NoDirExists(t, second)
}

func TestCopyFileKeepsMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0o750))

	dst := filepath.Join(dir, "nested", "run.sh")
	require.NoError(t, CopyFile(src, dst))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())
}
