package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tain335/svpack/internal/config"
	packerrors "github.com/tain335/svpack/internal/errors"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCopyTargets(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"public/index.html":       `<html><head></head><body></body></html>`,
		"public/favicon.png":      "png",
		"public/assets/logo.svg":  "<svg/>",
		"public/assets/fonts/a.w": "font",
	})

	n, err := CopyTargets(CopyPluginOptions{
		Root:    root,
		Targets: []config.CopyTarget{{Src: "public/*", Dest: "build"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	out := filepath.Join(root, "build")
	assert.Equal(t, "png", readFile(t, filepath.Join(out, "favicon.png")))
	assert.Equal(t, "<svg/>", readFile(t, filepath.Join(out, "assets", "logo.svg")))
	assert.Equal(t, "font", readFile(t, filepath.Join(out, "assets", "fonts", "a.w")))
	assert.Equal(t, `<html><head></head><body></body></html>`, readFile(t, filepath.Join(out, "index.html")))
}

func TestCopyTargetsInjectsScript(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"public/index.html": `<html><head></head><body></body></html>`,
		"public/page.txt":   `<head></head>`,
	})

	_, err := CopyTargets(CopyPluginOptions{
		Root:      root,
		Targets:   []config.CopyTarget{{Src: "public/*", Dest: "build"}},
		ScriptSrc: "http://localhost:35729/livereload.js",
		ScriptID:  "reload",
	})
	require.NoError(t, err)

	assert.Contains(t, readFile(t, filepath.Join(root, "build", "index.html")), `src="http://localhost:35729/livereload.js"`)
	assert.Equal(t, `<head></head>`, readFile(t, filepath.Join(root, "build", "page.txt")))
}

func TestCopyTargetsNoMatches(t *testing.T) {
	root := t.TempDir()
	n, err := CopyTargets(CopyPluginOptions{
		Root:    root,
		Targets: []config.CopyTarget{{Src: "public/*", Dest: "build"}},
	})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoDirExists(t, filepath.Join(root, "build"))
}

func TestCopyTargetsBadPattern(t *testing.T) {
	_, err := CopyTargets(CopyPluginOptions{
		Root:    t.TempDir(),
		Targets: []config.CopyTarget{{Src: "public/[", Dest: "build"}},
	})
	require.Error(t, err)
	assert.True(t, packerrors.IsErrorCode(err, packerrors.ErrConfigValid))
}
