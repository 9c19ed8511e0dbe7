package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	packerrors "github.com/tain335/svpack/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	root := t.TempDir()

	cfg, err := NewLoader().Load(LoaderOptions{Root: root})
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, "src/main.js", cfg.Input)
	assert.Equal(t, "build", cfg.Outdir)
	assert.Equal(t, "bundle.js", cfg.Outfile)
	assert.Equal(t, "app", cfg.GlobalName)
	assert.Equal(t, "iife", cfg.Format)
	assert.False(t, cfg.Watch)
	assert.True(t, cfg.Production())
	assert.Equal(t, []CopyTarget{{Src: "public/*", Dest: "build"}}, cfg.Copy)
	assert.Equal(t, []AliasEntry{{Find: "@", Replacement: "src"}}, cfg.Alias)
	assert.Equal(t, []string{".js", ".svelte"}, cfg.ResolveExtensions)
	assert.Equal(t, []string{"svelte"}, cfg.Dedupe)
	assert.Equal(t, []string{"__", "__"}, cfg.Replace.Delimiters)
	assert.Equal(t, "npm run start -- --dev", cfg.Serve.Command)
	assert.Equal(t, 35729, cfg.LiveReload.Port)
	assert.Equal(t, "dart", cfg.Sass.Engine)
	assert.Equal(t, filepath.Join(root, "build", "bundle.js"), cfg.OutfilePath())
	assert.Equal(t, filepath.Join(root, "build"), cfg.LiveReloadDir())
}

func TestLoadConfigFile(t *testing.T) {
	root := t.TempDir()
	content := `
input: src/index.js
outdir: dist
format: esm
dedupe: [svelte, svelte-routing]
alias:
  - find: "~"
    replacement: lib
livereload:
  port: 4000
sass:
  engine: libsass
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "svpack.yaml"), []byte(content), 0644))

	loader := NewLoader()
	cfg, err := loader.Load(LoaderOptions{Root: root})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "svpack.yaml"), loader.ConfigFileUsed())
	assert.Equal(t, "src/index.js", cfg.Input)
	assert.Equal(t, "dist", cfg.Outdir)
	assert.Equal(t, "esm", cfg.Format)
	assert.Equal(t, []string{"svelte", "svelte-routing"}, cfg.Dedupe)
	assert.Equal(t, []AliasEntry{{Find: "~", Replacement: "lib"}}, cfg.Alias)
	assert.Equal(t, 4000, cfg.LiveReload.Port)
	assert.Equal(t, "libsass", cfg.Sass.Engine)
	// untouched keys keep their defaults
	assert.Equal(t, "bundle.js", cfg.Outfile)
}

func TestLoadReplaceValuesKeepCase(t *testing.T) {
	root := t.TempDir()
	content := `
replace:
  delimiters: ["%", "%"]
  values:
    apiUrl: https://api.example.com
    pkgVersion: 9.9.9
    retries: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "svpack.yaml"), []byte(content), 0644))

	cfg, err := NewLoader().Load(LoaderOptions{Root: root})
	require.NoError(t, err)

	assert.Equal(t, []string{"%", "%"}, cfg.Replace.Delimiters)
	assert.Equal(t, map[string]string{
		"apiUrl":     "https://api.example.com",
		"pkgVersion": "9.9.9",
		"retries":    "3",
	}, cfg.Replace.Values)
}

func TestLoadReplaceValuesFromJSON(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "svpack.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"replace":{"values":{"buildMode":"ci"}}}`), 0644))

	cfg, err := NewLoader().Load(LoaderOptions{Root: root, ConfigFile: file})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"buildMode": "ci"}, cfg.Replace.Values)
}

func TestLoadWatchFromEnv(t *testing.T) {
	t.Setenv("ROLLUP_WATCH", "true")

	cfg, err := NewLoader().Load(LoaderOptions{Root: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, cfg.Watch)
	assert.False(t, cfg.Production())
}

func TestLoadWatchOverride(t *testing.T) {
	watch := true
	cfg, err := NewLoader().Load(LoaderOptions{Root: t.TempDir(), Watch: &watch})
	require.NoError(t, err)
	assert.True(t, cfg.Watch)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SVPACK_INPUT", "src/app.js")
	t.Setenv("SVPACK_SASS_ENGINE", "libsass")

	cfg, err := NewLoader().Load(LoaderOptions{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "src/app.js", cfg.Input)
	assert.Equal(t, "libsass", cfg.Sass.Engine)
}

func TestLoadInvalid(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "svpack.yaml"), []byte("format: amd\n"), 0644))

	_, err := NewLoader().Load(LoaderOptions{Root: root})
	require.Error(t, err)
	assert.True(t, packerrors.IsErrorCode(err, packerrors.ErrConfigValid))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	root := t.TempDir()
	_, err := NewLoader().Load(LoaderOptions{Root: root, ConfigFile: filepath.Join(root, "nope.yaml")})
	require.Error(t, err)
	assert.True(t, packerrors.IsErrorCode(err, packerrors.ErrConfigLoad))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(c *Config) {}, true},
		{"empty input", func(c *Config) { c.Input = "" }, false},
		{"one delimiter", func(c *Config) { c.Replace.Delimiters = []string{"%"} }, false},
		{"no delimiters", func(c *Config) { c.Replace.Delimiters = nil }, true},
		{"bad engine", func(c *Config) { c.Sass.Engine = "node" }, false},
		{"empty alias", func(c *Config) { c.Alias = []AliasEntry{{Find: "@"}} }, false},
		{"bad port", func(c *Config) { c.LiveReload.Port = 70000 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, packerrors.IsErrorCode(err, packerrors.ErrConfigValid))
			}
		})
	}
}
