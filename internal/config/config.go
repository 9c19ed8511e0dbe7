// Package config holds the build pipeline settings and their defaults.
package config

import (
	"path/filepath"
	"strings"

	packerrors "github.com/tain335/svpack/internal/errors"
)

// CopyTarget copies every match of Src (a glob relative to the root) into Dest.
type CopyTarget struct {
	Src  string `mapstructure:"src"`
	Dest string `mapstructure:"dest"`
}

// AliasEntry rewrites imports starting with Find to Replacement.
type AliasEntry struct {
	Find        string `mapstructure:"find"`
	Replacement string `mapstructure:"replacement"`
}

type ReplaceConfig struct {
	// Delimiters wrap every key, e.g. "__" and "__" turn pkgVersion into __pkgVersion__.
	Delimiters []string          `mapstructure:"delimiters"`
	Values     map[string]string `mapstructure:"values"`
}

type ServeConfig struct {
	// Command runs through the shell once the first bundle is written.
	Command string `mapstructure:"command"`
	Enabled bool   `mapstructure:"enabled"`
}

type LiveReloadConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type SassConfig struct {
	// Engine is "dart" or "libsass".
	Engine       string   `mapstructure:"engine"`
	Binary       string   `mapstructure:"binary"`
	IncludePaths []string `mapstructure:"includePaths"`
}

type CompilerConfig struct {
	// Command receives a JSON request on stdin and answers on stdout.
	// Empty means the embedded node shim.
	Command []string `mapstructure:"command"`
	Timeout int      `mapstructure:"timeout"`
}

type Config struct {
	Root              string           `mapstructure:"root"`
	Input             string           `mapstructure:"input"`
	Outdir            string           `mapstructure:"outdir"`
	Outfile           string           `mapstructure:"outfile"`
	GlobalName        string           `mapstructure:"globalName"`
	Format            string           `mapstructure:"format"`
	Watch             bool             `mapstructure:"watch"`
	ClearScreen       bool             `mapstructure:"clearScreen"`
	Copy              []CopyTarget     `mapstructure:"copy"`
	Alias             []AliasEntry     `mapstructure:"alias"`
	ResolveExtensions []string         `mapstructure:"resolveExtensions"`
	Dedupe            []string         `mapstructure:"dedupe"`
	Replace           ReplaceConfig    `mapstructure:"replace"`
	Serve             ServeConfig      `mapstructure:"serve"`
	LiveReload        LiveReloadConfig `mapstructure:"livereload"`
	Sass              SassConfig       `mapstructure:"sass"`
	Compiler          CompilerConfig   `mapstructure:"compiler"`
	Report            bool             `mapstructure:"report"`
}

// Default mirrors the settings of a freshly scaffolded project.
func Default() *Config {
	return &Config{
		Root:       ".",
		Input:      "src/main.js",
		Outdir:     "build",
		Outfile:    "bundle.js",
		GlobalName: "app",
		Format:     "iife",
		Copy: []CopyTarget{
			{Src: "public/*", Dest: "build"},
		},
		Alias: []AliasEntry{
			{Find: "@", Replacement: "src"},
		},
		ResolveExtensions: []string{".js", ".svelte"},
		Dedupe:            []string{"svelte"},
		Replace: ReplaceConfig{
			Delimiters: []string{"__", "__"},
		},
		Serve: ServeConfig{
			Command: "npm run start -- --dev",
			Enabled: true,
		},
		LiveReload: LiveReloadConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    35729,
		},
		Sass: SassConfig{
			Engine: "dart",
		},
		Compiler: CompilerConfig{
			Timeout: 60,
		},
		Report: true,
	}
}

// Production is true unless watch mode was requested.
func (c *Config) Production() bool {
	return !c.Watch
}

// Abs resolves p against the project root.
func (c *Config) Abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	root, err := filepath.Abs(c.Root)
	if err != nil {
		root = c.Root
	}
	return filepath.Join(root, p)
}

func (c *Config) OutfilePath() string {
	return c.Abs(filepath.Join(c.Outdir, c.Outfile))
}

// LiveReloadDir defaults to the output directory.
func (c *Config) LiveReloadDir() string {
	if c.LiveReload.Dir == "" {
		return c.Abs(c.Outdir)
	}
	return c.Abs(c.LiveReload.Dir)
}

func (c *Config) Validate() error {
	if c.Input == "" {
		return packerrors.New(packerrors.ErrConfigValid, "input must not be empty")
	}
	if c.Outdir == "" || c.Outfile == "" {
		return packerrors.New(packerrors.ErrConfigValid, "outdir and outfile must not be empty")
	}
	switch strings.ToLower(c.Format) {
	case "iife", "esm", "cjs":
	default:
		return packerrors.Newf(packerrors.ErrConfigValid, "unknown format %q", c.Format)
	}
	if len(c.Replace.Delimiters) != 0 && len(c.Replace.Delimiters) != 2 {
		return packerrors.Newf(packerrors.ErrConfigValid, "replace.delimiters needs two entries, got %d", len(c.Replace.Delimiters))
	}
	switch c.Sass.Engine {
	case "dart", "libsass":
	default:
		return packerrors.Newf(packerrors.ErrConfigValid, "unknown sass engine %q", c.Sass.Engine)
	}
	for _, a := range c.Alias {
		if a.Find == "" || a.Replacement == "" {
			return packerrors.New(packerrors.ErrConfigValid, "alias entries need find and replacement")
		}
	}
	if c.LiveReload.Port < 0 || c.LiveReload.Port > 65535 {
		return packerrors.Newf(packerrors.ErrConfigValid, "livereload.port %d out of range", c.LiveReload.Port)
	}
	return nil
}
