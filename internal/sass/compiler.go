// Package sass compiles SCSS and indented Sass through Dart Sass or libsass.
package sass

import (
	"path/filepath"
	"strings"

	"github.com/tain335/svpack/internal/config"
	packerrors "github.com/tain335/svpack/internal/errors"
)

type Syntax int

const (
	SyntaxSCSS Syntax = iota
	SyntaxIndented
	SyntaxCSS
)

// SyntaxFor picks the syntax from a file extension or a lang attribute.
func SyntaxFor(name string) Syntax {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		ext = name
	}
	switch strings.ToLower(ext) {
	case "sass":
		return SyntaxIndented
	case "css":
		return SyntaxCSS
	default:
		return SyntaxSCSS
	}
}

type Options struct {
	Syntax     Syntax
	SourceMap  bool
	Compressed bool
}

type Result struct {
	CSS       string
	SourceMap string
	// Imports lists the local files the stylesheet pulled in, for watching.
	Imports []string
}

type Compiler interface {
	Compile(path string, source string, opts Options) (Result, error)
	Close() error
}

// New starts the engine named in cfg. Include paths are the configured ones
// followed by every node_modules directory above root.
func New(cfg config.SassConfig, root string) (Compiler, error) {
	includePaths := make([]string, 0, len(cfg.IncludePaths)+8)
	for _, p := range cfg.IncludePaths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		includePaths = append(includePaths, p)
	}
	includePaths = append(includePaths, NodeModuleDirs(root)...)

	switch cfg.Engine {
	case "", "dart":
		return NewDartCompiler(cfg.Binary, includePaths)
	case "libsass":
		return NewLibsassCompiler(includePaths), nil
	default:
		return nil, packerrors.Newf(packerrors.ErrConfigValid, "unknown sass engine %q", cfg.Engine)
	}
}
