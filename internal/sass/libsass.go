package sass

import (
	"bytes"
	"os"
	"sync"

	libsass "github.com/wellington/go-libsass"
	packerrors "github.com/tain335/svpack/internal/errors"
)

// LibsassCompiler compiles in-process through cgo. It does not understand
// the indented syntax.
type LibsassCompiler struct {
	includePaths []string
	resolver     *ImportResolver
	// libsass keeps global state per compilation; serialize calls.
	mutex sync.Mutex
}

func NewLibsassCompiler(includePaths []string) *LibsassCompiler {
	return &LibsassCompiler{
		includePaths: includePaths,
		resolver:     &ImportResolver{SearchPaths: includePaths},
	}
}

func (l *LibsassCompiler) Compile(path string, source string, opts Options) (Result, error) {
	if opts.Syntax == SyntaxIndented {
		return Result{}, packerrors.Newf(packerrors.ErrNotSupported, "libsass cannot compile indented syntax: %s", path)
	}
	var imported []string
	imports := libsass.NewImportsWithResolver(func(importURL, prev string) (string, string, bool) {
		resolved := l.resolver.Resolve(importURL, prev)
		if resolved == "" {
			return importURL, "", false
		}
		content, err := os.ReadFile(resolved)
		if err != nil {
			return importURL, "", false
		}
		imported = append(imported, resolved)
		return resolved, string(content), true
	})

	style := libsass.NESTED_STYLE
	if opts.Compressed {
		style = libsass.COMPRESSED_STYLE
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	output := new(bytes.Buffer)
	comp, err := libsass.New(output, bytes.NewBufferString(source),
		libsass.Path(path),
		libsass.IncludePaths(l.includePaths),
		libsass.OutputStyle(style),
		libsass.ImportsOption(imports),
	)
	if err != nil {
		return Result{}, packerrors.Wrapf(err, packerrors.ErrCompile, "preparing %s", path)
	}
	if err := comp.Run(); err != nil {
		return Result{}, packerrors.Wrapf(err, packerrors.ErrCompile, "compiling %s", path)
	}
	return Result{CSS: output.String(), Imports: imported}, nil
}

func (l *LibsassCompiler) Close() error {
	return nil
}
