package sass

import (
	"sync"

	packerrors "github.com/tain335/svpack/internal/errors"
)

type lazyCompiler struct {
	start    func() (Compiler, error)
	mutex    sync.Mutex
	started  bool
	closed   bool
	compiler Compiler
	err      error
}

// Lazy defers start until the first stylesheet needs compiling, so projects
// without Sass never need the engine installed.
func Lazy(start func() (Compiler, error)) Compiler {
	return &lazyCompiler{start: start}
}

func (l *lazyCompiler) get() (Compiler, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.closed {
		return nil, packerrors.New(packerrors.ErrCompile, "sass compiler is closed")
	}
	if !l.started {
		l.started = true
		l.compiler, l.err = l.start()
	}
	return l.compiler, l.err
}

func (l *lazyCompiler) Compile(path string, source string, opts Options) (Result, error) {
	compiler, err := l.get()
	if err != nil {
		return Result{}, err
	}
	return compiler.Compile(path, source, opts)
}

func (l *lazyCompiler) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.closed = true
	if l.compiler == nil {
		return nil
	}
	return l.compiler.Close()
}
