package component

import (
	"context"
	"embed"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	packerrors "github.com/tain335/svpack/internal/errors"
	"github.com/tain335/svpack/internal/logger"
)

//go:embed resources/*
var resources embed.FS

// StateDir holds files svpack materializes inside a project.
const StateDir = ".svpack"

const shimName = "compile.cjs"

// How long Close waits for the compiler's output pipes after killing it.
const waitDelay = time.Second

// InstallShim writes the embedded compiler bridge into <root>/.svpack and
// returns its path. An existing copy is refreshed when its content differs.
func InstallShim(root string) (string, error) {
	data, err := resources.ReadFile("resources/" + shimName)
	if err != nil {
		return "", err
	}
	target := filepath.Join(root, StateDir, shimName)
	if existing, err := os.ReadFile(target); err == nil && string(existing) == string(data) {
		return target, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", packerrors.Wrap(err, packerrors.ErrFileAccess, "creating state dir")
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", packerrors.Wrap(err, packerrors.ErrFileAccess, "writing compiler shim")
	}
	return target, nil
}

// processTransport keeps one compiler process alive and restarts it after
// a broken exchange.
type processTransport struct {
	command []string
	dir     string

	mutex  sync.Mutex
	cmd    *exec.Cmd
	stream *streamTransport
}

// NewProcessTransport runs command in dir once the first component needs
// compiling. An empty command means `node <dir>/.svpack/compile.cjs`.
func NewProcessTransport(command []string, dir string) Transport {
	return &processTransport{command: command, dir: dir}
}

func (p *processTransport) start() error {
	if len(p.command) == 0 {
		shim, err := InstallShim(p.dir)
		if err != nil {
			return err
		}
		p.command = []string{"node", shim}
	}
	cmd := exec.Command(p.command[0], p.command[1:]...)
	cmd.Dir = p.dir
	cmd.Stderr = logger.Get("compiler")
	cmd.WaitDelay = waitDelay
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return packerrors.Wrapf(err, packerrors.ErrProcess, "starting %s", p.command[0])
	}
	p.cmd = cmd
	p.stream = newStreamTransport(stdin, stdout)
	return nil
}

func (p *processTransport) stopLocked() {
	if p.stream != nil {
		_ = p.stream.Close()
		p.stream = nil
	}
	if p.cmd != nil {
		_ = p.cmd.Process.Kill()
		_ = p.cmd.Wait()
		p.cmd = nil
	}
}

func (p *processTransport) RoundTrip(ctx context.Context, req Request) (Response, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.stream == nil {
		if err := p.start(); err != nil {
			return Response{}, err
		}
	}
	resp, err := p.stream.RoundTrip(ctx, req)
	var compileErr *CompileError
	if err != nil && !errors.As(err, &compileErr) {
		p.stopLocked()
	}
	return resp, err
}

func (p *processTransport) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.stopLocked()
	return nil
}
