// Package process runs the dev server command next to the build.
package process

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	packerrors "github.com/tain335/svpack/internal/errors"
	"github.com/tain335/svpack/internal/logger"
)

// Process starts a shell command at most once and kills it, with its
// children, on Stop.
type Process struct {
	Command string
	Dir     string
	Stdout  io.Writer
	Stderr  io.Writer
	// Grace is how long Stop waits after SIGTERM before sending SIGKILL.
	Grace time.Duration

	mutex   sync.Mutex
	cmd     *exec.Cmd
	started bool
	stopped bool
	done    chan struct{}
	waitErr error
}

func New(command string, dir string) *Process {
	return &Process{
		Command: command,
		Dir:     dir,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Grace:   5 * time.Second,
		done:    make(chan struct{}),
	}
}

// killTimeout bounds the wait after SIGKILL.
const killTimeout = 5 * time.Second

func (p *Process) fail(err error, message string) error {
	e := packerrors.New(packerrors.ErrProcess, message).WithDetail("command", p.Command)
	e.Wrapped = err
	return e
}

// Start spawns the command unless it already ran. stdin is not connected.
func (p *Process) Start() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.started {
		return nil
	}
	p.started = true

	cmd := shellCommand(p.Command)
	cmd.Dir = p.Dir
	cmd.Stdin = nil
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		close(p.done)
		return p.fail(err, "starting dev server")
	}
	p.cmd = cmd
	log := logger.Get("serve")
	log.Info().Str("command", p.Command).Int("pid", cmd.Process.Pid).Msg("dev server started")

	go func() {
		err := cmd.Wait()
		p.mutex.Lock()
		p.waitErr = err
		p.mutex.Unlock()
		close(p.done)
	}()
	return nil
}

func (p *Process) Started() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.started
}

// Stop sends SIGTERM to the process group and SIGKILL once Grace has
// passed. Calling it more than once, or before Start, is harmless.
func (p *Process) Stop() error {
	p.mutex.Lock()
	if p.cmd == nil || p.stopped {
		p.mutex.Unlock()
		return nil
	}
	p.stopped = true
	cmd := p.cmd
	p.mutex.Unlock()

	select {
	case <-p.done:
		return nil
	default:
	}
	log := logger.Get("serve")
	if err := signalGroup(cmd, terminate); err != nil {
		return p.fail(err, "stopping dev server")
	}
	select {
	case <-p.done:
		log.Debug().Str("command", p.Command).Msg("dev server stopped")
		return nil
	case <-time.After(p.Grace):
	}

	log.Warn().Str("command", p.Command).Dur("grace", p.Grace).Msg("dev server ignored SIGTERM, killing")
	if err := signalGroup(cmd, kill); err != nil {
		return p.fail(err, "killing dev server")
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(killTimeout):
		return p.fail(nil, "dev server did not exit after SIGKILL")
	}
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err is the exit error after Done is closed.
func (p *Process) Err() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.waitErr
}
