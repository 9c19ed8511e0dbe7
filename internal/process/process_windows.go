//go:build windows

package process

import (
	"errors"
	"os"
	"os/exec"
)

type signal int

const (
	terminate signal = iota
	kill
)

func shellCommand(command string) *exec.Cmd {
	return exec.Command("cmd", "/C", command)
}

func setProcessGroup(cmd *exec.Cmd) {}

// signalGroup only reaches the shell itself; windows has no process groups
// to signal and no SIGTERM, so both signals kill.
func signalGroup(cmd *exec.Cmd, _ signal) error {
	err := cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
