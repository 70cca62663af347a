//go:build !windows

package daemon

import (
	"os"
	"os/exec"
	"syscall"
)

// Detach starts cmd in its own session so it outlives the parent terminal.
func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// ShutdownSignals are the signals a foreground server stops on.
func ShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}
