//go:build windows

package daemon

import (
	"os"
	"os/exec"
)

// Detach is a no-op on Windows (no Setsid equivalent).
func Detach(_ *exec.Cmd) {}

func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
