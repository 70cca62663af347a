//go:build !windows

package daemon

import (
	"fmt"
	"syscall"
)

// IsRunning reads the record and reports whether its process is alive.
// The record is returned even when the process is gone.
func (p *PIDFile) IsRunning() (*Record, bool) {
	r, err := p.Read()
	if err != nil {
		return nil, false
	}
	// Signal 0 tests if the process exists without sending a signal.
	err = syscall.Kill(r.PID, 0)
	return r, err == nil
}

// Signal sends sig to the recorded process.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	r, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	return syscall.Kill(r.PID, sig)
}
