// Package daemon tracks a background `tb serve` process through a small
// JSON record on disk.
package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrNotRunning is returned by Stop when no live process holds the file.
var ErrNotRunning = errors.New("server not running")

// Record describes a running server.
type Record struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	LogPath   string    `json:"log_path,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// PIDFile manages the record file for one server instance.
type PIDFile struct {
	Path string
}

func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write records the current process as the server listening on addr.
func (p *PIDFile) Write(addr string) error {
	return p.WriteRecord(Record{PID: os.Getpid(), Addr: addr, StartedAt: time.Now().UTC()})
}

// WriteRecord replaces the file contents atomically.
func (p *PIDFile) WriteRecord(r Record) error {
	if r.PID <= 0 {
		return fmt.Errorf("invalid pid %d", r.PID)
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	tmp := p.Path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p.Path)
}

// Read returns the stored record.
func (p *PIDFile) Read() (*Record, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invalid PID file content: %w", err)
	}
	if r.PID <= 0 {
		return nil, fmt.Errorf("invalid PID file content: pid %d", r.PID)
	}
	return &r, nil
}

// Remove deletes the file. A missing file is not an error.
func (p *PIDFile) Remove() error {
	err := os.Remove(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Acquire claims the file for the current process. It fails when another
// live process holds it and clears records left by dead ones.
func (p *PIDFile) Acquire(addr string) error {
	if r, running := p.IsRunning(); running {
		if r.PID == os.Getpid() {
			return p.Write(addr)
		}
		return fmt.Errorf("server already running (PID %d on %s)", r.PID, r.Addr)
	}
	if err := p.Remove(); err != nil {
		return fmt.Errorf("remove stale PID file: %w", err)
	}
	return p.Write(addr)
}

// Stop asks the recorded process to exit with term, escalating to kill when
// it is still alive after grace. The file is removed once the process is gone.
func (p *PIDFile) Stop(term, kill syscall.Signal, grace time.Duration) error {
	r, running := p.IsRunning()
	if !running {
		if r != nil {
			_ = p.Remove()
		}
		return ErrNotRunning
	}
	if err := p.Signal(term); err != nil {
		return fmt.Errorf("signal PID %d: %w", r.PID, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if _, alive := p.IsRunning(); !alive {
			return p.Remove()
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err := p.Signal(kill); err != nil {
		return fmt.Errorf("kill PID %d: %w", r.PID, err)
	}
	return p.Remove()
}
