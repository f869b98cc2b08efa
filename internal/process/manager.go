// Package process tracks the background server process through a PID
// file and a reference count of attached sessions.
package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	pidFilename = "ccbridge.pid"
	refFilename = "ccbridge.refs"
)

type Manager struct {
	pidPath string
	refPath string
}

func NewManager(baseDir string) *Manager {
	return &Manager{
		pidPath: filepath.Join(baseDir, pidFilename),
		refPath: filepath.Join(baseDir, refFilename),
	}
}

// WritePID records the current process as the running server.
func (m *Manager) WritePID() error {
	if err := os.MkdirAll(filepath.Dir(m.pidPath), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	return os.WriteFile(m.pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// PID returns the recorded server pid, or 0 when none is recorded.
func (m *Manager) PID() int {
	data, err := os.ReadFile(m.pidPath)
	if err != nil {
		return 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}

	return pid
}

// IsRunning reports whether the recorded pid names a live process.
func (m *Manager) IsRunning() bool {
	pid := m.PID()
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}

// Stop sends SIGTERM to the recorded process and waits briefly for it
// to exit before cleaning up the state files.
func (m *Manager) Stop() error {
	pid := m.PID()
	if pid <= 0 {
		return fmt.Errorf("no recorded server process")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		m.Cleanup()
		return fmt.Errorf("stopping process %d: %w", pid, err)
	}

	for i := 0; i < 20; i++ {
		if process.Signal(syscall.Signal(0)) != nil {
			break
		}

		time.Sleep(100 * time.Millisecond)
	}

	m.Cleanup()

	return nil
}

// Cleanup removes the PID and reference files.
func (m *Manager) Cleanup() {
	_ = os.Remove(m.pidPath)
	_ = os.Remove(m.refPath)
}

// AddReference increments the count of sessions using the server and
// returns the new count.
func (m *Manager) AddReference() int {
	count := m.references() + 1
	_ = os.WriteFile(m.refPath, []byte(strconv.Itoa(count)), 0o644)

	return count
}

// DropReference decrements the session count and returns the new count.
// The count never goes below zero.
func (m *Manager) DropReference() int {
	count := m.references() - 1
	if count <= 0 {
		_ = os.Remove(m.refPath)
		return 0
	}

	_ = os.WriteFile(m.refPath, []byte(strconv.Itoa(count)), 0o644)

	return count
}

func (m *Manager) references() int {
	data, err := os.ReadFile(m.refPath)
	if err != nil {
		return 0
	}

	count, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}

	return count
}
