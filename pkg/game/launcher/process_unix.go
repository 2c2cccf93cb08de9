//go:build !windows

package launcher

import (
	"os"
	"os/exec"
	"syscall"
)

// setupWindowsProcessAttributes is a no-op on non-Windows systems
func setupWindowsProcessAttributes(cmd *exec.Cmd) {}

func interrupt(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
