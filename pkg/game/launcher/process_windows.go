//go:build windows

package launcher

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// setupWindowsProcessAttributes keeps java from opening a console window.
func setupWindowsProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}

// Windows has no SIGTERM equivalent for GUI-less children.
func interrupt(p *os.Process) error {
	return p.Kill()
}
