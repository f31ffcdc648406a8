//go:build windows

package remote

import (
	"os/exec"
	"syscall"
)

// sysProcAttr returns a default struct; Setpgid is not available on Windows.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}

func killProcess(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
