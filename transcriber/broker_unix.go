//go:build !windows

package transcriber

import (
	"os/exec"
	"syscall"
)

// setProcessGroup gives the worker its own process group so a kill
// reaches the engine children it spawns, not just the worker itself.
// A surviving child would hold the stderr pipe open and stall the
// broker past its deadline.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killWorker(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
		syscall.Kill(-pgid, syscall.SIGKILL)
		return
	}
	cmd.Process.Kill()
}
