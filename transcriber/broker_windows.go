//go:build windows

package transcriber

import "os/exec"

// Windows has no process groups in the POSIX sense; killing the worker
// itself is the best available. The reap grace period in wait() bounds
// the wait when an engine child outlives it.
func setProcessGroup(cmd *exec.Cmd) {}

func killWorker(cmd *exec.Cmd) {
	if cmd.Process != nil {
		cmd.Process.Kill()
	}
}
