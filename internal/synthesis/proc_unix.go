//go:build unix

package synthesis

import (
	"os/exec"
	"syscall"
	"time"
)

// killProcessGroup makes cancellation reach the interpreter started by the
// shell, not only the shell itself.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second
}
