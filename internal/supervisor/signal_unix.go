//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// setProcGroup places the child in its own process group so signals reach
// any workers it forks.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate sends SIGTERM to the child's process group.
func terminate(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}

// kill sends SIGKILL to the child's process group.
func kill(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
