//go:build windows

package supervisor

import (
	"os"
	"os/exec"
)

func setProcGroup(_ *exec.Cmd) {}

// Windows has no SIGTERM semantics for unrelated processes; both paths
// terminate the process directly.
func terminate(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func kill(pid int) error {
	return terminate(pid)
}
