//go:build !windows

package procwatch

import (
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
)

func launchCommand(path string) *exec.Cmd {
	if strings.EqualFold(filepath.Ext(path), ".sh") {
		return exec.Command("sh", path)
	}
	return exec.Command(path)
}

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
