//go:build windows

package procwatch

import (
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

func launchCommand(path string) *exec.Cmd {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bat", ".cmd":
		return exec.Command("cmd", "/c", path)
	}
	return exec.Command(path)
}

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
}
