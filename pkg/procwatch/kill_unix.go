//go:build !windows

package procwatch

import (
	"os"

	"golang.org/x/sys/unix"
)

func killUnix(pid int) error {
	err := unix.Kill(pid, unix.SIGKILL)
	if err == unix.ESRCH {
		return os.ErrProcessDone
	}
	return err
}
