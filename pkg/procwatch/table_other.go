//go:build !linux && !windows

package procwatch

import (
	"bufio"
	"bytes"
	"os/exec"
	"strconv"
	"strings"
)

type systemTable struct{}

// Processes parses ps output. There is no procfs on these systems.
func (systemTable) Processes() ([]Process, error) {
	out, err := exec.Command("ps", "-axo", "pid=,ppid=,comm=").Output()
	if err != nil {
		return nil, err
	}

	var procs []Process
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		procs = append(procs, Process{PID: pid, PPID: ppid, Name: strings.Join(fields[2:], " ")})
	}
	return procs, sc.Err()
}

func (systemTable) Kill(pid int) error {
	return killUnix(pid)
}
