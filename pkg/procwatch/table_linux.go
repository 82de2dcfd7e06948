//go:build linux

package procwatch

import (
	"github.com/prometheus/procfs"
)

type systemTable struct{}

func (systemTable) Processes() ([]Process, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, err
	}
	procs, err := fs.AllProcs()
	if err != nil {
		return nil, err
	}

	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		stat, err := p.Stat()
		if err != nil {
			continue // exited while listing
		}
		name := stat.Comm
		// comm is truncated to 15 bytes; argv[0] carries the full name,
		// including Windows paths under Wine.
		if args, err := p.CmdLine(); err == nil && len(args) > 0 && args[0] != "" {
			name = args[0]
		}
		out = append(out, Process{PID: stat.PID, PPID: stat.PPID, Name: name})
	}
	return out, nil
}

func (systemTable) Kill(pid int) error {
	return killUnix(pid)
}
