// Package procwatch keeps the monitored arcade application running and stops
// it, together with its child processes, when a mode change requires it.
package procwatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
)

// ErrNoLaunchCommand is returned by Launch when no command is configured.
var ErrNoLaunchCommand = errors.New("no launch command configured")

// Process is one entry of the system process table.
type Process struct {
	PID  int
	PPID int
	Name string

	// Started is the creation time, zero when the table does not report it.
	Started time.Time
}

// Table lists and kills processes.
type Table interface {
	Processes() ([]Process, error)
	Kill(pid int) error
}

// Starter starts a prepared command without waiting for it.
type Starter func(cmd *exec.Cmd) error

// Supervisor watches one named process.
type Supervisor struct {
	target      string
	command     string
	minInterval time.Duration

	table Table
	start Starter
	clock clockwork.Clock

	mu         sync.Mutex
	lastLaunch time.Time
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithTable replaces the system process table.
func WithTable(t Table) Option {
	return func(s *Supervisor) { s.table = t }
}

// WithStarter replaces how launch commands are started.
func WithStarter(st Starter) Option {
	return func(s *Supervisor) { s.start = st }
}

// WithClock sets the clock used for launch throttling.
func WithClock(c clockwork.Clock) Option {
	return func(s *Supervisor) { s.clock = c }
}

// New returns a supervisor for target (e.g. "sinmai.exe") launched through
// command. Launch attempts are at least minInterval apart.
func New(target, command string, minInterval time.Duration, opts ...Option) *Supervisor {
	s := &Supervisor{
		target:      target,
		command:     strings.TrimSpace(command),
		minInterval: minInterval,
		table:       systemTable{},
		start:       startDetached,
		clock:       clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Target returns the watched process name.
func (s *Supervisor) Target() string {
	return s.target
}

// NormalizeName lowercases a process or file name and drops its directory
// and a trailing .exe.
func NormalizeName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".exe")
}

// Find returns the processes matching the target name.
func (s *Supervisor) Find() ([]Process, error) {
	procs, err := s.table.Processes()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	want := NormalizeName(s.target)
	var matches []Process
	for _, p := range procs {
		if NormalizeName(p.Name) == want {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// IsRunning reports whether at least one target process exists.
func (s *Supervisor) IsRunning() (bool, error) {
	matches, err := s.Find()
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// EnsureRunning launches the target when it is not running, unless a launch
// was attempted less than the minimum interval ago.
func (s *Supervisor) EnsureRunning(_ context.Context) error {
	running, err := s.IsRunning()
	if err != nil {
		return err
	}
	if running {
		return nil
	}

	s.mu.Lock()
	now := s.clock.Now()
	if !s.lastLaunch.IsZero() && now.Sub(s.lastLaunch) < s.minInterval {
		s.mu.Unlock()
		logging.Get("procwatch").Debug("launch throttled", "process", s.target, "last", s.lastLaunch)
		return nil
	}
	s.lastLaunch = now
	s.mu.Unlock()

	err = s.Launch()
	if errors.Is(err, ErrNoLaunchCommand) {
		logging.Get("procwatch").Warn("process not running and no launch command configured", "process", s.target)
		return nil
	}
	return err
}

// Launch starts the launch command with its own directory as working
// directory. It does not wait for the process to exit.
func (s *Supervisor) Launch() error {
	if s.command == "" {
		return ErrNoLaunchCommand
	}
	if _, err := os.Stat(s.command); err != nil {
		return fmt.Errorf("launch command: %w", err)
	}

	cmd := launchCommand(s.command)
	cmd.Dir = filepath.Dir(s.command)
	if err := s.start(cmd); err != nil {
		return fmt.Errorf("starting %s: %w", s.command, err)
	}
	logging.Get("procwatch").Info("launched", "process", s.target, "command", s.command)
	return nil
}

// Terminate kills every target process and all of its descendants, children
// before parents. It returns the number of processes killed.
func (s *Supervisor) Terminate(_ context.Context) (int, error) {
	procs, err := s.table.Processes()
	if err != nil {
		return 0, fmt.Errorf("listing processes: %w", err)
	}

	want := NormalizeName(s.target)
	var roots []int
	for _, p := range procs {
		if NormalizeName(p.Name) == want {
			roots = append(roots, p.PID)
		}
	}
	if len(roots) == 0 {
		return 0, nil
	}

	victims := descendants(procs, roots)
	log := logging.Get("procwatch")

	var errs []error
	killed := 0
	for _, pid := range victims {
		if err := s.table.Kill(pid); err != nil {
			if errors.Is(err, os.ErrProcessDone) {
				continue
			}
			errs = append(errs, fmt.Errorf("killing %d: %w", pid, err))
			continue
		}
		killed++
	}
	log.Info("terminated process tree", "process", s.target, "killed", killed)
	return killed, errors.Join(errs...)
}

// descendants returns roots and every process below them, deepest first.
// A process created before its recorded parent is not a child: its parent
// exited and the PID was reused.
func descendants(procs []Process, roots []int) []int {
	byPID := make(map[int]Process, len(procs))
	for _, p := range procs {
		byPID[p.PID] = p
	}

	children := make(map[int][]int)
	for _, p := range procs {
		if p.PPID == p.PID {
			continue
		}
		if parent, ok := byPID[p.PPID]; ok && staleParent(p, parent) {
			continue
		}
		children[p.PPID] = append(children[p.PPID], p.PID)
	}

	depth := make(map[int]int)
	var walk func(pid, d int)
	walk = func(pid, d int) {
		if _, seen := depth[pid]; seen {
			return
		}
		depth[pid] = d
		for _, c := range children[pid] {
			walk(c, d+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}

	out := make([]int, 0, len(depth))
	for pid := range depth {
		out = append(out, pid)
	}
	sort.Slice(out, func(i, j int) bool {
		if depth[out[i]] != depth[out[j]] {
			return depth[out[i]] > depth[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func staleParent(child, parent Process) bool {
	if child.Started.IsZero() || parent.Started.IsZero() {
		return false
	}
	return child.Started.Before(parent.Started)
}

func startDetached(cmd *exec.Cmd) error {
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
