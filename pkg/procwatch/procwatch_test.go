package procwatch

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTable struct {
	mu      sync.Mutex
	procs   []Process
	killed  []int
	killErr map[int]error
}

func (f *fakeTable) Processes() ([]Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Process(nil), f.procs...), nil
}

func (f *fakeTable) Kill(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.killErr[pid]; err != nil {
		return err
	}
	f.killed = append(f.killed, pid)
	for i, p := range f.procs {
		if p.PID == pid {
			f.procs = append(f.procs[:i], f.procs[i+1:]...)
			break
		}
	}
	return nil
}

type recordingStarter struct {
	cmds []*exec.Cmd
	err  error
}

func (r *recordingStarter) start(cmd *exec.Cmd) error {
	r.cmds = append(r.cmds, cmd)
	return r.err
}

func launchScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "start.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestNormalizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"sinmai.exe", "sinmai"},
		{"Sinmai.EXE", "sinmai"},
		{"sinmai", "sinmai"},
		{`C:\Games\maimai\Sinmai.exe`, "sinmai"},
		{"/opt/game/sinmai", "sinmai"},
		{"  amdaemon.exe ", "amdaemon"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), tt.in)
	}
}

func TestIsRunning(t *testing.T) {
	table := &fakeTable{procs: []Process{{PID: 10, PPID: 1, Name: `C:\game\Sinmai.exe`}}}
	s := New("sinmai.exe", "", time.Second, WithTable(table))

	running, err := s.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)

	table.procs = nil
	running, err = s.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)
}

func TestEnsureRunningThrottlesLaunches(t *testing.T) {
	clock := clockwork.NewFakeClock()
	starter := &recordingStarter{}
	script := launchScript(t)
	s := New("sinmai.exe", script, 10*time.Second,
		WithTable(&fakeTable{}),
		WithStarter(starter.start),
		WithClock(clock))
	ctx := context.Background()

	require.NoError(t, s.EnsureRunning(ctx))
	require.Len(t, starter.cmds, 1)
	assert.Equal(t, filepath.Dir(script), starter.cmds[0].Dir)

	clock.Advance(5 * time.Second)
	require.NoError(t, s.EnsureRunning(ctx))
	assert.Len(t, starter.cmds, 1)

	clock.Advance(5 * time.Second)
	require.NoError(t, s.EnsureRunning(ctx))
	assert.Len(t, starter.cmds, 2)
}

func TestEnsureRunningLeavesRunningProcessAlone(t *testing.T) {
	starter := &recordingStarter{}
	table := &fakeTable{procs: []Process{{PID: 10, PPID: 1, Name: "sinmai.exe"}}}
	s := New("sinmai.exe", launchScript(t), time.Second, WithTable(table), WithStarter(starter.start))

	require.NoError(t, s.EnsureRunning(context.Background()))
	assert.Empty(t, starter.cmds)
}

func TestEnsureRunningWithoutCommand(t *testing.T) {
	s := New("sinmai.exe", "", time.Second, WithTable(&fakeTable{}))

	assert.NoError(t, s.EnsureRunning(context.Background()))
	assert.ErrorIs(t, s.Launch(), ErrNoLaunchCommand)
}

func TestLaunchMissingCommand(t *testing.T) {
	starter := &recordingStarter{}
	s := New("sinmai.exe", filepath.Join(t.TempDir(), "nope.bat"), time.Second,
		WithTable(&fakeTable{}), WithStarter(starter.start))

	err := s.Launch()
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, starter.cmds)
}

func TestTerminateKillsTreeChildrenFirst(t *testing.T) {
	table := &fakeTable{procs: []Process{
		{PID: 1, PPID: 0, Name: "init"},
		{PID: 100, PPID: 1, Name: "Sinmai.exe"},
		{PID: 101, PPID: 100, Name: "amdaemon.exe"},
		{PID: 102, PPID: 101, Name: "helper.exe"},
		{PID: 200, PPID: 1, Name: "explorer.exe"},
	}}
	s := New("sinmai.exe", "", time.Second, WithTable(table))

	killed, err := s.Terminate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, killed)
	assert.Equal(t, []int{102, 101, 100}, table.killed)

	running, err := s.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)
}

func TestTerminateIgnoresExitedProcesses(t *testing.T) {
	table := &fakeTable{
		procs: []Process{
			{PID: 100, PPID: 1, Name: "sinmai.exe"},
			{PID: 101, PPID: 100, Name: "child"},
		},
		killErr: map[int]error{101: os.ErrProcessDone},
	}
	s := New("sinmai.exe", "", time.Second, WithTable(table))

	killed, err := s.Terminate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, killed)
}

func TestTerminateReportsKillErrors(t *testing.T) {
	denied := errors.New("access denied")
	table := &fakeTable{
		procs:   []Process{{PID: 100, PPID: 1, Name: "sinmai.exe"}},
		killErr: map[int]error{100: denied},
	}
	s := New("sinmai.exe", "", time.Second, WithTable(table))

	_, err := s.Terminate(context.Background())
	assert.ErrorIs(t, err, denied)
}

func TestTerminateNothingRunning(t *testing.T) {
	s := New("sinmai.exe", "", time.Second, WithTable(&fakeTable{}))

	killed, err := s.Terminate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, killed)
}

func TestTerminateSkipsProcessesOlderThanTheirParent(t *testing.T) {
	boot := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	table := &fakeTable{procs: []Process{
		{PID: 100, PPID: 1, Name: "sinmai.exe", Started: boot.Add(time.Minute)},
		// Its real parent exited before the game reused PID 100.
		{PID: 101, PPID: 100, Name: "orphan.exe", Started: boot},
		{PID: 102, PPID: 100, Name: "amdaemon.exe", Started: boot.Add(2 * time.Minute)},
		{PID: 103, PPID: 100, Name: "unknown.exe"},
	}}
	s := New("sinmai.exe", "", time.Second, WithTable(table))

	killed, err := s.Terminate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, killed)
	assert.Equal(t, []int{102, 103, 100}, table.killed)
}
