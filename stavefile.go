//go:build stave

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
)

// Default target when running `stave` with no arguments.
var Default = Build

// Aliases for common targets.
var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"i": Install,
	"c": Clean,
}

const binDir = "bin"

// binaries maps each binary name to its main package.
var binaries = []struct {
	name string
	pkg  string
}{
	{name: "arcadesync", pkg: "./cmd/arcadesync"},
	{name: "arcadesyncd", pkg: "./cmd/arcadesyncd"},
}

// All runs the complete build pipeline.
func All() error {
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Build compiles the agent and server binaries.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating bin directory: %w", err)
	}

	ldflags := buildLdflags()
	for _, b := range binaries {
		if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", exeName(filepath.Join(binDir, b.name)), b.pkg); err != nil {
			return err
		}
	}
	return nil
}

// Windows cross-compiles both binaries for cabinets and servers running Windows.
func Windows() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating bin directory: %w", err)
	}

	ldflags := buildLdflags()
	for _, b := range binaries {
		out := filepath.Join(binDir, "windows", b.name+".exe")
		cmd := exec.Command("go", "build", "-ldflags", ldflags, "-o", out, b.pkg)
		cmd.Env = append(os.Environ(), "GOOS=windows", "GOARCH=amd64")
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("building %s for windows: %w", b.name, err)
		}
	}
	return nil
}

// Install builds and installs both binaries to the user's GOBIN or /usr/local/bin.
func Install() error {
	st.Deps(Build)

	bin, err := installDir()
	if err != nil {
		return err
	}

	for _, b := range binaries {
		src := exeName(filepath.Join(binDir, b.name))
		dst := exeName(filepath.Join(bin, b.name))
		if st.Verbose() {
			fmt.Printf("Installing %s to %s\n", src, dst)
		}
		if err := sh.Copy(dst, src); err != nil {
			return err
		}
	}
	return nil
}

// Uninstall removes the installed binaries.
func Uninstall() error {
	bin, err := installDir()
	if err != nil {
		return err
	}

	for _, b := range binaries {
		target := exeName(filepath.Join(bin, b.name))
		if _, err := os.Stat(target); os.IsNotExist(err) {
			if st.Verbose() {
				fmt.Printf("Binary not found at %s, nothing to uninstall\n", target)
			}
			continue
		}
		if st.Verbose() {
			fmt.Printf("Removing %s\n", target)
		}
		if err := os.Remove(target); err != nil {
			return err
		}
	}
	return nil
}

// Test runs all tests with race detection and coverage.
func Test() error {
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if st.Verbose() {
		fmt.Printf("Removing %s/\n", binDir)
	}
	return sh.Rm(binDir + "/")
}

// Fmt formats all Go code.
func Fmt() error {
	if err := sh.Run("gofmt", "-w", "."); err != nil {
		return fmt.Errorf("running gofmt: %w", err)
	}
	return sh.Run("goimports", "-w", ".")
}

// Tidy runs go mod tidy.
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

func installDir() (string, error) {
	gocmd := st.GoCmd()
	bin, err := sh.Output(gocmd, "env", "GOBIN")
	if err != nil {
		return "", fmt.Errorf("determining GOBIN: %w", err)
	}
	if bin != "" {
		return bin, nil
	}
	gopath, err := sh.Output(gocmd, "env", "GOPATH")
	if err != nil {
		return "", fmt.Errorf("determining GOPATH: %w", err)
	}
	if gopath != "" {
		return filepath.Join(gopath, "bin"), nil
	}
	return "/usr/local/bin", nil
}

func exeName(path string) string {
	if runtime.GOOS == "windows" {
		return path + ".exe"
	}
	return path
}

// buildLdflags returns ldflags for version injection into both main packages.
func buildLdflags() string {
	version := "dev"
	commit := "unknown"
	date := time.Now().Format(time.RFC3339)

	if v, err := sh.Output("git", "describe", "--tags", "--always"); err == nil && v != "" {
		version = strings.TrimSpace(v)
	}

	if c, err := sh.Output("git", "rev-parse", "--short", "HEAD"); err == nil && c != "" {
		commit = strings.TrimSpace(c)
	}

	return fmt.Sprintf("-X main.version=%s -X main.commit=%s -X main.date=%s", version, commit, date)
}
