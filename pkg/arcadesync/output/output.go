// Package output renders arcadesync CLI results (plans, pass reports, agent
// status and pass history) in several formats.
//
// Formatters are looked up by name from a registry:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Report(&buf, report); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// PackageTree summarizes one extracted package directory on the agent.
type PackageTree struct {
	Name    string `json:"name" yaml:"name"`
	Dir     string `json:"dir" yaml:"dir"`
	Files   int64  `json:"files" yaml:"files"`
	Bytes   int64  `json:"bytes" yaml:"bytes"`
	Missing bool   `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// Status is the agent's local view, shown by the status command.
type Status struct {
	ServerURL       string `json:"server_url" yaml:"server_url"`
	ServerReachable bool   `json:"server_reachable" yaml:"server_reachable"`
	ServerError     string `json:"server_error,omitempty" yaml:"server_error,omitempty"`

	Process        string `json:"process" yaml:"process"`
	ProcessRunning bool   `json:"process_running" yaml:"process_running"`

	MarkerPath     string `json:"marker_path,omitempty" yaml:"marker_path,omitempty"`
	Marker         *bool  `json:"marker,omitempty" yaml:"marker,omitempty"`
	RemoteFreePlay *bool  `json:"remote_free_play,omitempty" yaml:"remote_free_play,omitempty"`

	TargetDir string        `json:"target_dir" yaml:"target_dir"`
	Packages  []PackageTree `json:"packages" yaml:"packages"`
}

// Formatter renders each kind of CLI result.
type Formatter interface {
	Plan(w *bytes.Buffer, items []types.PlanItem) error
	Report(w *bytes.Buffer, r *types.PassReport) error
	Status(w *bytes.Buffer, s *Status) error
	History(w *bytes.Buffer, reports []types.PassReport) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing any existing one with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the sorted names of all registered formatters.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

func boolWord(b *bool) string {
	if b == nil {
		return "unset"
	}
	if *b {
		return "true"
	}
	return "false"
}
