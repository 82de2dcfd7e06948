package output

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// YAMLFormatter writes YAML documents. Field names follow the JSON output.
type YAMLFormatter struct{}

type yamlMode struct {
	Outcome   string `yaml:"outcome"`
	Value     *bool  `yaml:"value,omitempty"`
	Source    string `yaml:"source,omitempty"`
	Disrupted bool   `yaml:"disrupted"`
	Error     string `yaml:"error,omitempty"`
}

type yamlFailure struct {
	Name  string `yaml:"name"`
	Error string `yaml:"error"`
}

type yamlReport struct {
	ID            string        `yaml:"id"`
	Started       time.Time     `yaml:"started"`
	Finished      time.Time     `yaml:"finished"`
	Elapsed       string        `yaml:"elapsed"`
	Mode          yamlMode      `yaml:"mode"`
	ManifestError string        `yaml:"manifest_error,omitempty"`
	Checked       int           `yaml:"checked"`
	Downloaded    []string      `yaml:"downloaded,omitempty"`
	Bytes         int64         `yaml:"bytes"`
	Failed        []yamlFailure `yaml:"failed,omitempty"`
}

type yamlPlanItem struct {
	Name        string `yaml:"name"`
	Hash        string `yaml:"hash"`
	NeedsUpdate bool   `yaml:"needs_update"`
	Reason      string `yaml:"reason"`
}

func toYAMLReport(r *types.PassReport) yamlReport {
	out := yamlReport{
		ID:       r.ID,
		Started:  r.Started,
		Finished: r.Finished,
		Elapsed:  r.Elapsed().String(),
		Mode: yamlMode{
			Outcome:   string(r.Mode.Outcome),
			Value:     r.Mode.Value,
			Source:    r.Mode.Source,
			Disrupted: r.Mode.Disrupted,
			Error:     r.Mode.Error,
		},
		ManifestError: r.ManifestError,
		Checked:       r.Checked,
		Downloaded:    r.Downloaded,
		Bytes:         r.Bytes,
	}
	for _, pf := range r.Failed {
		out.Failed = append(out.Failed, yamlFailure{Name: pf.Name, Error: pf.Error})
	}
	return out
}

func (f *YAMLFormatter) encode(w *bytes.Buffer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

// Plan writes the plan items as a YAML sequence.
func (f *YAMLFormatter) Plan(w *bytes.Buffer, items []types.PlanItem) error {
	out := make([]yamlPlanItem, 0, len(items))
	for _, it := range items {
		out = append(out, yamlPlanItem{Name: it.Entry.Name, Hash: it.Entry.Hash, NeedsUpdate: it.NeedsUpdate, Reason: it.Reason})
	}
	return f.encode(w, out)
}

// Report writes the pass report.
func (f *YAMLFormatter) Report(w *bytes.Buffer, r *types.PassReport) error {
	return f.encode(w, toYAMLReport(r))
}

// Status writes the status object.
func (f *YAMLFormatter) Status(w *bytes.Buffer, s *Status) error {
	return f.encode(w, s)
}

// History writes the reports as a YAML sequence.
func (f *YAMLFormatter) History(w *bytes.Buffer, reports []types.PassReport) error {
	out := make([]yamlReport, 0, len(reports))
	for i := range reports {
		out = append(out, toYAMLReport(&reports[i]))
	}
	return f.encode(w, out)
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

var _ Formatter = (*YAMLFormatter)(nil)
