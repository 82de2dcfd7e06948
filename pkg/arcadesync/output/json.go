package output

import (
	"bytes"
	"encoding/json"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// JSONFormatter writes indented JSON documents.
type JSONFormatter struct{}

func (f *JSONFormatter) encode(w *bytes.Buffer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Plan writes the plan items as a JSON array.
func (f *JSONFormatter) Plan(w *bytes.Buffer, items []types.PlanItem) error {
	if items == nil {
		items = []types.PlanItem{}
	}
	return f.encode(w, items)
}

// Report writes the pass report.
func (f *JSONFormatter) Report(w *bytes.Buffer, r *types.PassReport) error {
	return f.encode(w, r)
}

// Status writes the status object.
func (f *JSONFormatter) Status(w *bytes.Buffer, s *Status) error {
	return f.encode(w, s)
}

// History writes the reports as a JSON array.
func (f *JSONFormatter) History(w *bytes.Buffer, reports []types.PassReport) error {
	if reports == nil {
		reports = []types.PassReport{}
	}
	return f.encode(w, reports)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)
