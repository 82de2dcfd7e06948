package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// PlainFormatter writes tab-aligned text without styling, for scripts and logs.
type PlainFormatter struct{}

// Plan writes ACTION, PACKAGE, HASH and REASON columns.
func (f *PlainFormatter) Plan(w *bytes.Buffer, items []types.PlanItem) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tPACKAGE\tHASH\tREASON")
	for _, it := range items {
		action := "current"
		if it.NeedsUpdate {
			action = "update"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", action, it.Entry.Name, it.Entry.Hash, it.Reason)
	}
	return tw.Flush()
}

// Report writes one key: value line per field.
func (f *PlainFormatter) Report(w *bytes.Buffer, r *types.PassReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "pass:\t%s\n", r.ID)
	fmt.Fprintf(tw, "started:\t%s\n", r.Started.Format(time.RFC3339))
	fmt.Fprintf(tw, "elapsed:\t%s\n", formatDuration(r.Elapsed()))
	fmt.Fprintf(tw, "mode:\t%s\n", r.Mode.Outcome)
	if r.Mode.Value != nil {
		fmt.Fprintf(tw, "free play:\t%s (%s)\n", boolWord(r.Mode.Value), r.Mode.Source)
	}
	if r.Mode.Disrupted {
		fmt.Fprintln(tw, "restarted:\ttrue")
	}
	if r.Mode.Error != "" {
		fmt.Fprintf(tw, "mode error:\t%s\n", r.Mode.Error)
	}
	if r.ManifestError != "" {
		fmt.Fprintf(tw, "manifest error:\t%s\n", r.ManifestError)
	}
	fmt.Fprintf(tw, "checked:\t%d\n", r.Checked)
	fmt.Fprintf(tw, "downloaded:\t%d (%s)\n", len(r.Downloaded), types.FormatSize(r.Bytes))
	for _, name := range r.Downloaded {
		fmt.Fprintf(tw, "  updated:\t%s\n", name)
	}
	fmt.Fprintf(tw, "failed:\t%d\n", len(r.Failed))
	for _, pf := range r.Failed {
		fmt.Fprintf(tw, "  %s:\t%s\n", pf.Name, pf.Error)
	}
	return tw.Flush()
}

// Status writes the local view followed by a package table.
func (f *PlainFormatter) Status(w *bytes.Buffer, s *Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	reach := "reachable"
	if !s.ServerReachable {
		reach = "unreachable"
	}
	running := "not running"
	if s.ProcessRunning {
		running = "running"
	}
	fmt.Fprintf(tw, "server:\t%s (%s)\n", s.ServerURL, reach)
	fmt.Fprintf(tw, "process:\t%s (%s)\n", s.Process, running)
	fmt.Fprintf(tw, "free play applied:\t%s\n", boolWord(s.Marker))
	fmt.Fprintf(tw, "free play server:\t%s\n", boolWord(s.RemoteFreePlay))
	fmt.Fprintf(tw, "target dir:\t%s\n", s.TargetDir)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.Packages) == 0 {
		return nil
	}
	w.WriteString("\n")
	tw = tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tFILES\tSIZE")
	for _, p := range s.Packages {
		if p.Missing {
			fmt.Fprintf(tw, "%s\t-\t-\n", p.Name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Name, p.Files, types.FormatSize(p.Bytes))
	}
	return tw.Flush()
}

// History writes one row per pass.
func (f *PlainFormatter) History(w *bytes.Buffer, reports []types.PassReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tOK\tMODE\tCHECKED\tDOWNLOADED\tFAILED")
	for i := range reports {
		r := &reports[i]
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%d\t%d\t%d\n",
			r.ID, r.Started.Format(time.RFC3339), r.OK(), r.Mode.Outcome, r.Checked, len(r.Downloaded), len(r.Failed))
	}
	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
