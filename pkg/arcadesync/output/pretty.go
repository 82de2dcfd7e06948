package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// PrettyFormatter renders colored, boxed output for terminals.
type PrettyFormatter struct {
	// Now is used for relative timestamps. Nil means time.Now.
	Now func() time.Time
}

func (f *PrettyFormatter) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// Plan writes one row per manifest entry.
func (f *PrettyFormatter) Plan(w *bytes.Buffer, items []types.PlanItem) error {
	if len(items) == 0 {
		w.WriteString(MutedStyle.Render("  Server manifest is empty"))
		w.WriteString("\n")
		return nil
	}

	nameWidth := len("PACKAGE")
	for _, it := range items {
		nameWidth = max(nameWidth, len(it.Entry.Name))
	}

	fmt.Fprintf(w, "  %s %s %s\n",
		TableHeaderStyle.Render(padRight("ACTION", 8)),
		TableHeaderStyle.Render(padRight("PACKAGE", nameWidth)),
		TableHeaderStyle.Render("REASON"))

	pending := 0
	for _, it := range items {
		action := SuccessStyle.Render(padRight("current", 8))
		if it.NeedsUpdate {
			action = WarningStyle.Render(padRight("update", 8))
			pending++
		}
		fmt.Fprintf(w, "  %s   %s   %s\n", action, ValueStyle.Render(padRight(it.Entry.Name, nameWidth)), MutedStyle.Render(it.Reason))
	}

	summary := fmt.Sprintf("%s %s  %s %s",
		LabelStyle.Render("Packages:"), ValueStyle.Render(fmt.Sprint(len(items))),
		LabelStyle.Render("To download:"), ValueStyle.Render(fmt.Sprint(pending)))
	w.WriteString("\n")
	w.WriteString(HeaderBox.Render(summary))
	w.WriteString("\n")
	return nil
}

// Report writes a pass summary followed by any failures.
func (f *PrettyFormatter) Report(w *bytes.Buffer, r *types.PassReport) error {
	var lines []string

	status := SuccessStyle.Render("ok")
	if !r.OK() {
		status = ErrorStyle.Render("with errors")
	}
	lines = append(lines, fmt.Sprintf("%s %s  %s %s  %s",
		TitleStyle.Render("Pass"), ValueStyle.Render(shortID(r.ID)),
		LabelStyle.Render("Took:"), ValueStyle.Render(formatDuration(r.Elapsed())),
		status))

	lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Mode:"), f.mode(r.Mode)))

	if r.ManifestError != "" {
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Manifest:"), ErrorStyle.Render(r.ManifestError)))
	} else {
		lines = append(lines, fmt.Sprintf("%s %s  %s %s  %s %s",
			LabelStyle.Render("Checked:"), ValueStyle.Render(fmt.Sprint(r.Checked)),
			LabelStyle.Render("Downloaded:"), ValueStyle.Render(fmt.Sprint(len(r.Downloaded)))+" "+SizeStyle.Render(types.FormatSize(r.Bytes)),
			LabelStyle.Render("Failed:"), ValueStyle.Render(fmt.Sprint(len(r.Failed)))))
	}

	w.WriteString(HeaderBox.Render(strings.Join(lines, "\n")))
	w.WriteString("\n")

	for _, name := range r.Downloaded {
		fmt.Fprintf(w, "  %s %s\n", SuccessStyle.Render("updated"), name)
	}

	if len(r.Failed) > 0 {
		var fl []string
		for _, pf := range r.Failed {
			fl = append(fl, fmt.Sprintf("%s %s", ErrorStyle.Render(pf.Name+":"), pf.Error))
		}
		w.WriteString(ErrorBox.Render(strings.Join(fl, "\n")))
		w.WriteString("\n")
	}
	return nil
}

func (f *PrettyFormatter) mode(m types.ModeResult) string {
	switch m.Outcome {
	case types.ModeApplied:
		s := SuccessStyle.Render(fmt.Sprintf("applied free play %s from %s", boolWord(m.Value), m.Source))
		if m.Disrupted {
			s += " " + WarningStyle.Render("(application restarted)")
		}
		return s
	case types.ModeUnchanged:
		return ValueStyle.Render(fmt.Sprintf("free play %s from %s, unchanged", boolWord(m.Value), m.Source))
	case types.ModeFailed:
		return ErrorStyle.Render("failed: " + m.Error)
	default:
		if m.Error != "" {
			return MutedStyle.Render("skipped: " + m.Error)
		}
		return MutedStyle.Render("skipped")
	}
}

// Status writes the agent's local view.
func (f *PrettyFormatter) Status(w *bytes.Buffer, s *Status) error {
	server := SuccessStyle.Render("reachable")
	if !s.ServerReachable {
		server = ErrorStyle.Render("unreachable")
		if s.ServerError != "" {
			server += " " + MutedStyle.Render(s.ServerError)
		}
	}
	process := ErrorStyle.Render("not running")
	if s.ProcessRunning {
		process = SuccessStyle.Render("running")
	}

	lines := []string{
		fmt.Sprintf("%s %s %s", LabelStyle.Render("Server:"), ValueStyle.Render(s.ServerURL), server),
		fmt.Sprintf("%s %s %s", LabelStyle.Render("Process:"), ValueStyle.Render(s.Process), process),
		fmt.Sprintf("%s %s  %s %s",
			LabelStyle.Render("Free play applied:"), ValueStyle.Render(boolWord(s.Marker)),
			LabelStyle.Render("server:"), ValueStyle.Render(boolWord(s.RemoteFreePlay))),
	}
	w.WriteString(HeaderBox.Render(strings.Join(lines, "\n")))
	w.WriteString("\n")

	if len(s.Packages) == 0 {
		fmt.Fprintf(w, "  %s\n", MutedStyle.Render("No packages in "+s.TargetDir))
		return nil
	}

	fmt.Fprintf(w, "  %s %s %s\n",
		TableHeaderStyle.Render(padLeft("SIZE", 10)),
		TableHeaderStyle.Render(padLeft("FILES", 6)),
		TableHeaderStyle.Render("PACKAGE"))
	for _, p := range s.Packages {
		if p.Missing {
			fmt.Fprintf(w, "  %s %s %s %s\n", padLeft("-", 10), padLeft("-", 6), ValueStyle.Render(p.Name), WarningStyle.Render("not extracted"))
			continue
		}
		fmt.Fprintf(w, "  %s %s %s\n",
			SizeStyle.Render(padLeft(types.FormatSize(p.Bytes), 10)),
			ValueStyle.Render(padLeft(fmt.Sprint(p.Files), 6)),
			ValueStyle.Render(p.Name))
	}
	return nil
}

// History writes one row per recorded pass, newest first.
func (f *PrettyFormatter) History(w *bytes.Buffer, reports []types.PassReport) error {
	if len(reports) == 0 {
		w.WriteString(MutedStyle.Render("  No sync passes recorded"))
		w.WriteString("\n")
		return nil
	}

	now := f.now()
	for i := range reports {
		r := &reports[i]
		status := SuccessStyle.Render("ok  ")
		if !r.OK() {
			status = ErrorStyle.Render("FAIL")
		}
		fmt.Fprintf(w, "  %s %s %s  %s\n",
			status,
			ValueStyle.Render(shortID(r.ID)),
			MutedStyle.Render(padRight(humanize.RelTime(r.Started, now, "ago", "from now"), 16)),
			historySummary(r))
	}
	return nil
}

func historySummary(r *types.PassReport) string {
	if r.ManifestError != "" {
		return fmt.Sprintf("mode %s, manifest unavailable", r.Mode.Outcome)
	}
	return fmt.Sprintf("mode %s, %d checked, %d downloaded (%s), %d failed",
		r.Mode.Outcome, r.Checked, len(r.Downloaded), types.FormatSize(r.Bytes), len(r.Failed))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
