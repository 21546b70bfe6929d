package e2e

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).PaddingLeft(4)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// Reporter prints results, with colors only when writing to a terminal
type Reporter struct {
	out    io.Writer
	styled bool
}

func NewReporter(out io.Writer) *Reporter {
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &Reporter{
		out:    out,
		styled: styled,
	}
}

func (r *Reporter) render(style lipgloss.Style, s string) string {
	if !r.styled {
		return s
	}
	return style.Render(s)
}

// Scenario prints a single pass/fail line, plus the error for failures
func (r *Reporter) Scenario(result ScenarioResult) {
	mark := r.render(passStyle, "PASS")
	if !result.Passed {
		mark = r.render(failStyle, "FAIL")
	}
	details := formatDuration(result.Duration)
	if result.Latency.Commands > 0 {
		details += fmt.Sprintf(", %d commands ~%s", result.Latency.Commands, formatDuration(result.Latency.Smoothed))
	}
	fmt.Fprintf(r.out, "%s %s %s\n", mark, result.Scenario, r.render(dimStyle, details))
	if result.Error == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(result.Error, "\n"), "\n") {
		if r.styled {
			fmt.Fprintln(r.out, errorStyle.Render(line))
		} else {
			fmt.Fprintln(r.out, "    "+line)
		}
	}
}

func (r *Reporter) Summary(summary Summary) {
	var b strings.Builder
	fmt.Fprintf(&b, "%d scenarios, ", len(summary.Scenarios))
	b.WriteString(r.render(passStyle, fmt.Sprintf("%d passed", summary.Passed)))
	b.WriteString(", ")
	if summary.Failed > 0 {
		b.WriteString(r.render(failStyle, fmt.Sprintf("%d failed", summary.Failed)))
	} else {
		fmt.Fprintf(&b, "%d failed", summary.Failed)
	}
	fmt.Fprintf(&b, " in %s", formatDuration(summary.Duration))

	if r.styled {
		fmt.Fprintln(r.out, boxStyle.Render(b.String()))
		return
	}
	fmt.Fprintln(r.out, b.String())
}

// History prints past runs, newest first
func (r *Reporter) History(results []ScenarioResult) {
	if len(results) == 0 {
		fmt.Fprintln(r.out, "no runs recorded")
		return
	}
	fmt.Fprintln(r.out, r.render(headerStyle, fmt.Sprintf("%-19s  %-4s  %-8s  %s", "STARTED", "", "DURATION", "SCENARIO")))
	for _, result := range results {
		mark := r.render(passStyle, "PASS")
		if !result.Passed {
			mark = r.render(failStyle, "FAIL")
		}
		fmt.Fprintf(r.out, "%-19s  %s  %-8s  %s\n",
			result.StartedAt.Local().Format("2006-01-02 15:04:05"),
			mark,
			formatDuration(result.Duration),
			result.Scenario,
		)
	}
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

// WriteReport saves the summary as YAML
func WriteReport(path string, summary Summary) error {
	data, err := yaml.Marshal(&summary)
	if err != nil {
		return errors.Wrap(err, "unable to encode report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "unable to write report %s", path)
	}
	return nil
}
