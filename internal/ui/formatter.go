package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"testmgr/internal/domain"
	"testmgr/internal/foldout"
	"testmgr/internal/manager"
)

// Formatter formats and displays output
type Formatter struct {
	out     io.Writer
	colored bool
}

// NewFormatter creates a new Formatter. With colored false no escape sequences are written.
func NewFormatter(out io.Writer, colored bool) *Formatter {
	return &Formatter{out: out, colored: colored}
}

func (f *Formatter) paint(attr color.Attribute, format string, args ...any) string {
	c := color.New(attr)
	if f.colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprintf(format, args...)
}

func (f *Formatter) style(t table.Writer, outcome domain.Outcome, failed int) {
	if !f.colored {
		t.SetStyle(table.StyleLight)
		return
	}
	switch {
	case failed > 0:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case outcome != domain.OutcomeCompleted:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}
}

// PrintReport prints the records of a run as a table, followed by the failures grouped by path.
func (f *Formatter) PrintReport(report *domain.RunReport) {
	meta := report.Meta

	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Test Run %s (%s)", meta.Outcome, meta.Duration))
	t.AppendHeader(table.Row{"Path", "Test", "Status", "Duration", "Frames", "Failure"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Path", AutoMerge: true},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Frames", Align: text.AlignRight},
		{Name: "Failure", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})
	for _, rec := range report.Records {
		t.AppendRow(table.Row{
			displayPath(rec.Path),
			rec.ID,
			rec.Status,
			rec.Duration.Round(time.Millisecond),
			rec.Frames,
			rec.Failure,
		})
	}
	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d tests", meta.TotalTests),
		fmt.Sprintf("%d passed / %d failed / %d skipped", meta.PassedTests, meta.FailedTests, meta.Skipped),
		meta.Duration,
		"",
		"",
	})
	f.style(t, meta.Outcome, meta.FailedTests)
	t.Render()

	fmt.Fprintln(f.out)
	switch {
	case meta.FailedTests > 0:
		fmt.Fprintln(f.out, f.paint(color.FgRed, "✗ %d test(s) failed", meta.FailedTests))
		f.printFailureTree(report.Failures)
	case meta.Outcome != domain.OutcomeCompleted:
		fmt.Fprintln(f.out, f.paint(color.FgYellow, "! run %s, %d test(s) skipped", meta.Outcome, meta.Skipped))
	default:
		fmt.Fprintln(f.out, f.paint(color.FgGreen, "✓ All tests passed!"))
	}
}

// printFailureTree prints the failures grouped by their group path
func (f *Formatter) printFailureTree(failures []domain.TestFailure) {
	byPath := make(map[string][]domain.TestFailure)
	for _, failure := range failures {
		byPath[failure.Path] = append(byPath[failure.Path], failure)
	}
	keys := make([]string, 0, len(byPath))
	for k := range byPath {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintln(f.out, f.paint(color.FgCyan, "%s", displayPath(k)))
		group := byPath[k]
		for i, failure := range group {
			connector := "├── "
			if i == len(group)-1 {
				connector = "└── "
			}
			marker := ""
			if failure.Resolved {
				marker = " " + f.paint(color.FgHiBlack, "(resolved)")
			}
			fmt.Fprintf(f.out, "%s%s%s\n", connector, f.paint(color.FgYellow, "%s", failure.ID), marker)
			fmt.Fprintf(f.out, "    %s\n", f.paint(color.FgRed, "%s", firstLine(failure.Message)))
		}
	}
}

// PrintTree prints the test tree with a result marker per test. Collapsed groups are printed
// expanded when all is set.
func (f *Formatter) PrintTree(tree *foldout.Tree, all bool) {
	total := len(tree.AllTests())
	fmt.Fprintln(f.out, f.paint(color.FgGreen, "Found %d test(s):", total))

	tree.Walk(tree.Root(), func(n *foldout.Node, depth int) bool {
		indent := strings.Repeat("│   ", max(depth-1, 0))
		if !n.IsRoot() {
			marker := "▸"
			if n.Expanded || all {
				marker = "▾"
			}
			stats := tree.Stats(n.Path)
			fmt.Fprintf(f.out, "%s%s %s %s\n", indent, marker, f.paint(color.FgCyan, "%s", n.Name()),
				f.paint(color.FgHiBlack, "(%d/%d passed)", stats.Passed, stats.Total))
			if !n.Expanded && !all {
				return false
			}
			indent += "│   "
		}
		for _, test := range n.Tests() {
			fmt.Fprintf(f.out, "%s├── %s %s%s\n", indent, f.resultMarker(test.Result), test.DisplayName(), f.flags(test))
		}
		return true
	})
}

func (f *Formatter) resultMarker(r domain.Result) string {
	switch r {
	case domain.Pass:
		return f.paint(color.FgGreen, "[P]")
	case domain.Fail:
		return f.paint(color.FgRed, "[F]")
	default:
		return "[ ]"
	}
}

func (f *Formatter) flags(test *domain.Test) string {
	var parts []string
	if test.Selected {
		parts = append(parts, "selected")
	}
	if test.Locked {
		parts = append(parts, "locked")
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + f.paint(color.FgHiBlack, "(%s)", strings.Join(parts, ", "))
}

// PrintState prints the manager flags as a two column table.
func (f *Formatter) PrintState(st manager.State) {
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle("Test Manager State")
	t.AppendHeader(table.Row{"Key", "Value"})
	t.AppendRows([]table.Row{
		{"Tests", st.Total},
		{"Passed", st.Passed},
		{"Failed", st.Failed},
		{"Any selected", st.AnySelected},
		{"All selected", st.AllSelected},
		{"Any results", st.AnyResults},
		{"Queued", st.Queued},
		{"Show welcome", st.ShowWelcome},
		{"Debug", st.Debug},
		{"Scene empty", st.SceneEmpty},
	})
	if f.colored {
		t.SetStyle(table.StyleColoredBright)
	} else {
		t.SetStyle(table.StyleLight)
	}
	t.Render()
}

func displayPath(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
