package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"testmgr/internal/domain"
)

// FailureViewer displays the failures of a run in an interactive TUI
type FailureViewer struct {
	saver ReportSaver
	out   io.Writer
}

// NewFailureViewer creates a new FailureViewer
func NewFailureViewer(saver ReportSaver, out io.Writer) *FailureViewer {
	return &FailureViewer{saver: saver, out: out}
}

// View displays the failures of report. Marking a failure resolved is saved right away.
func (fv *FailureViewer) View(report *domain.RunReport) error {
	if len(report.Failures) == 0 {
		fmt.Fprintln(fv.out, color.GreenString("✓ No test failures found!"))
		return nil
	}

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	for i := range report.Failures {
		list.AddItem(failureListText(report.Failures[i], i), "", 0, nil)
	}
	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan)

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)
	headerView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true)

	updateHeader := func() {
		unresolved := 0
		for _, f := range report.Failures {
			if !f.Resolved {
				unresolved++
			}
		}
		headerView.SetText(fmt.Sprintf(" Run %s: %d failures, %d unresolved | ↑↓ navigate, [yellow]R[white] mark resolved, → details, ← back, Ctrl+C exit ",
			report.Meta.RunID, len(report.Failures), unresolved))
	}
	updateDetails := func() {
		index := list.GetCurrentItem()
		if index < 0 || index >= len(report.Failures) {
			return
		}
		failure := report.Failures[index]
		statsView.SetText(fmt.Sprintf("[cyan]path:[white] [yellow]%s[white] :: [yellow]%s[white]\n", displayPath(failure.Path), failure.ID))
		detailsView.SetText(formatFailureDetails(failure))
	}

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter, tcell.KeyRight:
			app.SetFocus(detailsView)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'r' || event.Rune() == 'R' {
				index := list.GetCurrentItem()
				if index >= 0 && index < len(report.Failures) {
					report.Failures[index].Resolved = !report.Failures[index].Resolved
					list.SetItemText(index, failureListText(report.Failures[index], index), "")
					updateHeader()
					updateDetails()
					if err := fv.saver.Save(report); err != nil {
						headerView.SetText(fmt.Sprintf("[red]could not save: %v", err))
					}
				}
				return nil
			}
		}
		return event
	})
	detailsView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyLeft, tcell.KeyEsc:
			app.SetFocus(list)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})
	list.SetChangedFunc(func(int, string, string, rune) {
		updateDetails()
	})
	updateHeader()
	updateDetails()

	rightSide := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(statsView, 2, 0, false).
		AddItem(detailsView, 0, 1, false)
	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(list, 0, 1, true).
		AddItem(rightSide, 0, 2, false)
	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(body, 0, 1, true)

	if err := app.SetRoot(layout, true).SetFocus(list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func failureListText(failure domain.TestFailure, index int) string {
	if failure.Resolved {
		return fmt.Sprintf("[gray]✓ [yellow]%d.[gray] %s[white]", index+1, failure.ID)
	}
	return fmt.Sprintf("[yellow]%d.[white] %s", index+1, failure.ID)
}

// formatFailureDetails formats a failure for display using tview color tags
func formatFailureDetails(failure domain.TestFailure) string {
	var builder strings.Builder
	w := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "[red]✗ Test: %s[white]\n\n", tview.Escape(failure.ID))
	fmt.Fprintf(w, "[cyan]Group:\t%s[white]\n", tview.Escape(displayPath(failure.Path)))
	if failure.Source != "" {
		fmt.Fprintf(w, "[yellow]Location:\t%s[white]\n", tview.Escape(failure.Source))
	}
	fmt.Fprintf(w, "\n")
	if failure.Message != "" {
		fmt.Fprintf(w, "[yellow]Message:[white]\n%s\n", tview.Escape(failure.Message))
	}

	w.Flush()
	return builder.String()
}
