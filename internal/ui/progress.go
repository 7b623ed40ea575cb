package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"testmgr/internal/domain"
)

// ProgressBar shows the progress of a run. It implements execution.Recorder.
type ProgressBar struct {
	out    io.Writer
	bar    *progressbar.ProgressBar
	passed int
	failed int
}

// NewProgressBar creates a new progress bar writing to out
func NewProgressBar(out io.Writer) *ProgressBar {
	return &ProgressBar{out: out}
}

// RunStarted implements execution.Recorder.
func (p *ProgressBar) RunStarted(_ string, queued int) {
	p.passed, p.failed = 0, 0
	out := p.out
	p.bar = progressbar.NewOptions(queued,
		progressbar.OptionSetDescription(p.description()),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(out),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// TestFinished implements execution.Recorder.
func (p *ProgressBar) TestFinished(rec domain.TestRecord) {
	switch rec.Status {
	case domain.StatusPassed:
		p.passed++
	case domain.StatusFailed:
		p.failed++
	}
	if p.bar == nil {
		return
	}
	p.bar.Describe(p.description())
	_ = p.bar.Add(1)
}

// Report implements execution.ReportSink and completes the bar.
func (p *ProgressBar) Report(domain.RunReport) error {
	if p.bar == nil {
		return nil
	}
	err := p.bar.Finish()
	p.bar = nil
	return err
}

// Counts returns the passed and failed counts of the current run.
func (p *ProgressBar) Counts() (passed, failed int) {
	return p.passed, p.failed
}

func (p *ProgressBar) description() string {
	return color.CyanString("Running tests: ") +
		color.GreenString("[success: %d", p.passed) +
		" | " +
		color.RedString("failed: %d]", p.failed)
}
