package ui

import "testmgr/internal/domain"

// Viewer displays the report of a run in an interactive TUI
type Viewer interface {
	View(report *domain.RunReport) error
}

// ReportSaver persists a report after it was changed in a viewer.
type ReportSaver interface {
	Save(report *domain.RunReport) error
}
