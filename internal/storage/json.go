package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"testmgr/internal/domain"
)

// ReportStore keeps the report of the last run in a JSON file.
type ReportStore struct {
	path string
}

// NewReportStore returns a ReportStore that reads/writes the report at path.
func NewReportStore(path string) *ReportStore {
	return &ReportStore{path: path}
}

// Path returns the report file location.
func (s *ReportStore) Path() string {
	return s.path
}

// Report writes the report of a finished run. It implements execution.ReportSink.
func (s *ReportStore) Report(report domain.RunReport) error {
	return s.Save(&report)
}

// Save writes the full report (e.g. after marking failures resolved).
func (s *ReportStore) Save(report *domain.RunReport) error {
	if report.Records == nil {
		report.Records = []domain.TestRecord{}
	}
	if report.Failures == nil {
		report.Failures = []domain.TestFailure{}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Load reads the report of the last run.
func (s *ReportStore) Load() (*domain.RunReport, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read report file: %w", err)
	}
	var report domain.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &report, nil
}

// Resolve marks the failure of test id as looked at. It reports whether a failure was found.
func (s *ReportStore) Resolve(id string) (bool, error) {
	report, err := s.Load()
	if err != nil {
		return false, err
	}
	found := false
	for i := range report.Failures {
		if report.Failures[i].ID == id {
			report.Failures[i].Resolved = true
			found = true
		}
	}
	if !found {
		return false, nil
	}
	return true, s.Save(report)
}
