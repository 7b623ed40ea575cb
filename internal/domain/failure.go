package domain

// TestFailure represents a failed test in a run report
type TestFailure struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Message  string `json:"message"`
	Source   string `json:"source,omitempty"`
	Resolved bool   `json:"resolved,omitempty"` // marked as looked at in the report viewer
}

// FailureFrom builds the failure entry for a failed test record.
func FailureFrom(rec TestRecord, source string) TestFailure {
	return TestFailure{
		ID:      rec.ID,
		Path:    rec.Path,
		Message: rec.Failure,
		Source:  source,
	}
}
