package report

import "fmt"

// ReportRenderingError indicates a failure to render or write one output format.
type ReportRenderingError struct {
	Format string
	Path   string
	Err    error
}

func (e *ReportRenderingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("render %s report to %s: %v", e.Format, e.Path, e.Err)
	}
	return fmt.Sprintf("render %s report: %v", e.Format, e.Err)
}

func (e *ReportRenderingError) Unwrap() error { return e.Err }
