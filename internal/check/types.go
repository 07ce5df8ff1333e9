// Package check reports problems in a content directory without writing
// any output.
package check

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// Severity indicates the importance of an issue.
type Severity int

const (
	// SeverityInfo is informational only.
	SeverityInfo Severity = iota
	// SeverityWarning marks problems that do not stop a page from building.
	SeverityWarning
	// SeverityError marks pages that will be left out of a build.
	SeverityError
)

// String returns the human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Issue is a single problem found in a page.
type Issue struct {
	File      string
	Permalink string
	Severity  Severity
	Rule      string
	Message   string
	Detail    string
	Line      int
}

// Result contains all issues found by a check.
type Result struct {
	Issues     []Issue
	PagesTotal int
}

func (r *Result) count(s Severity) int {
	return lo.CountBy(r.Issues, func(i Issue) bool { return i.Severity == s })
}

// HasErrors returns true if any error-level issue exists.
func (r *Result) HasErrors() bool { return r.ErrorCount() > 0 }

// HasWarnings returns true if any warning-level issue exists.
func (r *Result) HasWarnings() bool { return r.WarningCount() > 0 }

// ErrorCount returns the number of error-level issues.
func (r *Result) ErrorCount() int { return r.count(SeverityError) }

// WarningCount returns the number of warning-level issues.
func (r *Result) WarningCount() int { return r.count(SeverityWarning) }

// InfoCount returns the number of informational issues.
func (r *Result) InfoCount() int { return r.count(SeverityInfo) }

// Sort orders issues by file and line, keeping rule order within a line.
func (r *Result) Sort() {
	slices.SortStableFunc(r.Issues, func(a, b Issue) int {
		return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Line, b.Line))
	})
}

// Filter drops issues below min.
func (r *Result) Filter(min Severity) {
	r.Issues = lo.Filter(r.Issues, func(i Issue, _ int) bool { return i.Severity >= min })
}
