package check

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Formatter writes a check result.
type Formatter interface {
	Format(w io.Writer, result *Result, dir string) error
}

// NewFormatter returns the formatter for format, text by default.
func NewFormatter(format string) Formatter {
	if strings.EqualFold(format, "json") {
		return &JSONFormatter{}
	}
	return &TextFormatter{}
}

// TextFormatter formats results as human-readable text.
type TextFormatter struct{}

// Format outputs results in human-readable text format.
func (f *TextFormatter) Format(w io.Writer, result *Result, dir string) error {
	p := &printer{w: w}
	p.printf("Checking pages in: %s\n", dir)
	p.println(strings.Repeat("━", 60))
	p.println()

	for _, issue := range result.Issues {
		f.formatIssue(p, issue)
		p.println()
	}

	p.println(strings.Repeat("━", 60))
	p.printf("Results:\n")
	p.printf("  %d page%s checked\n", result.PagesTotal, pluralize(result.PagesTotal))
	if n := result.ErrorCount(); n > 0 {
		p.printf("  %d error%s (page left out of the build)\n", n, pluralize(n))
	}
	if n := result.WarningCount(); n > 0 {
		p.printf("  %d warning%s\n", n, pluralize(n))
	}
	if n := result.InfoCount(); n > 0 {
		p.printf("  %d info\n", n)
	}
	p.println()

	switch {
	case result.HasErrors():
		p.println("✗ Some pages will not build.")
	case result.HasWarnings():
		p.println("⚠ All pages build, with warnings.")
	default:
		p.println("✓ All pages pass.")
	}
	return p.err
}

func (f *TextFormatter) formatIssue(p *printer, issue Issue) {
	icon := "ℹ"
	switch issue.Severity {
	case SeverityError:
		icon = "✗"
	case SeverityWarning:
		icon = "⚠"
	}

	location := issue.File
	if issue.Line > 0 {
		location = fmt.Sprintf("%s:%d", issue.File, issue.Line)
	}
	if location == "" {
		location = issue.Permalink
	}
	p.printf("%s %s [%s]\n", icon, location, issue.Rule)
	p.printf("  %s: %s\n", issue.Severity, issue.Message)
	if issue.Detail != "" && issue.Detail != issue.Message {
		for line := range strings.SplitSeq(strings.TrimSpace(issue.Detail), "\n") {
			p.printf("  %s\n", line)
		}
	}
}

// printer remembers the first write error so callers check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err == nil {
		_, p.err = fmt.Fprintf(p.w, format, args...)
	}
}

func (p *printer) println(args ...any) {
	if p.err == nil {
		_, p.err = fmt.Fprintln(p.w, args...)
	}
}

// JSONFormatter formats results as JSON.
type JSONFormatter struct{}

// JSONOutput represents the JSON output structure.
type JSONOutput struct {
	Path         string      `json:"path"`
	PagesTotal   int         `json:"pages_total"`
	ErrorCount   int         `json:"error_count"`
	WarningCount int         `json:"warning_count"`
	InfoCount    int         `json:"info_count"`
	Issues       []JSONIssue `json:"issues"`
}

// JSONIssue represents a single issue in JSON format.
type JSONIssue struct {
	File      string `json:"file,omitempty"`
	Permalink string `json:"permalink,omitempty"`
	Severity  string `json:"severity"`
	Rule      string `json:"rule"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// Format outputs results in JSON format.
func (f *JSONFormatter) Format(w io.Writer, result *Result, dir string) error {
	out := JSONOutput{
		Path:         dir,
		PagesTotal:   result.PagesTotal,
		ErrorCount:   result.ErrorCount(),
		WarningCount: result.WarningCount(),
		InfoCount:    result.InfoCount(),
		Issues:       make([]JSONIssue, 0, len(result.Issues)),
	}
	for _, issue := range result.Issues {
		out.Issues = append(out.Issues, JSONIssue{
			File:      issue.File,
			Permalink: issue.Permalink,
			Severity:  issue.Severity.String(),
			Rule:      issue.Rule,
			Message:   issue.Message,
			Detail:    issue.Detail,
			Line:      issue.Line,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
