package build

import (
	"time"

	"github.com/samber/lo"
)

// BuildStatus represents the outcome of a build.
type BuildStatus string

const (
	// BuildStatusSuccess indicates every page was written.
	BuildStatusSuccess BuildStatus = "success"
	// BuildStatusWarning indicates some pages failed and were left out.
	BuildStatusWarning BuildStatus = "warning"
	// BuildStatusFailed indicates the build could not complete.
	BuildStatusFailed BuildStatus = "failed"
	// BuildStatusCanceled indicates the build was canceled.
	BuildStatusCanceled BuildStatus = "canceled"
)

// PageStatus is the result for a single page.
type PageStatus string

const (
	PageRendered PageStatus = "rendered"
	PageSkipped  PageStatus = "skipped"
	PageFailed   PageStatus = "failed"
)

// PageResult records what happened to one page.
type PageResult struct {
	Source    string
	Permalink string
	Output    string
	Status    PageStatus
	Err       error
	Duration  time.Duration
}

// Report summarizes a build.
type Report struct {
	BuildID string
	Status  BuildStatus
	// Pages holds one result per loaded page in load order.
	Pages []PageResult
	// LoadErrors holds files that could not be loaded as pages.
	LoadErrors []error
	// Removed lists outputs of pages that no longer exist.
	Removed []string
	Assets  int

	Start    time.Time
	End      time.Time
	Duration time.Duration
}

func (r *Report) count(status PageStatus) int {
	return lo.CountBy(r.Pages, func(p PageResult) bool { return p.Status == status })
}

// Rendered is the number of pages written by this build.
func (r *Report) Rendered() int { return r.count(PageRendered) }

// Skipped is the number of unchanged pages left in place.
func (r *Report) Skipped() int { return r.count(PageSkipped) }

// Failed is the number of pages that could not be rendered.
func (r *Report) Failed() int { return r.count(PageFailed) }

// Errors returns load and render errors in the order they occurred.
func (r *Report) Errors() []error {
	errs := append([]error(nil), r.LoadErrors...)
	for _, p := range r.Pages {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errs
}

// HasErrors reports whether any file failed to load or render.
func (r *Report) HasErrors() bool {
	return len(r.LoadErrors) > 0 || r.Failed() > 0
}
