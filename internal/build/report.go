package build

import (
	"time"

	"git.home.luguber.info/inful/refsite/internal/refbundle"
)

// Scope identifies what a build regenerated.
type Scope string

const (
	// ScopeFull rebuilds templates, reference bundles and content.
	ScopeFull Scope = "full"
	// ScopeContent re-renders the source tree only.
	ScopeContent Scope = "content"
)

// Status represents the outcome of a build.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Report contains the outcome of one build.
type Report struct {
	BuildID   string
	Scope     Scope
	Status    Status
	Rendered  int // documents rendered to HTML
	Copied    int // documents copied unchanged
	Dirs      int // output directories mirrored from the source tree
	Assets    int // static files published from the template tree
	Templates int // templates registered (full builds only)
	Refs      refbundle.Report
	StartTime time.Time
	Duration  time.Duration
}

// Documents returns the number of source files written to the output tree.
func (r Report) Documents() int {
	return r.Rendered + r.Copied
}
