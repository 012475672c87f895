package model

import "slices"

// Status is a requisition's position in its lifecycle.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusAnalyzing Status = "analyzing"
	StatusAnalyzed  Status = "analyzed"
	StatusOrdered   Status = "ordered"
)

// transitions lists the forward moves a requisition may make. Rolling back
// out of analyzing is handled by the lifecycle manager and is not listed.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted, StatusAnalyzing},
	StatusSubmitted: {StatusAnalyzing},
	StatusAnalyzing: {StatusAnalyzed},
	StatusAnalyzed:  {StatusOrdered},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusAnalyzing, StatusAnalyzed, StatusOrdered:
		return true
	}
	return false
}

// CanTransition reports whether a requisition in status from may move to to.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// SourcesFor returns every status from which to is reachable in one step.
func SourcesFor(to Status) []Status {
	var sources []Status
	for _, from := range []Status{StatusDraft, StatusSubmitted, StatusAnalyzing, StatusAnalyzed, StatusOrdered} {
		if CanTransition(from, to) {
			sources = append(sources, from)
		}
	}
	return sources
}
