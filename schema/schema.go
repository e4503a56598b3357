// Package schema has the types shared by the flow metric engine and its adapters.
package schema

import "time"

// Scope narrows a query to a subset of an organization.
type Scope struct {
	TeamID         string   `json:"team_id,omitempty"`
	Assignees      []string `json:"assignees,omitempty"`
	Repositories   []string `json:"repositories,omitempty"`
	PullRequestIDs []string `json:"pull_request_ids,omitempty"`
}

// Filter is the caller-supplied selection for one computation.
// A non-empty SprintID overrides Start and End.
type Filter struct {
	OrgID    string    `json:"org_id"`
	SprintID string    `json:"sprint_id,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	TimeZone string    `json:"time_zone,omitempty"`
	Scope    Scope     `json:"scope"`
}

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ResolvedFilter is a Filter after sprint and time zone resolution.
// It is immutable for the rest of the request.
type ResolvedFilter struct {
	OrgID    string         `json:"org_id"`
	SprintID string         `json:"sprint_id,omitempty"`
	Scope    Scope          `json:"scope"`
	Window   Window         `json:"window"`
	TimeZone string         `json:"time_zone"`
	Location *time.Location `json:"-"`
}

// RawEvent is a single engineering event as returned by the fetcher.
type RawEvent struct {
	ID            string    `json:"id"`
	OrgID         string    `json:"org_id"`
	Kind          EventKind `json:"kind"`
	Timestamp     time.Time `json:"timestamp"`
	TeamID        string    `json:"team_id,omitempty"`
	Assignee      string    `json:"assignee,omitempty"`
	Repository    string    `json:"repository,omitempty"`
	PullRequestID string    `json:"pull_request_id,omitempty"`
	Title         string    `json:"title,omitempty"`
	Value         float64   `json:"value,omitempty"` // duration in hours for cycle time and build events
}

// EventQuery is the request handed to the event fetcher.
type EventQuery struct {
	OrgID    string         `json:"org_id"`
	Scope    Scope          `json:"scope"`
	Kinds    []EventKind    `json:"kinds"`
	Window   Window         `json:"window"`
	Location *time.Location `json:"-"`

	// Limit caps FetchEvents; zero means unlimited. Exceeding it is an error, not a cut.
	Limit int `json:"limit,omitempty"`
}

// PageRequest selects one page of a list-shaped output. Number is 1-based.
type PageRequest struct {
	Number int `json:"page_number"`
	Size   int `json:"page_size"`
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// EventPage is one page of raw events.
type EventPage struct {
	Events     []RawEvent `json:"events"`
	PageNumber int        `json:"page_number"`
	PageSize   int        `json:"page_size"`
	TotalCount int        `json:"total_count"`
	TotalPages int        `json:"total_pages"`
}

// NewEventPage fills the page metadata for the given request and total.
func NewEventPage(events []RawEvent, page PageRequest, total int) EventPage {
	pages := 0
	if page.Size > 0 {
		pages = (total + page.Size - 1) / page.Size
	}
	if events == nil {
		events = []RawEvent{}
	}
	return EventPage{
		Events:     events,
		PageNumber: page.Number,
		PageSize:   page.Size,
		TotalCount: total,
		TotalPages: pages,
	}
}

// Sprint is a named time box belonging to an organization.
type Sprint struct {
	ID    string    `json:"id"`
	OrgID string    `json:"org_id"`
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Integration records whether an organization has a source connected.
type Integration struct {
	OrgID  string `json:"org_id"`
	Source Source `json:"source"`
	Active bool   `json:"active"`
}
