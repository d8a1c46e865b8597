package models

import "time"

// EventSource distinguishes events authored inside the app from events
// imported from an external calendar.
type EventSource string

const (
	// SourceLocal marks an event created by the user in this app. Local
	// events are fully mutable and are never touched by a sync cycle.
	SourceLocal EventSource = "local"
	// SourceCloud marks an event imported from an external calendar
	// provider. Cloud events are read-only; a re-sync replaces them
	// wholesale, it never patches them in place.
	SourceCloud EventSource = "cloud"
)

// Category is a coarse event classification. Free-form labels are also
// accepted; these are just the well-known values.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryMeeting  Category = "Meeting"
	CategoryTravel   Category = "Travel"
	CategoryOther    Category = "Other"
)

// Event is the canonical calendar event representation, independent of any
// specific calendar provider. Start and End are UTC-normalized instants
// with Start <= End.
type Event struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Notes        string      `json:"notes,omitempty"`
	Start        time.Time   `json:"start"`
	End          time.Time   `json:"end"`
	AllDay       bool        `json:"allDay,omitempty"`
	Category     Category    `json:"category,omitempty"`
	Source       EventSource `json:"source"`
	Participants []string    `json:"participants,omitempty"`
	// Free marks an event that does not block the owner's time (tentative
	// or transparent). Defaults to false: a stored event is a commitment
	// unless said otherwise.
	Free bool `json:"free,omitempty"`
}

// Interval is the half-open time span [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Contains reports whether t falls inside the half-open span.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Interval returns the event's busy span as a half-open interval.
func (e Event) Interval() Interval {
	return Interval{Start: e.Start, End: e.End}
}

// RawEvent is a loosely-validated record as received from an external
// calendar provider or a user-filled form. Optional fields are pointers;
// the normalizer resolves defaults and produces a canonical Event.
type RawEvent struct {
	// ID is the source's stable identifier, if any. Empty means the
	// normalizer synthesizes one.
	ID     string
	Title  string
	Notes  string
	Start  *time.Time
	End    *time.Time
	AllDay bool
	// Participants holds already-split entries; ParticipantList is the
	// comma-separated form some sources deliver. Both are accepted and
	// merged.
	Participants    []string
	ParticipantList string
	Category        string
	Free            bool
}

// GroupAvailability is the derived per-group busy index: for each member,
// an ordered, coalesced sequence of busy intervals. It is recomputed from
// the members' event sets and never persisted.
type GroupAvailability struct {
	GroupID         string                `json:"groupId"`
	MemberIntervals map[string][]Interval `json:"memberIntervals"`
}

// OverlapWindow is a span where every member of MemberSet is free.
// Derived and ephemeral; recomputed per query.
type OverlapWindow struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	MemberSet []string  `json:"memberSet"`
}

// Group is a set of users coordinating schedules together.
type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Message is a single group chat entry.
type Message struct {
	ID      string    `json:"id"`
	GroupID string    `json:"groupId"`
	Sender  string    `json:"sender"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sentAt"`
}

// Calendar describes one calendar exposed by an external provider.
type Calendar struct {
	ID   string
	Name string
}
