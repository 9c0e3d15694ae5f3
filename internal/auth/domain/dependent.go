package domain

import "time"

// AgeBand is a dependent's declared age band. The band decides the session
// ceiling for every token issued to that dependent.
type AgeBand string

const (
	AgeBand3to4   AgeBand = "3-4"
	AgeBand5to8   AgeBand = "5-8"
	AgeBand9to12  AgeBand = "9-12"
	AgeBand13to17 AgeBand = "13-17"
)

// DefaultSessionCeilings are the per-band session ceilings in minutes.
// Overridable via configuration.
var DefaultSessionCeilings = map[AgeBand]int{
	AgeBand3to4:   20,
	AgeBand5to8:   30,
	AgeBand9to12:  45,
	AgeBand13to17: 60,
}

// KnownAgeBand reports whether b is one of the supported bands.
func KnownAgeBand(b AgeBand) bool {
	_, ok := DefaultSessionCeilings[b]
	return ok
}

// Dependent is a principal created and scoped by a guardian. The guardian
// reference is set at creation and never changes.
type Dependent struct {
	ID         string
	GuardianID string
	Name       string
	AgeBand    AgeBand

	CreatedAt time.Time
	UpdatedAt time.Time
}
