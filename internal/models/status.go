package models

import (
	"errors"
	"fmt"
)

// ErrUnknownStatus is returned when a string does not name a video status.
var ErrUnknownStatus = errors.New("unknown video status")

// Status is the moderation state of a video. Only the values declared below
// exist; the zero Status is not a valid state.
type Status struct {
	name string
}

// Status values. Pending is the only non-terminal state.
var (
	StatusPending = Status{name: "pending"}
	StatusSpam    = Status{name: "spam"}
	StatusNotSpam = Status{name: "not_spam"}
)

// Statuses lists every valid status.
func Statuses() []Status {
	return []Status{StatusPending, StatusSpam, StatusNotSpam}
}

// ParseStatus converts the storage and wire representation into a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses() {
		if st.name == s {
			return st, nil
		}
	}
	return Status{}, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// String returns the storage and wire representation.
func (s Status) String() string {
	return s.name
}

// IsValid reports whether s is one of the declared statuses.
func (s Status) IsValid() bool {
	return s.name != ""
}

// IsTerminal reports whether s is a verdict (spam or not_spam).
func (s Status) IsTerminal() bool {
	return s == StatusSpam || s == StatusNotSpam
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, ErrUnknownStatus
	}
	return []byte(s.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
