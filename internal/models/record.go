// Package models defines the fitness records shared by the local file store,
// the remote document store and the coach/trainee workflow.
package models

import "time"

// DateLayout is the calendar-date encoding used for day-granular records.
const DateLayout = "2006-01-02"

// Record is a single persisted entity instance.
type Record interface {
	// RecordID is the client-assigned identifier, stable across local and remote copies.
	RecordID() string
	// OwnerID is the owning user, empty until the first remote write stamps it.
	OwnerID() string
	// RecordTime is used for ordering and for date-range queries.
	RecordTime() time.Time
}

// Entity is a Record that can produce modified copies of itself.
// Records are values: WithID and WithOwner never mutate the receiver.
type Entity[T any] interface {
	Record
	WithID(id string) T
	WithOwner(userID string) T
	// Normalized truncates the record time to the precision the stores keep.
	Normalized() T
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a yyyy-MM-dd calendar date.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar date.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// Instant truncates t to the UTC millisecond kept by epoch encodings.
func Instant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func fromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
