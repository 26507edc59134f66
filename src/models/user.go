package models

import "time"

// The username and title a piece of content gets when its author goes
// through the retirement pipeline.
const (
	RetiredUsername = "[retired user]"
	RetiredBody     = "[deleted]"
	RetiredTitle    = "[deleted]"
)

const DefaultSortKey = "date"

// A forum user. The ID is the external identity assigned by the LMS; the
// forum never generates user ids of its own.
type User struct {
	ID             string `db:"id"`
	Username       string `db:"username"`
	Email          string `db:"email"`
	DefaultSortKey string `db:"default_sort_key"`
}

// Per-user, per-course activity counters. An absent row reads as all zeros.
// Only the stat aggregator may write these fields.
type CourseStat struct {
	UserID        string `db:"user_id"`
	CourseID      string `db:"course_id"`
	ActiveFlags   int    `db:"active_flags"`
	InactiveFlags int    `db:"inactive_flags"`
	Threads       int    `db:"threads"`
	Responses     int    `db:"responses"`
	Replies       int    `db:"replies"`

	LastActivityAt *time.Time `db:"last_activity_at"`
}

// A user together with their stats for one course, as returned by the
// course stats listing. Both structs are embedded so their columns map
// flat onto a single joined result row.
type UserCourseStats struct {
	User
	CourseStat
}

// A delta to apply to a CourseStat row. Counter fields are added; the
// timestamp, when set, is max-merged with the existing value.
type StatDelta struct {
	ActiveFlags   int
	InactiveFlags int
	Threads       int
	Responses     int
	Replies       int

	LastActivityAt *time.Time
}

func (d StatDelta) IsZero() bool {
	return d.ActiveFlags == 0 && d.InactiveFlags == 0 &&
		d.Threads == 0 && d.Responses == 0 && d.Replies == 0 &&
		d.LastActivityAt == nil
}
