package models

import "time"

// A currently-standing abuse report on a piece of content by one user.
// Unique per (content, user).
type AbuseFlag struct {
	ContentType ContentType `db:"content_type"`
	ContentID   string      `db:"content_id"`
	UserID      string      `db:"user_id"`
	FlaggedAt   time.Time   `db:"flagged_at"`
}

// The archived record that a user once flagged a content item, retained
// after moderation clears the active flag. Append-only; a (content, user)
// pair appears at most once.
type HistoricalAbuseFlag struct {
	ContentType ContentType `db:"content_type"`
	ContentID   string      `db:"content_id"`
	UserID      string      `db:"user_id"`
	FlaggedAt   time.Time   `db:"flagged_at"`
}
