package models

import "time"

// A user following a piece of content. Unique per (subscriber, source).
type Subscription struct {
	SubscriberID string      `db:"subscriber_id"`
	SourceType   ContentType `db:"source_type"`
	SourceID     string      `db:"source_id"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *Subscription) SourceRef() ContentRef {
	return ContentRef{Type: s.SourceType, ID: s.SourceID}
}
