package models

import "time"

// The two kinds of content the forum stores. The string values match the
// `_type` discriminator used by document stores, so refs round-trip
// unchanged across engines.
type ContentType string

const (
	ContentTypeThread  ContentType = "CommentThread"
	ContentTypeComment ContentType = "Comment"
)

// ContentRef identifies a single piece of content regardless of which table
// or collection it lives in. Thread and comment ids come from separate
// sequences in the relational engine, so the type is part of the key.
type ContentRef struct {
	Type ContentType `db:"content_type"`
	ID   string      `db:"content_id"`
}

func ThreadRef(id string) ContentRef {
	return ContentRef{Type: ContentTypeThread, ID: id}
}

func CommentRef(id string) ContentRef {
	return ContentRef{Type: ContentTypeComment, ID: id}
}

type ThreadType string

const (
	ThreadTypeDiscussion ThreadType = "discussion"
	ThreadTypeQuestion   ThreadType = "question"
)

type ThreadContext string

const (
	ContextCourse     ThreadContext = "course"
	ContextStandalone ThreadContext = "standalone"
)

// Common content fields shared by threads and comments. A content item
// counts toward aggregate stats only when both anonymity flags are false.
type ContentFields struct {
	AuthorID        string  `db:"author_id"`
	AuthorUsername  string  `db:"author_username"`
	RetiredUsername *string `db:"retired_username"`

	CourseID string `db:"course_id"`
	Body     string `db:"body"`

	Visible          bool `db:"visible"`
	Anonymous        bool `db:"anonymous"`
	AnonymousToPeers bool `db:"anonymous_to_peers"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// True if this content should be counted in its author's course stats.
func (c *ContentFields) CountsTowardStats() bool {
	return !c.Anonymous && !c.AnonymousToPeers
}

type Thread struct {
	ID string `db:"id"`
	ContentFields

	Title         string        `db:"title"`
	ThreadType    ThreadType    `db:"thread_type"`
	Context       ThreadContext `db:"context"`
	Closed        bool          `db:"closed"`
	ClosedByID    *string       `db:"closed_by_id"`
	CloseReason   *string       `db:"close_reason_code"`
	Pinned        bool          `db:"pinned"`
	CommentableID *string       `db:"commentable_id"`

	LastActivityAt *time.Time `db:"last_activity_at"`

	// Computed by fetch helpers, not stored on the thread row.
	CommentCount int `db:"-"`
}

func (t *Thread) Ref() ContentRef {
	return ThreadRef(t.ID)
}

func (t *Thread) Content() *ContentFields {
	return &t.ContentFields
}

type Comment struct {
	ID string `db:"id"`
	ContentFields

	ThreadID string  `db:"thread_id"`
	ParentID *string `db:"parent_id"`

	Depth      int    `db:"depth"`
	SortKey    string `db:"sort_key"`
	ChildCount int    `db:"child_count"`

	Endorsed    bool         `db:"endorsed"`
	Endorsement *Endorsement `db:"-"`
}

func (c *Comment) Ref() ContentRef {
	return CommentRef(c.ID)
}

func (c *Comment) Content() *ContentFields {
	return &c.ContentFields
}

// True for top-level comments ("responses"); nested comments are "replies".
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

type Endorsement struct {
	UserID string    `db:"user_id"`
	Time   time.Time `db:"time"`
}

// Per-commentable (topic) thread counts by type, used by course overview
// pages.
type CommentableCount struct {
	Discussion int
	Question   int
}
