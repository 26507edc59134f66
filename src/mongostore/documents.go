package mongostore

import (
	"time"

	"github.com/openedx/forum/src/models"
)

type userDoc struct {
	ID             string `bson:"_id"`
	Username       string `bson:"username"`
	Email          string `bson:"email,omitempty"`
	DefaultSortKey string `bson:"default_sort_key"`

	CourseStats []courseStatDoc `bson:"course_stats,omitempty"`
	ReadStates  []readStateDoc  `bson:"read_states,omitempty"`
}

func (doc *userDoc) toUser() *models.User {
	return &models.User{
		ID:             doc.ID,
		Username:       doc.Username,
		Email:          doc.Email,
		DefaultSortKey: doc.DefaultSortKey,
	}
}

type courseStatDoc struct {
	CourseID      string `bson:"course_id"`
	ActiveFlags   int    `bson:"active_flags"`
	InactiveFlags int    `bson:"inactive_flags"`
	Threads       int    `bson:"threads"`
	Responses     int    `bson:"responses"`
	Replies       int    `bson:"replies"`

	LastActivityAt *time.Time `bson:"last_activity_at,omitempty"`
}

func (doc *courseStatDoc) toCourseStat(userID string) *models.CourseStat {
	return &models.CourseStat{
		UserID:         userID,
		CourseID:       doc.CourseID,
		ActiveFlags:    doc.ActiveFlags,
		InactiveFlags:  doc.InactiveFlags,
		Threads:        doc.Threads,
		Responses:      doc.Responses,
		Replies:        doc.Replies,
		LastActivityAt: doc.LastActivityAt,
	}
}

func courseStatFromModel(stat *models.CourseStat) courseStatDoc {
	return courseStatDoc{
		CourseID:       stat.CourseID,
		ActiveFlags:    stat.ActiveFlags,
		InactiveFlags:  stat.InactiveFlags,
		Threads:        stat.Threads,
		Responses:      stat.Responses,
		Replies:        stat.Replies,
		LastActivityAt: stat.LastActivityAt,
	}
}

type readStateDoc struct {
	CourseID      string               `bson:"course_id"`
	LastReadTimes map[string]time.Time `bson:"last_read_times"`
}

type flagDoc struct {
	UserID    string    `bson:"user_id"`
	FlaggedAt time.Time `bson:"flagged_at"`
}

type endorsementDoc struct {
	UserID string    `bson:"user_id"`
	Time   time.Time `bson:"time"`
}

// One document per thread or comment. The `_type` field discriminates; the
// thread-only and comment-only fields are simply absent on the other kind.
type contentDoc struct {
	ID   string             `bson:"_id"`
	Type models.ContentType `bson:"_type"`

	AuthorID        string  `bson:"author_id"`
	AuthorUsername  string  `bson:"author_username"`
	RetiredUsername *string `bson:"retired_username,omitempty"`

	CourseID string `bson:"course_id"`
	Body     string `bson:"body"`

	Visible          bool `bson:"visible"`
	Anonymous        bool `bson:"anonymous"`
	AnonymousToPeers bool `bson:"anonymous_to_peers"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`

	// Thread fields.
	Title          string               `bson:"title,omitempty"`
	ThreadType     models.ThreadType    `bson:"thread_type,omitempty"`
	Context        models.ThreadContext `bson:"context,omitempty"`
	Closed         bool                 `bson:"closed,omitempty"`
	ClosedByID     *string              `bson:"closed_by_id,omitempty"`
	CloseReason    *string              `bson:"close_reason_code,omitempty"`
	Pinned         bool                 `bson:"pinned,omitempty"`
	CommentableID  *string              `bson:"commentable_id,omitempty"`
	LastActivityAt *time.Time           `bson:"last_activity_at,omitempty"`

	// Comment fields.
	ThreadID    string          `bson:"comment_thread_id,omitempty"`
	ParentID    *string         `bson:"parent_id,omitempty"`
	Depth       int             `bson:"depth,omitempty"`
	SortKey     string          `bson:"sk,omitempty"`
	ChildCount  int             `bson:"child_count,omitempty"`
	Endorsed    bool            `bson:"endorsed,omitempty"`
	Endorsement *endorsementDoc `bson:"endorsement,omitempty"`

	AbuseFlaggers           []flagDoc      `bson:"abuse_flaggers,omitempty"`
	HistoricalAbuseFlaggers []flagDoc      `bson:"historical_abuse_flaggers,omitempty"`
	Votes                   map[string]int `bson:"votes,omitempty"`
}

func contentFieldsFromDoc(doc *contentDoc) models.ContentFields {
	return models.ContentFields{
		AuthorID:         doc.AuthorID,
		AuthorUsername:   doc.AuthorUsername,
		RetiredUsername:  doc.RetiredUsername,
		CourseID:         doc.CourseID,
		Body:             doc.Body,
		Visible:          doc.Visible,
		Anonymous:        doc.Anonymous,
		AnonymousToPeers: doc.AnonymousToPeers,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

func (doc *contentDoc) toThread() *models.Thread {
	return &models.Thread{
		ID:            doc.ID,
		ContentFields: contentFieldsFromDoc(doc),

		Title:          doc.Title,
		ThreadType:     doc.ThreadType,
		Context:        doc.Context,
		Closed:         doc.Closed,
		ClosedByID:     doc.ClosedByID,
		CloseReason:    doc.CloseReason,
		Pinned:         doc.Pinned,
		CommentableID:  doc.CommentableID,
		LastActivityAt: doc.LastActivityAt,
	}
}

func (doc *contentDoc) toComment() *models.Comment {
	c := &models.Comment{
		ID:            doc.ID,
		ContentFields: contentFieldsFromDoc(doc),

		ThreadID:   doc.ThreadID,
		ParentID:   doc.ParentID,
		Depth:      doc.Depth,
		SortKey:    doc.SortKey,
		ChildCount: doc.ChildCount,
		Endorsed:   doc.Endorsed,
	}
	if doc.Endorsement != nil {
		c.Endorsement = &models.Endorsement{
			UserID: doc.Endorsement.UserID,
			Time:   doc.Endorsement.Time,
		}
	}
	return c
}

func threadToDoc(t *models.Thread) *contentDoc {
	return &contentDoc{
		ID:   t.ID,
		Type: models.ContentTypeThread,

		AuthorID:         t.AuthorID,
		AuthorUsername:   t.AuthorUsername,
		RetiredUsername:  t.RetiredUsername,
		CourseID:         t.CourseID,
		Body:             t.Body,
		Visible:          t.Visible,
		Anonymous:        t.Anonymous,
		AnonymousToPeers: t.AnonymousToPeers,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,

		Title:          t.Title,
		ThreadType:     t.ThreadType,
		Context:        t.Context,
		Closed:         t.Closed,
		ClosedByID:     t.ClosedByID,
		CloseReason:    t.CloseReason,
		Pinned:         t.Pinned,
		CommentableID:  t.CommentableID,
		LastActivityAt: t.LastActivityAt,
	}
}

func commentToDoc(c *models.Comment) *contentDoc {
	doc := &contentDoc{
		ID:   c.ID,
		Type: models.ContentTypeComment,

		AuthorID:         c.AuthorID,
		AuthorUsername:   c.AuthorUsername,
		RetiredUsername:  c.RetiredUsername,
		CourseID:         c.CourseID,
		Body:             c.Body,
		Visible:          c.Visible,
		Anonymous:        c.Anonymous,
		AnonymousToPeers: c.AnonymousToPeers,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,

		ThreadID:   c.ThreadID,
		ParentID:   c.ParentID,
		Depth:      c.Depth,
		SortKey:    c.SortKey,
		ChildCount: c.ChildCount,
		Endorsed:   c.Endorsed,
	}
	if c.Endorsement != nil {
		doc.Endorsement = &endorsementDoc{
			UserID: c.Endorsement.UserID,
			Time:   c.Endorsement.Time,
		}
	}
	return doc
}
