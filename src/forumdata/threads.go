package forumdata

import (
	"context"
	"time"

	"github.com/openedx/forum/src/logging"
	"github.com/openedx/forum/src/models"
	"github.com/openedx/forum/src/oops"
)

type NewThread struct {
	AuthorID string
	CourseID string

	Title string
	Body  string

	ThreadType    models.ThreadType
	Context       models.ThreadContext
	CommentableID *string

	Anonymous        bool
	AnonymousToPeers bool
}

// Creates a thread and credits the author's course stats, unless the thread
// is anonymous in either sense.
func CreateThread(ctx context.Context, s Store, req NewThread) (*models.Thread, error) {
	author, err := s.GetUser(ctx, req.AuthorID)
	if err != nil {
		return nil, oops.New(err, "failed to look up thread author")
	}

	switch req.ThreadType {
	case models.ThreadTypeDiscussion, models.ThreadTypeQuestion:
	case "":
		req.ThreadType = models.ThreadTypeDiscussion
	default:
		return nil, validationf("unknown thread type %q", req.ThreadType)
	}
	if req.Context == "" {
		req.Context = models.ContextCourse
	}
	if req.Title == "" {
		return nil, validationf("thread title must not be empty")
	}

	now := time.Now().UTC()
	t := &models.Thread{
		ContentFields: models.ContentFields{
			AuthorID:         author.ID,
			AuthorUsername:   author.Username,
			CourseID:         req.CourseID,
			Body:             req.Body,
			Visible:          true,
			Anonymous:        req.Anonymous,
			AnonymousToPeers: req.AnonymousToPeers,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		Title:          req.Title,
		ThreadType:     req.ThreadType,
		Context:        req.Context,
		CommentableID:  req.CommentableID,
		LastActivityAt: &now,
	}
	err = s.InsertThread(ctx, t)
	if err != nil {
		return nil, oops.New(err, "failed to insert thread")
	}

	if t.CountsTowardStats() {
		err = s.ApplyStatDelta(ctx, t.AuthorID, t.CourseID, models.StatDelta{
			Threads:        1,
			LastActivityAt: &now,
		})
		if err != nil {
			return nil, oops.New(err, "failed to update author stats for new thread")
		}
	}

	return t, nil
}

// Fetches a thread with its comment count filled in.
func FetchThread(ctx context.Context, s Store, threadID string) (*models.Thread, error) {
	t, err := s.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	t.CommentCount, err = s.CountThreadComments(ctx, threadID)
	if err != nil {
		return nil, oops.New(err, "failed to count thread comments")
	}
	return t, nil
}

// Edits a thread's title and body and bumps its activity timestamps.
func EditThread(ctx context.Context, s Store, threadID, title, body string) (*models.Thread, error) {
	t, err := s.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, validationf("thread title must not be empty")
	}

	now := time.Now().UTC()
	t.Title = title
	t.Body = body
	t.UpdatedAt = now
	t.LastActivityAt = &now
	err = s.UpdateThread(ctx, t)
	if err != nil {
		return nil, oops.New(err, "failed to update thread")
	}

	if t.CountsTowardStats() {
		err = s.ApplyStatDelta(ctx, t.AuthorID, t.CourseID, models.StatDelta{LastActivityAt: &now})
		if err != nil {
			return nil, oops.New(err, "failed to update author stats for edited thread")
		}
	}
	return t, nil
}

// Closes or reopens a thread. Closing records who closed it and why;
// reopening clears both.
func SetThreadClosed(ctx context.Context, s Store, threadID string, closed bool, byUserID string, reason *string) (*models.Thread, error) {
	t, err := s.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	t.Closed = closed
	if closed {
		t.ClosedByID = &byUserID
		t.CloseReason = reason
	} else {
		t.ClosedByID = nil
		t.CloseReason = nil
	}
	err = s.UpdateThread(ctx, t)
	if err != nil {
		return nil, oops.New(err, "failed to update thread closed state")
	}
	return t, nil
}

/*
Deletes a thread, its entire comment tree, and everything hanging off them.
Rather than computing a compound stat delta for every author in the tree, we
rebuild stats for each affected (author, course) pair afterward; deletion is
rare enough that the recount is fine.
*/
func DeleteThread(ctx context.Context, s Store, threadID string) error {
	t, err := s.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	comments, _, err := s.ListThreadComments(ctx, CommentListQuery{ThreadID: threadID})
	if err != nil {
		return oops.New(err, "failed to list thread comments for deletion")
	}

	affected := make(map[string]bool)
	if t.CountsTowardStats() {
		affected[t.AuthorID] = true
	}
	for _, c := range comments {
		if c.CountsTowardStats() {
			affected[c.AuthorID] = true
		}
	}

	err = s.DeleteThreadRow(ctx, threadID)
	if err != nil {
		return oops.New(err, "failed to delete thread")
	}

	for authorID := range affected {
		err = RebuildStats(ctx, s, authorID, t.CourseID)
		if err != nil {
			logging.Error().
				Err(err).
				Str("user", authorID).
				Str("course", t.CourseID).
				Msg("failed to rebuild stats after thread deletion")
		}
	}
	return nil
}
