package forumdata_test

import (
	"context"
	"testing"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/memstore"
	"github.com/openedx/forum/src/models"
	"github.com/stretchr/testify/require"
)

const testCourse = "course-v1:edX+Demo+2026"

func newTestUser(t *testing.T, ctx context.Context, s forumdata.Store, id string) *models.User {
	t.Helper()
	u := &models.User{
		ID:             id,
		Username:       "user-" + id,
		Email:          id + "@example.com",
		DefaultSortKey: models.DefaultSortKey,
	}
	err := s.UpsertUser(ctx, u)
	require.NoError(t, err)
	return u
}

func newTestThread(t *testing.T, ctx context.Context, s forumdata.Store, authorID string) *models.Thread {
	t.Helper()
	thread, err := forumdata.CreateThread(ctx, s, forumdata.NewThread{
		AuthorID: authorID,
		CourseID: testCourse,
		Title:    "What is a monad?",
		Body:     "Asking for a friend.",
	})
	require.NoError(t, err)
	return thread
}

func newTestComment(t *testing.T, ctx context.Context, s forumdata.Store, authorID, threadID string, parentID *string) *models.Comment {
	t.Helper()
	c, err := forumdata.CreateComment(ctx, s, forumdata.NewComment{
		AuthorID: authorID,
		ThreadID: threadID,
		ParentID: parentID,
		Body:     "A monoid in the category of endofunctors.",
	})
	require.NoError(t, err)
	return c
}

func newTestStore() *memstore.Store {
	return memstore.NewStore()
}
