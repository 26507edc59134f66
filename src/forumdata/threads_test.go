package forumdata_test

import (
	"context"
	"testing"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThread(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")

	thread, err := forumdata.CreateThread(ctx, s, forumdata.NewThread{
		AuthorID: author.ID,
		CourseID: testCourse,
		Title:    "Week 1 questions",
		Body:     "Post them here.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, thread.ID)
	assert.Equal(t, models.ThreadTypeDiscussion, thread.ThreadType)
	assert.Equal(t, models.ContextCourse, thread.Context)
	assert.Equal(t, author.Username, thread.AuthorUsername)
	assert.True(t, thread.Visible)
	require.NotNil(t, thread.LastActivityAt)

	t.Run("title is required", func(t *testing.T) {
		_, err := forumdata.CreateThread(ctx, s, forumdata.NewThread{
			AuthorID: author.ID,
			CourseID: testCourse,
		})
		assert.ErrorIs(t, err, forumdata.ErrValidation)
	})

	t.Run("unknown thread type", func(t *testing.T) {
		_, err := forumdata.CreateThread(ctx, s, forumdata.NewThread{
			AuthorID:   author.ID,
			CourseID:   testCourse,
			Title:      "hm",
			ThreadType: "poll",
		})
		assert.ErrorIs(t, err, forumdata.ErrValidation)
	})

	t.Run("unknown author", func(t *testing.T) {
		_, err := forumdata.CreateThread(ctx, s, forumdata.NewThread{
			AuthorID: "nope",
			CourseID: testCourse,
			Title:    "hm",
		})
		assert.ErrorIs(t, err, forumdata.ErrNotFound)
	})
}

func TestFetchThreadCommentCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	thread := newTestThread(t, ctx, s, author.ID)
	root := newTestComment(t, ctx, s, author.ID, thread.ID, nil)
	newTestComment(t, ctx, s, author.ID, thread.ID, &root.ID)

	fetched, err := forumdata.FetchThread(ctx, s, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fetched.CommentCount)
}

func TestCloseAndReopenThread(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	moderator := newTestUser(t, ctx, s, "mod")
	thread := newTestThread(t, ctx, s, author.ID)

	reason := "off-topic"
	closed, err := forumdata.SetThreadClosed(ctx, s, thread.ID, true, moderator.ID, &reason)
	require.NoError(t, err)
	assert.True(t, closed.Closed)
	require.NotNil(t, closed.ClosedByID)
	assert.Equal(t, moderator.ID, *closed.ClosedByID)
	require.NotNil(t, closed.CloseReason)
	assert.Equal(t, reason, *closed.CloseReason)

	reopened, err := forumdata.SetThreadClosed(ctx, s, thread.ID, false, moderator.ID, nil)
	require.NoError(t, err)
	assert.False(t, reopened.Closed)
	assert.Nil(t, reopened.ClosedByID)
	assert.Nil(t, reopened.CloseReason)
}

func TestDeleteThreadCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	other := newTestUser(t, ctx, s, "bob")
	thread := newTestThread(t, ctx, s, author.ID)
	comment := newTestComment(t, ctx, s, other.ID, thread.ID, nil)

	require.NoError(t, forumdata.FlagContent(ctx, s, comment.Ref(), author.ID))
	require.NoError(t, forumdata.UpdateVote(ctx, s, thread.Ref(), other.ID, "up"))
	_, err := forumdata.SubscribeUser(ctx, s, other.ID, thread.Ref())
	require.NoError(t, err)
	require.NoError(t, forumdata.MarkThreadRead(ctx, s, other.ID, thread.ID))

	require.NoError(t, forumdata.DeleteThread(ctx, s, thread.ID))

	_, err = s.GetThread(ctx, thread.ID)
	assert.ErrorIs(t, err, forumdata.ErrNotFound)
	_, err = s.GetComment(ctx, comment.ID)
	assert.ErrorIs(t, err, forumdata.ErrNotFound)

	flaggers, err := s.ListActiveFlaggers(ctx, comment.Ref())
	require.NoError(t, err)
	assert.Empty(t, flaggers)

	votes, err := s.ListVotes(ctx, thread.Ref())
	require.NoError(t, err)
	assert.Empty(t, votes)

	subs, err := s.ListUserSubscriptions(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	state, err := s.GetReadState(ctx, other.ID, testCourse)
	require.NoError(t, err)
	assert.Empty(t, state.LastReadTimes)
}

func TestEditThread(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	thread := newTestThread(t, ctx, s, author.ID)

	edited, err := forumdata.EditThread(ctx, s, thread.ID, "New title", "New body")
	require.NoError(t, err)
	assert.Equal(t, "New title", edited.Title)
	assert.Equal(t, "New body", edited.Body)
	assert.False(t, edited.UpdatedAt.Before(thread.UpdatedAt))

	t.Run("empty title is rejected", func(t *testing.T) {
		_, err := forumdata.EditThread(ctx, s, thread.ID, "", "body")
		assert.ErrorIs(t, err, forumdata.ErrValidation)
	})
}

func TestCommentableCounts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")

	topicA := "week-1"
	topicB := "week-2"
	mkThread := func(topic *string, tt models.ThreadType) {
		_, err := forumdata.CreateThread(ctx, s, forumdata.NewThread{
			AuthorID:      author.ID,
			CourseID:      testCourse,
			Title:         "t",
			ThreadType:    tt,
			CommentableID: topic,
		})
		require.NoError(t, err)
	}
	mkThread(&topicA, models.ThreadTypeDiscussion)
	mkThread(&topicA, models.ThreadTypeQuestion)
	mkThread(&topicB, models.ThreadTypeDiscussion)

	counts, err := s.CommentableCounts(ctx, testCourse)
	require.NoError(t, err)
	assert.Equal(t, models.CommentableCount{Discussion: 1, Question: 1}, counts[topicA])
	assert.Equal(t, models.CommentableCount{Discussion: 1}, counts[topicB])
}
