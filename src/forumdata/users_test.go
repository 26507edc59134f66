package forumdata_test

import (
	"context"
	"testing"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	u, err := forumdata.FindOrCreateUser(ctx, s, "42", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, models.DefaultSortKey, u.DefaultSortKey)

	// A second call returns the existing user, even with a different
	// username.
	again, err := forumdata.FindOrCreateUser(ctx, s, "42", "not-alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Username)

	t.Run("username defaults to the id", func(t *testing.T) {
		u, err := forumdata.FindOrCreateUser(ctx, s, "43", "")
		require.NoError(t, err)
		assert.Equal(t, "43", u.Username)
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		_, err := forumdata.FindOrCreateUser(ctx, s, "", "nobody")
		assert.ErrorIs(t, err, forumdata.ErrValidation)
	})
}

func TestChangeUsername(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	thread := newTestThread(t, ctx, s, author.ID)
	comment := newTestComment(t, ctx, s, author.ID, thread.ID, nil)

	err := forumdata.ChangeUsername(ctx, s, author.ID, "alicia")
	require.NoError(t, err)

	u, err := s.GetUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", u.Username)

	// The authored-username snapshot follows the rename.
	updatedThread, err := s.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", updatedThread.AuthorUsername)

	updatedComment, err := s.GetComment(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", updatedComment.AuthorUsername)

	t.Run("unknown user", func(t *testing.T) {
		err := forumdata.ChangeUsername(ctx, s, "nope", "whoever")
		assert.ErrorIs(t, err, forumdata.ErrNotFound)
	})
}

func TestRetireUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	other := newTestUser(t, ctx, s, "bob")
	thread := newTestThread(t, ctx, s, author.ID)
	comment := newTestComment(t, ctx, s, author.ID, thread.ID, nil)

	_, err := forumdata.SubscribeUser(ctx, s, author.ID, thread.Ref())
	require.NoError(t, err)
	_, err = forumdata.SubscribeUser(ctx, s, other.ID, thread.Ref())
	require.NoError(t, err)

	err = forumdata.RetireUser(ctx, s, author.ID)
	require.NoError(t, err)

	u, err := s.GetUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RetiredUsername, u.Username)

	retiredThread, err := s.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RetiredUsername, retiredThread.AuthorUsername)
	assert.Equal(t, models.RetiredTitle, retiredThread.Title)
	assert.Equal(t, models.RetiredBody, retiredThread.Body)

	retiredComment, err := s.GetComment(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RetiredBody, retiredComment.Body)

	// Only the retired user's subscriptions go away.
	subs, err := forumdata.GetSubscribers(ctx, s, thread.Ref())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, other.ID, subs[0].SubscriberID)
}

func TestMarkThreadRead(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	reader := newTestUser(t, ctx, s, "bob")
	thread := newTestThread(t, ctx, s, author.ID)

	require.NoError(t, forumdata.MarkThreadRead(ctx, s, reader.ID, thread.ID))

	state, err := s.GetReadState(ctx, reader.ID, testCourse)
	require.NoError(t, err)
	require.Contains(t, state.LastReadTimes, thread.ID)
	first := state.LastReadTimes[thread.ID]

	// Reading again moves the timestamp forward.
	require.NoError(t, forumdata.MarkThreadRead(ctx, s, reader.ID, thread.ID))
	state, err = s.GetReadState(ctx, reader.ID, testCourse)
	require.NoError(t, err)
	assert.False(t, state.LastReadTimes[thread.ID].Before(first))

	t.Run("empty state for a user who read nothing", func(t *testing.T) {
		state, err := s.GetReadState(ctx, author.ID, testCourse)
		require.NoError(t, err)
		assert.Empty(t, state.LastReadTimes)
	})
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	follower := newTestUser(t, ctx, s, "bob")
	thread := newTestThread(t, ctx, s, author.ID)

	sub, err := forumdata.SubscribeUser(ctx, s, follower.ID, thread.Ref())
	require.NoError(t, err)
	assert.Equal(t, follower.ID, sub.SubscriberID)

	// Subscribing twice does not duplicate.
	_, err = forumdata.SubscribeUser(ctx, s, follower.ID, thread.Ref())
	require.NoError(t, err)
	subs, err := forumdata.GetSubscribers(ctx, s, thread.Ref())
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	require.NoError(t, forumdata.UnsubscribeUser(ctx, s, follower.ID, thread.Ref()))
	subs, err = forumdata.GetSubscribers(ctx, s, thread.Ref())
	require.NoError(t, err)
	assert.Len(t, subs, 0)

	t.Run("subscribing to unknown content", func(t *testing.T) {
		_, err := forumdata.SubscribeUser(ctx, s, follower.ID, models.ThreadRef("nope"))
		assert.ErrorIs(t, err, forumdata.ErrNotFound)
	})
}

func TestVotes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	up1 := newTestUser(t, ctx, s, "bob")
	up2 := newTestUser(t, ctx, s, "carol")
	down := newTestUser(t, ctx, s, "dave")
	thread := newTestThread(t, ctx, s, author.ID)
	ref := thread.Ref()

	require.NoError(t, forumdata.UpdateVote(ctx, s, ref, up1.ID, "up"))
	require.NoError(t, forumdata.UpdateVote(ctx, s, ref, up2.ID, "up"))
	require.NoError(t, forumdata.UpdateVote(ctx, s, ref, down.ID, "down"))

	summary, err := forumdata.GetVoteSummary(ctx, s, ref)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.UpCount)
	assert.Equal(t, 1, summary.DownCount)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 1, summary.Point)

	// Changing a vote replaces it.
	require.NoError(t, forumdata.UpdateVote(ctx, s, ref, up1.ID, "down"))
	summary, err = forumdata.GetVoteSummary(ctx, s, ref)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UpCount)
	assert.Equal(t, 2, summary.DownCount)
	assert.Equal(t, -1, summary.Point)

	require.NoError(t, forumdata.RemoveVote(ctx, s, ref, up1.ID))
	summary, err = forumdata.GetVoteSummary(ctx, s, ref)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)

	t.Run("bad direction", func(t *testing.T) {
		err := forumdata.UpdateVote(ctx, s, ref, up1.ID, "sideways")
		assert.ErrorIs(t, err, forumdata.ErrValidation)
	})

	t.Run("removing a missing vote is a no-op", func(t *testing.T) {
		assert.NoError(t, forumdata.RemoveVote(ctx, s, ref, "nobody"))
	})
}
