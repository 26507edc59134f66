package forumdata_test

import (
	"context"
	"testing"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	flagger1 := newTestUser(t, ctx, s, "bob")
	flagger2 := newTestUser(t, ctx, s, "carol")
	thread := newTestThread(t, ctx, s, author.ID)
	ref := thread.Ref()

	activeFlags := func() int {
		stat, err := s.GetCourseStats(ctx, author.ID, testCourse)
		require.NoError(t, err)
		return stat.ActiveFlags
	}
	inactiveFlags := func() int {
		stat, err := s.GetCourseStats(ctx, author.ID, testCourse)
		require.NoError(t, err)
		return stat.InactiveFlags
	}

	require.NoError(t, forumdata.FlagContent(ctx, s, ref, flagger1.ID))
	assert.Equal(t, 1, activeFlags())

	// A second flag on the same content is more flag rows but not more
	// flagged content items.
	require.NoError(t, forumdata.FlagContent(ctx, s, ref, flagger2.ID))
	assert.Equal(t, 1, activeFlags())

	// Double-flagging by the same user is a no-op.
	require.NoError(t, forumdata.FlagContent(ctx, s, ref, flagger1.ID))
	flaggers, err := s.ListActiveFlaggers(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, flaggers)
	assert.Equal(t, 1, activeFlags())

	// Removing one of two flags leaves the content flagged.
	require.NoError(t, forumdata.UnflagContent(ctx, s, ref, flagger2.ID))
	assert.Equal(t, 1, activeFlags())

	// Removing the last flag unflags the content.
	require.NoError(t, forumdata.UnflagContent(ctx, s, ref, flagger1.ID))
	assert.Equal(t, 0, activeFlags())
	assert.Equal(t, 0, inactiveFlags())

	// Resolve-all archives every flagger and moves the content to the
	// inactive count.
	require.NoError(t, forumdata.FlagContent(ctx, s, ref, flagger1.ID))
	require.NoError(t, forumdata.FlagContent(ctx, s, ref, flagger2.ID))
	require.NoError(t, forumdata.UnflagAllContent(ctx, s, ref))
	assert.Equal(t, 0, activeFlags())
	assert.Equal(t, 1, inactiveFlags())

	historical, err := s.ListHistoricalFlaggers(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, historical)

	// A second flag-and-resolve cycle does not count the content again.
	require.NoError(t, forumdata.FlagContent(ctx, s, ref, flagger1.ID))
	assert.Equal(t, 1, activeFlags())
	require.NoError(t, forumdata.UnflagAllContent(ctx, s, ref))
	assert.Equal(t, 0, activeFlags())
	assert.Equal(t, 1, inactiveFlags())
}

func TestUnflagAllWithNoFlags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	thread := newTestThread(t, ctx, s, author.ID)

	err := forumdata.UnflagAllContent(ctx, s, thread.Ref())
	require.NoError(t, err)

	stat, err := s.GetCourseStats(ctx, author.ID, testCourse)
	require.NoError(t, err)
	assert.Equal(t, 0, stat.ActiveFlags)
	assert.Equal(t, 0, stat.InactiveFlags)
}

func TestFlagsOnAnonymousContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	flagger := newTestUser(t, ctx, s, "bob")

	thread, err := forumdata.CreateThread(ctx, s, forumdata.NewThread{
		AuthorID:  author.ID,
		CourseID:  testCourse,
		Title:     "anonymous rant",
		Anonymous: true,
	})
	require.NoError(t, err)

	require.NoError(t, forumdata.FlagContent(ctx, s, thread.Ref(), flagger.ID))
	require.NoError(t, forumdata.UnflagAllContent(ctx, s, thread.Ref()))

	// Anonymous content never shows up in the author's stats, flags
	// included.
	stat, err := s.GetCourseStats(ctx, author.ID, testCourse)
	require.NoError(t, err)
	assert.Equal(t, 0, stat.Threads)
	assert.Equal(t, 0, stat.ActiveFlags)
	assert.Equal(t, 0, stat.InactiveFlags)

	// The flag history itself is still recorded.
	historical, err := s.ListHistoricalFlaggers(ctx, thread.Ref())
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, historical)
}

func TestFlagUnknownContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	flagger := newTestUser(t, ctx, s, "bob")

	err := forumdata.FlagContent(ctx, s, models.ThreadRef("nope"), flagger.ID)
	assert.ErrorIs(t, err, forumdata.ErrNotFound)
}
