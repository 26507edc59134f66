package forumdata_test

import (
	"context"
	"testing"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCountThreadsResponsesReplies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")

	thread := newTestThread(t, ctx, s, author.ID)
	response := newTestComment(t, ctx, s, author.ID, thread.ID, nil)
	newTestComment(t, ctx, s, author.ID, thread.ID, &response.ID)
	newTestComment(t, ctx, s, author.ID, thread.ID, &response.ID)

	stat, err := s.GetCourseStats(ctx, author.ID, testCourse)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.Threads)
	assert.Equal(t, 1, stat.Responses)
	assert.Equal(t, 2, stat.Replies)
	require.NotNil(t, stat.LastActivityAt)
}

func TestRebuildMatchesIncrementalStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	flagger := newTestUser(t, ctx, s, "bob")

	thread := newTestThread(t, ctx, s, author.ID)
	response := newTestComment(t, ctx, s, author.ID, thread.ID, nil)
	newTestComment(t, ctx, s, author.ID, thread.ID, &response.ID)
	require.NoError(t, forumdata.FlagContent(ctx, s, response.Ref(), flagger.ID))
	require.NoError(t, forumdata.UnflagAllContent(ctx, s, thread.Ref()))

	incremental, err := s.GetCourseStats(ctx, author.ID, testCourse)
	require.NoError(t, err)

	err = forumdata.RebuildStats(ctx, s, author.ID, testCourse)
	require.NoError(t, err)

	rebuilt, err := s.GetCourseStats(ctx, author.ID, testCourse)
	require.NoError(t, err)
	assert.Equal(t, incremental.Threads, rebuilt.Threads)
	assert.Equal(t, incremental.Responses, rebuilt.Responses)
	assert.Equal(t, incremental.Replies, rebuilt.Replies)
	assert.Equal(t, incremental.ActiveFlags, rebuilt.ActiveFlags)
	assert.Equal(t, incremental.InactiveFlags, rebuilt.InactiveFlags)
}

func TestAnonymousContentLeavesNoStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")

	_, err := forumdata.CreateThread(ctx, s, forumdata.NewThread{
		AuthorID:  author.ID,
		CourseID:  testCourse,
		Title:     "no credit for this one",
		Anonymous: true,
	})
	require.NoError(t, err)

	thread, err := forumdata.CreateThread(ctx, s, forumdata.NewThread{
		AuthorID:         author.ID,
		CourseID:         testCourse,
		Title:            "nor this one",
		AnonymousToPeers: true,
	})
	require.NoError(t, err)

	_, err = forumdata.CreateComment(ctx, s, forumdata.NewComment{
		AuthorID:  author.ID,
		ThreadID:  thread.ID,
		Body:      "still anonymous",
		Anonymous: true,
	})
	require.NoError(t, err)

	stat, err := s.GetCourseStats(ctx, author.ID, testCourse)
	require.NoError(t, err)
	assert.Equal(t, &models.CourseStat{UserID: author.ID, CourseID: testCourse}, stat)
}

func TestVotesDoNotTouchStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	voter := newTestUser(t, ctx, s, "bob")
	thread := newTestThread(t, ctx, s, author.ID)

	before, err := s.GetCourseStats(ctx, author.ID, testCourse)
	require.NoError(t, err)

	require.NoError(t, forumdata.UpdateVote(ctx, s, thread.Ref(), voter.ID, "up"))

	after, err := s.GetCourseStats(ctx, author.ID, testCourse)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	updated, err := s.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, thread.UpdatedAt, updated.UpdatedAt)
	assert.Equal(t, thread.LastActivityAt, updated.LastActivityAt)
}

func TestCourseStatsListing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	alice := newTestUser(t, ctx, s, "alice")
	bob := newTestUser(t, ctx, s, "bob")
	carol := newTestUser(t, ctx, s, "carol")
	flagger := newTestUser(t, ctx, s, "dave")

	// alice: 2 threads. bob: 1 thread, 1 response (flagged). carol: 1
	// thread. bob's response is the most recent countable activity.
	newTestThread(t, ctx, s, alice.ID)
	newTestThread(t, ctx, s, alice.ID)
	bobThread := newTestThread(t, ctx, s, bob.ID)
	newTestThread(t, ctx, s, carol.ID)
	bobResponse := newTestComment(t, ctx, s, bob.ID, bobThread.ID, nil)
	require.NoError(t, forumdata.FlagContent(ctx, s, bobResponse.Ref(), flagger.ID))

	t.Run("default sort: most threads first", func(t *testing.T) {
		stats, total, err := forumdata.GetCourseStats(ctx, s, forumdata.CourseStatsQuery{
			CourseID: testCourse,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, stats, 3)
		assert.Equal(t, alice.ID, stats[0].User.ID)
		// bob and carol tie on threads; bob wins on responses.
		assert.Equal(t, bob.ID, stats[1].User.ID)
		assert.Equal(t, carol.ID, stats[2].User.ID)
	})

	t.Run("flagged sort", func(t *testing.T) {
		stats, _, err := forumdata.GetCourseStats(ctx, s, forumdata.CourseStatsQuery{
			CourseID: testCourse,
			Sort:     forumdata.StatsSortFlagged,
		})
		require.NoError(t, err)
		require.Len(t, stats, 3)
		assert.Equal(t, bob.ID, stats[0].User.ID)
	})

	t.Run("recency sort", func(t *testing.T) {
		stats, _, err := forumdata.GetCourseStats(ctx, s, forumdata.CourseStatsQuery{
			CourseID: testCourse,
			Sort:     forumdata.StatsSortRecency,
		})
		require.NoError(t, err)
		require.Len(t, stats, 3)
		// bob's response was the last countable activity.
		assert.Equal(t, bob.ID, stats[0].User.ID)
	})

	t.Run("username filter", func(t *testing.T) {
		stats, total, err := forumdata.GetCourseStats(ctx, s, forumdata.CourseStatsQuery{
			CourseID:  testCourse,
			Usernames: []string{carol.Username},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, stats, 1)
		assert.Equal(t, carol.ID, stats[0].User.ID)
	})

	t.Run("pagination", func(t *testing.T) {
		stats, total, err := forumdata.GetCourseStats(ctx, s, forumdata.CourseStatsQuery{
			CourseID: testCourse,
			Page:     2,
			PerPage:  2,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, stats, 1)
		assert.Equal(t, carol.ID, stats[0].User.ID)
	})

	t.Run("bad sort is rejected", func(t *testing.T) {
		_, err := forumdata.ParseStatsSort("bogus")
		assert.ErrorIs(t, err, forumdata.ErrValidation)
	})
}

func TestRebuildCourseStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	alice := newTestUser(t, ctx, s, "alice")
	bob := newTestUser(t, ctx, s, "bob")

	aliceThread := newTestThread(t, ctx, s, alice.ID)
	newTestComment(t, ctx, s, bob.ID, aliceThread.ID, nil)

	// Wreck the stored stats, then rebuild the whole course.
	require.NoError(t, s.SetCourseStats(ctx, &models.CourseStat{
		UserID:   alice.ID,
		CourseID: testCourse,
		Threads:  99,
	}))

	authors, numFailed, err := forumdata.RebuildCourseStats(ctx, s, testCourse)
	require.NoError(t, err)
	assert.Equal(t, 0, numFailed)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, authors)

	stat, err := s.GetCourseStats(ctx, alice.ID, testCourse)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.Threads)

	stat, err = s.GetCourseStats(ctx, bob.ID, testCourse)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.Responses)
}

func TestDeletedContentRebuildsStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	alice := newTestUser(t, ctx, s, "alice")
	bob := newTestUser(t, ctx, s, "bob")

	thread := newTestThread(t, ctx, s, alice.ID)
	newTestComment(t, ctx, s, bob.ID, thread.ID, nil)

	require.NoError(t, forumdata.DeleteThread(ctx, s, thread.ID))

	stat, err := s.GetCourseStats(ctx, alice.ID, testCourse)
	require.NoError(t, err)
	assert.Equal(t, 0, stat.Threads)

	stat, err = s.GetCourseStats(ctx, bob.ID, testCourse)
	require.NoError(t, err)
	assert.Equal(t, 0, stat.Responses)
}
