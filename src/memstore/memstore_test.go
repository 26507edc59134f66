package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/memstore"
	"github.com/openedx/forum/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCourse(t *testing.T, ctx context.Context, s *memstore.Store, courseID string) *models.Thread {
	t.Helper()
	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: "alice", Username: "alice"}))
	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: "bob", Username: "bob"}))

	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	thread := &models.Thread{
		ContentFields: models.ContentFields{
			AuthorID:       "alice",
			AuthorUsername: "alice",
			CourseID:       courseID,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		Title:      "hello",
		ThreadType: models.ThreadTypeDiscussion,
		Context:    models.ContextCourse,
	}
	require.NoError(t, s.InsertThread(ctx, thread))

	comment := &models.Comment{
		ContentFields: models.ContentFields{
			AuthorID:       "bob",
			AuthorUsername: "bob",
			CourseID:       courseID,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		ThreadID: thread.ID,
		SortKey:  "000000",
	}
	require.NoError(t, s.InsertComment(ctx, comment))

	_, err := s.Subscribe(ctx, "bob", thread.Ref())
	require.NoError(t, err)
	require.NoError(t, s.UpsertLastRead(ctx, "bob", courseID, thread.ID, now))
	require.NoError(t, s.ApplyStatDelta(ctx, "alice", courseID, models.StatDelta{Threads: 1}))
	return thread
}

func TestCourseDataCountsAndDelete(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStore()
	seedCourse(t, ctx, s, "course-a")
	keep := seedCourse(t, ctx, s, "course-b")

	expected := &forumdata.CourseDataCounts{
		Threads:       1,
		Comments:      1,
		Subscriptions: 1,
		CourseStats:   1,
		ReadStates:    1,
	}

	// The dry-run count and the deletion report agree.
	counted, err := s.CountCourseData(ctx, "course-a")
	require.NoError(t, err)
	assert.Equal(t, expected, counted)

	deleted, err := s.DeleteCourseData(ctx, "course-a")
	require.NoError(t, err)
	assert.Equal(t, expected, deleted)

	empty, err := s.CountCourseData(ctx, "course-a")
	require.NoError(t, err)
	assert.Equal(t, &forumdata.CourseDataCounts{}, empty)

	// Users survive course deletion; only their course records go.
	_, err = s.GetUser(ctx, "alice")
	require.NoError(t, err)
	stat, err := s.GetCourseStats(ctx, "alice", "course-a")
	require.NoError(t, err)
	assert.Equal(t, 0, stat.Threads)

	// The other course is untouched.
	other, err := s.CountCourseData(ctx, "course-b")
	require.NoError(t, err)
	assert.Equal(t, expected, other)
	_, err = s.GetThread(ctx, keep.ID)
	require.NoError(t, err)
}

func TestIdentityMapping(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStore()

	_, err := s.LookupIdentity(ctx, "src-1")
	assert.ErrorIs(t, err, forumdata.ErrNotFound)

	require.NoError(t, s.MapIdentity(ctx, "src-1", models.ThreadRef("tgt-1")))
	ref, err := s.LookupIdentity(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, models.ThreadRef("tgt-1"), ref)

	// Remapping the same source id just rewrites the entry.
	require.NoError(t, s.MapIdentity(ctx, "src-1", models.CommentRef("tgt-2")))
	ref, err = s.LookupIdentity(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, models.CommentRef("tgt-2"), ref)
}

func TestStatDeltaMaxMergesActivity(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStore()

	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: "alice", Username: "alice"}))
	require.NoError(t, s.ApplyStatDelta(ctx, "alice", "c", models.StatDelta{Threads: 1, LastActivityAt: &late}))
	require.NoError(t, s.ApplyStatDelta(ctx, "alice", "c", models.StatDelta{Responses: 1, LastActivityAt: &early}))

	stat, err := s.GetCourseStats(ctx, "alice", "c")
	require.NoError(t, err)
	assert.Equal(t, 1, stat.Threads)
	assert.Equal(t, 1, stat.Responses)
	require.NotNil(t, stat.LastActivityAt)
	assert.Equal(t, late, *stat.LastActivityAt)
}

func TestStatWritesRequireUser(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStore()

	err := s.ApplyStatDelta(ctx, "ghost", "c", models.StatDelta{Threads: 1})
	assert.ErrorIs(t, err, forumdata.ErrNotFound)

	err = s.SetCourseStats(ctx, &models.CourseStat{UserID: "ghost", CourseID: "c", Threads: 1})
	assert.ErrorIs(t, err, forumdata.ErrNotFound)

	stat, err := s.GetCourseStats(ctx, "ghost", "c")
	require.NoError(t, err)
	assert.Equal(t, 0, stat.Threads)
}
