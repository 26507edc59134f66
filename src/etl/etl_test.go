package etl_test

import (
	"context"
	"testing"
	"time"

	"github.com/openedx/forum/src/etl"
	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/memstore"
	"github.com/openedx/forum/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCourse = "course-v1:edX+Demo+2026"

var (
	past   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	later  = past.Add(24 * time.Hour)
	latest = past.Add(48 * time.Hour)
)

// Builds a source store with one course: two users, a thread by alice with
// a response and a nested reply, plus a vote, a flag, a subscription, and
// read state.
func seedSource(t *testing.T, ctx context.Context) (forumdata.Store, *models.Thread, *models.Comment, *models.Comment) {
	t.Helper()
	src := memstore.NewStore()

	require.NoError(t, src.UpsertUser(ctx, &models.User{ID: "alice", Username: "alice", DefaultSortKey: "votes"}))
	require.NoError(t, src.UpsertUser(ctx, &models.User{ID: "bob", Username: "bob", DefaultSortKey: models.DefaultSortKey}))

	thread := &models.Thread{
		ContentFields: models.ContentFields{
			AuthorID:       "alice",
			AuthorUsername: "alice",
			CourseID:       testCourse,
			Body:           "original body",
			Visible:        true,
			CreatedAt:      past,
			UpdatedAt:      later,
		},
		Title:          "migrate me",
		ThreadType:     models.ThreadTypeDiscussion,
		Context:        models.ContextCourse,
		LastActivityAt: &latest,
	}
	require.NoError(t, src.InsertThread(ctx, thread))

	response := &models.Comment{
		ContentFields: models.ContentFields{
			AuthorID:       "bob",
			AuthorUsername: "bob",
			CourseID:       testCourse,
			Body:           "a response",
			Visible:        true,
			CreatedAt:      later,
			UpdatedAt:      later,
		},
		ThreadID:   thread.ID,
		SortKey:    "000000",
		ChildCount: 1,
	}
	require.NoError(t, src.InsertComment(ctx, response))

	reply := &models.Comment{
		ContentFields: models.ContentFields{
			AuthorID:       "alice",
			AuthorUsername: "alice",
			CourseID:       testCourse,
			Body:           "a reply",
			Visible:        true,
			CreatedAt:      latest,
			UpdatedAt:      latest,
		},
		ThreadID: thread.ID,
		ParentID: &response.ID,
		Depth:    1,
		SortKey:  "000000.000000",
	}
	require.NoError(t, src.InsertComment(ctx, reply))

	require.NoError(t, src.SetVote(ctx, thread.Ref(), "bob", models.VoteUp))
	added, err := src.AddActiveFlag(ctx, response.Ref(), "alice", past)
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, src.AddHistoricalFlag(ctx, thread.Ref(), "bob", past))
	_, err = src.Subscribe(ctx, "bob", thread.Ref())
	require.NoError(t, err)
	require.NoError(t, src.UpsertLastRead(ctx, "bob", testCourse, thread.ID, later))

	return src, thread, response, reply
}

func TestMigrateCourse(t *testing.T) {
	ctx := context.Background()
	src, srcThread, srcResponse, srcReply := seedSource(t, ctx)
	target := memstore.NewStore()

	job := &etl.Job{Source: src, Target: target, BatchSize: 2}
	report, err := job.MigrateCourse(ctx, testCourse)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 1, report.Threads)
	assert.Equal(t, 2, report.Comments)
	assert.Equal(t, 1, report.Votes)
	assert.Equal(t, 1, report.ActiveFlags)
	assert.Equal(t, 1, report.HistoricalFlags)
	assert.Equal(t, 1, report.Subscriptions)
	assert.Equal(t, 1, report.ReadStates)
	assert.Equal(t, 2, report.StatsRebuilt)

	threadRef, err := target.LookupIdentity(ctx, srcThread.ID)
	require.NoError(t, err)
	thread, err := target.GetThread(ctx, threadRef.ID)
	require.NoError(t, err)

	// Timestamps and the authored-username snapshot survive verbatim.
	assert.Equal(t, past, thread.CreatedAt)
	assert.Equal(t, later, thread.UpdatedAt)
	require.NotNil(t, thread.LastActivityAt)
	assert.Equal(t, latest, *thread.LastActivityAt)
	assert.Equal(t, "alice", thread.AuthorUsername)
	assert.Equal(t, "migrate me", thread.Title)

	// The user's sort key preference survives.
	alice, err := target.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "votes", alice.DefaultSortKey)

	// The comment tree keeps its shape and order.
	responseRef, err := target.LookupIdentity(ctx, srcResponse.ID)
	require.NoError(t, err)
	replyRef, err := target.LookupIdentity(ctx, srcReply.ID)
	require.NoError(t, err)

	response, err := target.GetComment(ctx, responseRef.ID)
	require.NoError(t, err)
	assert.Equal(t, thread.ID, response.ThreadID)
	assert.Equal(t, "000000", response.SortKey)
	assert.Equal(t, 1, response.ChildCount)

	reply, err := target.GetComment(ctx, replyRef.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, response.ID, *reply.ParentID)
	assert.Equal(t, "000000.000000", reply.SortKey)
	assert.Equal(t, 1, reply.Depth)

	// Votes, flags, subscriptions, read state.
	votes, err := target.ListVotes(ctx, threadRef)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "bob", votes[0].UserID)

	flags, err := target.ListActiveFlags(ctx, responseRef)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, "alice", flags[0].UserID)
	assert.Equal(t, past, flags[0].FlaggedAt)

	historical, err := target.ListHistoricalFlaggers(ctx, threadRef)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, historical)

	subs, err := target.ListSubscribers(ctx, threadRef)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "bob", subs[0].SubscriberID)

	state, err := target.GetReadState(ctx, "bob", testCourse)
	require.NoError(t, err)
	assert.Equal(t, later, state.LastReadTimes[thread.ID])

	// Stats were rebuilt from the migrated content.
	stat, err := target.GetCourseStats(ctx, "alice", testCourse)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.Threads)
	assert.Equal(t, 1, stat.Replies)

	stat, err = target.GetCourseStats(ctx, "bob", testCourse)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.Responses)
	assert.Equal(t, 1, stat.ActiveFlags)
}

func TestMigrateCourseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	src, srcThread, _, _ := seedSource(t, ctx)
	target := memstore.NewStore()
	job := &etl.Job{Source: src, Target: target}

	_, err := job.MigrateCourse(ctx, testCourse)
	require.NoError(t, err)
	firstRef, err := target.LookupIdentity(ctx, srcThread.ID)
	require.NoError(t, err)

	report, err := job.MigrateCourse(ctx, testCourse)
	require.NoError(t, err)

	// The second run lands on the rows the first one created.
	secondRef, err := target.LookupIdentity(ctx, srcThread.ID)
	require.NoError(t, err)
	assert.Equal(t, firstRef, secondRef)
	assert.Equal(t, 0, report.ActiveFlags)

	threads, err := target.ListCourseThreads(ctx, testCourse, 0, 0)
	require.NoError(t, err)
	assert.Len(t, threads, 1)

	comments, err := target.ListCourseComments(ctx, testCourse, 0, 0)
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	subs, err := target.ListSubscribers(ctx, secondRef)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	stat, err := target.GetCourseStats(ctx, "bob", testCourse)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.Responses)
	assert.Equal(t, 1, stat.ActiveFlags)
}

func TestMigrateSourceEditsPropagate(t *testing.T) {
	ctx := context.Background()
	src, srcThread, _, _ := seedSource(t, ctx)
	target := memstore.NewStore()
	job := &etl.Job{Source: src, Target: target}

	_, err := job.MigrateCourse(ctx, testCourse)
	require.NoError(t, err)

	srcThread.Title = "edited at the source"
	require.NoError(t, src.UpdateThread(ctx, srcThread))

	_, err = job.MigrateCourse(ctx, testCourse)
	require.NoError(t, err)

	ref, err := target.LookupIdentity(ctx, srcThread.ID)
	require.NoError(t, err)
	thread, err := target.GetThread(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited at the source", thread.Title)
}

func TestMigrateSkipsOrphans(t *testing.T) {
	ctx := context.Background()
	src := memstore.NewStore()
	require.NoError(t, src.UpsertUser(ctx, &models.User{ID: "alice", Username: "alice"}))

	// A thread by a user the source has no record of.
	ghostThread := &models.Thread{
		ContentFields: models.ContentFields{
			AuthorID:       "ghost",
			AuthorUsername: "ghost",
			CourseID:       testCourse,
			CreatedAt:      past,
			UpdatedAt:      past,
		},
		Title:      "who wrote this",
		ThreadType: models.ThreadTypeDiscussion,
		Context:    models.ContextCourse,
	}
	require.NoError(t, src.InsertThread(ctx, ghostThread))

	// A comment under the orphaned thread, by a real user.
	orphanComment := &models.Comment{
		ContentFields: models.ContentFields{
			AuthorID:       "alice",
			AuthorUsername: "alice",
			CourseID:       testCourse,
			CreatedAt:      later,
			UpdatedAt:      later,
		},
		ThreadID: ghostThread.ID,
		SortKey:  "000000",
	}
	require.NoError(t, src.InsertComment(ctx, orphanComment))

	goodThread := &models.Thread{
		ContentFields: models.ContentFields{
			AuthorID:       "alice",
			AuthorUsername: "alice",
			CourseID:       testCourse,
			CreatedAt:      past,
			UpdatedAt:      past,
		},
		Title:      "this one is fine",
		ThreadType: models.ThreadTypeDiscussion,
		Context:    models.ContextCourse,
	}
	require.NoError(t, src.InsertThread(ctx, goodThread))

	target := memstore.NewStore()
	job := &etl.Job{Source: src, Target: target}
	report, err := job.MigrateCourse(ctx, testCourse)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Threads)
	assert.Equal(t, 1, report.SkippedThreads)
	assert.Equal(t, 0, report.Comments)
	assert.Equal(t, 1, report.SkippedComments)

	threads, err := target.ListCourseThreads(ctx, testCourse, 0, 0)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "this one is fine", threads[0].Title)

	_, err = target.LookupIdentity(ctx, ghostThread.ID)
	assert.ErrorIs(t, err, forumdata.ErrNotFound)
}

func TestMigrateAll(t *testing.T) {
	ctx := context.Background()
	src, _, _, _ := seedSource(t, ctx)

	// A second course in the same source.
	require.NoError(t, src.UpsertUser(ctx, &models.User{ID: "carol", Username: "carol"}))
	other := &models.Thread{
		ContentFields: models.ContentFields{
			AuthorID:       "carol",
			AuthorUsername: "carol",
			CourseID:       "course-v1:edX+Other+2026",
			CreatedAt:      past,
			UpdatedAt:      past,
		},
		Title:      "other course",
		ThreadType: models.ThreadTypeDiscussion,
		Context:    models.ContextCourse,
	}
	require.NoError(t, src.InsertThread(ctx, other))

	target := memstore.NewStore()
	job := &etl.Job{Source: src, Target: target}
	report, err := job.MigrateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Threads)

	courses, err := target.ListCourseIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{testCourse, "course-v1:edX+Other+2026"}, courses)
}
