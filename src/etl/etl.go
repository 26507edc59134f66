package etl

import (
	"context"
	"errors"
	"sort"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/logging"
	"github.com/openedx/forum/src/models"
	"github.com/openedx/forum/src/oops"
)

const DefaultBatchSize = 500

/*
Job copies forum data for one or more courses from one storage engine into
another. Every migrated content item leaves a source-id mapping in the
target's identity store, so running the same job twice finds the rows it
already created instead of duplicating them. Items whose author, thread, or
parent is missing on the target side are skipped and logged, never invented.

The job assumes nothing is writing to the source while it runs.
*/
type Job struct {
	Source forumdata.Store
	Target forumdata.Store

	// Page size for source listings. Zero means DefaultBatchSize.
	BatchSize int
}

// Per-run counters. Skipped counts items dropped because a record they
// depend on was never migrated; they are not errors.
type Report struct {
	Users           int
	Threads         int
	Comments        int
	Votes           int
	ActiveFlags     int
	HistoricalFlags int
	Subscriptions   int
	ReadStates      int
	StatsRebuilt    int

	SkippedThreads       int
	SkippedComments      int
	SkippedVotes         int
	SkippedFlags         int
	SkippedSubscriptions int
	SkippedReadStates    int
}

func (r *Report) merge(other *Report) {
	r.Users += other.Users
	r.Threads += other.Threads
	r.Comments += other.Comments
	r.Votes += other.Votes
	r.ActiveFlags += other.ActiveFlags
	r.HistoricalFlags += other.HistoricalFlags
	r.Subscriptions += other.Subscriptions
	r.ReadStates += other.ReadStates
	r.StatsRebuilt += other.StatsRebuilt

	r.SkippedThreads += other.SkippedThreads
	r.SkippedComments += other.SkippedComments
	r.SkippedVotes += other.SkippedVotes
	r.SkippedFlags += other.SkippedFlags
	r.SkippedSubscriptions += other.SkippedSubscriptions
	r.SkippedReadStates += other.SkippedReadStates
}

// MigrateAll migrates every course the source knows about.
func (j *Job) MigrateAll(ctx context.Context) (*Report, error) {
	courseIDs, err := j.Source.ListCourseIDs(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to list source courses")
	}

	total := &Report{}
	for _, courseID := range courseIDs {
		report, err := j.MigrateCourse(ctx, courseID)
		if err != nil {
			return total, oops.New(err, "failed to migrate course %s", courseID)
		}
		total.merge(report)
	}
	return total, nil
}

// MigrateCourse migrates a single course: users, threads, comments, votes,
// flags, subscriptions, and read state, followed by a stats rebuild for
// every (user, course) pair the run touched.
func (j *Job) MigrateCourse(ctx context.Context, courseID string) (*Report, error) {
	run := &courseRun{
		job:      j,
		courseID: courseID,
		report:   &Report{},
		userOK:   make(map[string]bool),
		touched:  make(map[string]bool),
	}

	logging.Info().Str("course", courseID).Msg("migrating course")

	err := run.migrateUsers(ctx)
	if err != nil {
		return run.report, err
	}
	err = run.migrateThreads(ctx)
	if err != nil {
		return run.report, err
	}
	err = run.migrateComments(ctx)
	if err != nil {
		return run.report, err
	}
	err = run.migrateReadStates(ctx)
	if err != nil {
		return run.report, err
	}
	err = run.rebuildStats(ctx)
	if err != nil {
		return run.report, err
	}

	logging.Info().
		Str("course", courseID).
		Int("users", run.report.Users).
		Int("threads", run.report.Threads).
		Int("comments", run.report.Comments).
		Int("statsRebuilt", run.report.StatsRebuilt).
		Msg("course migrated")

	return run.report, nil
}

type courseRun struct {
	job      *Job
	courseID string
	report   *Report

	// Whether a user id exists on the target side, lazily populated.
	userOK map[string]bool

	// User ids whose course stats must be rebuilt at the end of the run.
	touched map[string]bool
}

func (r *courseRun) batchSize() int {
	if r.job.BatchSize > 0 {
		return r.job.BatchSize
	}
	return DefaultBatchSize
}

// Upserts every user the course references up front: users with stats or
// read state, plus authors of countable content. Authors only reachable
// through anonymous content get picked up lazily by ensureUser.
func (r *courseRun) migrateUsers(ctx context.Context) error {
	byStats, err := r.job.Source.ListCourseUserIDs(ctx, r.courseID)
	if err != nil {
		return oops.New(err, "failed to list source course users")
	}
	byContent, err := r.job.Source.ListCourseAuthors(ctx, r.courseID)
	if err != nil {
		return oops.New(err, "failed to list source course authors")
	}

	seen := make(map[string]bool)
	for _, id := range append(byStats, byContent...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		_, err := r.ensureUser(ctx, id)
		if err != nil {
			return err
		}
	}
	return nil
}

// ensureUser makes sure the user exists on the target side, copying it
// from the source on first reference. Returns false if the source has no
// such user, in which case everything referencing it must be skipped.
func (r *courseRun) ensureUser(ctx context.Context, userID string) (bool, error) {
	if ok, cached := r.userOK[userID]; cached {
		return ok, nil
	}

	u, err := r.job.Source.GetUser(ctx, userID)
	if errors.Is(err, forumdata.ErrNotFound) {
		r.userOK[userID] = false
		return false, nil
	} else if err != nil {
		return false, oops.New(err, "failed to fetch source user %s", userID)
	}

	err = r.job.Target.UpsertUser(ctx, u)
	if err != nil {
		return false, oops.New(err, "failed to upsert user %s", userID)
	}
	r.userOK[userID] = true
	r.report.Users++
	return true, nil
}

func (r *courseRun) migrateThreads(ctx context.Context) error {
	offset := 0
	for {
		threads, err := r.job.Source.ListCourseThreads(ctx, r.courseID, r.batchSize(), offset)
		if err != nil {
			return oops.New(err, "failed to list source threads")
		}
		if len(threads) == 0 {
			return nil
		}
		offset += len(threads)

		for _, t := range threads {
			err := r.migrateThread(ctx, t)
			if err != nil {
				return err
			}
		}
	}
}

func (r *courseRun) migrateThread(ctx context.Context, src *models.Thread) error {
	ok, err := r.ensureUser(ctx, src.AuthorID)
	if err != nil {
		return err
	}
	if !ok {
		logging.Warn().
			Str("thread", src.ID).
			Str("author", src.AuthorID).
			Msg("skipping thread: author not found")
		r.report.SkippedThreads++
		return nil
	}

	targetRef, err := r.job.Target.LookupIdentity(ctx, src.ID)
	if err == nil {
		// Already migrated; refresh mutable fields in place.
		target, err := r.job.Target.GetThread(ctx, targetRef.ID)
		if err != nil {
			return oops.New(err, "failed to fetch migrated thread %s", targetRef.ID)
		}
		id := target.ID
		*target = *src
		target.ID = id
		err = r.job.Target.UpdateThread(ctx, target)
		if err != nil {
			return oops.New(err, "failed to update migrated thread %s", targetRef.ID)
		}
	} else if errors.Is(err, forumdata.ErrNotFound) {
		target := *src
		target.ID = ""
		err = r.job.Target.InsertThread(ctx, &target)
		if err != nil {
			return oops.New(err, "failed to insert thread for source %s", src.ID)
		}
		targetRef = target.Ref()
		err = r.job.Target.MapIdentity(ctx, src.ID, targetRef)
		if err != nil {
			return oops.New(err, "failed to record identity of thread %s", src.ID)
		}
	} else {
		return oops.New(err, "failed to look up thread identity %s", src.ID)
	}

	r.report.Threads++
	if src.CountsTowardStats() {
		r.touched[src.AuthorID] = true
	}

	err = r.migrateEngagement(ctx, src.Ref(), targetRef)
	if err != nil {
		return err
	}
	return r.migrateSubscriptions(ctx, src.Ref(), targetRef)
}

func (r *courseRun) migrateComments(ctx context.Context) error {
	// The whole course's comments are collected before inserting any, then
	// ordered parents-first. A parent is always shallower than its
	// children, so depth order guarantees the parent id resolves by the
	// time each child is processed.
	var comments []*models.Comment
	offset := 0
	for {
		page, err := r.job.Source.ListCourseComments(ctx, r.courseID, r.batchSize(), offset)
		if err != nil {
			return oops.New(err, "failed to list source comments")
		}
		if len(page) == 0 {
			break
		}
		offset += len(page)
		comments = append(comments, page...)
	}

	sort.SliceStable(comments, func(i, j int) bool {
		if comments[i].Depth != comments[j].Depth {
			return comments[i].Depth < comments[j].Depth
		}
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})

	for _, c := range comments {
		err := r.migrateComment(ctx, c)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *courseRun) migrateComment(ctx context.Context, src *models.Comment) error {
	ok, err := r.ensureUser(ctx, src.AuthorID)
	if err != nil {
		return err
	}
	if !ok {
		logging.Warn().
			Str("comment", src.ID).
			Str("author", src.AuthorID).
			Msg("skipping comment: author not found")
		r.report.SkippedComments++
		return nil
	}

	threadRef, err := r.job.Target.LookupIdentity(ctx, src.ThreadID)
	if errors.Is(err, forumdata.ErrNotFound) || (err == nil && threadRef.Type != models.ContentTypeThread) {
		logging.Warn().
			Str("comment", src.ID).
			Str("thread", src.ThreadID).
			Msg("skipping comment: thread was not migrated")
		r.report.SkippedComments++
		return nil
	} else if err != nil {
		return oops.New(err, "failed to look up thread identity %s", src.ThreadID)
	}

	var parentID *string
	if src.ParentID != nil {
		parentRef, err := r.job.Target.LookupIdentity(ctx, *src.ParentID)
		if errors.Is(err, forumdata.ErrNotFound) || (err == nil && parentRef.Type != models.ContentTypeComment) {
			logging.Warn().
				Str("comment", src.ID).
				Str("parent", *src.ParentID).
				Msg("skipping comment: parent was not migrated")
			r.report.SkippedComments++
			return nil
		} else if err != nil {
			return oops.New(err, "failed to look up parent identity %s", *src.ParentID)
		}
		parentID = &parentRef.ID
	}

	targetRef, err := r.job.Target.LookupIdentity(ctx, src.ID)
	if err == nil {
		target, err := r.job.Target.GetComment(ctx, targetRef.ID)
		if err != nil {
			return oops.New(err, "failed to fetch migrated comment %s", targetRef.ID)
		}
		target.ContentFields = src.ContentFields
		target.Endorsed = src.Endorsed
		target.Endorsement = src.Endorsement
		err = r.job.Target.UpdateComment(ctx, target)
		if err != nil {
			return oops.New(err, "failed to update migrated comment %s", targetRef.ID)
		}
	} else if errors.Is(err, forumdata.ErrNotFound) {
		// Depth, sort key, and child count carry over verbatim; they
		// describe the tree shape, which the migration preserves exactly.
		target := *src
		target.ID = ""
		target.ThreadID = threadRef.ID
		target.ParentID = parentID
		err = r.job.Target.InsertComment(ctx, &target)
		if err != nil {
			return oops.New(err, "failed to insert comment for source %s", src.ID)
		}
		targetRef = target.Ref()
		err = r.job.Target.MapIdentity(ctx, src.ID, targetRef)
		if err != nil {
			return oops.New(err, "failed to record identity of comment %s", src.ID)
		}
	} else {
		return oops.New(err, "failed to look up comment identity %s", src.ID)
	}

	r.report.Comments++
	if src.CountsTowardStats() {
		r.touched[src.AuthorID] = true
	}

	err = r.migrateEngagement(ctx, src.Ref(), targetRef)
	if err != nil {
		return err
	}
	return r.migrateSubscriptions(ctx, src.Ref(), targetRef)
}

// Votes and flags attached to one content item. SetVote and the flag
// inserts are upserts, so re-running lands on the same rows.
func (r *courseRun) migrateEngagement(ctx context.Context, srcRef, targetRef models.ContentRef) error {
	votes, err := r.job.Source.ListVotes(ctx, srcRef)
	if err != nil {
		return oops.New(err, "failed to list source votes for %s", srcRef.ID)
	}
	for _, v := range votes {
		ok, err := r.ensureUser(ctx, v.UserID)
		if err != nil {
			return err
		}
		if !ok {
			r.report.SkippedVotes++
			continue
		}
		err = r.job.Target.SetVote(ctx, targetRef, v.UserID, v.Vote)
		if err != nil {
			return oops.New(err, "failed to migrate vote on %s", targetRef.ID)
		}
		r.report.Votes++
	}

	active, err := r.job.Source.ListActiveFlags(ctx, srcRef)
	if err != nil {
		return oops.New(err, "failed to list source flags for %s", srcRef.ID)
	}
	for _, f := range active {
		ok, err := r.ensureUser(ctx, f.UserID)
		if err != nil {
			return err
		}
		if !ok {
			r.report.SkippedFlags++
			continue
		}
		added, err := r.job.Target.AddActiveFlag(ctx, targetRef, f.UserID, f.FlaggedAt)
		if err != nil {
			return oops.New(err, "failed to migrate flag on %s", targetRef.ID)
		}
		if added {
			r.report.ActiveFlags++
		}
	}

	historical, err := r.job.Source.ListHistoricalFlags(ctx, srcRef)
	if err != nil {
		return oops.New(err, "failed to list source historical flags for %s", srcRef.ID)
	}
	for _, f := range historical {
		ok, err := r.ensureUser(ctx, f.UserID)
		if err != nil {
			return err
		}
		if !ok {
			r.report.SkippedFlags++
			continue
		}
		err = r.job.Target.AddHistoricalFlag(ctx, targetRef, f.UserID, f.FlaggedAt)
		if err != nil {
			return oops.New(err, "failed to migrate historical flag on %s", targetRef.ID)
		}
		r.report.HistoricalFlags++
	}

	return nil
}

func (r *courseRun) migrateSubscriptions(ctx context.Context, srcRef, targetRef models.ContentRef) error {
	subs, err := r.job.Source.ListSubscribers(ctx, srcRef)
	if err != nil {
		return oops.New(err, "failed to list source subscribers for %s", srcRef.ID)
	}
	for _, sub := range subs {
		ok, err := r.ensureUser(ctx, sub.SubscriberID)
		if err != nil {
			return err
		}
		if !ok {
			r.report.SkippedSubscriptions++
			continue
		}
		_, err = r.job.Target.Subscribe(ctx, sub.SubscriberID, targetRef)
		if err != nil {
			return oops.New(err, "failed to migrate subscription to %s", targetRef.ID)
		}
		r.report.Subscriptions++
	}
	return nil
}

func (r *courseRun) migrateReadStates(ctx context.Context) error {
	for _, userID := range sortedUserIDs(r.userOK) {
		if !r.userOK[userID] {
			continue
		}
		state, err := r.job.Source.GetReadState(ctx, userID, r.courseID)
		if err != nil {
			return oops.New(err, "failed to fetch source read state for %s", userID)
		}
		for threadID, ts := range state.LastReadTimes {
			targetRef, err := r.job.Target.LookupIdentity(ctx, threadID)
			if errors.Is(err, forumdata.ErrNotFound) {
				r.report.SkippedReadStates++
				continue
			} else if err != nil {
				return oops.New(err, "failed to look up thread identity %s", threadID)
			}
			err = r.job.Target.UpsertLastRead(ctx, userID, r.courseID, targetRef.ID, ts)
			if err != nil {
				return oops.New(err, "failed to migrate read state for %s", userID)
			}
			r.report.ReadStates++
		}
	}
	return nil
}

func (r *courseRun) rebuildStats(ctx context.Context) error {
	for _, userID := range sortedUserIDs(r.touched) {
		err := forumdata.RebuildStats(ctx, r.job.Target, userID, r.courseID)
		if err != nil {
			return oops.New(err, "failed to rebuild stats for %s", userID)
		}
		r.report.StatsRebuilt++
	}
	return nil
}

func sortedUserIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
