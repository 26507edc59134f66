package forumdata

import (
	"context"
	"time"

	"github.com/openedx/forum/src/models"
)

/*
Store is the full surface of one storage engine. The forum runs against two
interchangeable engines - a relational one (pgstore) and a document one
(mongostore) - plus an in-memory one for tests. All domain logic in this
package operates against this interface only; nothing outside an engine
package may assume how content is physically represented.
*/
type Store interface {
	UserStore
	ThreadStore
	CommentStore
	FlagStore
	VoteStore
	SubscriptionStore
	ReadStateStore
	StatStore
	IdentityStore
	CourseAdminStore
}

type UserStore interface {
	// Create-or-update by user id. Used both for first-reference creation
	// and for idempotent migration upserts.
	UpsertUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// Rewrites the live username and the authored-username snapshot on all
	// of the user's content.
	ReplaceAuthorUsername(ctx context.Context, userID, username string) error

	// Blanks bodies and titles of everything the user authored and stamps
	// the retired-username marker on it.
	RetireAuthorContent(ctx context.Context, userID string) error

	// Users that have stats or read state recorded for the course. Used to
	// enumerate users when migrating a course.
	ListCourseUserIDs(ctx context.Context, courseID string) ([]string, error)
}

type ThreadStore interface {
	// Inserts the thread, generating an id if t.ID is empty. Timestamps on
	// t are stored verbatim; they are never replaced with insertion time.
	InsertThread(ctx context.Context, t *models.Thread) error
	GetThread(ctx context.Context, id string) (*models.Thread, error)
	UpdateThread(ctx context.Context, t *models.Thread) error

	// Deletes the thread along with its comments and every row referencing
	// either (flags, votes, subscriptions, last-read times).
	DeleteThreadRow(ctx context.Context, id string) error

	// Paged, for batch jobs. A limit of 0 means no pagination.
	ListCourseThreads(ctx context.Context, courseID string, limit, offset int) ([]*models.Thread, error)

	// Only threads that count toward stats (both anonymity flags false).
	ListAuthorThreads(ctx context.Context, authorID, courseID string) ([]*models.Thread, error)

	CountThreadComments(ctx context.Context, threadID string) (int, error)
	ListCourseIDs(ctx context.Context) ([]string, error)
	CommentableCounts(ctx context.Context, courseID string) (map[string]models.CommentableCount, error)
}

type CommentListQuery struct {
	ThreadID      string
	TopLevelOnly  bool
	Descending    bool // default ascending by sort key
	Limit, Offset int  // if Limit is 0, no pagination
}

type CommentStore interface {
	// Inserts the comment, generating an id if c.ID is empty. As with
	// threads, timestamps and tree fields (depth, sort key, child count)
	// are stored verbatim.
	InsertComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)

	// Rewrites content and endorsement fields. Tree fields (depth, sort
	// key, child count) are fixed at insertion and never updated here.
	UpdateComment(ctx context.Context, c *models.Comment) error

	// Deletes the single comment row plus its flags, votes, and
	// subscriptions. Descendants are not touched; cascades are the domain
	// layer's job, and it must delete children before their parents
	// because engines may enforce the parent reference.
	DeleteCommentRow(ctx context.Context, id string) error

	// Comments under a thread ordered by sort key, with the total count
	// before pagination.
	ListThreadComments(ctx context.Context, q CommentListQuery) ([]*models.Comment, int, error)

	// All comments in c's subtree, exclusive of c itself. Engines resolve
	// this through the sort-key prefix, which encodes the whole ancestry.
	ListDescendants(ctx context.Context, c *models.Comment) ([]*models.Comment, error)

	CountRootComments(ctx context.Context, threadID string) (int, error)
	CountChildren(ctx context.Context, parentID string) (int, error)

	// Atomically adds delta to child_count on every listed comment.
	AdjustChildCounts(ctx context.Context, ids []string, delta int) error

	ListCourseComments(ctx context.Context, courseID string, limit, offset int) ([]*models.Comment, error)

	// Only comments that count toward stats.
	ListAuthorComments(ctx context.Context, authorID, courseID string) ([]*models.Comment, error)
}

type FlagStore interface {
	// Returns false if the (content, user) pair was already flagged.
	AddActiveFlag(ctx context.Context, ref models.ContentRef, userID string, at time.Time) (bool, error)
	// Returns false if the user had no active flag on the content.
	RemoveActiveFlag(ctx context.Context, ref models.ContentRef, userID string) (bool, error)
	RemoveAllActiveFlags(ctx context.Context, ref models.ContentRef) error
	ListActiveFlaggers(ctx context.Context, ref models.ContentRef) ([]string, error)

	// Full flag rows, timestamps included, for migrating between engines.
	ListActiveFlags(ctx context.Context, ref models.ContentRef) ([]models.AbuseFlag, error)
	ListHistoricalFlags(ctx context.Context, ref models.ContentRef) ([]models.HistoricalAbuseFlag, error)

	// Idempotent: archiving a pair that is already archived is a no-op.
	AddHistoricalFlag(ctx context.Context, ref models.ContentRef, userID string, at time.Time) error
	ListHistoricalFlaggers(ctx context.Context, ref models.ContentRef) ([]string, error)

	// How many of the given content items have at least one flag. Distinct
	// content items, not flag rows.
	CountFlaggedContent(ctx context.Context, refs []models.ContentRef, historical bool) (int, error)
}

type VoteStore interface {
	// Upserts the user's vote on the content.
	SetVote(ctx context.Context, ref models.ContentRef, userID string, vote int) error
	// Returns false if the user had no vote on the content.
	RemoveVote(ctx context.Context, ref models.ContentRef, userID string) (bool, error)
	ListVotes(ctx context.Context, ref models.ContentRef) ([]models.Vote, error)
}

type SubscriptionStore interface {
	// Idempotent per (subscriber, source).
	Subscribe(ctx context.Context, subscriberID string, ref models.ContentRef) (*models.Subscription, error)
	Unsubscribe(ctx context.Context, subscriberID string, ref models.ContentRef) error
	ListSubscribers(ctx context.Context, ref models.ContentRef) ([]*models.Subscription, error)
	ListUserSubscriptions(ctx context.Context, subscriberID string) ([]*models.Subscription, error)
	DeleteSubscriptionsFor(ctx context.Context, ref models.ContentRef) error
	UnsubscribeAll(ctx context.Context, subscriberID string) error
}

type ReadStateStore interface {
	// Upserts by (user, course, thread), so re-running a migration with
	// newer source timestamps updates rather than duplicates.
	UpsertLastRead(ctx context.Context, userID, courseID, threadID string, ts time.Time) error
	// Never ErrNotFound; a user who read nothing has an empty map.
	GetReadState(ctx context.Context, userID, courseID string) (*models.ReadState, error)
	ListUserReadStates(ctx context.Context, userID string) ([]*models.ReadState, error)
}

type StatStore interface {
	// Atomic field-level increments; creates the course row with zeros
	// first if absent. The user must already exist, otherwise ErrNotFound.
	// Safe under concurrent callers for the same (user, course).
	ApplyStatDelta(ctx context.Context, userID, courseID string, d models.StatDelta) error

	// Full-row overwrite, used by rebuilds. The user must already exist,
	// otherwise ErrNotFound.
	SetCourseStats(ctx context.Context, s *models.CourseStat) error

	// Never ErrNotFound; an absent row reads as all zeros.
	GetCourseStats(ctx context.Context, userID, courseID string) (*models.CourseStat, error)

	ListCourseStatsPage(ctx context.Context, q CourseStatsQuery) ([]*models.UserCourseStats, int, error)

	// Distinct authors of stats-countable content in the course.
	ListCourseAuthors(ctx context.Context, courseID string) ([]string, error)
}

type IdentityStore interface {
	// Upsert keyed on sourceID. Mapping the same source id again is not a
	// conflict; the row is simply rewritten.
	MapIdentity(ctx context.Context, sourceID string, ref models.ContentRef) error
	LookupIdentity(ctx context.Context, sourceID string) (models.ContentRef, error)
}

// Counts of per-course records, used both for dry-run reports and as the
// result of an actual deletion.
type CourseDataCounts struct {
	Threads       int
	Comments      int
	Subscriptions int
	CourseStats   int
	ReadStates    int
}

type CourseAdminStore interface {
	CountCourseData(ctx context.Context, courseID string) (*CourseDataCounts, error)
	DeleteCourseData(ctx context.Context, courseID string) (*CourseDataCounts, error)
}
