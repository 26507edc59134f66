package forumdata

import (
	"context"
	"time"

	"github.com/openedx/forum/src/logging"
	"github.com/openedx/forum/src/models"
	"github.com/openedx/forum/src/oops"
	"github.com/openedx/forum/src/utils"
)

type StatsSort string

const (
	// Most threads first, then responses, then replies.
	StatsSortDefault StatsSort = "default"
	// Most recently active first.
	StatsSortRecency StatsSort = "recency"
	// Most active flags first, then inactive flags.
	StatsSortFlagged StatsSort = "flagged"
)

func ParseStatsSort(s string) (StatsSort, error) {
	switch StatsSort(s) {
	case "", StatsSortDefault:
		return StatsSortDefault, nil
	case StatsSortRecency:
		return StatsSortRecency, nil
	case StatsSortFlagged:
		return StatsSortFlagged, nil
	default:
		return "", validationf("unknown stats sort %q", s)
	}
}

type CourseStatsQuery struct {
	CourseID string
	Sort     StatsSort

	// If non-empty, restrict results to these usernames.
	Usernames []string

	Page    int // 1-based
	PerPage int
}

const (
	defaultStatsPerPage = 100
	maxStatsPerPage     = 100
)

// Fetches one page of per-user stats for a course. Ties at every sort level
// break on username descending, so pagination is stable.
func GetCourseStats(ctx context.Context, s Store, q CourseStatsQuery) ([]*models.UserCourseStats, int, error) {
	if q.CourseID == "" {
		return nil, 0, validationf("course id must not be empty")
	}
	var err error
	q.Sort, err = ParseStatsSort(string(q.Sort))
	if err != nil {
		return nil, 0, err
	}
	q.Page = utils.IntMax(q.Page, 1)
	if q.PerPage <= 0 {
		q.PerPage = defaultStatsPerPage
	}
	q.PerPage = utils.IntClamp(1, q.PerPage, maxStatsPerPage)

	return s.ListCourseStatsPage(ctx, q)
}

/*
Recomputes a user's stats for one course from their content and overwrites
the stored row. The recount only sees content whose anonymity flags are both
false, which is the same filter the incremental deltas apply, so a rebuild
always converges to what the deltas would have produced.

Flag counts are counts of distinct flagged content items, not of flag rows;
a comment flagged by three users contributes one.
*/
func RebuildStats(ctx context.Context, s Store, userID, courseID string) error {
	threads, err := s.ListAuthorThreads(ctx, userID, courseID)
	if err != nil {
		return oops.New(err, "failed to list user's threads")
	}
	comments, err := s.ListAuthorComments(ctx, userID, courseID)
	if err != nil {
		return oops.New(err, "failed to list user's comments")
	}

	stat := models.CourseStat{
		UserID:   userID,
		CourseID: courseID,
		Threads:  len(threads),
	}

	var refs []models.ContentRef
	var lastActivity *time.Time
	bump := func(t time.Time) {
		if lastActivity == nil || t.After(*lastActivity) {
			tt := t
			lastActivity = &tt
		}
	}

	for _, t := range threads {
		refs = append(refs, t.Ref())
		bump(t.UpdatedAt)
	}
	for _, c := range comments {
		refs = append(refs, c.Ref())
		bump(c.UpdatedAt)
		if c.IsRoot() {
			stat.Responses++
		} else {
			stat.Replies++
		}
	}
	stat.LastActivityAt = lastActivity

	stat.ActiveFlags, err = s.CountFlaggedContent(ctx, refs, false)
	if err != nil {
		return oops.New(err, "failed to count actively flagged content")
	}
	stat.InactiveFlags, err = s.CountFlaggedContent(ctx, refs, true)
	if err != nil {
		return oops.New(err, "failed to count historically flagged content")
	}

	err = s.SetCourseStats(ctx, &stat)
	if err != nil {
		return oops.New(err, "failed to store rebuilt stats")
	}
	return nil
}

// Rebuilds stats for every author in a course. One author failing does not
// stop the rest; failures are logged and counted. Returns the author ids
// that were processed and how many of them failed.
func RebuildCourseStats(ctx context.Context, s Store, courseID string) ([]string, int, error) {
	authors, err := s.ListCourseAuthors(ctx, courseID)
	if err != nil {
		return nil, 0, oops.New(err, "failed to list course authors")
	}

	numFailed := 0
	for _, authorID := range authors {
		err := RebuildStats(ctx, s, authorID, courseID)
		if err != nil {
			numFailed++
			logging.Error().
				Err(err).
				Str("user", authorID).
				Str("course", courseID).
				Msg("failed to rebuild user stats")
		}
	}
	return authors, numFailed, nil
}
