package pgstore

import (
	"context"
	"errors"

	"github.com/openedx/forum/src/db"
	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const statColumns = `user_id, course_id, active_flags, inactive_flags, threads, responses, replies, last_activity_at`

// Stat rows hang off forum_user; writing one for a user who does not
// exist trips the foreign key (SQLSTATE 23503), which every engine
// reports as ErrNotFound.
func translateUserFK(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return forumdata.ErrNotFound
	}
	return err
}

// GREATEST ignores a NULL operand, so the max-merge works whether or not the
// row had a last activity yet.
func (s *Store) ApplyStatDelta(ctx context.Context, userID, courseID string, d models.StatDelta) error {
	if d.IsZero() {
		return nil
	}
	_, err := s.db.Exec(ctx,
		`
		INSERT INTO course_stat (`+statColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, course_id) DO UPDATE SET
			active_flags = course_stat.active_flags + EXCLUDED.active_flags,
			inactive_flags = course_stat.inactive_flags + EXCLUDED.inactive_flags,
			threads = course_stat.threads + EXCLUDED.threads,
			responses = course_stat.responses + EXCLUDED.responses,
			replies = course_stat.replies + EXCLUDED.replies,
			last_activity_at = GREATEST(course_stat.last_activity_at, EXCLUDED.last_activity_at)
		`,
		userID, courseID,
		d.ActiveFlags, d.InactiveFlags, d.Threads, d.Responses, d.Replies,
		d.LastActivityAt,
	)
	return translateUserFK(err)
}

func (s *Store) SetCourseStats(ctx context.Context, stat *models.CourseStat) error {
	_, err := s.db.Exec(ctx,
		`
		INSERT INTO course_stat (`+statColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, course_id) DO UPDATE SET
			active_flags = EXCLUDED.active_flags,
			inactive_flags = EXCLUDED.inactive_flags,
			threads = EXCLUDED.threads,
			responses = EXCLUDED.responses,
			replies = EXCLUDED.replies,
			last_activity_at = EXCLUDED.last_activity_at
		`,
		stat.UserID, stat.CourseID,
		stat.ActiveFlags, stat.InactiveFlags, stat.Threads, stat.Responses, stat.Replies,
		stat.LastActivityAt,
	)
	return translateUserFK(err)
}

func (s *Store) GetCourseStats(ctx context.Context, userID, courseID string) (*models.CourseStat, error) {
	stat, err := db.QueryOne[models.CourseStat](ctx, s.db,
		`SELECT `+statColumns+` FROM course_stat WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return &models.CourseStat{UserID: userID, CourseID: courseID}, nil
		}
		return nil, err
	}
	return stat, nil
}

func (s *Store) ListCourseStatsPage(ctx context.Context, q forumdata.CourseStatsQuery) ([]*models.UserCourseStats, int, error) {
	var countQuery db.QueryBuilder
	countQuery.Add(
		`
		SELECT COUNT(*)
		FROM course_stat
		JOIN forum_user ON forum_user.id = course_stat.user_id
		WHERE course_stat.course_id = $?
		`,
		q.CourseID,
	)
	if len(q.Usernames) > 0 {
		countQuery.Add(`AND forum_user.username = ANY ($?)`, q.Usernames)
	}
	total, err := db.QueryOneScalar[int](ctx, s.db, countQuery.String(), countQuery.Args()...)
	if err != nil {
		return nil, 0, err
	}

	var qb db.QueryBuilder
	qb.Add(
		`
		SELECT
			forum_user.id, forum_user.username, forum_user.email, forum_user.default_sort_key,
			course_stat.user_id, course_stat.course_id,
			course_stat.active_flags, course_stat.inactive_flags,
			course_stat.threads, course_stat.responses, course_stat.replies,
			course_stat.last_activity_at
		FROM course_stat
		JOIN forum_user ON forum_user.id = course_stat.user_id
		WHERE course_stat.course_id = $?
		`,
		q.CourseID,
	)
	if len(q.Usernames) > 0 {
		qb.Add(`AND forum_user.username = ANY ($?)`, q.Usernames)
	}
	switch q.Sort {
	case forumdata.StatsSortRecency:
		qb.Add(`ORDER BY course_stat.last_activity_at DESC NULLS LAST, forum_user.username DESC`)
	case forumdata.StatsSortFlagged:
		qb.Add(`ORDER BY course_stat.active_flags DESC, course_stat.inactive_flags DESC, forum_user.username DESC`)
	default:
		qb.Add(`ORDER BY course_stat.threads DESC, course_stat.responses DESC, course_stat.replies DESC, forum_user.username DESC`)
	}
	qb.AddPagination(q.PerPage, (q.Page-1)*q.PerPage)

	rows, err := db.Query[models.UserCourseStats](ctx, s.db, qb.String(), qb.Args()...)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *Store) ListCourseAuthors(ctx context.Context, courseID string) ([]string, error) {
	return db.QueryScalar[string](ctx, s.db,
		`
		SELECT author_id FROM thread
		WHERE course_id = $1 AND NOT anonymous AND NOT anonymous_to_peers
		UNION
		SELECT author_id FROM comment
		WHERE course_id = $1 AND NOT anonymous AND NOT anonymous_to_peers
		ORDER BY author_id
		`,
		courseID,
	)
}
