package pgstore

import (
	"context"

	"github.com/openedx/forum/src/db"
	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
)

func (s *Store) CountCourseData(ctx context.Context, courseID string) (*forumdata.CourseDataCounts, error) {
	return s.countCourseData(ctx, s.db, courseID)
}

func (s *Store) DeleteCourseData(ctx context.Context, courseID string) (*forumdata.CourseDataCounts, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	counts, err := s.countCourseData(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}

	for _, table := range []string{"abuse_flag", "historical_abuse_flag", "user_vote"} {
		_, err = tx.Exec(ctx,
			`
			DELETE FROM `+table+`
			WHERE (content_type = $1 AND content_id IN (SELECT id FROM thread WHERE course_id = $3))
			OR (content_type = $2 AND content_id IN (SELECT id FROM comment WHERE course_id = $3))
			`,
			models.ContentTypeThread, models.ContentTypeComment, courseID,
		)
		if err != nil {
			return nil, err
		}
	}
	_, err = tx.Exec(ctx,
		`
		DELETE FROM subscription
		WHERE (source_type = $1 AND source_id IN (SELECT id FROM thread WHERE course_id = $3))
		OR (source_type = $2 AND source_id IN (SELECT id FROM comment WHERE course_id = $3))
		`,
		models.ContentTypeThread, models.ContentTypeComment, courseID,
	)
	if err != nil {
		return nil, err
	}
	for _, query := range []string{
		`DELETE FROM last_read_time WHERE course_id = $1`,
		`DELETE FROM course_stat WHERE course_id = $1`,
		`DELETE FROM comment WHERE course_id = $1`,
		`DELETE FROM thread WHERE course_id = $1`,
	} {
		_, err = tx.Exec(ctx, query, courseID)
		if err != nil {
			return nil, err
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Store) countCourseData(ctx context.Context, conn db.ConnOrTx, courseID string) (*forumdata.CourseDataCounts, error) {
	counts := &forumdata.CourseDataCounts{}
	var err error

	counts.Threads, err = db.QueryOneScalar[int](ctx, conn,
		`SELECT COUNT(*) FROM thread WHERE course_id = $1`, courseID)
	if err != nil {
		return nil, err
	}
	counts.Comments, err = db.QueryOneScalar[int](ctx, conn,
		`SELECT COUNT(*) FROM comment WHERE course_id = $1`, courseID)
	if err != nil {
		return nil, err
	}
	counts.Subscriptions, err = db.QueryOneScalar[int](ctx, conn,
		`
		SELECT COUNT(*)
		FROM subscription
		WHERE (source_type = $1 AND source_id IN (SELECT id FROM thread WHERE course_id = $3))
		OR (source_type = $2 AND source_id IN (SELECT id FROM comment WHERE course_id = $3))
		`,
		models.ContentTypeThread, models.ContentTypeComment, courseID,
	)
	if err != nil {
		return nil, err
	}
	counts.CourseStats, err = db.QueryOneScalar[int](ctx, conn,
		`SELECT COUNT(*) FROM course_stat WHERE course_id = $1`, courseID)
	if err != nil {
		return nil, err
	}
	counts.ReadStates, err = db.QueryOneScalar[int](ctx, conn,
		`SELECT COUNT(DISTINCT user_id) FROM last_read_time WHERE course_id = $1`, courseID)
	if err != nil {
		return nil, err
	}
	return counts, nil
}
