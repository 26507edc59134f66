package pgstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/openedx/forum/src/db"
	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
)

const threadColumns = `
	id, author_id, author_username, retired_username, course_id, body,
	visible, anonymous, anonymous_to_peers, created_at, updated_at,
	title, thread_type, context, closed, closed_by_id, close_reason_code,
	pinned, commentable_id, last_activity_at
`

func (s *Store) InsertThread(ctx context.Context, t *models.Thread) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	_, err := s.db.Exec(ctx,
		`
		INSERT INTO thread (
			id, author_id, author_username, retired_username, course_id, body,
			visible, anonymous, anonymous_to_peers, created_at, updated_at,
			title, thread_type, context, closed, closed_by_id, close_reason_code,
			pinned, commentable_id, last_activity_at
		)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17,
			$18, $19, $20
		)
		`,
		t.ID, t.AuthorID, t.AuthorUsername, t.RetiredUsername, t.CourseID, t.Body,
		t.Visible, t.Anonymous, t.AnonymousToPeers, t.CreatedAt, t.UpdatedAt,
		t.Title, t.ThreadType, t.Context, t.Closed, t.ClosedByID, t.CloseReason,
		t.Pinned, t.CommentableID, t.LastActivityAt,
	)
	return err
}

func (s *Store) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	t, err := db.QueryOne[models.Thread](ctx, s.db,
		`SELECT `+threadColumns+` FROM thread WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return t, nil
}

func (s *Store) UpdateThread(ctx context.Context, t *models.Thread) error {
	tag, err := s.db.Exec(ctx,
		`
		UPDATE thread SET
			author_username = $2,
			retired_username = $3,
			body = $4,
			visible = $5,
			updated_at = $6,
			title = $7,
			closed = $8,
			closed_by_id = $9,
			close_reason_code = $10,
			pinned = $11,
			commentable_id = $12,
			last_activity_at = $13
		WHERE id = $1
		`,
		t.ID,
		t.AuthorUsername, t.RetiredUsername, t.Body, t.Visible, t.UpdatedAt,
		t.Title, t.Closed, t.ClosedByID, t.CloseReason, t.Pinned,
		t.CommentableID, t.LastActivityAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return forumdata.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteThreadRow(ctx context.Context, id string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	commentIDs, err := db.QueryScalar[string](ctx, tx,
		`SELECT id FROM comment WHERE thread_id = $1`,
		id,
	)
	if err != nil {
		return err
	}

	for _, table := range []string{"abuse_flag", "historical_abuse_flag", "user_vote"} {
		_, err = tx.Exec(ctx,
			`
			DELETE FROM `+table+`
			WHERE (content_type = $1 AND content_id = $2)
			OR (content_type = $3 AND content_id = ANY ($4))
			`,
			models.ContentTypeThread, id, models.ContentTypeComment, commentIDs,
		)
		if err != nil {
			return err
		}
	}
	_, err = tx.Exec(ctx,
		`
		DELETE FROM subscription
		WHERE (source_type = $1 AND source_id = $2)
		OR (source_type = $3 AND source_id = ANY ($4))
		`,
		models.ContentTypeThread, id, models.ContentTypeComment, commentIDs,
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `DELETE FROM last_read_time WHERE thread_id = $1`, id)
	if err != nil {
		return err
	}

	// Comments go with the thread through the foreign key cascade.
	tag, err := tx.Exec(ctx, `DELETE FROM thread WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return forumdata.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *Store) ListCourseThreads(ctx context.Context, courseID string, limit, offset int) ([]*models.Thread, error) {
	var qb db.QueryBuilder
	qb.Add(
		`
		SELECT `+threadColumns+`
		FROM thread
		WHERE course_id = $?
		ORDER BY created_at, id
		`,
		courseID,
	)
	qb.AddPagination(limit, offset)
	return db.Query[models.Thread](ctx, s.db, qb.String(), qb.Args()...)
}

func (s *Store) ListAuthorThreads(ctx context.Context, authorID, courseID string) ([]*models.Thread, error) {
	return db.Query[models.Thread](ctx, s.db,
		`
		SELECT `+threadColumns+`
		FROM thread
		WHERE author_id = $1
			AND course_id = $2
			AND NOT anonymous
			AND NOT anonymous_to_peers
		ORDER BY created_at, id
		`,
		authorID, courseID,
	)
}

func (s *Store) CountThreadComments(ctx context.Context, threadID string) (int, error) {
	return db.QueryOneScalar[int](ctx, s.db,
		`SELECT COUNT(*) FROM comment WHERE thread_id = $1`,
		threadID,
	)
}

func (s *Store) ListCourseIDs(ctx context.Context) ([]string, error) {
	return db.QueryScalar[string](ctx, s.db,
		`SELECT DISTINCT course_id FROM thread ORDER BY course_id`,
	)
}

func (s *Store) CommentableCounts(ctx context.Context, courseID string) (map[string]models.CommentableCount, error) {
	type commentableRow struct {
		CommentableID string            `db:"commentable_id"`
		ThreadType    models.ThreadType `db:"thread_type"`
		Count         int               `db:"count"`
	}
	rows, err := db.Query[commentableRow](ctx, s.db,
		`
		SELECT commentable_id, thread_type, COUNT(*) AS count
		FROM thread
		WHERE course_id = $1 AND commentable_id IS NOT NULL
		GROUP BY commentable_id, thread_type
		`,
		courseID,
	)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]models.CommentableCount)
	for _, row := range rows {
		c := counts[row.CommentableID]
		switch row.ThreadType {
		case models.ThreadTypeDiscussion:
			c.Discussion = row.Count
		case models.ThreadTypeQuestion:
			c.Question = row.Count
		}
		counts[row.CommentableID] = c
	}
	return counts, nil
}
