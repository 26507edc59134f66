package pgstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openedx/forum/src/db"
	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
)

const commentColumns = `
	id, author_id, author_username, retired_username, course_id, body,
	visible, anonymous, anonymous_to_peers, created_at, updated_at,
	thread_id, parent_id, depth, sort_key, child_count,
	endorsed, endorsement_user_id, endorsement_time
`

// The endorsement lives in two nullable columns rather than on the model,
// so comment rows carry them separately.
type commentRow struct {
	models.Comment
	EndorsementUserID *string    `db:"endorsement_user_id"`
	EndorsementTime   *time.Time `db:"endorsement_time"`
}

func (row *commentRow) toComment() *models.Comment {
	c := row.Comment
	if row.EndorsementUserID != nil && row.EndorsementTime != nil {
		c.Endorsement = &models.Endorsement{
			UserID: *row.EndorsementUserID,
			Time:   *row.EndorsementTime,
		}
	}
	return &c
}

func endorsementColumns(c *models.Comment) (*string, *time.Time) {
	if c.Endorsement == nil {
		return nil, nil
	}
	return &c.Endorsement.UserID, &c.Endorsement.Time
}

func (s *Store) InsertComment(ctx context.Context, c *models.Comment) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	endorsementUserID, endorsementTime := endorsementColumns(c)
	_, err := s.db.Exec(ctx,
		`
		INSERT INTO comment (
			id, author_id, author_username, retired_username, course_id, body,
			visible, anonymous, anonymous_to_peers, created_at, updated_at,
			thread_id, parent_id, depth, sort_key, child_count,
			endorsed, endorsement_user_id, endorsement_time
		)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16,
			$17, $18, $19
		)
		`,
		c.ID, c.AuthorID, c.AuthorUsername, c.RetiredUsername, c.CourseID, c.Body,
		c.Visible, c.Anonymous, c.AnonymousToPeers, c.CreatedAt, c.UpdatedAt,
		c.ThreadID, c.ParentID, c.Depth, c.SortKey, c.ChildCount,
		c.Endorsed, endorsementUserID, endorsementTime,
	)
	return err
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	row, err := db.QueryOne[commentRow](ctx, s.db,
		`SELECT `+commentColumns+` FROM comment WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return row.toComment(), nil
}

// Tree fields (depth, sort key, child count) are never rewritten here; they
// are fixed at insertion, with child counts maintained by AdjustChildCounts.
func (s *Store) UpdateComment(ctx context.Context, c *models.Comment) error {
	endorsementUserID, endorsementTime := endorsementColumns(c)
	tag, err := s.db.Exec(ctx,
		`
		UPDATE comment SET
			author_username = $2,
			retired_username = $3,
			body = $4,
			visible = $5,
			updated_at = $6,
			endorsed = $7,
			endorsement_user_id = $8,
			endorsement_time = $9
		WHERE id = $1
		`,
		c.ID,
		c.AuthorUsername, c.RetiredUsername, c.Body, c.Visible, c.UpdatedAt,
		c.Endorsed, endorsementUserID, endorsementTime,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return forumdata.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCommentRow(ctx context.Context, id string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"abuse_flag", "historical_abuse_flag", "user_vote"} {
		_, err = tx.Exec(ctx,
			`DELETE FROM `+table+` WHERE content_type = $1 AND content_id = $2`,
			models.ContentTypeComment, id,
		)
		if err != nil {
			return err
		}
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM subscription WHERE source_type = $1 AND source_id = $2`,
		models.ContentTypeComment, id,
	)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM comment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return forumdata.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *Store) ListThreadComments(ctx context.Context, q forumdata.CommentListQuery) ([]*models.Comment, int, error) {
	var countQuery db.QueryBuilder
	countQuery.Add(`SELECT COUNT(*) FROM comment WHERE thread_id = $?`, q.ThreadID)
	if q.TopLevelOnly {
		countQuery.Add(`AND parent_id IS NULL`)
	}
	total, err := db.QueryOneScalar[int](ctx, s.db, countQuery.String(), countQuery.Args()...)
	if err != nil {
		return nil, 0, err
	}

	var qb db.QueryBuilder
	qb.Add(`SELECT `+commentColumns+` FROM comment WHERE thread_id = $?`, q.ThreadID)
	if q.TopLevelOnly {
		qb.Add(`AND parent_id IS NULL`)
	}
	qb.Add(`ORDER BY sort_key`)
	if q.Descending {
		qb.Add(`DESC`)
	}
	qb.AddPagination(q.Limit, q.Offset)
	rows, err := db.Query[commentRow](ctx, s.db, qb.String(), qb.Args()...)
	if err != nil {
		return nil, 0, err
	}
	return commentsFromRows(rows), total, nil
}

func (s *Store) ListDescendants(ctx context.Context, c *models.Comment) ([]*models.Comment, error) {
	rows, err := db.Query[commentRow](ctx, s.db,
		`
		SELECT `+commentColumns+`
		FROM comment
		WHERE thread_id = $1 AND sort_key LIKE $2
		ORDER BY sort_key
		`,
		c.ThreadID, c.SortKey+".%",
	)
	if err != nil {
		return nil, err
	}
	return commentsFromRows(rows), nil
}

func (s *Store) CountRootComments(ctx context.Context, threadID string) (int, error) {
	return db.QueryOneScalar[int](ctx, s.db,
		`SELECT COUNT(*) FROM comment WHERE thread_id = $1 AND parent_id IS NULL`,
		threadID,
	)
}

func (s *Store) CountChildren(ctx context.Context, parentID string) (int, error) {
	return db.QueryOneScalar[int](ctx, s.db,
		`SELECT COUNT(*) FROM comment WHERE parent_id = $1`,
		parentID,
	)
}

func (s *Store) AdjustChildCounts(ctx context.Context, ids []string, delta int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx,
		`UPDATE comment SET child_count = child_count + $2 WHERE id = ANY ($1)`,
		ids, delta,
	)
	return err
}

func (s *Store) ListCourseComments(ctx context.Context, courseID string, limit, offset int) ([]*models.Comment, error) {
	var qb db.QueryBuilder
	qb.Add(
		`
		SELECT `+commentColumns+`
		FROM comment
		WHERE course_id = $?
		ORDER BY created_at, id
		`,
		courseID,
	)
	qb.AddPagination(limit, offset)
	rows, err := db.Query[commentRow](ctx, s.db, qb.String(), qb.Args()...)
	if err != nil {
		return nil, err
	}
	return commentsFromRows(rows), nil
}

func (s *Store) ListAuthorComments(ctx context.Context, authorID, courseID string) ([]*models.Comment, error) {
	rows, err := db.Query[commentRow](ctx, s.db,
		`
		SELECT `+commentColumns+`
		FROM comment
		WHERE author_id = $1
			AND course_id = $2
			AND NOT anonymous
			AND NOT anonymous_to_peers
		ORDER BY created_at, id
		`,
		authorID, courseID,
	)
	if err != nil {
		return nil, err
	}
	return commentsFromRows(rows), nil
}

func commentsFromRows(rows []*commentRow) []*models.Comment {
	comments := make([]*models.Comment, len(rows))
	for i, row := range rows {
		comments[i] = row.toComment()
	}
	return comments
}
