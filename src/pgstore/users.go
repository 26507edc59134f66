package pgstore

import (
	"context"

	"github.com/openedx/forum/src/db"
	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
)

const userColumns = `id, username, email, default_sort_key`

func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	_, err := s.db.Exec(ctx,
		`
		INSERT INTO forum_user (id, username, email, default_sort_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			default_sort_key = EXCLUDED.default_sort_key
		`,
		u.ID, u.Username, u.Email, u.DefaultSortKey,
	)
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := db.QueryOne[models.User](ctx, s.db,
		`SELECT `+userColumns+` FROM forum_user WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := db.QueryOne[models.User](ctx, s.db,
		`SELECT `+userColumns+` FROM forum_user WHERE username = $1`,
		username,
	)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return u, nil
}

func (s *Store) ReplaceAuthorUsername(ctx context.Context, userID, username string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE forum_user SET username = $2 WHERE id = $1`,
		userID, username,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return forumdata.ErrNotFound
	}
	_, err = tx.Exec(ctx,
		`UPDATE thread SET author_username = $2 WHERE author_id = $1`,
		userID, username,
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE comment SET author_username = $2 WHERE author_id = $1`,
		userID, username,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) RetireAuthorContent(ctx context.Context, userID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`
		UPDATE thread
		SET title = $2, body = $3, retired_username = $4
		WHERE author_id = $1
		`,
		userID, models.RetiredTitle, models.RetiredBody, models.RetiredUsername,
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`
		UPDATE comment
		SET body = $2, retired_username = $3
		WHERE author_id = $1
		`,
		userID, models.RetiredBody, models.RetiredUsername,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListCourseUserIDs(ctx context.Context, courseID string) ([]string, error) {
	return db.QueryScalar[string](ctx, s.db,
		`
		SELECT user_id FROM course_stat WHERE course_id = $1
		UNION
		SELECT user_id FROM last_read_time WHERE course_id = $1
		ORDER BY user_id
		`,
		courseID,
	)
}
