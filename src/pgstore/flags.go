package pgstore

import (
	"context"
	"time"

	"github.com/openedx/forum/src/db"
	"github.com/openedx/forum/src/models"
)

func (s *Store) AddActiveFlag(ctx context.Context, ref models.ContentRef, userID string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`
		INSERT INTO abuse_flag (content_type, content_id, user_id, flagged_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		`,
		ref.Type, ref.ID, userID, at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) RemoveActiveFlag(ctx context.Context, ref models.ContentRef, userID string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM abuse_flag WHERE content_type = $1 AND content_id = $2 AND user_id = $3`,
		ref.Type, ref.ID, userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) RemoveAllActiveFlags(ctx context.Context, ref models.ContentRef) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM abuse_flag WHERE content_type = $1 AND content_id = $2`,
		ref.Type, ref.ID,
	)
	return err
}

func (s *Store) ListActiveFlaggers(ctx context.Context, ref models.ContentRef) ([]string, error) {
	return db.QueryScalar[string](ctx, s.db,
		`
		SELECT user_id
		FROM abuse_flag
		WHERE content_type = $1 AND content_id = $2
		ORDER BY user_id
		`,
		ref.Type, ref.ID,
	)
}

func (s *Store) ListActiveFlags(ctx context.Context, ref models.ContentRef) ([]models.AbuseFlag, error) {
	flags, err := db.Query[models.AbuseFlag](ctx, s.db,
		`
		SELECT content_type, content_id, user_id, flagged_at
		FROM abuse_flag
		WHERE content_type = $1 AND content_id = $2
		ORDER BY user_id
		`,
		ref.Type, ref.ID,
	)
	if err != nil {
		return nil, err
	}
	res := make([]models.AbuseFlag, len(flags))
	for i, f := range flags {
		res[i] = *f
	}
	return res, nil
}

func (s *Store) AddHistoricalFlag(ctx context.Context, ref models.ContentRef, userID string, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`
		INSERT INTO historical_abuse_flag (content_type, content_id, user_id, flagged_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		`,
		ref.Type, ref.ID, userID, at,
	)
	return err
}

func (s *Store) ListHistoricalFlaggers(ctx context.Context, ref models.ContentRef) ([]string, error) {
	return db.QueryScalar[string](ctx, s.db,
		`
		SELECT user_id
		FROM historical_abuse_flag
		WHERE content_type = $1 AND content_id = $2
		ORDER BY user_id
		`,
		ref.Type, ref.ID,
	)
}

func (s *Store) ListHistoricalFlags(ctx context.Context, ref models.ContentRef) ([]models.HistoricalAbuseFlag, error) {
	flags, err := db.Query[models.HistoricalAbuseFlag](ctx, s.db,
		`
		SELECT content_type, content_id, user_id, flagged_at
		FROM historical_abuse_flag
		WHERE content_type = $1 AND content_id = $2
		ORDER BY user_id
		`,
		ref.Type, ref.ID,
	)
	if err != nil {
		return nil, err
	}
	res := make([]models.HistoricalAbuseFlag, len(flags))
	for i, f := range flags {
		res[i] = *f
	}
	return res, nil
}

func (s *Store) CountFlaggedContent(ctx context.Context, refs []models.ContentRef, historical bool) (int, error) {
	if len(refs) == 0 {
		return 0, nil
	}
	types := make([]string, len(refs))
	ids := make([]string, len(refs))
	for i, ref := range refs {
		types[i] = string(ref.Type)
		ids[i] = ref.ID
	}

	table := "abuse_flag"
	if historical {
		table = "historical_abuse_flag"
	}
	return db.QueryOneScalar[int](ctx, s.db,
		`
		SELECT COUNT(DISTINCT (content_type, content_id))
		FROM `+table+`
		WHERE (content_type, content_id) IN (
			SELECT * FROM unnest($1::text[], $2::text[])
		)
		`,
		types, ids,
	)
}
