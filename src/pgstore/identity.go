package pgstore

import (
	"context"

	"github.com/openedx/forum/src/db"
	"github.com/openedx/forum/src/models"
)

func (s *Store) MapIdentity(ctx context.Context, sourceID string, ref models.ContentRef) error {
	_, err := s.db.Exec(ctx,
		`
		INSERT INTO content_mapping (source_id, content_type, content_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_id) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			content_id = EXCLUDED.content_id
		`,
		sourceID, ref.Type, ref.ID,
	)
	return err
}

func (s *Store) LookupIdentity(ctx context.Context, sourceID string) (models.ContentRef, error) {
	mapping, err := db.QueryOne[models.ContentMapping](ctx, s.db,
		`SELECT source_id, content_type, content_id FROM content_mapping WHERE source_id = $1`,
		sourceID,
	)
	if err != nil {
		return models.ContentRef{}, translateNotFound(err)
	}
	return mapping.Ref(), nil
}
