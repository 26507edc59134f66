package pgstore

import (
	"context"

	"github.com/openedx/forum/src/db"
	"github.com/openedx/forum/src/models"
)

func (s *Store) SetVote(ctx context.Context, ref models.ContentRef, userID string, vote int) error {
	_, err := s.db.Exec(ctx,
		`
		INSERT INTO user_vote (content_type, content_id, user_id, vote)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (content_type, content_id, user_id) DO UPDATE SET
			vote = EXCLUDED.vote
		`,
		ref.Type, ref.ID, userID, vote,
	)
	return err
}

func (s *Store) RemoveVote(ctx context.Context, ref models.ContentRef, userID string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM user_vote WHERE content_type = $1 AND content_id = $2 AND user_id = $3`,
		ref.Type, ref.ID, userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListVotes(ctx context.Context, ref models.ContentRef) ([]models.Vote, error) {
	votes, err := db.Query[models.Vote](ctx, s.db,
		`
		SELECT content_type, content_id, user_id, vote
		FROM user_vote
		WHERE content_type = $1 AND content_id = $2
		ORDER BY user_id
		`,
		ref.Type, ref.ID,
	)
	if err != nil {
		return nil, err
	}

	result := make([]models.Vote, len(votes))
	for i, v := range votes {
		result[i] = *v
	}
	return result, nil
}
