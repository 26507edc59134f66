package pgstore

import (
	"context"
	"time"

	"github.com/openedx/forum/src/db"
	"github.com/openedx/forum/src/models"
)

const subscriptionColumns = `subscriber_id, source_type, source_id, created_at, updated_at`

func (s *Store) Subscribe(ctx context.Context, subscriberID string, ref models.ContentRef) (*models.Subscription, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx,
		`
		INSERT INTO subscription (subscriber_id, source_type, source_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT DO NOTHING
		`,
		subscriberID, ref.Type, ref.ID, now,
	)
	if err != nil {
		return nil, err
	}

	sub, err := db.QueryOne[models.Subscription](ctx, s.db,
		`
		SELECT `+subscriptionColumns+`
		FROM subscription
		WHERE subscriber_id = $1 AND source_type = $2 AND source_id = $3
		`,
		subscriberID, ref.Type, ref.ID,
	)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return sub, nil
}

func (s *Store) Unsubscribe(ctx context.Context, subscriberID string, ref models.ContentRef) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM subscription WHERE subscriber_id = $1 AND source_type = $2 AND source_id = $3`,
		subscriberID, ref.Type, ref.ID,
	)
	return err
}

func (s *Store) ListSubscribers(ctx context.Context, ref models.ContentRef) ([]*models.Subscription, error) {
	return db.Query[models.Subscription](ctx, s.db,
		`
		SELECT `+subscriptionColumns+`
		FROM subscription
		WHERE source_type = $1 AND source_id = $2
		ORDER BY subscriber_id
		`,
		ref.Type, ref.ID,
	)
}

func (s *Store) ListUserSubscriptions(ctx context.Context, subscriberID string) ([]*models.Subscription, error) {
	return db.Query[models.Subscription](ctx, s.db,
		`
		SELECT `+subscriptionColumns+`
		FROM subscription
		WHERE subscriber_id = $1
		ORDER BY source_id
		`,
		subscriberID,
	)
}

func (s *Store) DeleteSubscriptionsFor(ctx context.Context, ref models.ContentRef) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM subscription WHERE source_type = $1 AND source_id = $2`,
		ref.Type, ref.ID,
	)
	return err
}

func (s *Store) UnsubscribeAll(ctx context.Context, subscriberID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM subscription WHERE subscriber_id = $1`,
		subscriberID,
	)
	return err
}
