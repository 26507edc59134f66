package forumdata

import (
	"context"

	"github.com/openedx/forum/src/models"
	"github.com/openedx/forum/src/oops"
)

// Subscribes a user to a thread's updates. Subscribing twice returns the
// existing subscription.
func SubscribeUser(ctx context.Context, s Store, userID string, ref models.ContentRef) (*models.Subscription, error) {
	_, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	_, err = GetContent(ctx, s, ref)
	if err != nil {
		return nil, err
	}

	sub, err := s.Subscribe(ctx, userID, ref)
	if err != nil {
		return nil, oops.New(err, "failed to subscribe user")
	}
	return sub, nil
}

// Unsubscribing when not subscribed is a no-op.
func UnsubscribeUser(ctx context.Context, s Store, userID string, ref models.ContentRef) error {
	err := s.Unsubscribe(ctx, userID, ref)
	if err != nil {
		return oops.New(err, "failed to unsubscribe user")
	}
	return nil
}

func GetSubscribers(ctx context.Context, s Store, ref models.ContentRef) ([]*models.Subscription, error) {
	return s.ListSubscribers(ctx, ref)
}
