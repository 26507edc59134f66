package mongostore

import (
	"context"
	"time"

	"github.com/openedx/forum/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type subscriptionDoc struct {
	SubscriberID string             `bson:"subscriber_id"`
	SourceType   models.ContentType `bson:"source_type"`
	SourceID     string             `bson:"source_id"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (doc *subscriptionDoc) toSubscription() *models.Subscription {
	return &models.Subscription{
		SubscriberID: doc.SubscriberID,
		SourceType:   doc.SourceType,
		SourceID:     doc.SourceID,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func (s *Store) Subscribe(ctx context.Context, subscriberID string, ref models.ContentRef) (*models.Subscription, error) {
	now := time.Now().UTC()
	var doc subscriptionDoc
	err := s.subscriptions.FindOneAndUpdate(ctx,
		bson.M{
			"subscriber_id": subscriberID,
			"source_type":   ref.Type,
			"source_id":     ref.ID,
		},
		bson.M{"$setOnInsert": bson.M{
			"created_at": now,
			"updated_at": now,
		}},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return doc.toSubscription(), nil
}

func (s *Store) Unsubscribe(ctx context.Context, subscriberID string, ref models.ContentRef) error {
	_, err := s.subscriptions.DeleteOne(ctx, bson.M{
		"subscriber_id": subscriberID,
		"source_type":   ref.Type,
		"source_id":     ref.ID,
	})
	return err
}

func (s *Store) ListSubscribers(ctx context.Context, ref models.ContentRef) ([]*models.Subscription, error) {
	return s.findSubscriptions(ctx,
		bson.M{"source_type": ref.Type, "source_id": ref.ID},
		bson.D{{Key: "subscriber_id", Value: 1}},
	)
}

func (s *Store) ListUserSubscriptions(ctx context.Context, subscriberID string) ([]*models.Subscription, error) {
	return s.findSubscriptions(ctx,
		bson.M{"subscriber_id": subscriberID},
		bson.D{{Key: "source_id", Value: 1}},
	)
}

func (s *Store) DeleteSubscriptionsFor(ctx context.Context, ref models.ContentRef) error {
	_, err := s.subscriptions.DeleteMany(ctx, bson.M{"source_type": ref.Type, "source_id": ref.ID})
	return err
}

func (s *Store) UnsubscribeAll(ctx context.Context, subscriberID string) error {
	_, err := s.subscriptions.DeleteMany(ctx, bson.M{"subscriber_id": subscriberID})
	return err
}

func (s *Store) findSubscriptions(ctx context.Context, filter bson.M, sortSpec bson.D) ([]*models.Subscription, error) {
	cursor, err := s.subscriptions.Find(ctx, filter, options.Find().SetSort(sortSpec))
	if err != nil {
		return nil, err
	}
	var docs []subscriptionDoc
	err = cursor.All(ctx, &docs)
	if err != nil {
		return nil, err
	}

	subs := make([]*models.Subscription, len(docs))
	for i := range docs {
		subs[i] = docs[i].toSubscription()
	}
	return subs, nil
}
