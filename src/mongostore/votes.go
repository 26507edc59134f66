package mongostore

import (
	"context"
	"sort"

	"github.com/openedx/forum/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) SetVote(ctx context.Context, ref models.ContentRef, userID string, vote int) error {
	_, err := s.contents.UpdateOne(ctx,
		bson.M{"_id": ref.ID, "_type": ref.Type},
		bson.M{"$set": bson.M{"votes." + userID: vote}},
	)
	return err
}

func (s *Store) RemoveVote(ctx context.Context, ref models.ContentRef, userID string) (bool, error) {
	result, err := s.contents.UpdateOne(ctx,
		bson.M{"_id": ref.ID, "_type": ref.Type},
		bson.M{"$unset": bson.M{"votes." + userID: ""}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (s *Store) ListVotes(ctx context.Context, ref models.ContentRef) ([]models.Vote, error) {
	var doc struct {
		Votes map[string]int `bson:"votes"`
	}
	err := s.contents.FindOne(ctx,
		bson.M{"_id": ref.ID, "_type": ref.Type},
		options.FindOne().SetProjection(bson.M{"votes": 1}),
	).Decode(&doc)
	if err != nil {
		return nil, translateNoDocuments(err)
	}

	userIDs := make([]string, 0, len(doc.Votes))
	for userID := range doc.Votes {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	var votes []models.Vote
	for _, userID := range userIDs {
		votes = append(votes, models.Vote{
			ContentType: ref.Type,
			ContentID:   ref.ID,
			UserID:      userID,
			Vote:        doc.Votes[userID],
		})
	}
	return votes, nil
}
