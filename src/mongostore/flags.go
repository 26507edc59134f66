package mongostore

import (
	"context"
	"sort"
	"time"

	"github.com/openedx/forum/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The $ne guard makes the push conditional on the user not being in the
// array yet, which is what makes double-flagging a no-op.
func (s *Store) AddActiveFlag(ctx context.Context, ref models.ContentRef, userID string, at time.Time) (bool, error) {
	result, err := s.contents.UpdateOne(ctx,
		bson.M{
			"_id":                    ref.ID,
			"_type":                  ref.Type,
			"abuse_flaggers.user_id": bson.M{"$ne": userID},
		},
		bson.M{"$push": bson.M{"abuse_flaggers": flagDoc{UserID: userID, FlaggedAt: at}}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (s *Store) RemoveActiveFlag(ctx context.Context, ref models.ContentRef, userID string) (bool, error) {
	result, err := s.contents.UpdateOne(ctx,
		bson.M{"_id": ref.ID, "_type": ref.Type},
		bson.M{"$pull": bson.M{"abuse_flaggers": bson.M{"user_id": userID}}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (s *Store) RemoveAllActiveFlags(ctx context.Context, ref models.ContentRef) error {
	_, err := s.contents.UpdateOne(ctx,
		bson.M{"_id": ref.ID, "_type": ref.Type},
		bson.M{"$set": bson.M{"abuse_flaggers": []flagDoc{}}},
	)
	return err
}

func (s *Store) ListActiveFlaggers(ctx context.Context, ref models.ContentRef) ([]string, error) {
	return s.listFlaggers(ctx, ref, "abuse_flaggers")
}

func (s *Store) AddHistoricalFlag(ctx context.Context, ref models.ContentRef, userID string, at time.Time) error {
	_, err := s.contents.UpdateOne(ctx,
		bson.M{
			"_id":                               ref.ID,
			"_type":                             ref.Type,
			"historical_abuse_flaggers.user_id": bson.M{"$ne": userID},
		},
		bson.M{"$push": bson.M{"historical_abuse_flaggers": flagDoc{UserID: userID, FlaggedAt: at}}},
	)
	return err
}

func (s *Store) ListHistoricalFlaggers(ctx context.Context, ref models.ContentRef) ([]string, error) {
	return s.listFlaggers(ctx, ref, "historical_abuse_flaggers")
}

func (s *Store) CountFlaggedContent(ctx context.Context, refs []models.ContentRef, historical bool) (int, error) {
	if len(refs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID
	}

	field := "abuse_flaggers"
	if historical {
		field = "historical_abuse_flaggers"
	}
	count, err := s.contents.CountDocuments(ctx, bson.M{
		"_id":        bson.M{"$in": ids},
		field + ".0": bson.M{"$exists": true},
	})
	return int(count), err
}

func (s *Store) ListActiveFlags(ctx context.Context, ref models.ContentRef) ([]models.AbuseFlag, error) {
	docs, err := s.listFlagDocs(ctx, ref, "abuse_flaggers")
	if err != nil {
		return nil, err
	}
	flags := make([]models.AbuseFlag, len(docs))
	for i, d := range docs {
		flags[i] = models.AbuseFlag{
			ContentType: ref.Type,
			ContentID:   ref.ID,
			UserID:      d.UserID,
			FlaggedAt:   d.FlaggedAt,
		}
	}
	return flags, nil
}

func (s *Store) ListHistoricalFlags(ctx context.Context, ref models.ContentRef) ([]models.HistoricalAbuseFlag, error) {
	docs, err := s.listFlagDocs(ctx, ref, "historical_abuse_flaggers")
	if err != nil {
		return nil, err
	}
	flags := make([]models.HistoricalAbuseFlag, len(docs))
	for i, d := range docs {
		flags[i] = models.HistoricalAbuseFlag{
			ContentType: ref.Type,
			ContentID:   ref.ID,
			UserID:      d.UserID,
			FlaggedAt:   d.FlaggedAt,
		}
	}
	return flags, nil
}

func (s *Store) listFlaggers(ctx context.Context, ref models.ContentRef, field string) ([]string, error) {
	flags, err := s.listFlagDocs(ctx, ref, field)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(flags))
	for _, f := range flags {
		ids = append(ids, f.UserID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) listFlagDocs(ctx context.Context, ref models.ContentRef, field string) ([]flagDoc, error) {
	var doc struct {
		AbuseFlaggers           []flagDoc `bson:"abuse_flaggers"`
		HistoricalAbuseFlaggers []flagDoc `bson:"historical_abuse_flaggers"`
	}
	err := s.contents.FindOne(ctx,
		bson.M{"_id": ref.ID, "_type": ref.Type},
		options.FindOne().SetProjection(bson.M{field: 1}),
	).Decode(&doc)
	if err != nil {
		return nil, translateNoDocuments(err)
	}

	flags := doc.AbuseFlaggers
	if field == "historical_abuse_flaggers" {
		flags = doc.HistoricalAbuseFlaggers
	}
	return flags, nil
}
