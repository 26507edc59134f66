package mongostore

import (
	"context"
	"sort"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	// $setOnInsert keeps existing embedded stats and read states intact
	// when the user already exists.
	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{
			"$set": bson.M{
				"username":         u.Username,
				"email":            u.Email,
				"default_sort_key": u.DefaultSortKey,
			},
			"$setOnInsert": bson.M{
				"course_stats": []courseStatDoc{},
				"read_states":  []readStateDoc{},
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		return nil, translateNoDocuments(err)
	}
	return doc.toUser(), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if err != nil {
		return nil, translateNoDocuments(err)
	}
	return doc.toUser(), nil
}

func (s *Store) ReplaceAuthorUsername(ctx context.Context, userID, username string) error {
	result, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"username": username}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return forumdata.ErrNotFound
	}
	_, err = s.contents.UpdateMany(ctx,
		bson.M{"author_id": userID},
		bson.M{"$set": bson.M{"author_username": username}},
	)
	return err
}

func (s *Store) RetireAuthorContent(ctx context.Context, userID string) error {
	_, err := s.contents.UpdateMany(ctx,
		bson.M{"author_id": userID, "_type": models.ContentTypeThread},
		bson.M{"$set": bson.M{
			"title":            models.RetiredTitle,
			"body":             models.RetiredBody,
			"retired_username": models.RetiredUsername,
		}},
	)
	if err != nil {
		return err
	}
	_, err = s.contents.UpdateMany(ctx,
		bson.M{"author_id": userID, "_type": models.ContentTypeComment},
		bson.M{"$set": bson.M{
			"body":             models.RetiredBody,
			"retired_username": models.RetiredUsername,
		}},
	)
	return err
}

func (s *Store) ListCourseUserIDs(ctx context.Context, courseID string) ([]string, error) {
	cursor, err := s.users.Find(ctx,
		bson.M{"$or": bson.A{
			bson.M{"course_stats.course_id": courseID},
			bson.M{"read_states.course_id": courseID},
		}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}

	var docs []struct {
		ID string `bson:"_id"`
	}
	err = cursor.All(ctx, &docs)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	sort.Strings(ids)
	return ids, nil
}
