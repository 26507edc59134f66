package mongostore

import (
	"context"
	"sort"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertThread(ctx context.Context, t *models.Thread) error {
	if t.ID == "" {
		t.ID = primitive.NewObjectID().Hex()
	}
	_, err := s.contents.InsertOne(ctx, threadToDoc(t))
	return err
}

func (s *Store) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	var doc contentDoc
	err := s.contents.FindOne(ctx,
		bson.M{"_id": id, "_type": models.ContentTypeThread},
	).Decode(&doc)
	if err != nil {
		return nil, translateNoDocuments(err)
	}
	return doc.toThread(), nil
}

func (s *Store) UpdateThread(ctx context.Context, t *models.Thread) error {
	result, err := s.contents.UpdateOne(ctx,
		bson.M{"_id": t.ID, "_type": models.ContentTypeThread},
		bson.M{"$set": bson.M{
			"author_username":   t.AuthorUsername,
			"retired_username":  t.RetiredUsername,
			"body":              t.Body,
			"visible":           t.Visible,
			"updated_at":        t.UpdatedAt,
			"title":             t.Title,
			"closed":            t.Closed,
			"closed_by_id":      t.ClosedByID,
			"close_reason_code": t.CloseReason,
			"pinned":            t.Pinned,
			"commentable_id":    t.CommentableID,
			"last_activity_at":  t.LastActivityAt,
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return forumdata.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteThreadRow(ctx context.Context, id string) error {
	t, err := s.GetThread(ctx, id)
	if err != nil {
		return err
	}

	commentIDs, err := s.contentIDs(ctx, bson.M{"comment_thread_id": id})
	if err != nil {
		return err
	}
	contentIDs := append([]string{id}, commentIDs...)

	_, err = s.contents.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": contentIDs}})
	if err != nil {
		return err
	}
	_, err = s.subscriptions.DeleteMany(ctx, bson.M{"source_id": bson.M{"$in": contentIDs}})
	if err != nil {
		return err
	}
	_, err = s.users.UpdateMany(ctx,
		bson.M{"read_states.course_id": t.CourseID},
		bson.M{"$unset": bson.M{"read_states.$[state].last_read_times." + id: ""}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"state.course_id": t.CourseID}},
		}),
	)
	return err
}

func (s *Store) ListCourseThreads(ctx context.Context, courseID string, limit, offset int) ([]*models.Thread, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts = opts.SetSkip(int64(offset)).SetLimit(int64(limit))
	}
	docs, err := s.findContent(ctx,
		bson.M{"_type": models.ContentTypeThread, "course_id": courseID},
		opts,
	)
	if err != nil {
		return nil, err
	}

	threads := make([]*models.Thread, len(docs))
	for i := range docs {
		threads[i] = docs[i].toThread()
	}
	return threads, nil
}

func (s *Store) ListAuthorThreads(ctx context.Context, authorID, courseID string) ([]*models.Thread, error) {
	docs, err := s.findContent(ctx,
		bson.M{
			"_type":              models.ContentTypeThread,
			"author_id":          authorID,
			"course_id":          courseID,
			"anonymous":          false,
			"anonymous_to_peers": false,
		},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}

	threads := make([]*models.Thread, len(docs))
	for i := range docs {
		threads[i] = docs[i].toThread()
	}
	return threads, nil
}

func (s *Store) CountThreadComments(ctx context.Context, threadID string) (int, error) {
	count, err := s.contents.CountDocuments(ctx, bson.M{"comment_thread_id": threadID})
	return int(count), err
}

func (s *Store) ListCourseIDs(ctx context.Context) ([]string, error) {
	values, err := s.contents.Distinct(ctx, "course_id", bson.M{"_type": models.ContentTypeThread})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) CommentableCounts(ctx context.Context, courseID string) (map[string]models.CommentableCount, error) {
	cursor, err := s.contents.Aggregate(ctx, []bson.M{
		{"$match": bson.M{
			"_type":          models.ContentTypeThread,
			"course_id":      courseID,
			"commentable_id": bson.M{"$exists": true, "$ne": nil},
		}},
		{"$group": bson.M{
			"_id":   bson.M{"commentable_id": "$commentable_id", "thread_type": "$thread_type"},
			"count": bson.M{"$sum": 1},
		}},
	})
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Key struct {
			CommentableID string            `bson:"commentable_id"`
			ThreadType    models.ThreadType `bson:"thread_type"`
		} `bson:"_id"`
		Count int `bson:"count"`
	}
	err = cursor.All(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]models.CommentableCount)
	for _, row := range rows {
		c := counts[row.Key.CommentableID]
		switch row.Key.ThreadType {
		case models.ThreadTypeDiscussion:
			c.Discussion = row.Count
		case models.ThreadTypeQuestion:
			c.Question = row.Count
		}
		counts[row.Key.CommentableID] = c
	}
	return counts, nil
}

func (s *Store) findContent(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]contentDoc, error) {
	cursor, err := s.contents.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []contentDoc
	err = cursor.All(ctx, &docs)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) contentIDs(ctx context.Context, filter bson.M) ([]string, error) {
	cursor, err := s.contents.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
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
	return ids, nil
}
