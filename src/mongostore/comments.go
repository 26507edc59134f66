package mongostore

import (
	"context"
	"regexp"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertComment(ctx context.Context, c *models.Comment) error {
	if c.ID == "" {
		c.ID = primitive.NewObjectID().Hex()
	}
	_, err := s.contents.InsertOne(ctx, commentToDoc(c))
	return err
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var doc contentDoc
	err := s.contents.FindOne(ctx,
		bson.M{"_id": id, "_type": models.ContentTypeComment},
	).Decode(&doc)
	if err != nil {
		return nil, translateNoDocuments(err)
	}
	return doc.toComment(), nil
}

func (s *Store) UpdateComment(ctx context.Context, c *models.Comment) error {
	set := bson.M{
		"author_username":  c.AuthorUsername,
		"retired_username": c.RetiredUsername,
		"body":             c.Body,
		"visible":          c.Visible,
		"updated_at":       c.UpdatedAt,
		"endorsed":         c.Endorsed,
	}
	update := bson.M{"$set": set}
	if c.Endorsement != nil {
		set["endorsement"] = endorsementDoc{
			UserID: c.Endorsement.UserID,
			Time:   c.Endorsement.Time,
		}
	} else {
		update["$unset"] = bson.M{"endorsement": ""}
	}

	result, err := s.contents.UpdateOne(ctx,
		bson.M{"_id": c.ID, "_type": models.ContentTypeComment},
		update,
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return forumdata.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCommentRow(ctx context.Context, id string) error {
	result, err := s.contents.DeleteOne(ctx,
		bson.M{"_id": id, "_type": models.ContentTypeComment},
	)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return forumdata.ErrNotFound
	}
	_, err = s.subscriptions.DeleteMany(ctx, bson.M{"source_id": id})
	return err
}

func (s *Store) ListThreadComments(ctx context.Context, q forumdata.CommentListQuery) ([]*models.Comment, int, error) {
	filter := bson.M{
		"_type":             models.ContentTypeComment,
		"comment_thread_id": q.ThreadID,
	}
	if q.TopLevelOnly {
		filter["parent_id"] = bson.M{"$exists": false}
	}

	total, err := s.contents.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	order := 1
	if q.Descending {
		order = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "sk", Value: order}})
	if q.Limit > 0 {
		opts = opts.SetSkip(int64(q.Offset)).SetLimit(int64(q.Limit))
	}
	docs, err := s.findContent(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return commentsFromDocs(docs), int(total), nil
}

func (s *Store) ListDescendants(ctx context.Context, c *models.Comment) ([]*models.Comment, error) {
	docs, err := s.findContent(ctx,
		bson.M{
			"comment_thread_id": c.ThreadID,
			"sk":                bson.M{"$regex": "^" + regexp.QuoteMeta(c.SortKey+".")},
		},
		options.Find().SetSort(bson.D{{Key: "sk", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	return commentsFromDocs(docs), nil
}

func (s *Store) CountRootComments(ctx context.Context, threadID string) (int, error) {
	count, err := s.contents.CountDocuments(ctx, bson.M{
		"_type":             models.ContentTypeComment,
		"comment_thread_id": threadID,
		"parent_id":         bson.M{"$exists": false},
	})
	return int(count), err
}

func (s *Store) CountChildren(ctx context.Context, parentID string) (int, error) {
	count, err := s.contents.CountDocuments(ctx, bson.M{"parent_id": parentID})
	return int(count), err
}

func (s *Store) AdjustChildCounts(ctx context.Context, ids []string, delta int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.contents.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$inc": bson.M{"child_count": delta}},
	)
	return err
}

func (s *Store) ListCourseComments(ctx context.Context, courseID string, limit, offset int) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts = opts.SetSkip(int64(offset)).SetLimit(int64(limit))
	}
	docs, err := s.findContent(ctx,
		bson.M{"_type": models.ContentTypeComment, "course_id": courseID},
		opts,
	)
	if err != nil {
		return nil, err
	}
	return commentsFromDocs(docs), nil
}

func (s *Store) ListAuthorComments(ctx context.Context, authorID, courseID string) ([]*models.Comment, error) {
	docs, err := s.findContent(ctx,
		bson.M{
			"_type":              models.ContentTypeComment,
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
	return commentsFromDocs(docs), nil
}

func commentsFromDocs(docs []contentDoc) []*models.Comment {
	comments := make([]*models.Comment, len(docs))
	for i := range docs {
		comments[i] = docs[i].toComment()
	}
	return comments
}
