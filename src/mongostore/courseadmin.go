package mongostore

import (
	"context"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
	"go.mongodb.org/mongo-driver/bson"
)

func (s *Store) CountCourseData(ctx context.Context, courseID string) (*forumdata.CourseDataCounts, error) {
	counts := &forumdata.CourseDataCounts{}

	threads, err := s.contents.CountDocuments(ctx,
		bson.M{"_type": models.ContentTypeThread, "course_id": courseID})
	if err != nil {
		return nil, err
	}
	counts.Threads = int(threads)

	comments, err := s.contents.CountDocuments(ctx,
		bson.M{"_type": models.ContentTypeComment, "course_id": courseID})
	if err != nil {
		return nil, err
	}
	counts.Comments = int(comments)

	contentIDs, err := s.contentIDs(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return nil, err
	}
	subs, err := s.subscriptions.CountDocuments(ctx,
		bson.M{"source_id": bson.M{"$in": contentIDs}})
	if err != nil {
		return nil, err
	}
	counts.Subscriptions = int(subs)

	stats, err := s.users.CountDocuments(ctx,
		bson.M{"course_stats.course_id": courseID})
	if err != nil {
		return nil, err
	}
	counts.CourseStats = int(stats)

	readStates, err := s.users.CountDocuments(ctx,
		bson.M{"read_states.course_id": courseID})
	if err != nil {
		return nil, err
	}
	counts.ReadStates = int(readStates)

	return counts, nil
}

func (s *Store) DeleteCourseData(ctx context.Context, courseID string) (*forumdata.CourseDataCounts, error) {
	counts, err := s.CountCourseData(ctx, courseID)
	if err != nil {
		return nil, err
	}

	contentIDs, err := s.contentIDs(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return nil, err
	}
	_, err = s.subscriptions.DeleteMany(ctx, bson.M{"source_id": bson.M{"$in": contentIDs}})
	if err != nil {
		return nil, err
	}
	_, err = s.contents.DeleteMany(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return nil, err
	}
	_, err = s.users.UpdateMany(ctx,
		bson.M{},
		bson.M{"$pull": bson.M{
			"course_stats": bson.M{"course_id": courseID},
			"read_states":  bson.M{"course_id": courseID},
		}},
	)
	if err != nil {
		return nil, err
	}
	return counts, nil
}
