package mongostore

import (
	"context"
	"errors"
	"sort"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
	"go.mongodb.org/mongo-driver/bson"
)

func (s *Store) ApplyStatDelta(ctx context.Context, userID, courseID string, d models.StatDelta) error {
	if d.IsZero() {
		return nil
	}

	// Make sure the course's stats element exists, then increment its
	// counters in place through the positional operator.
	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID, "course_stats.course_id": bson.M{"$ne": courseID}},
		bson.M{"$push": bson.M{"course_stats": courseStatDoc{CourseID: courseID}}},
	)
	if err != nil {
		return err
	}

	update := bson.M{
		"$inc": bson.M{
			"course_stats.$.active_flags":   d.ActiveFlags,
			"course_stats.$.inactive_flags": d.InactiveFlags,
			"course_stats.$.threads":        d.Threads,
			"course_stats.$.responses":      d.Responses,
			"course_stats.$.replies":        d.Replies,
		},
	}
	if d.LastActivityAt != nil {
		update["$max"] = bson.M{"course_stats.$.last_activity_at": *d.LastActivityAt}
	}
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID, "course_stats.course_id": courseID},
		update,
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return forumdata.ErrNotFound
	}
	return nil
}

func (s *Store) SetCourseStats(ctx context.Context, stat *models.CourseStat) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": stat.UserID},
		bson.M{"$pull": bson.M{"course_stats": bson.M{"course_id": stat.CourseID}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return forumdata.ErrNotFound
	}
	_, err = s.users.UpdateOne(ctx,
		bson.M{"_id": stat.UserID},
		bson.M{"$push": bson.M{"course_stats": courseStatFromModel(stat)}},
	)
	return err
}

func (s *Store) GetCourseStats(ctx context.Context, userID, courseID string) (*models.CourseStat, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		err = translateNoDocuments(err)
		if errors.Is(err, forumdata.ErrNotFound) {
			return &models.CourseStat{UserID: userID, CourseID: courseID}, nil
		}
		return nil, err
	}

	for i := range doc.CourseStats {
		if doc.CourseStats[i].CourseID == courseID {
			return doc.CourseStats[i].toCourseStat(userID), nil
		}
	}
	return &models.CourseStat{UserID: userID, CourseID: courseID}, nil
}

func (s *Store) ListCourseStatsPage(ctx context.Context, q forumdata.CourseStatsQuery) ([]*models.UserCourseStats, int, error) {
	match := bson.M{"course_stats.course_id": q.CourseID}
	if len(q.Usernames) > 0 {
		match["username"] = bson.M{"$in": q.Usernames}
	}

	var sortSpec bson.D
	switch q.Sort {
	case forumdata.StatsSortRecency:
		sortSpec = bson.D{
			{Key: "course_stats.last_activity_at", Value: -1},
			{Key: "username", Value: -1},
		}
	case forumdata.StatsSortFlagged:
		sortSpec = bson.D{
			{Key: "course_stats.active_flags", Value: -1},
			{Key: "course_stats.inactive_flags", Value: -1},
			{Key: "username", Value: -1},
		}
	default:
		sortSpec = bson.D{
			{Key: "course_stats.threads", Value: -1},
			{Key: "course_stats.responses", Value: -1},
			{Key: "course_stats.replies", Value: -1},
			{Key: "username", Value: -1},
		}
	}

	cursor, err := s.users.Aggregate(ctx, []bson.M{
		{"$unwind": "$course_stats"},
		{"$match": match},
		{"$sort": sortSpec},
		{"$facet": bson.M{
			"total": bson.A{bson.M{"$count": "count"}},
			"page": bson.A{
				bson.M{"$skip": (q.Page - 1) * q.PerPage},
				bson.M{"$limit": q.PerPage},
			},
		}},
	})
	if err != nil {
		return nil, 0, err
	}

	var facets []struct {
		Total []struct {
			Count int `bson:"count"`
		} `bson:"total"`
		Page []struct {
			ID             string        `bson:"_id"`
			Username       string        `bson:"username"`
			Email          string        `bson:"email"`
			DefaultSortKey string        `bson:"default_sort_key"`
			CourseStats    courseStatDoc `bson:"course_stats"`
		} `bson:"page"`
	}
	err = cursor.All(ctx, &facets)
	if err != nil {
		return nil, 0, err
	}
	if len(facets) == 0 {
		return nil, 0, nil
	}

	total := 0
	if len(facets[0].Total) > 0 {
		total = facets[0].Total[0].Count
	}
	rows := make([]*models.UserCourseStats, len(facets[0].Page))
	for i, row := range facets[0].Page {
		rows[i] = &models.UserCourseStats{
			User: models.User{
				ID:             row.ID,
				Username:       row.Username,
				Email:          row.Email,
				DefaultSortKey: row.DefaultSortKey,
			},
			CourseStat: *row.CourseStats.toCourseStat(row.ID),
		}
	}
	return rows, total, nil
}

func (s *Store) ListCourseAuthors(ctx context.Context, courseID string) ([]string, error) {
	values, err := s.contents.Distinct(ctx, "author_id", bson.M{
		"course_id":          courseID,
		"anonymous":          false,
		"anonymous_to_peers": false,
	})
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
