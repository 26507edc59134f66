package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
	"go.mongodb.org/mongo-driver/bson"
)

func (s *Store) UpsertLastRead(ctx context.Context, userID, courseID, threadID string, ts time.Time) error {
	// First make sure the course's read state element exists, then write
	// the thread's timestamp into it through the positional operator.
	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID, "read_states.course_id": bson.M{"$ne": courseID}},
		bson.M{"$push": bson.M{"read_states": readStateDoc{
			CourseID:      courseID,
			LastReadTimes: map[string]time.Time{},
		}}},
	)
	if err != nil {
		return err
	}
	_, err = s.users.UpdateOne(ctx,
		bson.M{"_id": userID, "read_states.course_id": courseID},
		bson.M{"$set": bson.M{"read_states.$.last_read_times." + threadID: ts}},
	)
	return err
}

func (s *Store) GetReadState(ctx context.Context, userID, courseID string) (*models.ReadState, error) {
	states, err := s.readStateDocs(ctx, userID)
	if err != nil && !errors.Is(err, forumdata.ErrNotFound) {
		return nil, err
	}

	state := &models.ReadState{
		UserID:        userID,
		CourseID:      courseID,
		LastReadTimes: make(map[string]time.Time),
	}
	for _, doc := range states {
		if doc.CourseID == courseID {
			for threadID, ts := range doc.LastReadTimes {
				state.LastReadTimes[threadID] = ts
			}
		}
	}
	return state, nil
}

func (s *Store) ListUserReadStates(ctx context.Context, userID string) ([]*models.ReadState, error) {
	states, err := s.readStateDocs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var result []*models.ReadState
	for _, doc := range states {
		state := &models.ReadState{
			UserID:        userID,
			CourseID:      doc.CourseID,
			LastReadTimes: make(map[string]time.Time),
		}
		for threadID, ts := range doc.LastReadTimes {
			state.LastReadTimes[threadID] = ts
		}
		result = append(result, state)
	}
	return result, nil
}

func (s *Store) readStateDocs(ctx context.Context, userID string) ([]readStateDoc, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		return nil, translateNoDocuments(err)
	}
	return doc.ReadStates, nil
}
