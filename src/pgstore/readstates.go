package pgstore

import (
	"context"
	"time"

	"github.com/openedx/forum/src/db"
	"github.com/openedx/forum/src/models"
)

type lastReadRow struct {
	UserID     string    `db:"user_id"`
	CourseID   string    `db:"course_id"`
	ThreadID   string    `db:"thread_id"`
	LastReadAt time.Time `db:"last_read_at"`
}

func (s *Store) UpsertLastRead(ctx context.Context, userID, courseID, threadID string, ts time.Time) error {
	_, err := s.db.Exec(ctx,
		`
		INSERT INTO last_read_time (user_id, course_id, thread_id, last_read_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, course_id, thread_id) DO UPDATE SET
			last_read_at = EXCLUDED.last_read_at
		`,
		userID, courseID, threadID, ts,
	)
	return err
}

func (s *Store) GetReadState(ctx context.Context, userID, courseID string) (*models.ReadState, error) {
	rows, err := db.Query[lastReadRow](ctx, s.db,
		`
		SELECT user_id, course_id, thread_id, last_read_at
		FROM last_read_time
		WHERE user_id = $1 AND course_id = $2
		`,
		userID, courseID,
	)
	if err != nil {
		return nil, err
	}

	state := &models.ReadState{
		UserID:        userID,
		CourseID:      courseID,
		LastReadTimes: make(map[string]time.Time),
	}
	for _, row := range rows {
		state.LastReadTimes[row.ThreadID] = row.LastReadAt
	}
	return state, nil
}

func (s *Store) ListUserReadStates(ctx context.Context, userID string) ([]*models.ReadState, error) {
	rows, err := db.Query[lastReadRow](ctx, s.db,
		`
		SELECT user_id, course_id, thread_id, last_read_at
		FROM last_read_time
		WHERE user_id = $1
		ORDER BY course_id, thread_id
		`,
		userID,
	)
	if err != nil {
		return nil, err
	}

	var result []*models.ReadState
	var current *models.ReadState
	for _, row := range rows {
		if current == nil || current.CourseID != row.CourseID {
			current = &models.ReadState{
				UserID:        userID,
				CourseID:      row.CourseID,
				LastReadTimes: make(map[string]time.Time),
			}
			result = append(result, current)
		}
		current.LastReadTimes[row.ThreadID] = row.LastReadAt
	}
	return result, nil
}
