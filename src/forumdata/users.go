package forumdata

import (
	"context"
	"errors"
	"time"

	"github.com/openedx/forum/src/models"
	"github.com/openedx/forum/src/oops"
	"github.com/openedx/forum/src/utils"
)

// Fetches a user, creating them on first reference. User ids come from the
// LMS; the forum never invents them.
func FindOrCreateUser(ctx context.Context, s Store, id, username string) (*models.User, error) {
	if id == "" {
		return nil, validationf("user id must not be empty")
	}
	u, err := s.GetUser(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.New(err, "failed to look up user")
	}

	u = &models.User{
		ID:             id,
		Username:       utils.OrDefault(username, id),
		DefaultSortKey: models.DefaultSortKey,
	}
	err = s.UpsertUser(ctx, u)
	if err != nil {
		return nil, oops.New(err, "failed to create user")
	}
	return u, nil
}

// Renames a user everywhere: on the user record and on the authored-username
// snapshot of all their content. The LMS calls this when a learner changes
// their username.
func ChangeUsername(ctx context.Context, s Store, userID, username string) error {
	if username == "" {
		return validationf("username must not be empty")
	}
	_, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	err = s.ReplaceAuthorUsername(ctx, userID, username)
	if err != nil {
		return oops.New(err, "failed to replace username on user content")
	}
	return nil
}

// GDPR-style retirement: the user's username is replaced with the retired
// marker, their content bodies and titles are blanked, and all their
// subscriptions are removed. Stats and flags are left in place.
func RetireUser(ctx context.Context, s Store, userID string) error {
	_, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	err = s.ReplaceAuthorUsername(ctx, userID, models.RetiredUsername)
	if err != nil {
		return oops.New(err, "failed to replace username for retirement")
	}
	err = s.RetireAuthorContent(ctx, userID)
	if err != nil {
		return oops.New(err, "failed to retire user content")
	}
	err = s.UnsubscribeAll(ctx, userID)
	if err != nil {
		return oops.New(err, "failed to remove retired user's subscriptions")
	}
	return nil
}

// Records that a user read a thread. Read state is per (user, course),
// holding the latest read time per thread.
func MarkThreadRead(ctx context.Context, s Store, userID, threadID string) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	t, err := s.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	err = s.UpsertLastRead(ctx, u.ID, t.CourseID, t.ID, time.Now().UTC())
	if err != nil {
		return oops.New(err, "failed to record read state")
	}
	return nil
}
