package forumdata

import (
	"context"
	"time"

	"github.com/openedx/forum/src/models"
	"github.com/openedx/forum/src/oops"
)

/*
Records that a user flagged a piece of content for abuse. Flagging the same
content twice is a no-op, not an error.

The author's active_flags stat counts distinct flagged content items, so it
is bumped only when this is the first active flag on the content. Flags never
touch last_activity_at; moderation activity is not authoring activity.
*/
func FlagContent(ctx context.Context, s Store, ref models.ContentRef, userID string) error {
	content, err := GetContent(ctx, s, ref)
	if err != nil {
		return err
	}
	_, err = s.GetUser(ctx, userID)
	if err != nil {
		return oops.New(err, "failed to look up flagging user")
	}

	added, err := s.AddActiveFlag(ctx, ref, userID, time.Now().UTC())
	if err != nil {
		return oops.New(err, "failed to record abuse flag")
	}
	if !added {
		return nil
	}

	if content.Content().CountsTowardStats() {
		flaggers, err := s.ListActiveFlaggers(ctx, ref)
		if err != nil {
			return oops.New(err, "failed to list active flaggers")
		}
		if len(flaggers) == 1 {
			err = s.ApplyStatDelta(ctx, content.Content().AuthorID, content.Content().CourseID, models.StatDelta{
				ActiveFlags: 1,
			})
			if err != nil {
				return oops.New(err, "failed to update author stats for new flag")
			}
		}
	}
	return nil
}

// Removes one user's active flag from a piece of content. If that was the
// content's last active flag, the author's active_flags stat drops by one.
// Removing a flag that does not exist is a no-op.
func UnflagContent(ctx context.Context, s Store, ref models.ContentRef, userID string) error {
	content, err := GetContent(ctx, s, ref)
	if err != nil {
		return err
	}

	removed, err := s.RemoveActiveFlag(ctx, ref, userID)
	if err != nil {
		return oops.New(err, "failed to remove abuse flag")
	}
	if !removed {
		return nil
	}

	if content.Content().CountsTowardStats() {
		flaggers, err := s.ListActiveFlaggers(ctx, ref)
		if err != nil {
			return oops.New(err, "failed to list active flaggers")
		}
		if len(flaggers) == 0 {
			err = s.ApplyStatDelta(ctx, content.Content().AuthorID, content.Content().CourseID, models.StatDelta{
				ActiveFlags: -1,
			})
			if err != nil {
				return oops.New(err, "failed to update author stats for removed flag")
			}
		}
	}
	return nil
}

/*
A moderator resolving all flags on a piece of content. Every active flagger
is preserved in the historical record, then the active set is cleared.

The author's inactive_flags stat, like active_flags, counts distinct content
items. It is bumped only if the content had no historical flags yet; content
that cycles through flagging and resolution repeatedly still counts once.
*/
func UnflagAllContent(ctx context.Context, s Store, ref models.ContentRef) error {
	content, err := GetContent(ctx, s, ref)
	if err != nil {
		return err
	}

	flaggers, err := s.ListActiveFlaggers(ctx, ref)
	if err != nil {
		return oops.New(err, "failed to list active flaggers")
	}
	if len(flaggers) == 0 {
		return nil
	}

	historical, err := s.ListHistoricalFlaggers(ctx, ref)
	if err != nil {
		return oops.New(err, "failed to list historical flaggers")
	}
	hadHistorical := len(historical) > 0

	now := time.Now().UTC()
	for _, flaggerID := range flaggers {
		err = s.AddHistoricalFlag(ctx, ref, flaggerID, now)
		if err != nil {
			return oops.New(err, "failed to archive abuse flag")
		}
	}
	err = s.RemoveAllActiveFlags(ctx, ref)
	if err != nil {
		return oops.New(err, "failed to clear active flags")
	}

	if content.Content().CountsTowardStats() {
		delta := models.StatDelta{ActiveFlags: -1}
		if !hadHistorical {
			delta.InactiveFlags = 1
		}
		err = s.ApplyStatDelta(ctx, content.Content().AuthorID, content.Content().CourseID, delta)
		if err != nil {
			return oops.New(err, "failed to update author stats for resolved flags")
		}
	}
	return nil
}
