package forumdata

import (
	"context"

	"github.com/openedx/forum/src/models"
	"github.com/openedx/forum/src/oops"
)

// Records or changes a user's vote on a piece of content. direction must be
// "up" or "down". Voting does not bump updated_at or any activity stat.
func UpdateVote(ctx context.Context, s Store, ref models.ContentRef, userID, direction string) error {
	var value int
	switch direction {
	case "up":
		value = models.VoteUp
	case "down":
		value = models.VoteDown
	default:
		return validationf("vote direction must be \"up\" or \"down\", not %q", direction)
	}

	_, err := GetContent(ctx, s, ref)
	if err != nil {
		return err
	}
	_, err = s.GetUser(ctx, userID)
	if err != nil {
		return oops.New(err, "failed to look up voting user")
	}

	err = s.SetVote(ctx, ref, userID, value)
	if err != nil {
		return oops.New(err, "failed to record vote")
	}
	return nil
}

// Removes a user's vote. Removing a vote that does not exist is a no-op.
func RemoveVote(ctx context.Context, s Store, ref models.ContentRef, userID string) error {
	_, err := GetContent(ctx, s, ref)
	if err != nil {
		return err
	}
	_, err = s.RemoveVote(ctx, ref, userID)
	if err != nil {
		return oops.New(err, "failed to remove vote")
	}
	return nil
}

func GetVoteSummary(ctx context.Context, s Store, ref models.ContentRef) (*models.VoteSummary, error) {
	votes, err := s.ListVotes(ctx, ref)
	if err != nil {
		return nil, oops.New(err, "failed to list votes")
	}
	summary := models.SummarizeVotes(votes)
	return &summary, nil
}
