package forumdata

import (
	"context"
	"fmt"
	"time"

	"github.com/openedx/forum/src/logging"
	"github.com/openedx/forum/src/models"
	"github.com/openedx/forum/src/oops"
)

// Replies deeper than this are rejected. It also bounds every ancestor walk,
// so a corrupted parent chain cannot loop forever.
const MaxCommentDepth = 200

// Width of one sort key segment. Sort keys order lexicographically the same
// as sibling insertion order as long as no comment ever has this many
// siblings.
const sortKeySegmentWidth = 6

func sortKeySegment(index int) string {
	return fmt.Sprintf("%0*d", sortKeySegmentWidth, index)
}

type NewComment struct {
	AuthorID string
	ThreadID string
	ParentID *string // nil for a top-level response
	Body     string

	Anonymous        bool
	AnonymousToPeers bool
}

/*
Creates a comment, placing it in the thread's tree.

The sort key is derived at insertion time and never changes: top-level
responses get a zero-padded sequential index, and replies get their parent's
key plus a padded sibling index. Sorting a thread's comments by this one
string yields the full depth-first display order, so listing never needs to
reconstruct the tree.
*/
func CreateComment(ctx context.Context, s Store, req NewComment) (*models.Comment, error) {
	author, err := s.GetUser(ctx, req.AuthorID)
	if err != nil {
		return nil, oops.New(err, "failed to look up comment author")
	}
	thread, err := s.GetThread(ctx, req.ThreadID)
	if err != nil {
		return nil, oops.New(err, "failed to look up thread for new comment")
	}

	var parent *models.Comment
	depth := 0
	sortKey := ""
	if req.ParentID != nil {
		parent, err = s.GetComment(ctx, *req.ParentID)
		if err != nil {
			return nil, oops.New(err, "failed to look up parent comment")
		}
		if parent.ThreadID != thread.ID {
			return nil, validationf("parent comment belongs to a different thread")
		}
		depth = parent.Depth + 1
		if depth > MaxCommentDepth {
			return nil, validationf("comment nesting exceeds the maximum depth of %d", MaxCommentDepth)
		}
		numSiblings, err := s.CountChildren(ctx, parent.ID)
		if err != nil {
			return nil, oops.New(err, "failed to count sibling comments")
		}
		sortKey = parent.SortKey + "." + sortKeySegment(numSiblings)
	} else {
		numRoots, err := s.CountRootComments(ctx, req.ThreadID)
		if err != nil {
			return nil, oops.New(err, "failed to count top-level comments")
		}
		sortKey = sortKeySegment(numRoots)
	}

	now := time.Now().UTC()
	c := &models.Comment{
		ContentFields: models.ContentFields{
			AuthorID:         author.ID,
			AuthorUsername:   author.Username,
			CourseID:         thread.CourseID,
			Body:             req.Body,
			Visible:          true,
			Anonymous:        req.Anonymous,
			AnonymousToPeers: req.AnonymousToPeers,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		ThreadID: thread.ID,
		ParentID: req.ParentID,
		Depth:    depth,
		SortKey:  sortKey,
	}
	err = s.InsertComment(ctx, c)
	if err != nil {
		return nil, oops.New(err, "failed to insert comment")
	}

	if parent != nil {
		chain, err := selfAndAncestorIDs(ctx, s, parent)
		if err != nil {
			return nil, err
		}
		err = s.AdjustChildCounts(ctx, chain, 1)
		if err != nil {
			return nil, oops.New(err, "failed to increment ancestor child counts")
		}
	}

	thread.LastActivityAt = &now
	err = s.UpdateThread(ctx, thread)
	if err != nil {
		return nil, oops.New(err, "failed to bump thread activity")
	}

	if c.CountsTowardStats() {
		delta := models.StatDelta{LastActivityAt: &now}
		if c.IsRoot() {
			delta.Responses = 1
		} else {
			delta.Replies = 1
		}
		err = s.ApplyStatDelta(ctx, c.AuthorID, c.CourseID, delta)
		if err != nil {
			return nil, oops.New(err, "failed to update author stats for new comment")
		}
	}

	return c, nil
}

// Edits a comment's body and bumps its timestamps.
func EditComment(ctx context.Context, s Store, commentID, body string) (*models.Comment, error) {
	c, err := s.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c.Body = body
	c.UpdatedAt = now
	err = s.UpdateComment(ctx, c)
	if err != nil {
		return nil, oops.New(err, "failed to update comment")
	}

	if c.CountsTowardStats() {
		err = s.ApplyStatDelta(ctx, c.AuthorID, c.CourseID, models.StatDelta{LastActivityAt: &now})
		if err != nil {
			return nil, oops.New(err, "failed to update author stats for edited comment")
		}
	}
	return c, nil
}

// Marks a comment as endorsed (the accepted answer, for question threads) or
// clears the endorsement.
func SetCommentEndorsed(ctx context.Context, s Store, commentID string, endorsed bool, byUserID string) (*models.Comment, error) {
	c, err := s.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}

	c.Endorsed = endorsed
	if endorsed {
		c.Endorsement = &models.Endorsement{
			UserID: byUserID,
			Time:   time.Now().UTC(),
		}
	} else {
		c.Endorsement = nil
	}
	err = s.UpdateComment(ctx, c)
	if err != nil {
		return nil, oops.New(err, "failed to update comment endorsement")
	}
	return c, nil
}

/*
Deletes a comment and its whole subtree. Every ancestor's child count is
decremented by the subtree size, mirroring the increments that happened when
each deleted comment was created, so counts stay exact without a recount.
*/
func DeleteComment(ctx context.Context, s Store, commentID string) error {
	c, err := s.GetComment(ctx, commentID)
	if err != nil {
		return err
	}

	descendants, err := s.ListDescendants(ctx, c)
	if err != nil {
		return oops.New(err, "failed to list comment descendants")
	}

	affected := make(map[string]bool)
	if c.CountsTowardStats() {
		affected[c.AuthorID] = true
	}
	for _, d := range descendants {
		if d.CountsTowardStats() {
			affected[d.AuthorID] = true
		}
	}

	// Descendants arrive in ascending sort key order, parents before
	// children. Rows must go in the reverse order: the relational engine's
	// parent references forbid deleting a comment that still has children.
	for i := len(descendants) - 1; i >= 0; i-- {
		err = s.DeleteCommentRow(ctx, descendants[i].ID)
		if err != nil {
			return oops.New(err, "failed to delete descendant comment")
		}
	}
	err = s.DeleteCommentRow(ctx, c.ID)
	if err != nil {
		return oops.New(err, "failed to delete comment")
	}

	if c.ParentID != nil {
		parent, err := s.GetComment(ctx, *c.ParentID)
		if err != nil {
			return oops.New(err, "failed to look up parent of deleted comment")
		}
		chain, err := selfAndAncestorIDs(ctx, s, parent)
		if err != nil {
			return err
		}
		err = s.AdjustChildCounts(ctx, chain, -(1 + len(descendants)))
		if err != nil {
			return oops.New(err, "failed to decrement ancestor child counts")
		}
	}

	for authorID := range affected {
		err = RebuildStats(ctx, s, authorID, c.CourseID)
		if err != nil {
			logging.Error().
				Err(err).
				Str("user", authorID).
				Str("course", c.CourseID).
				Msg("failed to rebuild stats after comment deletion")
		}
	}
	return nil
}

// Lists a thread's comments in display order (by sort key), optionally
// restricted to top-level responses, along with the pre-pagination total.
func ListComments(ctx context.Context, s Store, q CommentListQuery) ([]*models.Comment, int, error) {
	if q.Limit < 0 || q.Offset < 0 {
		return nil, 0, validationf("limit and offset must not be negative")
	}
	return s.ListThreadComments(ctx, q)
}

// The ids of c and all its ancestors, from c up to the thread root. The walk
// is iterative and stops with an error if the chain is longer than any legal
// tree allows.
func selfAndAncestorIDs(ctx context.Context, s Store, c *models.Comment) ([]string, error) {
	ids := []string{c.ID}
	cur := c
	for cur.ParentID != nil {
		if len(ids) > MaxCommentDepth {
			return nil, oops.New(nil, "ancestor chain of comment %s exceeds the maximum depth; parent links are corrupt", c.ID)
		}
		parent, err := s.GetComment(ctx, *cur.ParentID)
		if err != nil {
			return nil, oops.New(err, "failed to walk comment ancestry")
		}
		ids = append(ids, parent.ID)
		cur = parent
	}
	return ids, nil
}
