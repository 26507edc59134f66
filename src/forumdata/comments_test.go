package forumdata_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/openedx/forum/src/forumdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	thread := newTestThread(t, ctx, s, author.ID)

	rootA := newTestComment(t, ctx, s, author.ID, thread.ID, nil)
	rootB := newTestComment(t, ctx, s, author.ID, thread.ID, nil)
	replyA1 := newTestComment(t, ctx, s, author.ID, thread.ID, &rootA.ID)
	replyA2 := newTestComment(t, ctx, s, author.ID, thread.ID, &rootA.ID)
	nested := newTestComment(t, ctx, s, author.ID, thread.ID, &replyA1.ID)

	assert.Equal(t, "000000", rootA.SortKey)
	assert.Equal(t, "000001", rootB.SortKey)
	assert.Equal(t, "000000.000000", replyA1.SortKey)
	assert.Equal(t, "000000.000001", replyA2.SortKey)
	assert.Equal(t, "000000.000000.000000", nested.SortKey)

	assert.Equal(t, 0, rootA.Depth)
	assert.Equal(t, 1, replyA1.Depth)
	assert.Equal(t, 2, nested.Depth)
}

func TestThreadOrderIsDepthFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	thread := newTestThread(t, ctx, s, author.ID)

	// Built out of order on purpose: the reply to the first response
	// arrives after the second response exists.
	rootA := newTestComment(t, ctx, s, author.ID, thread.ID, nil)
	rootB := newTestComment(t, ctx, s, author.ID, thread.ID, nil)
	replyA := newTestComment(t, ctx, s, author.ID, thread.ID, &rootA.ID)

	comments, total, err := forumdata.ListComments(ctx, s, forumdata.CommentListQuery{
		ThreadID: thread.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, comments, 3)
	assert.Equal(t, rootA.ID, comments[0].ID)
	assert.Equal(t, replyA.ID, comments[1].ID)
	assert.Equal(t, rootB.ID, comments[2].ID)

	t.Run("descending reverses the whole order", func(t *testing.T) {
		comments, _, err := forumdata.ListComments(ctx, s, forumdata.CommentListQuery{
			ThreadID:   thread.ID,
			Descending: true,
		})
		require.NoError(t, err)
		require.Len(t, comments, 3)
		assert.Equal(t, rootB.ID, comments[0].ID)
		assert.Equal(t, replyA.ID, comments[1].ID)
		assert.Equal(t, rootA.ID, comments[2].ID)
	})

	t.Run("top level only", func(t *testing.T) {
		comments, total, err := forumdata.ListComments(ctx, s, forumdata.CommentListQuery{
			ThreadID:     thread.ID,
			TopLevelOnly: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, comments, 2)
		assert.Equal(t, rootA.ID, comments[0].ID)
		assert.Equal(t, rootB.ID, comments[1].ID)
	})
}

func TestCommentPagination(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	thread := newTestThread(t, ctx, s, author.ID)

	var ids []string
	for i := 0; i < 5; i++ {
		c := newTestComment(t, ctx, s, author.ID, thread.ID, nil)
		ids = append(ids, c.ID)
	}

	page, total, err := forumdata.ListComments(ctx, s, forumdata.CommentListQuery{
		ThreadID: thread.ID,
		Limit:    2,
		Offset:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	t.Run("offset past the end", func(t *testing.T) {
		page, total, err := forumdata.ListComments(ctx, s, forumdata.CommentListQuery{
			ThreadID: thread.ID,
			Limit:    2,
			Offset:   10,
		})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Len(t, page, 0)
	})

	t.Run("negative offset is rejected", func(t *testing.T) {
		_, _, err := forumdata.ListComments(ctx, s, forumdata.CommentListQuery{
			ThreadID: thread.ID,
			Offset:   -1,
		})
		assert.ErrorIs(t, err, forumdata.ErrValidation)
	})
}

func TestChildCounts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	thread := newTestThread(t, ctx, s, author.ID)

	root := newTestComment(t, ctx, s, author.ID, thread.ID, nil)
	mid := newTestComment(t, ctx, s, author.ID, thread.ID, &root.ID)
	newTestComment(t, ctx, s, author.ID, thread.ID, &mid.ID)
	newTestComment(t, ctx, s, author.ID, thread.ID, &mid.ID)

	childCount := func(id string) int {
		c, err := s.GetComment(ctx, id)
		require.NoError(t, err)
		return c.ChildCount
	}

	// Every comment in the subtree counts, not just direct children.
	assert.Equal(t, 3, childCount(root.ID))
	assert.Equal(t, 2, childCount(mid.ID))

	err := forumdata.DeleteComment(ctx, s, mid.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, childCount(root.ID))
	_, err = s.GetComment(ctx, mid.ID)
	assert.ErrorIs(t, err, forumdata.ErrNotFound)

	_, total, err := forumdata.ListComments(ctx, s, forumdata.CommentListQuery{ThreadID: thread.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestDeleteSubtreeWithGrandchildren(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	thread := newTestThread(t, ctx, s, author.ID)

	root := newTestComment(t, ctx, s, author.ID, thread.ID, nil)
	mid := newTestComment(t, ctx, s, author.ID, thread.ID, &root.ID)
	newTestComment(t, ctx, s, author.ID, thread.ID, &mid.ID)
	sibling := newTestComment(t, ctx, s, author.ID, thread.ID, nil)

	// The store refuses to drop a comment whose children still exist, so
	// this only succeeds if the subtree comes out leaves first.
	err := forumdata.DeleteComment(ctx, s, root.ID)
	require.NoError(t, err)

	for _, id := range []string{root.ID, mid.ID} {
		_, err = s.GetComment(ctx, id)
		assert.ErrorIs(t, err, forumdata.ErrNotFound)
	}

	comments, total, err := forumdata.ListComments(ctx, s, forumdata.CommentListQuery{ThreadID: thread.ID})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, sibling.ID, comments[0].ID)
	assert.Equal(t, 0, comments[0].ChildCount)
}

func TestCrossThreadParent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	threadA := newTestThread(t, ctx, s, author.ID)
	threadB := newTestThread(t, ctx, s, author.ID)
	parent := newTestComment(t, ctx, s, author.ID, threadA.ID, nil)

	_, err := forumdata.CreateComment(ctx, s, forumdata.NewComment{
		AuthorID: author.ID,
		ThreadID: threadB.ID,
		ParentID: &parent.ID,
		Body:     "wrong thread",
	})
	assert.ErrorIs(t, err, forumdata.ErrValidation)
}

func TestMaxCommentDepth(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	thread := newTestThread(t, ctx, s, author.ID)

	parent := newTestComment(t, ctx, s, author.ID, thread.ID, nil)
	for depth := 1; depth <= forumdata.MaxCommentDepth; depth++ {
		parent = newTestComment(t, ctx, s, author.ID, thread.ID, &parent.ID)
	}

	_, err := forumdata.CreateComment(ctx, s, forumdata.NewComment{
		AuthorID: author.ID,
		ThreadID: thread.ID,
		ParentID: &parent.ID,
		Body:     "one too deep",
	})
	assert.ErrorIs(t, err, forumdata.ErrValidation)
}

func TestEditCommentPreservesTree(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	thread := newTestThread(t, ctx, s, author.ID)
	root := newTestComment(t, ctx, s, author.ID, thread.ID, nil)
	reply := newTestComment(t, ctx, s, author.ID, thread.ID, &root.ID)

	edited, err := forumdata.EditComment(ctx, s, reply.ID, "better answer")
	require.NoError(t, err)
	assert.Equal(t, "better answer", edited.Body)
	assert.Equal(t, reply.SortKey, edited.SortKey)
	assert.Equal(t, reply.Depth, edited.Depth)
	assert.True(t, edited.UpdatedAt.After(reply.UpdatedAt) || edited.UpdatedAt.Equal(reply.UpdatedAt))
}

func TestEndorseComment(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	staff := newTestUser(t, ctx, s, "bob")
	thread := newTestThread(t, ctx, s, author.ID)
	c := newTestComment(t, ctx, s, author.ID, thread.ID, nil)

	endorsed, err := forumdata.SetCommentEndorsed(ctx, s, c.ID, true, staff.ID)
	require.NoError(t, err)
	assert.True(t, endorsed.Endorsed)
	require.NotNil(t, endorsed.Endorsement)
	assert.Equal(t, staff.ID, endorsed.Endorsement.UserID)

	cleared, err := forumdata.SetCommentEndorsed(ctx, s, c.ID, false, staff.ID)
	require.NoError(t, err)
	assert.False(t, cleared.Endorsed)
	assert.Nil(t, cleared.Endorsement)
}

func TestManySiblingsStaySorted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	author := newTestUser(t, ctx, s, "alice")
	thread := newTestThread(t, ctx, s, author.ID)

	for i := 0; i < 12; i++ {
		newTestComment(t, ctx, s, author.ID, thread.ID, nil)
	}

	comments, _, err := forumdata.ListComments(ctx, s, forumdata.CommentListQuery{ThreadID: thread.ID})
	require.NoError(t, err)
	require.Len(t, comments, 12)
	for i, c := range comments {
		assert.Equal(t, fmt.Sprintf("%06d", i), c.SortKey)
	}
}
