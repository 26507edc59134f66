package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeVotes(t *testing.T) {
	summary := SummarizeVotes([]Vote{
		{UserID: "a", Vote: VoteUp},
		{UserID: "b", Vote: VoteUp},
		{UserID: "c", Vote: VoteDown},
	})
	assert.Equal(t, []string{"a", "b"}, summary.Up)
	assert.Equal(t, []string{"c"}, summary.Down)
	assert.Equal(t, 2, summary.UpCount)
	assert.Equal(t, 1, summary.DownCount)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 1, summary.Point)

	empty := SummarizeVotes(nil)
	assert.Equal(t, []string{}, empty.Up)
	assert.Equal(t, []string{}, empty.Down)
	assert.Equal(t, 0, empty.Point)
}

func TestCountsTowardStats(t *testing.T) {
	assert.True(t, (&ContentFields{}).CountsTowardStats())
	assert.False(t, (&ContentFields{Anonymous: true}).CountsTowardStats())
	assert.False(t, (&ContentFields{AnonymousToPeers: true}).CountsTowardStats())
}
