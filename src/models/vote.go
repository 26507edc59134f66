package models

const (
	VoteUp   = 1
	VoteDown = -1
)

// One signed vote per (content, user).
type Vote struct {
	ContentType ContentType `db:"content_type"`
	ContentID   string      `db:"content_id"`
	UserID      string      `db:"user_id"`
	Vote        int         `db:"vote"`
}

// The vote rollup attached to content representations.
type VoteSummary struct {
	Up        []string `json:"up"`
	Down      []string `json:"down"`
	UpCount   int      `json:"up_count"`
	DownCount int      `json:"down_count"`
	Count     int      `json:"count"`
	Point     int      `json:"point"`
}

func SummarizeVotes(votes []Vote) VoteSummary {
	summary := VoteSummary{
		Up:   []string{},
		Down: []string{},
	}
	for _, v := range votes {
		switch v.Vote {
		case VoteUp:
			summary.Up = append(summary.Up, v.UserID)
		case VoteDown:
			summary.Down = append(summary.Down, v.UserID)
		}
	}
	summary.UpCount = len(summary.Up)
	summary.DownCount = len(summary.Down)
	summary.Count = summary.UpCount + summary.DownCount
	summary.Point = summary.UpCount - summary.DownCount
	return summary
}
