package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/models"
)

type subKey struct {
	SubscriberID string
	Source       models.ContentRef
}

type statKey struct {
	UserID   string
	CourseID string
}

// Store is an in-memory storage engine. It exists for tests and for
// exercising migrations without a database; it implements the same contract
// as the relational and document engines, including their idempotency
// rules, under one big lock.
type Store struct {
	mu     sync.Mutex
	nextID int

	users    map[string]models.User
	threads  map[string]models.Thread
	comments map[string]models.Comment

	activeFlags     map[models.ContentRef]map[string]time.Time
	historicalFlags map[models.ContentRef]map[string]time.Time
	votes           map[models.ContentRef]map[string]int
	subscriptions   map[subKey]models.Subscription
	readStates      map[string]map[string]map[string]time.Time // user -> course -> thread
	stats           map[statKey]models.CourseStat
	identities      map[string]models.ContentRef
}

var _ forumdata.Store = &Store{}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]models.User),
		threads:  make(map[string]models.Thread),
		comments: make(map[string]models.Comment),

		activeFlags:     make(map[models.ContentRef]map[string]time.Time),
		historicalFlags: make(map[models.ContentRef]map[string]time.Time),
		votes:           make(map[models.ContentRef]map[string]int),
		subscriptions:   make(map[subKey]models.Subscription),
		readStates:      make(map[string]map[string]map[string]time.Time),
		stats:           make(map[statKey]models.CourseStat),
		identities:      make(map[string]models.ContentRef),
	}
}

func (s *Store) genID() string {
	s.nextID++
	return fmt.Sprintf("m%06d", s.nextID)
}

//
// Users
//

func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, forumdata.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, forumdata.ErrNotFound
}

func (s *Store) ReplaceAuthorUsername(ctx context.Context, userID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return forumdata.ErrNotFound
	}
	u.Username = username
	s.users[userID] = u

	for id, t := range s.threads {
		if t.AuthorID == userID {
			t.AuthorUsername = username
			s.threads[id] = t
		}
	}
	for id, c := range s.comments {
		if c.AuthorID == userID {
			c.AuthorUsername = username
			s.comments[id] = c
		}
	}
	return nil
}

func (s *Store) RetireAuthorContent(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	retired := models.RetiredUsername
	for id, t := range s.threads {
		if t.AuthorID == userID {
			t.Title = models.RetiredTitle
			t.Body = models.RetiredBody
			t.RetiredUsername = &retired
			s.threads[id] = t
		}
	}
	for id, c := range s.comments {
		if c.AuthorID == userID {
			c.Body = models.RetiredBody
			c.RetiredUsername = &retired
			s.comments[id] = c
		}
	}
	return nil
}

func (s *Store) ListCourseUserIDs(ctx context.Context, courseID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	for key := range s.stats {
		if key.CourseID == courseID {
			seen[key.UserID] = true
		}
	}
	for userID, byCourse := range s.readStates {
		if len(byCourse[courseID]) > 0 {
			seen[userID] = true
		}
	}
	return sortedKeys(seen), nil
}

//
// Threads
//

func (s *Store) InsertThread(ctx context.Context, t *models.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.genID()
	}
	s.threads[t.ID] = *t
	return nil
}

func (s *Store) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, forumdata.ErrNotFound
	}
	return &t, nil
}

func (s *Store) UpdateThread(ctx context.Context, t *models.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[t.ID]; !ok {
		return forumdata.ErrNotFound
	}
	s.threads[t.ID] = *t
	return nil
}

func (s *Store) DeleteThreadRow(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return forumdata.ErrNotFound
	}

	refs := []models.ContentRef{t.Ref()}
	for commentID, c := range s.comments {
		if c.ThreadID == id {
			refs = append(refs, c.Ref())
			delete(s.comments, commentID)
		}
	}
	delete(s.threads, id)

	for _, ref := range refs {
		delete(s.activeFlags, ref)
		delete(s.historicalFlags, ref)
		delete(s.votes, ref)
		s.deleteSubscriptionsLocked(ref)
	}
	for _, byCourse := range s.readStates {
		delete(byCourse[t.CourseID], id)
	}
	return nil
}

func (s *Store) ListCourseThreads(ctx context.Context, courseID string, limit, offset int) ([]*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Thread
	for _, t := range s.threads {
		if t.CourseID == courseID {
			t := t
			result = append(result, &t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return pageOf(result, limit, offset), nil
}

func (s *Store) ListAuthorThreads(ctx context.Context, authorID, courseID string) ([]*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Thread
	for _, t := range s.threads {
		if t.AuthorID == authorID && t.CourseID == courseID && t.CountsTowardStats() {
			t := t
			result = append(result, &t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) CountThreadComments(ctx context.Context, threadID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, c := range s.comments {
		if c.ThreadID == threadID {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListCourseIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	for _, t := range s.threads {
		seen[t.CourseID] = true
	}
	return sortedKeys(seen), nil
}

func (s *Store) CommentableCounts(ctx context.Context, courseID string) (map[string]models.CommentableCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]models.CommentableCount)
	for _, t := range s.threads {
		if t.CourseID != courseID || t.CommentableID == nil {
			continue
		}
		c := counts[*t.CommentableID]
		switch t.ThreadType {
		case models.ThreadTypeDiscussion:
			c.Discussion++
		case models.ThreadTypeQuestion:
			c.Question++
		}
		counts[*t.CommentableID] = c
	}
	return counts, nil
}

//
// Comments
//

func (s *Store) InsertComment(ctx context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = s.genID()
	}
	s.comments[c.ID] = *c
	return nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, forumdata.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateComment(ctx context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.comments[c.ID]
	if !ok {
		return forumdata.ErrNotFound
	}
	updated := *c
	updated.Depth = existing.Depth
	updated.SortKey = existing.SortKey
	updated.ChildCount = existing.ChildCount
	s.comments[c.ID] = updated
	return nil
}

func (s *Store) DeleteCommentRow(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return forumdata.ErrNotFound
	}
	// The relational engine's parent reference makes deleting a comment
	// that still has children fail; enforce the same here so the domain
	// layer cannot rely on a lax deletion order.
	for _, other := range s.comments {
		if other.ParentID != nil && *other.ParentID == id {
			return fmt.Errorf("comment %s is still referenced as a parent by %s", id, other.ID)
		}
	}
	delete(s.comments, id)

	ref := c.Ref()
	delete(s.activeFlags, ref)
	delete(s.historicalFlags, ref)
	delete(s.votes, ref)
	s.deleteSubscriptionsLocked(ref)
	return nil
}

func (s *Store) ListThreadComments(ctx context.Context, q forumdata.CommentListQuery) ([]*models.Comment, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Comment
	for _, c := range s.comments {
		if c.ThreadID != q.ThreadID {
			continue
		}
		if q.TopLevelOnly && !c.IsRoot() {
			continue
		}
		c := c
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		if q.Descending {
			return result[i].SortKey > result[j].SortKey
		}
		return result[i].SortKey < result[j].SortKey
	})
	total := len(result)
	return pageOf(result, q.Limit, q.Offset), total, nil
}

func (s *Store) ListDescendants(ctx context.Context, c *models.Comment) ([]*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := c.SortKey + "."
	var result []*models.Comment
	for _, d := range s.comments {
		if d.ThreadID == c.ThreadID && strings.HasPrefix(d.SortKey, prefix) {
			d := d
			result = append(result, &d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SortKey < result[j].SortKey })
	return result, nil
}

func (s *Store) CountRootComments(ctx context.Context, threadID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, c := range s.comments {
		if c.ThreadID == threadID && c.IsRoot() {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountChildren(ctx context.Context, parentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == parentID {
			count++
		}
	}
	return count, nil
}

func (s *Store) AdjustChildCounts(ctx context.Context, ids []string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		c, ok := s.comments[id]
		if !ok {
			return forumdata.ErrNotFound
		}
		c.ChildCount += delta
		s.comments[id] = c
	}
	return nil
}

func (s *Store) ListCourseComments(ctx context.Context, courseID string, limit, offset int) ([]*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Comment
	for _, c := range s.comments {
		if c.CourseID == courseID {
			c := c
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return pageOf(result, limit, offset), nil
}

func (s *Store) ListAuthorComments(ctx context.Context, authorID, courseID string) ([]*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Comment
	for _, c := range s.comments {
		if c.AuthorID == authorID && c.CourseID == courseID && c.CountsTowardStats() {
			c := c
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

//
// Flags
//

func (s *Store) AddActiveFlag(ctx context.Context, ref models.ContentRef, userID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flaggers := s.activeFlags[ref]
	if flaggers == nil {
		flaggers = make(map[string]time.Time)
		s.activeFlags[ref] = flaggers
	}
	if _, ok := flaggers[userID]; ok {
		return false, nil
	}
	flaggers[userID] = at
	return true, nil
}

func (s *Store) RemoveActiveFlag(ctx context.Context, ref models.ContentRef, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flaggers := s.activeFlags[ref]
	if _, ok := flaggers[userID]; !ok {
		return false, nil
	}
	delete(flaggers, userID)
	return true, nil
}

func (s *Store) RemoveAllActiveFlags(ctx context.Context, ref models.ContentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeFlags, ref)
	return nil
}

func (s *Store) ListActiveFlaggers(ctx context.Context, ref models.ContentRef) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.activeFlags[ref]), nil
}

func (s *Store) ListActiveFlags(ctx context.Context, ref models.ContentRef) ([]models.AbuseFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flags := make([]models.AbuseFlag, 0, len(s.activeFlags[ref]))
	for _, userID := range sortedKeys(s.activeFlags[ref]) {
		flags = append(flags, models.AbuseFlag{
			ContentType: ref.Type,
			ContentID:   ref.ID,
			UserID:      userID,
			FlaggedAt:   s.activeFlags[ref][userID],
		})
	}
	return flags, nil
}

func (s *Store) AddHistoricalFlag(ctx context.Context, ref models.ContentRef, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	flaggers := s.historicalFlags[ref]
	if flaggers == nil {
		flaggers = make(map[string]time.Time)
		s.historicalFlags[ref] = flaggers
	}
	if _, ok := flaggers[userID]; !ok {
		flaggers[userID] = at
	}
	return nil
}

func (s *Store) ListHistoricalFlaggers(ctx context.Context, ref models.ContentRef) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.historicalFlags[ref]), nil
}

func (s *Store) ListHistoricalFlags(ctx context.Context, ref models.ContentRef) ([]models.HistoricalAbuseFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flags := make([]models.HistoricalAbuseFlag, 0, len(s.historicalFlags[ref]))
	for _, userID := range sortedKeys(s.historicalFlags[ref]) {
		flags = append(flags, models.HistoricalAbuseFlag{
			ContentType: ref.Type,
			ContentID:   ref.ID,
			UserID:      userID,
			FlaggedAt:   s.historicalFlags[ref][userID],
		})
	}
	return flags, nil
}

func (s *Store) CountFlaggedContent(ctx context.Context, refs []models.ContentRef, historical bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flags := s.activeFlags
	if historical {
		flags = s.historicalFlags
	}
	count := 0
	for _, ref := range refs {
		if len(flags[ref]) > 0 {
			count++
		}
	}
	return count, nil
}

//
// Votes
//

func (s *Store) SetVote(ctx context.Context, ref models.ContentRef, userID string, vote int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	votes := s.votes[ref]
	if votes == nil {
		votes = make(map[string]int)
		s.votes[ref] = votes
	}
	votes[userID] = vote
	return nil
}

func (s *Store) RemoveVote(ctx context.Context, ref models.ContentRef, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	votes := s.votes[ref]
	if _, ok := votes[userID]; !ok {
		return false, nil
	}
	delete(votes, userID)
	return true, nil
}

func (s *Store) ListVotes(ctx context.Context, ref models.ContentRef) ([]models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.Vote
	for _, userID := range sortedKeys(s.votes[ref]) {
		result = append(result, models.Vote{
			ContentType: ref.Type,
			ContentID:   ref.ID,
			UserID:      userID,
			Vote:        s.votes[ref][userID],
		})
	}
	return result, nil
}

//
// Subscriptions
//

func (s *Store) Subscribe(ctx context.Context, subscriberID string, ref models.ContentRef) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subKey{SubscriberID: subscriberID, Source: ref}
	if sub, ok := s.subscriptions[key]; ok {
		return &sub, nil
	}
	now := time.Now().UTC()
	sub := models.Subscription{
		SubscriberID: subscriberID,
		SourceType:   ref.Type,
		SourceID:     ref.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.subscriptions[key] = sub
	return &sub, nil
}

func (s *Store) Unsubscribe(ctx context.Context, subscriberID string, ref models.ContentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, subKey{SubscriberID: subscriberID, Source: ref})
	return nil
}

func (s *Store) ListSubscribers(ctx context.Context, ref models.ContentRef) ([]*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Subscription
	for key, sub := range s.subscriptions {
		if key.Source == ref {
			sub := sub
			result = append(result, &sub)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SubscriberID < result[j].SubscriberID })
	return result, nil
}

func (s *Store) ListUserSubscriptions(ctx context.Context, subscriberID string) ([]*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Subscription
	for key, sub := range s.subscriptions {
		if key.SubscriberID == subscriberID {
			sub := sub
			result = append(result, &sub)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SourceID < result[j].SourceID })
	return result, nil
}

func (s *Store) DeleteSubscriptionsFor(ctx context.Context, ref models.ContentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteSubscriptionsLocked(ref)
	return nil
}

func (s *Store) UnsubscribeAll(ctx context.Context, subscriberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.subscriptions {
		if key.SubscriberID == subscriberID {
			delete(s.subscriptions, key)
		}
	}
	return nil
}

func (s *Store) deleteSubscriptionsLocked(ref models.ContentRef) {
	for key := range s.subscriptions {
		if key.Source == ref {
			delete(s.subscriptions, key)
		}
	}
}

//
// Read states
//

func (s *Store) UpsertLastRead(ctx context.Context, userID, courseID, threadID string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCourse := s.readStates[userID]
	if byCourse == nil {
		byCourse = make(map[string]map[string]time.Time)
		s.readStates[userID] = byCourse
	}
	byThread := byCourse[courseID]
	if byThread == nil {
		byThread = make(map[string]time.Time)
		byCourse[courseID] = byThread
	}
	byThread[threadID] = ts
	return nil
}

func (s *Store) GetReadState(ctx context.Context, userID, courseID string) (*models.ReadState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := &models.ReadState{
		UserID:        userID,
		CourseID:      courseID,
		LastReadTimes: make(map[string]time.Time),
	}
	for threadID, ts := range s.readStates[userID][courseID] {
		state.LastReadTimes[threadID] = ts
	}
	return state, nil
}

func (s *Store) ListUserReadStates(ctx context.Context, userID string) ([]*models.ReadState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.ReadState
	for _, courseID := range sortedKeys(s.readStates[userID]) {
		state := &models.ReadState{
			UserID:        userID,
			CourseID:      courseID,
			LastReadTimes: make(map[string]time.Time),
		}
		for threadID, ts := range s.readStates[userID][courseID] {
			state.LastReadTimes[threadID] = ts
		}
		result = append(result, state)
	}
	return result, nil
}

//
// Stats
//

func (s *Store) ApplyStatDelta(ctx context.Context, userID, courseID string, d models.StatDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return forumdata.ErrNotFound
	}
	key := statKey{UserID: userID, CourseID: courseID}
	stat, ok := s.stats[key]
	if !ok {
		stat = models.CourseStat{UserID: userID, CourseID: courseID}
	}
	stat.ActiveFlags += d.ActiveFlags
	stat.InactiveFlags += d.InactiveFlags
	stat.Threads += d.Threads
	stat.Responses += d.Responses
	stat.Replies += d.Replies
	if d.LastActivityAt != nil {
		if stat.LastActivityAt == nil || d.LastActivityAt.After(*stat.LastActivityAt) {
			ts := *d.LastActivityAt
			stat.LastActivityAt = &ts
		}
	}
	s.stats[key] = stat
	return nil
}

func (s *Store) SetCourseStats(ctx context.Context, stat *models.CourseStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[stat.UserID]; !ok {
		return forumdata.ErrNotFound
	}
	s.stats[statKey{UserID: stat.UserID, CourseID: stat.CourseID}] = *stat
	return nil
}

func (s *Store) GetCourseStats(ctx context.Context, userID, courseID string) (*models.CourseStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stat, ok := s.stats[statKey{UserID: userID, CourseID: courseID}]
	if !ok {
		stat = models.CourseStat{UserID: userID, CourseID: courseID}
	}
	return &stat, nil
}

func (s *Store) ListCourseStatsPage(ctx context.Context, q forumdata.CourseStatsQuery) ([]*models.UserCourseStats, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wantUsername := make(map[string]bool)
	for _, username := range q.Usernames {
		wantUsername[username] = true
	}

	var rows []*models.UserCourseStats
	for key, stat := range s.stats {
		if key.CourseID != q.CourseID {
			continue
		}
		u := s.users[key.UserID]
		if len(wantUsername) > 0 && !wantUsername[u.Username] {
			continue
		}
		rows = append(rows, &models.UserCourseStats{User: u, CourseStat: stat})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch q.Sort {
		case forumdata.StatsSortRecency:
			at, bt := unixOrZero(a.LastActivityAt), unixOrZero(b.LastActivityAt)
			if at != bt {
				return at > bt
			}
		case forumdata.StatsSortFlagged:
			if a.ActiveFlags != b.ActiveFlags {
				return a.ActiveFlags > b.ActiveFlags
			}
			if a.InactiveFlags != b.InactiveFlags {
				return a.InactiveFlags > b.InactiveFlags
			}
		default:
			if a.CourseStat.Threads != b.CourseStat.Threads {
				return a.CourseStat.Threads > b.CourseStat.Threads
			}
			if a.Responses != b.Responses {
				return a.Responses > b.Responses
			}
			if a.Replies != b.Replies {
				return a.Replies > b.Replies
			}
		}
		return a.Username > b.Username
	})

	total := len(rows)
	return pageOf(rows, q.PerPage, (q.Page-1)*q.PerPage), total, nil
}

func (s *Store) ListCourseAuthors(ctx context.Context, courseID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	for _, t := range s.threads {
		if t.CourseID == courseID && t.CountsTowardStats() {
			seen[t.AuthorID] = true
		}
	}
	for _, c := range s.comments {
		if c.CourseID == courseID && c.CountsTowardStats() {
			seen[c.AuthorID] = true
		}
	}
	return sortedKeys(seen), nil
}

//
// Identity mappings
//

func (s *Store) MapIdentity(ctx context.Context, sourceID string, ref models.ContentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[sourceID] = ref
	return nil
}

func (s *Store) LookupIdentity(ctx context.Context, sourceID string) (models.ContentRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.identities[sourceID]
	if !ok {
		return models.ContentRef{}, forumdata.ErrNotFound
	}
	return ref, nil
}

//
// Course administration
//

func (s *Store) CountCourseData(ctx context.Context, courseID string) (*forumdata.CourseDataCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countCourseDataLocked(courseID), nil
}

func (s *Store) DeleteCourseData(ctx context.Context, courseID string) (*forumdata.CourseDataCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := s.countCourseDataLocked(courseID)

	courseRefs := make(map[models.ContentRef]bool)
	for id, t := range s.threads {
		if t.CourseID == courseID {
			courseRefs[t.Ref()] = true
			delete(s.threads, id)
		}
	}
	for id, c := range s.comments {
		if c.CourseID == courseID {
			courseRefs[c.Ref()] = true
			delete(s.comments, id)
		}
	}
	for ref := range courseRefs {
		delete(s.activeFlags, ref)
		delete(s.historicalFlags, ref)
		delete(s.votes, ref)
		s.deleteSubscriptionsLocked(ref)
	}
	for key := range s.stats {
		if key.CourseID == courseID {
			delete(s.stats, key)
		}
	}
	for _, byCourse := range s.readStates {
		delete(byCourse, courseID)
	}
	return counts, nil
}

func (s *Store) countCourseDataLocked(courseID string) *forumdata.CourseDataCounts {
	counts := &forumdata.CourseDataCounts{}
	courseRefs := make(map[models.ContentRef]bool)
	for _, t := range s.threads {
		if t.CourseID == courseID {
			counts.Threads++
			courseRefs[t.Ref()] = true
		}
	}
	for _, c := range s.comments {
		if c.CourseID == courseID {
			counts.Comments++
			courseRefs[c.Ref()] = true
		}
	}
	for key := range s.subscriptions {
		if courseRefs[key.Source] {
			counts.Subscriptions++
		}
	}
	for key := range s.stats {
		if key.CourseID == courseID {
			counts.CourseStats++
		}
	}
	for _, byCourse := range s.readStates {
		if len(byCourse[courseID]) > 0 {
			counts.ReadStates++
		}
	}
	return counts
}

//
// Helpers
//

func pageOf[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func unixOrZero(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
