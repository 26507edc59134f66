package models

import "time"

// Per-(user, course) read state: when the user last read each thread.
type ReadState struct {
	UserID        string
	CourseID      string
	LastReadTimes map[string]time.Time // thread id -> last read
}
