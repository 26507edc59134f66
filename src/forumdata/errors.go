package forumdata

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by engines when a user, thread, comment, or
// identity mapping does not exist. Engines translate their own sentinel
// (pgx.ErrNoRows, mongo.ErrNoDocuments) into this one so callers never
// have to know which engine they are talking to.
var ErrNotFound = errors.New("not found")

// ErrValidation wraps all caller-input failures: bad vote directions,
// cross-thread parents, unknown sort keys, over-deep reply nesting.
var ErrValidation = errors.New("validation failed")

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
