package pgstore

import (
	"errors"

	"github.com/openedx/forum/src/db"
	"github.com/openedx/forum/src/forumdata"
)

// Store is the relational storage engine, backed by Postgres. It works
// equally well over a connection pool or an open transaction.
type Store struct {
	db db.ConnOrTx
}

var _ forumdata.Store = &Store{}

func NewStore(conn db.ConnOrTx) *Store {
	return &Store{db: conn}
}

func translateNotFound(err error) error {
	if errors.Is(err, db.NotFound) {
		return forumdata.ErrNotFound
	}
	return err
}
