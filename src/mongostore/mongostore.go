package mongostore

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"github.com/openedx/forum/src/config"
	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/logging"
	"github.com/openedx/forum/src/oops"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

/*
Store is the document storage engine, backed by MongoDB. Threads and
comments share one collection, discriminated by a `_type` field, with flags
and votes embedded on each content document; per-course stats and read
states are embedded on the user document.
*/
type Store struct {
	client *mongo.Client

	users         *mongo.Collection
	contents      *mongo.Collection
	subscriptions *mongo.Collection
	mappings      *mongo.Collection
}

var _ forumdata.Store = &Store{}

const connectAttempts = 5

// Connect dials MongoDB, retrying with exponential backoff; replica sets
// routinely take a few seconds to elect a primary on startup.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	opts := options.Client().
		ApplyURI(cfg.Uri).
		SetMaxPoolSize(cfg.MaxPoolSize)
	if cfg.Username != "" {
		opts = opts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		})
	}

	b := backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var client *mongo.Client
	var err error
	for attempt := 1; ; attempt++ {
		client, err = mongo.Connect(ctx, opts)
		if err == nil {
			err = client.Ping(ctx, readpref.Primary())
			if err == nil {
				break
			}
			client.Disconnect(ctx)
		}
		if attempt >= connectAttempts {
			return nil, oops.New(err, "failed to connect to MongoDB after %d attempts", attempt)
		}
		wait := b.Duration()
		logging.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("failed to connect to MongoDB, retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return NewStore(client, client.Database(cfg.Database)), nil
}

func NewStore(client *mongo.Client, dbh *mongo.Database) *Store {
	return &Store{
		client: client,

		users:         dbh.Collection("users"),
		contents:      dbh.Collection("contents"),
		subscriptions: dbh.Collection("subscriptions"),
		mappings:      dbh.Collection("content_mappings"),
	}
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func translateNoDocuments(err error) error {
	if err == mongo.ErrNoDocuments {
		return forumdata.ErrNotFound
	}
	return err
}
