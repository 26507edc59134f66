package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/openedx/forum/src/migration/types"
)

func init() {
	registerMigration(CreateForumSchema{})
}

type CreateForumSchema struct{}

func (m CreateForumSchema) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 7, 14, 9, 21, 0, 0, time.UTC))
}

func (m CreateForumSchema) Name() string {
	return "CreateForumSchema"
}

func (m CreateForumSchema) Description() string {
	return "Create all the tables for the forum"
}

func (m CreateForumSchema) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE forum_user (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			default_sort_key TEXT NOT NULL DEFAULT 'date'
		);
		CREATE INDEX forum_user_username ON forum_user (username);

		CREATE TABLE course_stat (
			user_id TEXT NOT NULL REFERENCES forum_user (id) ON DELETE CASCADE,
			course_id TEXT NOT NULL,
			active_flags INT NOT NULL DEFAULT 0,
			inactive_flags INT NOT NULL DEFAULT 0,
			threads INT NOT NULL DEFAULT 0,
			responses INT NOT NULL DEFAULT 0,
			replies INT NOT NULL DEFAULT 0,
			last_activity_at TIMESTAMP WITH TIME ZONE,
			PRIMARY KEY (user_id, course_id)
		);
		CREATE INDEX course_stat_course ON course_stat (course_id);

		CREATE TABLE thread (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL REFERENCES forum_user (id),
			author_username TEXT NOT NULL,
			retired_username TEXT,
			course_id TEXT NOT NULL,
			body TEXT NOT NULL,
			visible BOOLEAN NOT NULL DEFAULT TRUE,
			anonymous BOOLEAN NOT NULL DEFAULT FALSE,
			anonymous_to_peers BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			title TEXT NOT NULL,
			thread_type TEXT NOT NULL DEFAULT 'discussion',
			context TEXT NOT NULL DEFAULT 'course',
			closed BOOLEAN NOT NULL DEFAULT FALSE,
			closed_by_id TEXT,
			close_reason_code TEXT,
			pinned BOOLEAN NOT NULL DEFAULT FALSE,
			commentable_id TEXT,
			last_activity_at TIMESTAMP WITH TIME ZONE
		);
		CREATE INDEX thread_course ON thread (course_id);
		CREATE INDEX thread_author_course ON thread (author_id, course_id);

		CREATE TABLE comment (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL REFERENCES forum_user (id),
			author_username TEXT NOT NULL,
			retired_username TEXT,
			course_id TEXT NOT NULL,
			body TEXT NOT NULL,
			visible BOOLEAN NOT NULL DEFAULT TRUE,
			anonymous BOOLEAN NOT NULL DEFAULT FALSE,
			anonymous_to_peers BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			thread_id TEXT NOT NULL REFERENCES thread (id) ON DELETE CASCADE,
			parent_id TEXT REFERENCES comment (id),
			depth INT NOT NULL DEFAULT 0,
			sort_key TEXT NOT NULL,
			child_count INT NOT NULL DEFAULT 0,
			endorsed BOOLEAN NOT NULL DEFAULT FALSE,
			endorsement_user_id TEXT,
			endorsement_time TIMESTAMP WITH TIME ZONE
		);
		CREATE INDEX comment_thread_sort ON comment (thread_id, sort_key);
		CREATE INDEX comment_parent ON comment (parent_id);
		CREATE INDEX comment_author_course ON comment (author_id, course_id);

		CREATE TABLE abuse_flag (
			content_type TEXT NOT NULL,
			content_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			flagged_at TIMESTAMP WITH TIME ZONE NOT NULL,
			PRIMARY KEY (content_type, content_id, user_id)
		);

		CREATE TABLE historical_abuse_flag (
			content_type TEXT NOT NULL,
			content_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			flagged_at TIMESTAMP WITH TIME ZONE NOT NULL,
			PRIMARY KEY (content_type, content_id, user_id)
		);

		CREATE TABLE user_vote (
			content_type TEXT NOT NULL,
			content_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			vote INT NOT NULL,
			PRIMARY KEY (content_type, content_id, user_id)
		);

		CREATE TABLE subscription (
			subscriber_id TEXT NOT NULL REFERENCES forum_user (id) ON DELETE CASCADE,
			source_type TEXT NOT NULL,
			source_id TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			PRIMARY KEY (subscriber_id, source_type, source_id)
		);
		CREATE INDEX subscription_source ON subscription (source_type, source_id);

		CREATE TABLE last_read_time (
			user_id TEXT NOT NULL REFERENCES forum_user (id) ON DELETE CASCADE,
			course_id TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			last_read_at TIMESTAMP WITH TIME ZONE NOT NULL,
			PRIMARY KEY (user_id, course_id, thread_id)
		);
		CREATE INDEX last_read_time_course ON last_read_time (course_id);

		CREATE TABLE content_mapping (
			source_id TEXT PRIMARY KEY,
			content_type TEXT NOT NULL,
			content_id TEXT NOT NULL
		);
	`)
	return err
}

func (m CreateForumSchema) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE content_mapping;
		DROP TABLE last_read_time;
		DROP TABLE subscription;
		DROP TABLE user_vote;
		DROP TABLE historical_abuse_flag;
		DROP TABLE abuse_flag;
		DROP TABLE comment;
		DROP TABLE thread;
		DROP TABLE course_stat;
		DROP TABLE forum_user;
	`)
	return err
}
