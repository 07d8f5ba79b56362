package postgres

import (
	"context"
	"fmt"
)

// schema holds the DDL applied on connect. The unique indexes are the
// constraint backstop for the invariants enforced in transactions:
// one user per email, one connection row per unordered user pair, one
// reaction per (post, user).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email)`,

	`CREATE TABLE IF NOT EXISTS connections (
		id BIGSERIAL PRIMARY KEY,
		requester_id BIGINT NOT NULL REFERENCES users (id),
		receiver_id BIGINT NOT NULL REFERENCES users (id),
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS connections_pair_key
		ON connections (LEAST(requester_id, receiver_id), GREATEST(requester_id, receiver_id))`,

	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		sender_id BIGINT NOT NULL REFERENCES users (id),
		receiver_id BIGINT NOT NULL REFERENCES users (id),
		body TEXT NOT NULL,
		message_type TEXT NOT NULL DEFAULT 'text',
		attachment_url TEXT,
		attachment_name TEXT,
		attachment_size BIGINT,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		read_at TIMESTAMPTZ,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		reply_to_id BIGINT REFERENCES messages (id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS messages_pair_idx ON messages (sender_id, receiver_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS messages_unread_idx ON messages (receiver_id) WHERE NOT is_read AND NOT is_deleted`,

	`CREATE TABLE IF NOT EXISTS posts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users (id),
		content TEXT NOT NULL,
		post_type TEXT NOT NULL DEFAULT 'text',
		media_url TEXT,
		media_thumbnail TEXT,
		article_title TEXT,
		article_summary TEXT,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS posts_feed_idx ON posts (created_at DESC, id DESC) WHERE NOT is_deleted`,

	`CREATE TABLE IF NOT EXISTS post_reactions (
		id BIGSERIAL PRIMARY KEY,
		post_id BIGINT NOT NULL REFERENCES posts (id),
		user_id BIGINT NOT NULL REFERENCES users (id),
		reaction_type TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS post_reactions_post_user_key ON post_reactions (post_id, user_id)`,

	`CREATE TABLE IF NOT EXISTS post_comments (
		id BIGSERIAL PRIMARY KEY,
		post_id BIGINT NOT NULL REFERENCES posts (id),
		user_id BIGINT NOT NULL REFERENCES users (id),
		content TEXT NOT NULL,
		parent_comment_id BIGINT REFERENCES post_comments (id),
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS post_comments_post_idx ON post_comments (post_id, created_at)`,
}

// EnsureSchema applies the DDL. Statements are idempotent, so the call
// is safe on every start.
func (pg *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := pg.bun.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
