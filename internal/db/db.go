package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Database struct {
	Conn *sql.DB
}

func NewDatabase(dsn string) (*Database, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)
	return &Database{Conn: conn}, nil
}

func (d *Database) AutoMigrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username VARCHAR(50) UNIQUE NOT NULL,
            password VARCHAR(255) NOT NULL,
            gender VARCHAR(10) NOT NULL CHECK (gender IN ('male', 'female')),
            interested_in VARCHAR(10) NOT NULL CHECK (interested_in IN ('male', 'female', 'both')),
            online BOOLEAN NOT NULL DEFAULT FALSE,
            last_seen_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		// Append-only ledger: a user may swipe the same target repeatedly, so
		// there is deliberately no uniqueness constraint on (actor, target).
		`CREATE TABLE IF NOT EXISTS swipes (
            id SERIAL PRIMARY KEY,
            actor_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            target_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            action VARCHAR(10) NOT NULL CHECK (action IN ('like', 'pass')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CHECK (actor_id <> target_id)
        )`,

		`CREATE INDEX IF NOT EXISTS idx_swipes_actor_action
            ON swipes (actor_id, action, created_at)`,

		// user_a < user_b, so the unique index gives exactly one row per pair
		// and makes concurrent get-or-create race-safe.
		`CREATE TABLE IF NOT EXISTS conversations (
            id SERIAL PRIMARY KEY,
            user_a INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            user_b INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
            last_message TEXT,
            last_message_at TIMESTAMPTZ,
            CHECK (user_a < user_b),
            UNIQUE (user_a, user_b)
        )`,

		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            conversation_id INT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            content TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
            delivered_at TIMESTAMPTZ,
            read_at TIMESTAMPTZ
        )`,

		`CREATE INDEX IF NOT EXISTS idx_messages_conversation
            ON messages (conversation_id, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := d.Conn.Exec(query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
