// Package dbtest opens throwaway SQLite databases carrying the application
// schema so repositories and services can be exercised without Postgres.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE courses (
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  currency TEXT NOT NULL,
  is_free INTEGER NOT NULL DEFAULT 0,
  is_published INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE videos (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL,
  title TEXT NOT NULL,
  position INTEGER NOT NULL,
  duration_seconds INTEGER NOT NULL DEFAULT 0,
  asset_id TEXT NOT NULL DEFAULT '',
  playback_id TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'preparing',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (course_id, position)
);`,
	`CREATE TABLE packs (
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  currency TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE pack_courses (
  pack_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  PRIMARY KEY (pack_id, course_id)
);`,
	`CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT,
  pack_id TEXT,
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL,
  method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  transaction_id TEXT NOT NULL UNIQUE,
  provider_metadata TEXT,
  settled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK ((course_id IS NULL) <> (pack_id IS NULL))
);`,
	`CREATE TABLE user_courses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  source TEXT NOT NULL,
  payment_id TEXT,
  granted_at DATETIME NOT NULL,
  UNIQUE (user_id, course_id)
);`,
	`CREATE TABLE course_progress (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  total_progress INTEGER NOT NULL DEFAULT 0,
  is_completed INTEGER NOT NULL DEFAULT 0,
  completed_at DATETIME,
  certificate_issued INTEGER NOT NULL DEFAULT 0,
  certificate_id TEXT UNIQUE,
  certificate_url TEXT,
  certificate_issued_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, course_id),
  CHECK (certificate_issued = 0 OR is_completed = 1)
);`,
	`CREATE TABLE course_progress_videos (
  id TEXT PRIMARY KEY,
  progress_id TEXT NOT NULL,
  video_id TEXT NOT NULL,
  completed INTEGER NOT NULL DEFAULT 0,
  watched_seconds INTEGER NOT NULL DEFAULT 0,
  last_position INTEGER NOT NULL DEFAULT 0,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (progress_id, video_id)
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// Client boots db.Client on a private in-memory sqlite database with every
// application table created.
func Client(t *testing.T) *db.Client {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		Driver: db.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString()),
		// SQLite allows one writer; a single connection keeps concurrent tests from hitting SQLITE_BUSY.
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	for _, stmt := range schema {
		require.NoError(t, client.DB().Exec(stmt).Error)
	}
	return client
}
