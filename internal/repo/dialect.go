package repo

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

const pgUniqueViolation = "23505"

type dialect struct {
	name       string
	driverName string
	schema     []string
	rebind     func(query string) string
	isUnique   func(err error) bool
}

var numberedParam = regexp.MustCompile(`\$(\d+)`)

var postgresDialect = dialect{
	name:       "postgres",
	driverName: "pgx",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS events (
			id          BIGSERIAL PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			address     TEXT NOT NULL DEFAULT '',
			date        TIMESTAMPTZ NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attendees (
			id                BIGSERIAL PRIMARY KEY,
			event_id          BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			name              TEXT NOT NULL,
			email             TEXT NOT NULL DEFAULT '',
			phone             TEXT NOT NULL DEFAULT '',
			open1             TEXT NOT NULL DEFAULT '',
			open2             TEXT NOT NULL DEFAULT '',
			open3             TEXT NOT NULL DEFAULT '',
			attendance_status TEXT NOT NULL DEFAULT 'registered',
			invitation_status TEXT NOT NULL DEFAULT 'not_sent',
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS attendees_event_idx ON attendees (event_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS attendees_event_phone_uq ON attendees (event_id, phone) WHERE phone <> ''`,
		`CREATE TABLE IF NOT EXISTS admins (
			id            BIGSERIAL PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL
		)`,
	},
	rebind: func(q string) string { return q },
	isUnique: func(err error) bool {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
	},
}

var sqliteDialect = dialect{
	name:       "sqlite",
	driverName: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			address     TEXT NOT NULL DEFAULT '',
			date        TIMESTAMP NULL,
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attendees (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id          INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			name              TEXT NOT NULL,
			email             TEXT NOT NULL DEFAULT '',
			phone             TEXT NOT NULL DEFAULT '',
			open1             TEXT NOT NULL DEFAULT '',
			open2             TEXT NOT NULL DEFAULT '',
			open3             TEXT NOT NULL DEFAULT '',
			attendance_status TEXT NOT NULL DEFAULT 'registered',
			invitation_status TEXT NOT NULL DEFAULT 'not_sent',
			created_at        TIMESTAMP NOT NULL,
			updated_at        TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS attendees_event_idx ON attendees (event_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS attendees_event_phone_uq ON attendees (event_id, phone) WHERE phone <> ''`,
		`CREATE TABLE IF NOT EXISTS admins (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL
		)`,
	},
	// SQLite reads $N as a named parameter; ?N keeps the positional meaning.
	rebind: func(q string) string { return numberedParam.ReplaceAllString(q, "?$1") },
	isUnique: func(err error) bool {
		var sqErr sqlite3.Error
		return errors.As(err, &sqErr) && sqErr.ExtendedCode == sqlite3.ErrConstraintUnique
	},
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "postgres":
		return postgresDialect, nil
	case "sqlite":
		return sqliteDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}
