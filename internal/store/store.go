// Package store keeps daylog's users and journal entries in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daylog/daylog/internal/daytime"
	"github.com/daylog/daylog/internal/scheduler"
	"github.com/hashicorp/go-multierror"
	_ "modernc.org/sqlite"
)

// DateLayout is how entry dates are stored.
const DateLayout = "2006-01-02"

var (
	// ErrBadUser marks a user row whose timezone or send time cannot be used.
	ErrBadUser = errors.New("invalid user")
	// ErrNoSuchUser is returned when a username is not in the users table.
	ErrNoSuchUser = errors.New("no such user")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL,
    timezone TEXT NOT NULL,
    email_time_local TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY,
    username TEXT NOT NULL,
    date TEXT NOT NULL,
    body TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS entries_username_date ON entries (username, date);
`

// SQLite is the SQLite-backed store. It implements scheduler.Storage.
type SQLite struct {
	db *sql.DB
}

var _ scheduler.Storage = (*SQLite)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error: cannot open database %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error: cannot initialise database %s: %w", path, err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// LoadUsers returns every user ordered by username. A single unusable row
// fails the whole load with ErrBadUser, listing every bad row.
func (s *SQLite) LoadUsers(ctx context.Context) ([]scheduler.User, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT username, email, timezone, email_time_local
        FROM users
        ORDER BY username ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("error: failed to query users: %w", err)
	}
	defer rows.Close()

	var (
		users []scheduler.User
		bad   *multierror.Error
	)
	for rows.Next() {
		var username, email, tz, sendTime string
		if err := rows.Scan(&username, &email, &tz, &sendTime); err != nil {
			return nil, fmt.Errorf("error: failed to scan user row: %w", err)
		}
		u, err := NewUser(username, email, tz, sendTime)
		if err != nil {
			bad = multierror.Append(bad, err)
			continue
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error: failed to iterate user rows: %w", err)
	}
	if err := bad.ErrorOrNil(); err != nil {
		return nil, err
	}
	return users, nil
}

// NewUser validates the raw column values of a user.
func NewUser(username, email, tz, sendTime string) (scheduler.User, error) {
	if strings.TrimSpace(username) == "" || strings.ContainsAny(username, "\r\n") {
		return scheduler.User{}, fmt.Errorf("%w: empty or multi-line username %q", ErrBadUser, username)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" || strings.EqualFold(tz, "local") {
		return scheduler.User{}, fmt.Errorf("%w %s: unknown timezone %q", ErrBadUser, username, tz)
	}
	at, err := daytime.Parse(sendTime)
	if err != nil {
		return scheduler.User{}, fmt.Errorf("%w %s: %w", ErrBadUser, username, err)
	}
	return scheduler.User{Username: username, Email: email, Timezone: loc, SendTime: at}, nil
}

// User returns the named user.
func (s *SQLite) User(ctx context.Context, username string) (scheduler.User, error) {
	var email, tz, sendTime string
	err := s.db.QueryRowContext(ctx, `
        SELECT email, timezone, email_time_local FROM users WHERE username = ?
    `, username).Scan(&email, &tz, &sendTime)
	if errors.Is(err, sql.ErrNoRows) {
		return scheduler.User{}, fmt.Errorf("%w: %s", ErrNoSuchUser, username)
	}
	if err != nil {
		return scheduler.User{}, fmt.Errorf("error: failed to query user %s: %w", username, err)
	}
	return NewUser(username, email, tz, sendTime)
}

// PutUser inserts u or replaces the user with the same username.
func (s *SQLite) PutUser(ctx context.Context, u scheduler.User) error {
	if u.Timezone == nil {
		return fmt.Errorf("%w %s: missing timezone", ErrBadUser, u.Username)
	}
	if _, err := NewUser(u.Username, u.Email, u.Timezone.String(), u.SendTime.String()); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO users (username, email, timezone, email_time_local)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (username) DO UPDATE SET
            email = excluded.email,
            timezone = excluded.timezone,
            email_time_local = excluded.email_time_local
    `, u.Username, u.Email, u.Timezone.String(), u.SendTime.String())
	if err != nil {
		return fmt.Errorf("error: failed to store user %s: %w", u.Username, err)
	}
	return nil
}

// RemoveUser deletes a user. Their entries are kept.
func (s *SQLite) RemoveUser(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("error: failed to remove user %s: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNoSuchUser, username)
	}
	return nil
}

// AddEntry stores body as the user's entry for date. A second entry for the
// same day is appended on a new line.
func (s *SQLite) AddEntry(ctx context.Context, username string, date time.Time, body string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO entries (username, date, body)
        VALUES (?, ?, ?)
        ON CONFLICT (username, date) DO UPDATE SET
            body = entries.body || char(10) || excluded.body
    `, username, date.Format(DateLayout), body)
	if err != nil {
		return fmt.Errorf("error: failed to store entry for %s on %s: %w", username, date.Format(DateLayout), err)
	}
	return nil
}

// Entry returns the user's entry for date, reporting false if there is none.
func (s *SQLite) Entry(ctx context.Context, username string, date time.Time) (string, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
        SELECT body FROM entries WHERE username = ? AND date = ?
    `, username, date.Format(DateLayout)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error: failed to query entry: %w", err)
	}
	return body, true, nil
}

// OldestEntryDate returns the date of the user's first entry, reporting
// false if they have none.
func (s *SQLite) OldestEntryDate(ctx context.Context, username string) (time.Time, bool, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx, `
        SELECT MIN(date) FROM entries WHERE username = ?
    `, username).Scan(&date)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("error: failed to query oldest entry: %w", err)
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(DateLayout, date.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("error: bad entry date %q: %w", date.String, err)
	}
	return t, true, nil
}
