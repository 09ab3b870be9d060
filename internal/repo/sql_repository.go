package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LeventeLantos/event-checkin/internal/model"
)

// SQLRepository implements the event, attendee and admin repositories on top
// of database/sql for both Postgres and SQLite.
type SQLRepository struct {
	db  *sql.DB
	d   dialect
	now func() time.Time
}

var (
	_ EventRepository    = (*SQLRepository)(nil)
	_ AttendeeRepository = (*SQLRepository)(nil)
	_ AdminRepository    = (*SQLRepository)(nil)
)

// Open connects with the driver registered for the given dialect name
// ("postgres" or "sqlite") and verifies the connection.
func Open(ctx context.Context, driver, url string) (*sql.DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driverName, url)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if d.name == "sqlite" {
		// A single writer avoids SQLITE_BUSY under concurrent handlers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func NewSQLRepository(db *sql.DB, driver string) (*SQLRepository, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLRepository{db: db, d: d, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, stmt := range r.d.schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (r *SQLRepository) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.d.rebind(q), args...)
}

func (r *SQLRepository) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.d.rebind(q), args...)
}

func (r *SQLRepository) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.d.rebind(q), args...)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Events

const eventColumns = `id, title, description, address, date, created_at, updated_at`

func (r *SQLRepository) CreateEvent(ctx context.Context, e *model.Event) error {
	now := r.now()
	err := r.queryRow(ctx, `
		INSERT INTO events (title, description, address, date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`, e.Title, e.Description, e.Address, nullTime(e.Date), now).Scan(&e.ID)
	if err != nil {
		return err
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

func (r *SQLRepository) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	row := r.queryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (r *SQLRepository) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *SQLRepository) UpdateEvent(ctx context.Context, e *model.Event) error {
	now := r.now()
	err := affectedOne(r.exec(ctx, `
		UPDATE events
		SET title = $2, description = $3, address = $4, date = $5, updated_at = $6
		WHERE id = $1
	`, e.ID, e.Title, e.Description, e.Address, nullTime(e.Date), now))
	if err != nil {
		return err
	}
	e.UpdatedAt = now
	return nil
}

// DeleteEvent removes the event and its attendees in one transaction.
func (r *SQLRepository) DeleteEvent(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, r.d.rebind(`DELETE FROM attendees WHERE event_id = $1`), id); err != nil {
		return err
	}
	if err := affectedOne(tx.ExecContext(ctx, r.d.rebind(`DELETE FROM events WHERE id = $1`), id)); err != nil {
		return err
	}
	return tx.Commit()
}

// Attendees

const attendeeColumns = `id, event_id, name, email, phone, open1, open2, open3,
	attendance_status, invitation_status, created_at, updated_at`

func (r *SQLRepository) CreateAttendee(ctx context.Context, a *model.Attendee) error {
	if a.AttendanceStatus == "" {
		a.AttendanceStatus = model.Registered
	}
	if a.InvitationStatus == "" {
		a.InvitationStatus = model.NotSent
	}
	now := r.now()
	err := r.queryRow(ctx, `
		INSERT INTO attendees (event_id, name, email, phone, open1, open2, open3,
			attendance_status, invitation_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id
	`, a.EventID, a.Name, a.Email, a.Phone, a.Open1, a.Open2, a.Open3,
		string(a.AttendanceStatus), string(a.InvitationStatus), now).Scan(&a.ID)
	if err != nil {
		if r.d.isUnique(err) {
			return ErrDuplicatePhone
		}
		return err
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (r *SQLRepository) GetAttendee(ctx context.Context, id int64) (*model.Attendee, error) {
	row := r.queryRow(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE id = $1`, id)
	a, err := scanAttendee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *SQLRepository) GetEventAttendee(ctx context.Context, eventID, attendeeID int64) (*model.Attendee, error) {
	row := r.queryRow(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE id = $1 AND event_id = $2`,
		attendeeID, eventID)
	a, err := scanAttendee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListAttendees returns an event's attendees in insertion order. A non-empty
// search matches case-insensitively against the text columns and the
// attendance status.
func (r *SQLRepository) ListAttendees(ctx context.Context, eventID int64, search string) ([]model.Attendee, error) {
	q := `SELECT ` + attendeeColumns + ` FROM attendees WHERE event_id = $1`
	args := []any{eventID}

	if s := strings.TrimSpace(search); s != "" {
		q += ` AND (LOWER(name) LIKE LOWER($2) ESCAPE '\' OR LOWER(email) LIKE LOWER($2) ESCAPE '\'
			OR LOWER(phone) LIKE LOWER($2) ESCAPE '\' OR LOWER(open1) LIKE LOWER($2) ESCAPE '\'
			OR LOWER(open2) LIKE LOWER($2) ESCAPE '\' OR LOWER(open3) LIKE LOWER($2) ESCAPE '\'
			OR LOWER(attendance_status) LIKE LOWER($2) ESCAPE '\')`
		args = append(args, "%"+likeEscaper.Replace(s)+"%")
	}
	q += ` ORDER BY id ASC`

	return r.listAttendees(ctx, q, args...)
}

func (r *SQLRepository) ListAllAttendees(ctx context.Context) ([]model.Attendee, error) {
	return r.listAttendees(ctx, `SELECT `+attendeeColumns+` FROM attendees ORDER BY event_id ASC, id ASC`)
}

func (r *SQLRepository) listAttendees(ctx context.Context, q string, args ...any) ([]model.Attendee, error) {
	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Attendee{}
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *SQLRepository) UpdateAttendee(ctx context.Context, a *model.Attendee) error {
	now := r.now()
	err := affectedOne(r.exec(ctx, `
		UPDATE attendees
		SET name = $3, email = $4, phone = $5, open1 = $6, open2 = $7, open3 = $8,
		    attendance_status = $9, invitation_status = $10, updated_at = $11
		WHERE id = $1 AND event_id = $2
	`, a.ID, a.EventID, a.Name, a.Email, a.Phone, a.Open1, a.Open2, a.Open3,
		string(a.AttendanceStatus), string(a.InvitationStatus), now))
	if err != nil {
		if r.d.isUnique(err) {
			return ErrDuplicatePhone
		}
		return err
	}
	a.UpdatedAt = now
	return nil
}

func (r *SQLRepository) DeleteAttendee(ctx context.Context, eventID, attendeeID int64) error {
	return affectedOne(r.exec(ctx, `DELETE FROM attendees WHERE id = $1 AND event_id = $2`, attendeeID, eventID))
}

func (r *SQLRepository) DeleteEventAttendees(ctx context.Context, eventID int64) (int64, error) {
	res, err := r.exec(ctx, `DELETE FROM attendees WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLRepository) SetInvitationStatus(ctx context.Context, id int64, status model.InvitationStatus) error {
	return affectedOne(r.exec(ctx, `
		UPDATE attendees SET invitation_status = $2, updated_at = $3 WHERE id = $1
	`, id, string(status), r.now()))
}

// SetAttendanceStatus is a compare-and-set: the update only applies while
// the stored status still equals from.
func (r *SQLRepository) SetAttendanceStatus(ctx context.Context, id int64, from, to model.AttendanceStatus) error {
	res, err := r.exec(ctx, `
		UPDATE attendees SET attendance_status = $3, updated_at = $4
		WHERE id = $1 AND attendance_status = $2
	`, id, string(from), string(to), r.now())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetAttendee(ctx, id); err != nil {
		return err
	}
	return ErrStaleStatus
}

// Admins

func (r *SQLRepository) CreateAdmin(ctx context.Context, a *model.AdminUser) error {
	now := r.now()
	err := r.queryRow(ctx, `
		INSERT INTO admins (email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, strings.ToLower(strings.TrimSpace(a.Email)), a.Name, a.PasswordHash, now).Scan(&a.ID)
	if err != nil {
		if r.d.isUnique(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.CreatedAt = now
	return nil
}

func (r *SQLRepository) FindAdminByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	row := r.queryRow(ctx, `SELECT id, email, name, password_hash, created_at FROM admins WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanAdmin(row)
}

func (r *SQLRepository) GetAdmin(ctx context.Context, id int64) (*model.AdminUser, error) {
	row := r.queryRow(ctx, `SELECT id, email, name, password_hash, created_at FROM admins WHERE id = $1`, id)
	return scanAdmin(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*model.Event, error) {
	var e model.Event
	var date sql.NullTime
	if err := s.Scan(&e.ID, &e.Title, &e.Description, &e.Address, &date, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if date.Valid {
		t := date.Time
		e.Date = &t
	}
	return &e, nil
}

func scanAttendee(s scanner) (*model.Attendee, error) {
	var a model.Attendee
	var attendance, invitation string
	if err := s.Scan(
		&a.ID,
		&a.EventID,
		&a.Name,
		&a.Email,
		&a.Phone,
		&a.Open1,
		&a.Open2,
		&a.Open3,
		&attendance,
		&invitation,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.AttendanceStatus = model.AttendanceStatus(attendance)
	a.InvitationStatus = model.InvitationStatus(invitation)
	return &a, nil
}

func scanAdmin(row *sql.Row) (*model.AdminUser, error) {
	var a model.AdminUser
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
