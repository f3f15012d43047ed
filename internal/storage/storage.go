// Package storage persists guests, wedding details, and the audit log in a
// sqlite database, keyed by owner.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"wedding-rsvp/internal/models"
)

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS guests (
	owner_id        TEXT NOT NULL,
	name            TEXT NOT NULL,
	invitation_name TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL,
	whose           TEXT NOT NULL DEFAULT '',
	circle          TEXT NOT NULL DEFAULT '',
	number_of_guests INTEGER NOT NULL DEFAULT 1,
	rsvp            INTEGER,
	message_group   INTEGER,
	PRIMARY KEY (owner_id, phone, name)
);

CREATE TABLE IF NOT EXISTS wedding_details (
	owner_id        TEXT PRIMARY KEY,
	bride_name      TEXT NOT NULL DEFAULT '',
	groom_name      TEXT NOT NULL DEFAULT '',
	wedding_date    TEXT NOT NULL DEFAULT '',
	wedding_hour    TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	waze_link       TEXT NOT NULL DEFAULT '',
	payment_link    TEXT NOT NULL DEFAULT '',
	additional_info TEXT NOT NULL DEFAULT '',
	reminder_day    TEXT NOT NULL DEFAULT 'day_before',
	reminder_hour   TEXT NOT NULL DEFAULT '',
	image_path      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS client_logs (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_guests_phone ON guests (phone);
CREATE INDEX IF NOT EXISTS idx_logs_owner ON client_logs (owner_id, created_at);
`

// Open opens (and if needed initializes) the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const guestColumns = "owner_id, name, invitation_name, phone, whose, circle, number_of_guests, rsvp, message_group"

// Guests returns the owner's full guest list.
func (s *Store) Guests(ctx context.Context, ownerID string) ([]models.Guest, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+guestColumns+" FROM guests WHERE owner_id = ? ORDER BY whose, name", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close()
	return scanGuests(rows)
}

// AddGuests bulk-inserts guests for the owner and returns the refreshed
// list. Validation and duplicate checks are the caller's job; a primary key
// collision here fails the whole insert.
func (s *Store) AddGuests(ctx context.Context, ownerID string, guests []models.Guest) ([]models.Guest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO guests ("+guestColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range guests {
		if _, err := stmt.ExecContext(ctx, ownerID, g.Name, g.InvitationName, g.Phone,
			g.Whose, g.Circle, g.NumberOfGuests, nullableInt(g.RSVP), nullableInt(g.MessageGroup)); err != nil {
			return nil, fmt.Errorf("failed to insert guest %q: %w", g.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit guests: %w", err)
	}
	return s.Guests(ctx, ownerID)
}

// UpdateRSVP sets (or clears, with nil) a guest's RSVP answer.
func (s *Store) UpdateRSVP(ctx context.Context, ownerID, name, phone string, rsvp *int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE guests SET rsvp = ? WHERE owner_id = ? AND name = ? AND phone = ?",
		nullableInt(rsvp), ownerID, name, phone)
	if err != nil {
		return fmt.Errorf("failed to update rsvp: %w", err)
	}
	return noRowsAsNotFound(res)
}

// SetMessageGroups persists the message group of every listed guest in one
// transaction.
func (s *Store) SetMessageGroups(ctx context.Context, ownerID string, guests []models.Guest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"UPDATE guests SET message_group = ? WHERE owner_id = ? AND name = ? AND phone = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare update: %w", err)
	}
	defer stmt.Close()

	for _, g := range guests {
		if _, err := stmt.ExecContext(ctx, nullableInt(g.MessageGroup), ownerID, g.Name, g.Phone); err != nil {
			return fmt.Errorf("failed to update group for %q: %w", g.Name, err)
		}
	}
	return tx.Commit()
}

// DeleteGuest removes one guest from the owner's list.
func (s *Store) DeleteGuest(ctx context.Context, ownerID, name, phone string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM guests WHERE owner_id = ? AND name = ? AND phone = ?", ownerID, name, phone)
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}
	return noRowsAsNotFound(res)
}

// DeleteAllGuests wipes the owner's guest list.
func (s *Store) DeleteAllGuests(ctx context.Context, ownerID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM guests WHERE owner_id = ?", ownerID); err != nil {
		return fmt.Errorf("failed to delete guests: %w", err)
	}
	return nil
}

// FindGuestByPhone looks a guest up by canonical phone across all owners.
// Inbound webhooks carry no owner context, only the sender's number.
func (s *Store) FindGuestByPhone(ctx context.Context, canonicalPhone string) (*models.Guest, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+guestColumns+" FROM guests WHERE phone = ? LIMIT 1", canonicalPhone)
	g, err := scanGuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrGuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up guest by phone: %w", err)
	}
	return g, nil
}

// WeddingDetails returns the owner's wedding record, or ErrDetailsNotFound.
func (s *Store) WeddingDetails(ctx context.Context, ownerID string) (*models.WeddingDetails, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT owner_id, bride_name, groom_name, wedding_date, wedding_hour, location,
		       waze_link, payment_link, additional_info, reminder_day, reminder_hour, image_path
		FROM wedding_details WHERE owner_id = ?`, ownerID)

	var w models.WeddingDetails
	var reminderDay string
	err := row.Scan(&w.OwnerID, &w.BrideName, &w.GroomName, &w.Date, &w.Hour, &w.Location,
		&w.WazeLink, &w.PaymentLink, &w.AdditionalInfo, &reminderDay, &w.ReminderHour, &w.ImagePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrDetailsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load wedding details: %w", err)
	}
	w.ReminderDay = models.ReminderDay(reminderDay)
	return &w, nil
}

// SaveWeddingDetails upserts the owner's wedding record.
func (s *Store) SaveWeddingDetails(ctx context.Context, w models.WeddingDetails) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wedding_details (owner_id, bride_name, groom_name, wedding_date, wedding_hour,
			location, waze_link, payment_link, additional_info, reminder_day, reminder_hour, image_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			bride_name = excluded.bride_name,
			groom_name = excluded.groom_name,
			wedding_date = excluded.wedding_date,
			wedding_hour = excluded.wedding_hour,
			location = excluded.location,
			waze_link = excluded.waze_link,
			payment_link = excluded.payment_link,
			additional_info = excluded.additional_info,
			reminder_day = excluded.reminder_day,
			reminder_hour = excluded.reminder_hour,
			image_path = excluded.image_path`,
		w.OwnerID, w.BrideName, w.GroomName, w.Date, w.Hour, w.Location,
		w.WazeLink, w.PaymentLink, w.AdditionalInfo, string(w.ReminderDay), w.ReminderHour, w.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to save wedding details: %w", err)
	}
	return nil
}

// AddLog appends an audit entry for the owner.
func (s *Store) AddLog(ctx context.Context, ownerID, message string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO client_logs (id, owner_id, message, created_at) VALUES (?, ?, ?, ?)",
		uuid.NewString(), ownerID, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}
	return nil
}

// Logs returns the owner's audit entries, newest first.
func (s *Store) Logs(ctx context.Context, ownerID string) ([]models.ClientLog, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, owner_id, message, created_at FROM client_logs WHERE owner_id = ? ORDER BY created_at DESC",
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ClientLog
	for rows.Next() {
		var l models.ClientLog
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Message, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuest(row rowScanner) (*models.Guest, error) {
	var g models.Guest
	var rsvp, group sql.NullInt64
	if err := row.Scan(&g.OwnerID, &g.Name, &g.InvitationName, &g.Phone, &g.Whose,
		&g.Circle, &g.NumberOfGuests, &rsvp, &group); err != nil {
		return nil, err
	}
	g.RSVP = fromNullable(rsvp)
	g.MessageGroup = fromNullable(group)
	return &g, nil
}

func scanGuests(rows *sql.Rows) ([]models.Guest, error) {
	var guests []models.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, *g)
	}
	return guests, rows.Err()
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func fromNullable(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func noRowsAsNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return models.ErrGuestNotFound
	}
	return nil
}
