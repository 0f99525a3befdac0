package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteDirectory implements UserDirectory and BookingDirectory backed by the
// local read-model tables.
type SQLiteDirectory struct {
	db *sql.DB
}

// NewSQLiteDirectory returns a new SQLiteDirectory.
func NewSQLiteDirectory(db *sql.DB) *SQLiteDirectory {
	return &SQLiteDirectory{db: db}
}

// GetUser returns the user with the given ID, or ErrUserNotFound.
func (d *SQLiteDirectory) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, updated_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// UpsertUser inserts or replaces a user read-model row.
func (d *SQLiteDirectory) UpsertUser(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email,
			phone = excluded.phone, updated_at = excluded.updated_at`,
		u.ID, u.Name, u.Email, u.Phone, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// GetBooking returns the booking with the given ID, or ErrBookingNotFound.
func (d *SQLiteDirectory) GetBooking(ctx context.Context, id string) (*Booking, error) {
	var b Booking
	err := d.db.QueryRowContext(ctx,
		`SELECT id, renter_user_id, guest_name, guest_email, guest_phone, updated_at
		 FROM bookings WHERE id = ?`, id).
		Scan(&b.ID, &b.RenterUserID, &b.GuestName, &b.GuestEmail, &b.GuestPhone, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}
	return &b, nil
}

// UpsertBooking inserts or replaces a booking read-model row.
func (d *SQLiteDirectory) UpsertBooking(ctx context.Context, b *Booking) error {
	b.UpdatedAt = time.Now().UTC()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO bookings (id, renter_user_id, guest_name, guest_email, guest_phone, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			renter_user_id = excluded.renter_user_id, guest_name = excluded.guest_name,
			guest_email = excluded.guest_email, guest_phone = excluded.guest_phone,
			updated_at = excluded.updated_at`,
		b.ID, b.RenterUserID, b.GuestName, b.GuestEmail, b.GuestPhone, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting booking: %w", err)
	}
	return nil
}
