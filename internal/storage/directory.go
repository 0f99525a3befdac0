package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

// ErrBookingNotFound is returned when a booking lookup matches no row.
var ErrBookingNotFound = errors.New("booking not found")

// User is the read model of a platform user consumed for contact resolution.
// The dispatch core never mutates contact fields; upserts exist only so the
// platform sync job (and tests) can feed the read model.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Booking is the read model of a booking: a renter reference plus guest
// contact fields for bookings made without a user account.
type Booking struct {
	ID           string    `json:"id"`
	RenterUserID string    `json:"renter_user_id"`
	GuestName    string    `json:"guest_name"`
	GuestEmail   string    `json:"guest_email"`
	GuestPhone   string    `json:"guest_phone"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserDirectory looks up users by ID.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*User, error)
	UpsertUser(ctx context.Context, u *User) error
}

// BookingDirectory looks up bookings by ID.
type BookingDirectory interface {
	GetBooking(ctx context.Context, id string) (*Booking, error)
	UpsertBooking(ctx context.Context, b *Booking) error
}
