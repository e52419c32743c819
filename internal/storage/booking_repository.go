package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/casaops/backend/internal/storage/models"
)

// BookingRepository provides data access for bookings.
type BookingRepository struct {
	BaseRepository
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const bookingColumns = `id, property_id, source, external_uid, check_in, check_out,
       guest_name, guests_count, status, cleaning_id, created_at, updated_at`

// Create inserts a new booking.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	if b.ID == "" {
		b.ID = GenerateID()
	}
	if b.Status == "" {
		b.Status = models.BookingStatusActive
	}
	b.CreatedAt = r.Now()
	b.UpdatedAt = r.Now()

	if err := Validate(b); err != nil {
		return err
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO bookings (
			id, property_id, source, external_uid, check_in, check_out,
			guest_name, guests_count, status, cleaning_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.PropertyID, b.Source, b.ExternalUID, b.CheckIn, b.CheckOut,
		b.GuestName, b.GuestsCount, b.Status, b.CleaningID, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by its ID. Returns nil when not found.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	b := &models.Booking{}
	err := r.DB().QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id).Scan(
		&b.ID, &b.PropertyID, &b.Source, &b.ExternalUID, &b.CheckIn, &b.CheckOut,
		&b.GuestName, &b.GuestsCount, &b.Status, &b.CleaningID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}
	return b, nil
}

// ListActiveBySource retrieves all active bookings for a property+source pair.
func (r *BookingRepository) ListActiveBySource(ctx context.Context, propertyID, source string) ([]models.Booking, error) {
	return r.list(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE property_id = ? AND source = ? AND status = ?
		 ORDER BY check_out`,
		propertyID, source, models.BookingStatusActive)
}

// ListByProperty retrieves all bookings for a property regardless of status.
func (r *BookingRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.Booking, error) {
	return r.list(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE property_id = ? ORDER BY check_out`,
		propertyID)
}

// ListActive retrieves every active booking across all properties, used by
// the duplicate resolver.
func (r *BookingRepository) ListActive(ctx context.Context) ([]models.Booking, error) {
	return r.list(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE status = ? ORDER BY created_at`,
		models.BookingStatusActive)
}

// Update persists date, guest and linkage changes on a booking.
func (r *BookingRepository) Update(ctx context.Context, b *models.Booking) error {
	b.UpdatedAt = r.Now()

	if err := Validate(b); err != nil {
		return err
	}

	result, err := r.DB().ExecContext(ctx, `
		UPDATE bookings SET
			external_uid = ?, check_in = ?, check_out = ?, guest_name = ?,
			guests_count = ?, status = ?, cleaning_id = ?, updated_at = ?
		WHERE id = ?
	`,
		b.ExternalUID, b.CheckIn, b.CheckOut, b.GuestName,
		b.GuestsCount, b.Status, b.CleaningID, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("updating booking: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("booking %s: %w", b.ID, ErrNotFound)
	}

	return nil
}

// UpdateStatus transitions a booking's status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.DB().ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		status, r.Now(), id)
	if err != nil {
		return fmt.Errorf("updating booking status: %w", err)
	}
	return nil
}

// Delete removes a booking, used only by the duplicate resolver in execute mode.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.PropertyID, &b.Source, &b.ExternalUID, &b.CheckIn, &b.CheckOut,
			&b.GuestName, &b.GuestsCount, &b.Status, &b.CleaningID, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}
