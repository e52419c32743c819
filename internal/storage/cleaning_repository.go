package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/casaops/backend/internal/storage/models"
)

// CleaningRepository provides data access for cleaning tasks.
type CleaningRepository struct {
	BaseRepository
}

// NewCleaningRepository creates a new cleaning repository.
func NewCleaningRepository(db *DB) *CleaningRepository {
	return &CleaningRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const cleaningColumns = `id, property_id, booking_id, scheduled_date, guests_count, price,
       status, price_overridden, guests_overridden, needs_review, review_note,
       linen_order_id, created_at, updated_at`

// Create inserts a new cleaning.
func (r *CleaningRepository) Create(ctx context.Context, c *models.Cleaning) error {
	if c.ID == "" {
		c.ID = GenerateID()
	}
	if c.Status == "" {
		c.Status = models.CleaningStatusScheduled
	}
	c.CreatedAt = r.Now()
	c.UpdatedAt = r.Now()

	if err := Validate(c); err != nil {
		return err
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO cleanings (
			id, property_id, booking_id, scheduled_date, guests_count, price,
			status, price_overridden, guests_overridden, needs_review, review_note,
			linen_order_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.PropertyID, c.BookingID, c.ScheduledDate, c.GuestsCount, c.Price.String(),
		c.Status, c.PriceOverridden, c.GuestsOverridden, c.NeedsReview, c.ReviewNote,
		c.LinenOrderID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting cleaning: %w", err)
	}

	return nil
}

// GetByID retrieves a cleaning by its ID. Returns nil when not found.
func (r *CleaningRepository) GetByID(ctx context.Context, id string) (*models.Cleaning, error) {
	row := r.DB().QueryRowContext(ctx,
		`SELECT `+cleaningColumns+` FROM cleanings WHERE id = ?`, id)

	c, err := scanCleaning(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying cleaning: %w", err)
	}
	return c, nil
}

// GetActiveByDay retrieves the non-cancelled cleaning for a property+day, if
// any. This is the guard the generator checks before creating a new one.
func (r *CleaningRepository) GetActiveByDay(ctx context.Context, propertyID, day string) (*models.Cleaning, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+cleaningColumns+` FROM cleanings
		WHERE property_id = ? AND scheduled_date = ? AND status != ?
		ORDER BY created_at LIMIT 1
	`, propertyID, day, models.CleaningStatusCancelled)

	c, err := scanCleaning(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying cleaning by day: %w", err)
	}
	return c, nil
}

// ListActive retrieves every non-cancelled cleaning, used by the duplicate
// resolver.
func (r *CleaningRepository) ListActive(ctx context.Context) ([]models.Cleaning, error) {
	rows, err := r.DB().QueryContext(ctx,
		`SELECT `+cleaningColumns+` FROM cleanings WHERE status != ? ORDER BY created_at`,
		models.CleaningStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("querying cleanings: %w", err)
	}
	defer rows.Close()

	var cleanings []models.Cleaning
	for rows.Next() {
		c, err := scanCleaning(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning cleaning: %w", err)
		}
		cleanings = append(cleanings, *c)
	}

	return cleanings, rows.Err()
}

// Update persists changes to a cleaning.
func (r *CleaningRepository) Update(ctx context.Context, c *models.Cleaning) error {
	c.UpdatedAt = r.Now()

	if err := Validate(c); err != nil {
		return err
	}

	result, err := r.DB().ExecContext(ctx, `
		UPDATE cleanings SET
			booking_id = ?, scheduled_date = ?, guests_count = ?, price = ?,
			status = ?, price_overridden = ?, guests_overridden = ?,
			needs_review = ?, review_note = ?, linen_order_id = ?, updated_at = ?
		WHERE id = ?
	`,
		c.BookingID, c.ScheduledDate, c.GuestsCount, c.Price.String(),
		c.Status, c.PriceOverridden, c.GuestsOverridden,
		c.NeedsReview, c.ReviewNote, c.LinenOrderID, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating cleaning: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("cleaning %s: %w", c.ID, ErrNotFound)
	}

	return nil
}

// UpdateStatus transitions a cleaning's status.
func (r *CleaningRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.DB().ExecContext(ctx,
		`UPDATE cleanings SET status = ?, updated_at = ? WHERE id = ?`,
		status, r.Now(), id)
	if err != nil {
		return fmt.Errorf("updating cleaning status: %w", err)
	}
	return nil
}

// Delete removes a cleaning, used only by the duplicate resolver in execute mode.
func (r *CleaningRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, `DELETE FROM cleanings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting cleaning: %w", err)
	}
	return nil
}

func scanCleaning(s scanner) (*models.Cleaning, error) {
	var (
		c     models.Cleaning
		price string
	)

	if err := s.Scan(
		&c.ID, &c.PropertyID, &c.BookingID, &c.ScheduledDate, &c.GuestsCount, &price,
		&c.Status, &c.PriceOverridden, &c.GuestsOverridden, &c.NeedsReview, &c.ReviewNote,
		&c.LinenOrderID, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	c.Price, err = decimal.NewFromString(price)
	if err != nil {
		c.Price = decimal.Zero
	}

	return &c, nil
}
