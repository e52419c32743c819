package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/casaops/backend/internal/storage/models"
)

// PropertyRepository provides data access for properties and their feeds.
type PropertyRepository struct {
	BaseRepository
}

// NewPropertyRepository creates a new property repository.
func NewPropertyRepository(db *DB) *PropertyRepository {
	return &PropertyRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const propertyColumns = `id, name, address, status, timezone, max_guests, bathrooms,
       cleaning_price, beds, linen_overrides, sync_locked_at, created_at, updated_at`

// Create inserts a new property.
func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	if p.ID == "" {
		p.ID = GenerateID()
	}
	if p.Status == "" {
		p.Status = models.PropertyStatusActive
	}
	p.CreatedAt = r.Now()
	p.UpdatedAt = r.Now()

	if err := Validate(p); err != nil {
		return err
	}

	beds, err := json.Marshal(p.Beds)
	if err != nil {
		return fmt.Errorf("encoding beds: %w", err)
	}
	var overrides *string
	if len(p.LinenOverrides) > 0 {
		b, err := json.Marshal(p.LinenOverrides)
		if err != nil {
			return fmt.Errorf("encoding linen overrides: %w", err)
		}
		s := string(b)
		overrides = &s
	}

	_, err = r.DB().ExecContext(ctx, `
		INSERT INTO properties (
			id, name, address, status, timezone, max_guests, bathrooms,
			cleaning_price, beds, linen_overrides, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.Name, p.Address, p.Status, p.Timezone, p.MaxGuests, p.Bathrooms,
		p.CleaningPrice.String(), string(beds), overrides, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting property: %w", err)
	}

	return nil
}

// GetByID retrieves a property by its ID. Returns nil when not found.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	row := r.DB().QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)

	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying property: %w", err)
	}
	return p, nil
}

// ListActive retrieves all active properties (suspended and deleted ones do
// not take part in sync).
func (r *PropertyRepository) ListActive(ctx context.Context) ([]models.Property, error) {
	rows, err := r.DB().QueryContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE status = ? ORDER BY name`,
		models.PropertyStatusActive)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		properties = append(properties, *p)
	}

	return properties, rows.Err()
}

// AcquireSyncLock marks a property as being synced. It succeeds when no lock
// is held or the existing lock is older than staleAfter (a crashed run must
// not block the property forever). Returns false when another run holds a
// fresh lock.
func (r *PropertyRepository) AcquireSyncLock(ctx context.Context, id string, staleAfter time.Duration) (bool, error) {
	now := r.Now()
	staleBefore := now.Add(-staleAfter)

	result, err := r.DB().ExecContext(ctx, `
		UPDATE properties SET sync_locked_at = ?
		WHERE id = ? AND (sync_locked_at IS NULL OR sync_locked_at < ?)
	`, now, id, staleBefore)
	if err != nil {
		return false, fmt.Errorf("acquiring sync lock: %w", err)
	}

	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// ReleaseSyncLock clears the sync-in-progress flag.
func (r *PropertyRepository) ReleaseSyncLock(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx,
		`UPDATE properties SET sync_locked_at = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("releasing sync lock: %w", err)
	}
	return nil
}

// Feeds retrieves the enabled calendar feeds configured on a property.
func (r *PropertyRepository) Feeds(ctx context.Context, propertyID string) ([]models.PropertyFeed, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, property_id, source, url, enabled, last_hash, last_sync_at, last_error,
		       created_at, updated_at
		FROM property_feeds
		WHERE property_id = ? AND enabled = 1
		ORDER BY source
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying feeds: %w", err)
	}
	defer rows.Close()

	var feeds []models.PropertyFeed
	for rows.Next() {
		var f models.PropertyFeed
		if err := rows.Scan(
			&f.ID, &f.PropertyID, &f.Source, &f.URL, &f.Enabled,
			&f.LastHash, &f.LastSyncAt, &f.LastError, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning feed: %w", err)
		}
		feeds = append(feeds, f)
	}

	return feeds, rows.Err()
}

// AddFeed attaches a calendar feed to a property.
func (r *PropertyRepository) AddFeed(ctx context.Context, f *models.PropertyFeed) error {
	if f.ID == "" {
		f.ID = GenerateID()
	}
	f.CreatedAt = r.Now()
	f.UpdatedAt = r.Now()

	if err := Validate(f); err != nil {
		return err
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO property_feeds (id, property_id, source, url, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.PropertyID, f.Source, f.URL, f.Enabled, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting feed: %w", err)
	}

	return nil
}

// UpdateFeedSync records the outcome of a feed fetch: the content hash on
// success, the error message on failure.
func (r *PropertyRepository) UpdateFeedSync(ctx context.Context, feedID string, hash *string, fetchErr *string) error {
	now := r.Now()
	_, err := r.DB().ExecContext(ctx, `
		UPDATE property_feeds SET
			last_hash = COALESCE(?, last_hash),
			last_sync_at = ?,
			last_error = ?,
			updated_at = ?
		WHERE id = ?
	`, hash, now, fetchErr, now, feedID)
	if err != nil {
		return fmt.Errorf("updating feed sync state: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanProperty(s scanner) (*models.Property, error) {
	var (
		p         models.Property
		price     string
		beds      string
		overrides sql.NullString
	)

	if err := s.Scan(
		&p.ID, &p.Name, &p.Address, &p.Status, &p.Timezone, &p.MaxGuests, &p.Bathrooms,
		&price, &beds, &overrides, &p.SyncLockedAt, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	p.CleaningPrice, err = decimal.NewFromString(price)
	if err != nil {
		p.CleaningPrice = decimal.Zero
	}
	if err := json.Unmarshal([]byte(beds), &p.Beds); err != nil {
		return nil, fmt.Errorf("decoding beds: %w", err)
	}
	if overrides.Valid && overrides.String != "" {
		if err := json.Unmarshal([]byte(overrides.String), &p.LinenOverrides); err != nil {
			return nil, fmt.Errorf("decoding linen overrides: %w", err)
		}
	}

	return &p, nil
}
