package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/casaops/backend/internal/storage/models"
)

// ExclusionRepository provides data access for sync exclusions.
type ExclusionRepository struct {
	BaseRepository
}

// NewExclusionRepository creates a new exclusion repository.
func NewExclusionRepository(db *DB) *ExclusionRepository {
	return &ExclusionRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create records a new exclusion.
func (r *ExclusionRepository) Create(ctx context.Context, e *models.SyncExclusion) error {
	if e.ID == "" {
		e.ID = GenerateID()
	}
	e.CreatedAt = r.Now()

	if err := Validate(e); err != nil {
		return err
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO sync_exclusions (id, property_id, day, source, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.PropertyID, e.Day, e.Source, e.Reason, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting exclusion: %w", err)
	}

	return nil
}

// Exists reports whether an exclusion suppresses the given property+day for
// the source. Exclusions with a NULL source match every source.
func (r *ExclusionRepository) Exists(ctx context.Context, propertyID, day, source string) (bool, error) {
	var count int
	err := r.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sync_exclusions
		WHERE property_id = ? AND day = ? AND (source IS NULL OR source = ?)
	`, propertyID, day, source).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("querying exclusion: %w", err)
	}
	return count > 0, nil
}

// ListByProperty retrieves all exclusions for a property.
func (r *ExclusionRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.SyncExclusion, error) {
	return r.list(ctx, `
		SELECT id, property_id, day, source, reason, created_at
		FROM sync_exclusions WHERE property_id = ? ORDER BY day
	`, propertyID)
}

// List retrieves all exclusions.
func (r *ExclusionRepository) List(ctx context.Context) ([]models.SyncExclusion, error) {
	return r.list(ctx, `
		SELECT id, property_id, day, source, reason, created_at
		FROM sync_exclusions ORDER BY property_id, day
	`)
}

// Delete removes an exclusion by ID, re-enabling sync for its key.
func (r *ExclusionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB().ExecContext(ctx, `DELETE FROM sync_exclusions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting exclusion: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("exclusion %s: %w", id, ErrNotFound)
	}

	return nil
}

// DeleteOlderThan removes exclusions past the retention window; their
// originating dates have long passed. Returns the number removed.
func (r *ExclusionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.DB().ExecContext(ctx,
		`DELETE FROM sync_exclusions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up exclusions: %w", err)
	}

	affected, _ := result.RowsAffected()
	return int(affected), nil
}

func (r *ExclusionRepository) list(ctx context.Context, query string, args ...any) ([]models.SyncExclusion, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exclusions: %w", err)
	}
	defer rows.Close()

	var exclusions []models.SyncExclusion
	for rows.Next() {
		var e models.SyncExclusion
		if err := rows.Scan(&e.ID, &e.PropertyID, &e.Day, &e.Source, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning exclusion: %w", err)
		}
		exclusions = append(exclusions, e)
	}

	return exclusions, rows.Err()
}
