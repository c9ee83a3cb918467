package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/wayfarer-app/trip-planner-api/internal/models"
)

// ItineraryRepository persists versioned saved itineraries.
type ItineraryRepository struct {
	db *sqlx.DB
}

// NewItineraryRepository constructs repository.
func NewItineraryRepository(db *sqlx.DB) *ItineraryRepository {
	return &ItineraryRepository{db: db}
}

func (r *ItineraryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts an itinerary assigning the next version for the
// traveler-destination tuple.
func (r *ItineraryRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, itinerary *models.SavedItinerary) error {
	if itinerary == nil {
		return fmt.Errorf("itinerary payload is nil")
	}
	if itinerary.TravelerID == "" || itinerary.Destination == "" {
		return fmt.Errorf("traveler_id and destination are required")
	}
	if itinerary.ID == "" {
		itinerary.ID = uuid.NewString()
	}
	if itinerary.Status == "" {
		itinerary.Status = models.SavedItineraryStatusDraft
	}
	if len(itinerary.Payload) == 0 {
		itinerary.Payload = types.JSONText(`{}`)
	}
	if len(itinerary.Meta) == 0 {
		itinerary.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if itinerary.CreatedAt.IsZero() {
		itinerary.CreatedAt = now
	}
	itinerary.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM itineraries WHERE traveler_id = $1 AND destination = $2`
	if err := sqlx.GetContext(ctx, target, &itinerary.Version, nextVersionQuery, itinerary.TravelerID, itinerary.Destination); err != nil {
		return fmt.Errorf("compute next itinerary version: %w", err)
	}

	const insertQuery = `
INSERT INTO itineraries (id, traveler_id, destination, version, status, payload, meta, created_at, updated_at)
VALUES (:id, :traveler_id, :destination, :version, :status, :payload, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, itinerary); err != nil {
		return fmt.Errorf("insert itinerary: %w", err)
	}
	return nil
}

// ListByTraveler returns all saved versions for the traveler, newest first.
func (r *ItineraryRepository) ListByTraveler(ctx context.Context, travelerID string) ([]models.SavedItinerary, error) {
	const query = `SELECT id, traveler_id, destination, version, status, payload, meta, created_at, updated_at
FROM itineraries WHERE traveler_id = $1 ORDER BY destination ASC, version DESC`
	var itineraries []models.SavedItinerary
	if err := r.db.SelectContext(ctx, &itineraries, query, travelerID); err != nil {
		return nil, fmt.Errorf("list itineraries: %w", err)
	}
	return itineraries, nil
}

// FindByID loads an itinerary by its identifier.
func (r *ItineraryRepository) FindByID(ctx context.Context, id string) (*models.SavedItinerary, error) {
	const query = `SELECT id, traveler_id, destination, version, status, payload, meta, created_at, updated_at FROM itineraries WHERE id = $1`
	var itinerary models.SavedItinerary
	if err := r.db.GetContext(ctx, &itinerary, query, id); err != nil {
		return nil, err
	}
	return &itinerary, nil
}

// Delete removes a stored itinerary version.
func (r *ItineraryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM itineraries WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete itinerary: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("itinerary rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus updates the lifecycle status of an itinerary.
func (r *ItineraryRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SavedItineraryStatus) error {
	target := r.exec(exec)
	const query = `UPDATE itineraries SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := target.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update itinerary status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("itinerary status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
