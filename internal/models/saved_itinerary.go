package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SavedItineraryStatus tracks the lifecycle of a persisted plan version.
type SavedItineraryStatus string

const (
	SavedItineraryStatusDraft    SavedItineraryStatus = "DRAFT"
	SavedItineraryStatusAccepted SavedItineraryStatus = "ACCEPTED"
)

// SavedItinerary is a persisted, versioned itinerary for a traveler-destination
// tuple. Payload holds the full Trip as JSON; Meta holds generation stats.
type SavedItinerary struct {
	ID          string               `db:"id" json:"id"`
	TravelerID  string               `db:"traveler_id" json:"traveler_id"`
	Destination string               `db:"destination" json:"destination"`
	Version     int                  `db:"version" json:"version"`
	Status      SavedItineraryStatus `db:"status" json:"status"`
	Payload     types.JSONText       `db:"payload" json:"payload"`
	Meta        types.JSONText       `db:"meta" json:"meta"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updated_at"`
}
