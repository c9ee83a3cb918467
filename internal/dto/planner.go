package dto

import (
	"github.com/wayfarer-app/trip-planner-api/internal/models"
	"github.com/wayfarer-app/trip-planner-api/pkg/geo"
)

// EntityPayload carries a trip-level asset (accommodation, flight booking).
type EntityPayload struct {
	Title       string    `json:"title" validate:"required"`
	Coords      geo.Point `json:"coords"`
	Reliability string    `json:"reliability" validate:"omitempty,oneof=verified estimated generated"`
}

// FixedItemPayload is an immutable event with an externally dictated slot.
type FixedItemPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required"`
	Category    string    `json:"category" validate:"required,oneof=flight train bus transport checkin checkout parking luggage"`
	StartTime   string    `json:"startTime" validate:"required"`
	EndTime     string    `json:"endTime" validate:"required"`
	Coords      geo.Point `json:"coords"`
	Reliability string    `json:"reliability" validate:"omitempty,oneof=verified estimated generated"`
}

// FlexItemPayload is a candidate event waiting for a slot.
type FlexItemPayload struct {
	ID              string    `json:"id"`
	Title           string    `json:"title" validate:"required"`
	Category        string    `json:"category" validate:"required,oneof=activity restaurant"`
	DurationMinutes int       `json:"durationMinutes" validate:"gt=0"`
	TravelMinutes   int       `json:"travelMinutes" validate:"gte=0"`
	MinStartTime    string    `json:"minStartTime,omitempty"`
	CostEstimate    float64   `json:"costEstimate,omitempty"`
	Coords          geo.Point `json:"coords"`
	Meal            string    `json:"meal,omitempty" validate:"omitempty,oneof=breakfast lunch dinner"`
	AtAccommodation bool      `json:"atAccommodation,omitempty"`
	Reliability     string    `json:"reliability" validate:"omitempty,oneof=verified estimated generated"`
}

// DayPlanPayload is one day's candidate pool plus optional window overrides.
type DayPlanPayload struct {
	Date     string             `json:"date" validate:"required"`
	Theme    string             `json:"theme,omitempty"`
	DayTrip  bool               `json:"dayTrip,omitempty"`
	DayStart string             `json:"dayStart,omitempty"`
	DayEnd   string             `json:"dayEnd,omitempty"`
	Fixed    []FixedItemPayload `json:"fixed" validate:"dive"`
	Items    []FlexItemPayload  `json:"items" validate:"dive"`
}

// GeneratePlanRequest asks for a scheduled, validated itinerary proposal.
type GeneratePlanRequest struct {
	TravelerID    string           `json:"travelerId" validate:"required"`
	Origin        string           `json:"origin,omitempty"`
	Destination   string           `json:"destination" validate:"required"`
	Accommodation *EntityPayload   `json:"accommodation,omitempty"`
	Flights       []EntityPayload  `json:"flights,omitempty" validate:"dive"`
	Days          []DayPlanPayload `json:"days" validate:"required,min=1,dive"`
	SkipAutoFix   bool             `json:"skipAutoFix,omitempty"`
}

// PlanStats summarises what generation did.
type PlanStats struct {
	ItemsPlaced     int  `json:"itemsPlaced"`
	ItemsDropped    int  `json:"itemsDropped"`
	FixApplied      bool `json:"fixApplied"`
	IssuesBeforeFix int  `json:"issuesBeforeFix"`
	IssuesAfterFix  int  `json:"issuesAfterFix"`
}

// GeneratePlanResponse is the proposal returned to the caller.
type GeneratePlanResponse struct {
	ProposalID string         `json:"proposalId"`
	Score      float64        `json:"score"`
	Valid      bool           `json:"valid"`
	Trip       models.Trip    `json:"trip"`
	Issues     []models.Issue `json:"issues"`
	Unplaced   []string       `json:"unplaced,omitempty"`
	Stats      PlanStats      `json:"stats"`
}

// SavePlanRequest persists a previously generated proposal.
type SavePlanRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Accept     bool   `json:"accept,omitempty"`
}

// SavedItineraryQuery filters saved plans.
type SavedItineraryQuery struct {
	TravelerID string `json:"travelerId"`
}

// ValidateTripRequest runs the validators over a caller-supplied trip.
type ValidateTripRequest struct {
	Trip models.Trip `json:"trip" validate:"required"`
}

// ValidateTripResponse carries coherence and geography findings.
type ValidateTripResponse struct {
	Report    models.ValidationReport `json:"report"`
	Geography []models.Issue          `json:"geography"`
}

// FixTripRequest repairs a caller-supplied trip.
type FixTripRequest struct {
	Trip models.Trip `json:"trip" validate:"required"`
}

// FixTripResponse returns the corrected trip and the violation delta.
type FixTripResponse struct {
	Trip         models.Trip    `json:"trip"`
	IssuesBefore int            `json:"issuesBefore"`
	IssuesAfter  int            `json:"issuesAfter"`
	Remaining    []models.Issue `json:"remaining"`
}

// FeasibilityQuery asks which transport modes are viable for a route.
type FeasibilityQuery struct {
	Origin       string     `json:"origin" validate:"required"`
	Destination  string     `json:"destination" validate:"required"`
	DistanceKm   float64    `json:"distanceKm" validate:"gte=0"`
	OriginCoords *geo.Point `json:"originCoords,omitempty"`
	DestCoords   *geo.Point `json:"destCoords,omitempty"`
}

// FeasibilityResponse is the per-mode verdict matrix.
type FeasibilityResponse struct {
	Origin      string                     `json:"origin"`
	Destination string                     `json:"destination"`
	DistanceKm  float64                    `json:"distanceKm"`
	Results     []models.FeasibilityResult `json:"results"`
}
