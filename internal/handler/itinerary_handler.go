package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wayfarer-app/trip-planner-api/internal/dto"
	"github.com/wayfarer-app/trip-planner-api/internal/models"
	"github.com/wayfarer-app/trip-planner-api/internal/service"
	appErrors "github.com/wayfarer-app/trip-planner-api/pkg/errors"
	"github.com/wayfarer-app/trip-planner-api/pkg/geo"
	"github.com/wayfarer-app/trip-planner-api/pkg/response"
)

const maxPlanDays = 60

type planPreviewResponse struct {
	Mode     string                    `json:"mode"`
	Proposal *dto.GeneratePlanResponse `json:"proposal"`
}

type itineraryPlanner interface {
	Generate(ctx context.Context, req dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error)
	Save(ctx context.Context, req dto.SavePlanRequest) (string, error)
	List(ctx context.Context, query dto.SavedItineraryQuery) ([]models.SavedItinerary, error)
	Get(ctx context.Context, id string) (*models.SavedItinerary, error)
	Delete(ctx context.Context, id string) error
	ValidateTrip(ctx context.Context, req dto.ValidateTripRequest) (*dto.ValidateTripResponse, error)
	FixTrip(ctx context.Context, req dto.FixTripRequest) (*dto.FixTripResponse, error)
	CheckFeasibility(ctx context.Context, query dto.FeasibilityQuery) (*dto.FeasibilityResponse, error)
}

// ItineraryHandler exposes planning endpoints.
type ItineraryHandler struct {
	service itineraryPlanner
}

// NewItineraryHandler constructs the handler.
func NewItineraryHandler(svc *service.ItineraryService) *ItineraryHandler {
	return &ItineraryHandler{service: svc}
}

// Generate godoc
// @Summary Generate a validated itinerary proposal
// @Description Schedules the candidate pool day by day, validates coherence and geography, and auto-repairs critical violations unless skipAutoFix is set.
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.GeneratePlanRequest true "Generate plan payload"
// @Success 200 {object} response.Envelope
// @Router /itineraries/generate [post]
func (h *ItineraryHandler) Generate(c *gin.Context) {
	var req dto.GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	if len(req.Days) > maxPlanDays {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days exceeds supported trip length"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload := planPreviewResponse{
		Mode:     "preview",
		Proposal: result,
	}
	response.JSON(c, http.StatusOK, payload, nil)
}

// Validate godoc
// @Summary Validate a trip for coherence and geography issues
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.ValidateTripRequest true "Trip to validate"
// @Success 200 {object} response.Envelope
// @Router /itineraries/validate [post]
func (h *ItineraryHandler) Validate(c *gin.Context) {
	var req dto.ValidateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validate payload"))
		return
	}
	result, err := h.service.ValidateTrip(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Fix godoc
// @Summary Auto-repair coherence violations in a trip
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.FixTripRequest true "Trip to repair"
// @Success 200 {object} response.Envelope
// @Router /itineraries/fix [post]
func (h *ItineraryHandler) Fix(c *gin.Context) {
	var req dto.FixTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fix payload"))
		return
	}
	result, err := h.service.FixTrip(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Save godoc
// @Summary Persist a generated proposal as a versioned itinerary
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.SavePlanRequest true "Save plan payload"
// @Success 201 {object} response.Envelope
// @Router /itineraries/save [post]
func (h *ItineraryHandler) Save(c *gin.Context) {
	var req dto.SavePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	id, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"itineraryId": id})
}

// List godoc
// @Summary List saved itinerary versions for a traveler
// @Tags Planner
// @Produce json
// @Param travelerId query string true "Traveler ID"
// @Success 200 {object} response.Envelope
// @Router /itineraries [get]
func (h *ItineraryHandler) List(c *gin.Context) {
	query := dto.SavedItineraryQuery{TravelerID: c.Query("travelerId")}
	result, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get one saved itinerary
// @Tags Planner
// @Produce json
// @Param id path string true "Itinerary ID"
// @Success 200 {object} response.Envelope
// @Router /itineraries/{id} [get]
func (h *ItineraryHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a saved itinerary version
// @Tags Planner
// @Param id path string true "Itinerary ID"
// @Success 204
// @Router /itineraries/{id} [delete]
func (h *ItineraryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type feasibilityQueryParams struct {
	Origin      string   `form:"origin"`
	Destination string   `form:"destination"`
	DistanceKm  float64  `form:"distanceKm"`
	OriginLat   *float64 `form:"originLat"`
	OriginLng   *float64 `form:"originLng"`
	DestLat     *float64 `form:"destLat"`
	DestLng     *float64 `form:"destLng"`
}

// Feasibility godoc
// @Summary Check which transport modes are viable for a route
// @Tags Transport
// @Produce json
// @Param origin query string true "Origin place name"
// @Param destination query string true "Destination place name"
// @Param distanceKm query number false "Route distance in km; computed from coordinates when omitted"
// @Success 200 {object} response.Envelope
// @Router /transport/feasibility [get]
func (h *ItineraryHandler) Feasibility(c *gin.Context) {
	var params feasibilityQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feasibility query"))
		return
	}
	query := dto.FeasibilityQuery{
		Origin:      params.Origin,
		Destination: params.Destination,
		DistanceKm:  params.DistanceKm,
	}
	if params.OriginLat != nil && params.OriginLng != nil {
		query.OriginCoords = &geo.Point{Lat: *params.OriginLat, Lng: *params.OriginLng}
	}
	if params.DestLat != nil && params.DestLng != nil {
		query.DestCoords = &geo.Point{Lat: *params.DestLat, Lng: *params.DestLng}
	}
	result, err := h.service.CheckFeasibility(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
