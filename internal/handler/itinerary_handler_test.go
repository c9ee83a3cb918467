package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-app/trip-planner-api/internal/dto"
	"github.com/wayfarer-app/trip-planner-api/internal/models"
	appErrors "github.com/wayfarer-app/trip-planner-api/pkg/errors"
)

type itineraryPlannerMock struct {
	capturedGenerate    dto.GeneratePlanRequest
	capturedFeasibility dto.FeasibilityQuery
	saveErr             error
	getErr              error
}

func (m *itineraryPlannerMock) Generate(ctx context.Context, req dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error) {
	m.capturedGenerate = req
	return &dto.GeneratePlanResponse{ProposalID: "proposal-1", Score: 95, Valid: true}, nil
}

func (m *itineraryPlannerMock) Save(ctx context.Context, req dto.SavePlanRequest) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	return "itin-1", nil
}

func (m *itineraryPlannerMock) List(ctx context.Context, query dto.SavedItineraryQuery) ([]models.SavedItinerary, error) {
	return []models.SavedItinerary{{ID: "itin-1", TravelerID: query.TravelerID}}, nil
}

func (m *itineraryPlannerMock) Get(ctx context.Context, id string) (*models.SavedItinerary, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.SavedItinerary{ID: id}, nil
}

func (m *itineraryPlannerMock) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *itineraryPlannerMock) ValidateTrip(ctx context.Context, req dto.ValidateTripRequest) (*dto.ValidateTripResponse, error) {
	return &dto.ValidateTripResponse{Report: models.ValidationReport{Valid: true}}, nil
}

func (m *itineraryPlannerMock) FixTrip(ctx context.Context, req dto.FixTripRequest) (*dto.FixTripResponse, error) {
	return &dto.FixTripResponse{Trip: req.Trip}, nil
}

func (m *itineraryPlannerMock) CheckFeasibility(ctx context.Context, query dto.FeasibilityQuery) (*dto.FeasibilityResponse, error) {
	m.capturedFeasibility = query
	return &dto.FeasibilityResponse{Origin: query.Origin, Destination: query.Destination}, nil
}

func validPlanPayload() []byte {
	return []byte(`{"travelerId":"traveler-1","destination":"Paris","days":[{"date":"2026-06-01","items":[{"title":"Louvre","category":"activity","durationMinutes":120}]}]}`)
}

func TestItineraryHandlerGenerateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &itineraryPlannerMock{}
	handler := &ItineraryHandler{service: mockSvc}
	req, _ := http.NewRequest(http.MethodPost, "/itineraries/generate", bytes.NewReader(validPlanPayload()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "traveler-1", mockSvc.capturedGenerate.TravelerID)
	require.Equal(t, "Paris", mockSvc.capturedGenerate.Destination)
}

func TestItineraryHandlerGenerateMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ItineraryHandler{service: &itineraryPlannerMock{}}
	req, _ := http.NewRequest(http.MethodPost, "/itineraries/generate", bytes.NewReader([]byte(`{"travelerId":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItineraryHandlerGenerateTooManyDays(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ItineraryHandler{service: &itineraryPlannerMock{}}

	payload := []byte(`{"travelerId":"traveler-1","destination":"Paris","days":[`)
	for i := 0; i <= maxPlanDays; i++ {
		if i > 0 {
			payload = append(payload, ',')
		}
		payload = append(payload, []byte(`{"date":"2026-06-01"}`)...)
	}
	payload = append(payload, []byte(`]}`)...)

	req, _ := http.NewRequest(http.MethodPost, "/itineraries/generate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItineraryHandlerSaveCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ItineraryHandler{service: &itineraryPlannerMock{}}
	req, _ := http.NewRequest(http.MethodPost, "/itineraries/save", bytes.NewReader([]byte(`{"proposalId":"proposal-1"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Save(c)

	require.Equal(t, http.StatusCreated, w.Code)
}

func TestItineraryHandlerSaveExpiredProposal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ItineraryHandler{service: &itineraryPlannerMock{saveErr: appErrors.Clone(appErrors.ErrProposalExpired, "")}}
	req, _ := http.NewRequest(http.MethodPost, "/itineraries/save", bytes.NewReader([]byte(`{"proposalId":"stale"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Save(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestItineraryHandlerSaveUnresolvedIssues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ItineraryHandler{service: &itineraryPlannerMock{saveErr: appErrors.Clone(appErrors.ErrUnresolvedIssues, "")}}
	req, _ := http.NewRequest(http.MethodPost, "/itineraries/save", bytes.NewReader([]byte(`{"proposalId":"proposal-1"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Save(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestItineraryHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ItineraryHandler{service: &itineraryPlannerMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "itinerary not found")}}
	router := gin.New()
	router.GET("/itineraries/:id", handler.Get)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/itineraries/missing", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestItineraryHandlerDeleteNoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ItineraryHandler{service: &itineraryPlannerMock{}}
	router := gin.New()
	router.DELETE("/itineraries/:id", handler.Delete)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/itineraries/itin-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestItineraryHandlerValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ItineraryHandler{service: &itineraryPlannerMock{}}
	payload := []byte(`{"trip":{"destination":"Paris","durationDays":1,"days":[{"dayNumber":1,"date":"2026-06-01","items":[]}]}}`)
	req, _ := http.NewRequest(http.MethodPost, "/itineraries/validate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Validate(c)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestItineraryHandlerFeasibilityBindsCoordinates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &itineraryPlannerMock{}
	handler := &ItineraryHandler{service: mockSvc}
	router := gin.New()
	router.GET("/transport/feasibility", handler.Feasibility)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/transport/feasibility?origin=Paris&destination=Lyon&originLat=48.8566&originLng=2.3522&destLat=45.764&destLng=4.8357", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Paris", mockSvc.capturedFeasibility.Origin)
	require.NotNil(t, mockSvc.capturedFeasibility.OriginCoords)
	require.NotNil(t, mockSvc.capturedFeasibility.DestCoords)
	require.InDelta(t, 48.8566, mockSvc.capturedFeasibility.OriginCoords.Lat, 0.0001)
}

func TestItineraryHandlerListPassesTraveler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ItineraryHandler{service: &itineraryPlannerMock{}}
	router := gin.New()
	router.GET("/itineraries", handler.List)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/itineraries?travelerId=traveler-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}
