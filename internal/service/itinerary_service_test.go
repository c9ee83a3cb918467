package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wayfarer-app/trip-planner-api/internal/dto"
	"github.com/wayfarer-app/trip-planner-api/internal/models"
	appErrors "github.com/wayfarer-app/trip-planner-api/pkg/errors"
	"github.com/wayfarer-app/trip-planner-api/pkg/geo"
)

func TestItineraryServiceGenerateSuccess(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{})

	resp, err := service.Generate(context.Background(), parisPlanRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ProposalID)
	assert.True(t, resp.Valid)
	assert.Greater(t, resp.Score, 0.0)
	require.Len(t, resp.Trip.Days, 1)
	assert.NotEmpty(t, resp.Trip.Days[0].Items)
}

func TestItineraryServiceGenerateRespectsArrival(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{})

	req := parisPlanRequest()
	req.Days[0].Fixed = []dto.FixedItemPayload{
		{Title: "Flight to CDG", Category: "flight", StartTime: "09:00", EndTime: "11:30", Coords: geo.Point{Lat: 49.0097, Lng: 2.5479}, Reliability: "verified"},
	}
	resp, err := service.Generate(context.Background(), req)
	require.NoError(t, err)

	for _, item := range resp.Trip.Days[0].Items {
		if item.Category == models.CategoryActivity || item.Category == models.CategoryRestaurant {
			assert.GreaterOrEqual(t, item.StartMinutes, 11*60+30, "%s must start after arrival", item.Title)
		}
	}
}

func TestItineraryServiceGenerateSchedulesDepartureDayMorning(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{})

	req := parisPlanRequest()
	req.Days[0].Items = []dto.FlexItemPayload{
		{Title: "Seine walk", Category: "activity", DurationMinutes: 60, TravelMinutes: 10, Coords: geo.Point{Lat: 48.8584, Lng: 2.3470}, Reliability: "verified"},
	}
	req.Days[0].Fixed = []dto.FixedItemPayload{
		{Title: "Checkout", Category: "checkout", StartTime: "09:30", EndTime: "10:00", Coords: geo.Point{Lat: 48.8566, Lng: 2.3522}, Reliability: "verified"},
		{Title: "Flight home", Category: "flight", StartTime: "18:00", EndTime: "20:00", Coords: geo.Point{Lat: 49.0097, Lng: 2.5479}, Reliability: "verified"},
	}
	resp, err := service.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Unplaced, "a one-hour walk fits before an evening flight")
	for _, item := range resp.Trip.Days[0].Items {
		if item.Category == models.CategoryActivity {
			assert.Less(t, item.EndMinutes, 18*60, "%s must finish before the flight home", item.Title)
		}
	}
}

func TestItineraryServiceGenerateDropsWhatDoesNotFit(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{})

	req := parisPlanRequest()
	req.Days[0].DayStart = "20:00"
	req.Days[0].DayEnd = "22:00"
	resp, err := service.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Unplaced, "a two-hour window cannot hold the full pool")
	assert.Equal(t, len(resp.Unplaced), resp.Stats.ItemsDropped)
}

func TestItineraryServiceGenerateRejectsBadClock(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{})

	req := parisPlanRequest()
	req.Days[0].DayStart = "25:99"
	_, err := service.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestItineraryServiceGenerateCapsTripDuration(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{})

	req := parisPlanRequest()
	req.Days = nil
	for i := 0; i < 31; i++ {
		req.Days = append(req.Days, dto.DayPlanPayload{Date: "2026-06-01"})
	}
	_, err := service.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestItineraryServiceGenerateValidatesPayload(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{})

	_, err := service.Generate(context.Background(), dto.GeneratePlanRequest{Destination: "Paris"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestItineraryServiceSaveDraft(t *testing.T) {
	tx, mock := newPlannerTxMock(t)
	repo := &itineraryRepoStub{}
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{repo: repo, tx: tx})

	resp, err := service.Generate(context.Background(), parisPlanRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	id, err := service.Save(context.Background(), dto.SavePlanRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.Len(t, repo.items, 1)
	assert.Equal(t, models.SavedItineraryStatusDraft, repo.items[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItineraryServiceSaveAccept(t *testing.T) {
	tx, mock := newPlannerTxMock(t)
	repo := &itineraryRepoStub{}
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{repo: repo, tx: tx})

	resp, err := service.Generate(context.Background(), parisPlanRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err = service.Save(context.Background(), dto.SavePlanRequest{ProposalID: resp.ProposalID, Accept: true})
	require.NoError(t, err)
	require.Len(t, repo.items, 1)
	assert.Equal(t, models.SavedItineraryStatusAccepted, repo.items[0].Status)
}

func TestItineraryServiceSaveExpiredProposal(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{})

	_, err := service.Save(context.Background(), dto.SavePlanRequest{ProposalID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrProposalExpired.Code, appErrors.FromError(err).Code)
}

func TestItineraryServiceSaveRejectsCriticalIssues(t *testing.T) {
	tx, _ := newPlannerTxMock(t)
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{repo: &itineraryRepoStub{}, tx: tx})

	// Two colliding fixed logistics blocks cannot be repaired, so the
	// proposal carries a critical issue.
	req := parisPlanRequest()
	req.Days[0].Items = nil
	req.Days[0].Fixed = []dto.FixedItemPayload{
		{Title: "Train out", Category: "train", StartTime: "10:00", EndTime: "12:00", Coords: geo.Point{Lat: 48.8443, Lng: 2.3744}},
		{Title: "Checkout", Category: "checkout", StartTime: "11:00", EndTime: "11:30", Coords: geo.Point{Lat: 48.8606, Lng: 2.3376}},
	}
	resp, err := service.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Valid)

	_, err = service.Save(context.Background(), dto.SavePlanRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnresolvedIssues.Code, appErrors.FromError(err).Code)
}

func TestItineraryServiceSaveConsumesProposal(t *testing.T) {
	tx, mock := newPlannerTxMock(t)
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{repo: &itineraryRepoStub{}, tx: tx})

	resp, err := service.Generate(context.Background(), parisPlanRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err = service.Save(context.Background(), dto.SavePlanRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)

	_, err = service.Save(context.Background(), dto.SavePlanRequest{ProposalID: resp.ProposalID})
	assert.Equal(t, appErrors.ErrProposalExpired.Code, appErrors.FromError(err).Code)
}

func TestItineraryServiceListRequiresTraveler(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{repo: &itineraryRepoStub{}})

	_, err := service.List(context.Background(), dto.SavedItineraryQuery{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestItineraryServiceGetNotFound(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{repo: &itineraryRepoStub{}})

	_, err := service.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestItineraryServiceDelete(t *testing.T) {
	repo := &itineraryRepoStub{items: []models.SavedItinerary{{ID: "itin-1", TravelerID: "traveler-1", Destination: "Paris"}}}
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{repo: repo})

	require.NoError(t, service.Delete(context.Background(), "itin-1"))
	assert.Empty(t, repo.items)

	err := service.Delete(context.Background(), "itin-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestItineraryServiceValidateTrip(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{})

	resp, err := service.ValidateTrip(context.Background(), dto.ValidateTripRequest{Trip: singleDayTrip(
		placedAt("a", "Louvre", models.CategoryActivity, 9*60, 11*60),
		placedAt("b", "Orsay", models.CategoryActivity, 10*60, 12*60),
	)})
	require.NoError(t, err)
	assert.False(t, resp.Report.Valid)
	require.NotEmpty(t, resp.Report.Errors)
	assert.Equal(t, models.CodeOverlap, resp.Report.Errors[0].Code)
}

func TestItineraryServiceValidateTripRejectsBadStructure(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{})

	trip := singleDayTrip(placedAt("a", "Louvre", models.CategoryActivity, 9*60, 11*60))
	trip.Days[0].DayNumber = 7
	_, err := service.ValidateTrip(context.Background(), dto.ValidateTripRequest{Trip: trip})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestItineraryServiceFixTrip(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{})

	resp, err := service.FixTrip(context.Background(), dto.FixTripRequest{Trip: singleDayTrip(
		placedAt("a", "Louvre", models.CategoryActivity, 9*60, 11*60),
		placedAt("b", "Orsay", models.CategoryActivity, 10*60, 12*60),
	)})
	require.NoError(t, err)
	assert.Less(t, resp.IssuesAfter, resp.IssuesBefore)
	assert.Empty(t, resp.Remaining)
}

func TestItineraryServiceCheckFeasibilityComputesDistance(t *testing.T) {
	service := newItineraryServiceFixture(t, itineraryFixtureConfig{})

	paris := geo.Point{Lat: 48.8566, Lng: 2.3522}
	lyon := geo.Point{Lat: 45.7640, Lng: 4.8357}
	resp, err := service.CheckFeasibility(context.Background(), dto.FeasibilityQuery{
		Origin:       "Paris",
		Destination:  "Lyon",
		OriginCoords: &paris,
		DestCoords:   &lyon,
	})
	require.NoError(t, err)
	assert.InDelta(t, 392, resp.DistanceKm, 10)
	require.Len(t, resp.Results, len(models.AllTransportModes))
}

// --- Fixtures ---

type itineraryFixtureConfig struct {
	repo *itineraryRepoStub
	tx   txProvider
}

func newItineraryServiceFixture(t *testing.T, cfg itineraryFixtureConfig) *ItineraryService {
	t.Helper()
	var repo savedItineraryRepository
	if cfg.repo != nil {
		repo = cfg.repo
	}
	return NewItineraryService(
		repo,
		cfg.tx,
		nil,
		nil,
		validator.New(),
		zap.NewNop(),
		ItineraryServiceConfig{ProposalTTL: time.Hour},
	)
}

func parisPlanRequest() dto.GeneratePlanRequest {
	return dto.GeneratePlanRequest{
		TravelerID:  "traveler-1",
		Destination: "Paris",
		Accommodation: &dto.EntityPayload{
			Title:       "Hotel du Centre",
			Coords:      geo.Point{Lat: 48.8566, Lng: 2.3522},
			Reliability: "verified",
		},
		Days: []dto.DayPlanPayload{
			{
				Date: "2026-06-01",
				Items: []dto.FlexItemPayload{
					{Title: "Louvre", Category: "activity", DurationMinutes: 150, TravelMinutes: 20, Coords: geo.Point{Lat: 48.8606, Lng: 2.3376}, Reliability: "verified"},
					{Title: "Lunch at Cafe Marly", Category: "restaurant", DurationMinutes: 60, TravelMinutes: 10, Coords: geo.Point{Lat: 48.8629, Lng: 2.3347}, Meal: "lunch", Reliability: "verified"},
					{Title: "Tuileries stroll", Category: "activity", DurationMinutes: 60, TravelMinutes: 10, Coords: geo.Point{Lat: 48.8634, Lng: 2.3275}, Reliability: "verified"},
					{Title: "Dinner at Le Bistro", Category: "restaurant", DurationMinutes: 90, TravelMinutes: 15, Coords: geo.Point{Lat: 48.8580, Lng: 2.3400}, Meal: "dinner", Reliability: "verified"},
				},
			},
		},
	}
}

type itineraryRepoStub struct {
	items []models.SavedItinerary
}

func (s *itineraryRepoStub) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, itinerary *models.SavedItinerary) error {
	itinerary.ID = fmt.Sprintf("itin-%d", len(s.items)+1)
	itinerary.Version = len(s.items) + 1
	s.items = append(s.items, *itinerary)
	return nil
}

func (s *itineraryRepoStub) ListByTraveler(ctx context.Context, travelerID string) ([]models.SavedItinerary, error) {
	var out []models.SavedItinerary
	for _, item := range s.items {
		if item.TravelerID == travelerID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *itineraryRepoStub) FindByID(ctx context.Context, id string) (*models.SavedItinerary, error) {
	for _, item := range s.items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *itineraryRepoStub) Delete(ctx context.Context, id string) error {
	for idx, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *itineraryRepoStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SavedItineraryStatus) error {
	for idx := range s.items {
		if s.items[idx].ID == id {
			s.items[idx].Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

type plannerTxMock struct {
	db *sqlx.DB
}

func newPlannerTxMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &plannerTxMock{db: sqlxdb}, mock
}

func (p *plannerTxMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return p.db.BeginTxx(ctx, opts)
}
