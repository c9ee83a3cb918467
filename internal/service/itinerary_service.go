package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/wayfarer-app/trip-planner-api/internal/dto"
	"github.com/wayfarer-app/trip-planner-api/internal/models"
	appErrors "github.com/wayfarer-app/trip-planner-api/pkg/errors"
	"github.com/wayfarer-app/trip-planner-api/pkg/geo"
	"github.com/wayfarer-app/trip-planner-api/pkg/jobs"
)

type savedItineraryRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, itinerary *models.SavedItinerary) error
	ListByTraveler(ctx context.Context, travelerID string) ([]models.SavedItinerary, error)
	FindByID(ctx context.Context, id string) (*models.SavedItinerary, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SavedItineraryStatus) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Score penalty weights.
const (
	criticalPenalty = 20.0
	warningPenalty  = 5.0
	unplacedPenalty = 2.0
)

// ItineraryService orchestrates scheduling, validation, repair and
// persistence of trip plans.
type ItineraryService struct {
	repo      savedItineraryRepository
	tx        txProvider
	cache     *CacheService
	coherence *CoherenceValidator
	geography *GeographyAnalyzer
	fixer     *AutoFixer
	transport *TransportFeasibilityChecker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	store     *planProposalStore
	warmQueue *jobs.Queue
	cfg       ItineraryServiceConfig
}

// ItineraryServiceConfig governs generation behaviour.
type ItineraryServiceConfig struct {
	ProposalTTL     time.Duration
	DayStartMinutes int
	DayEndMinutes   int
	FixPasses       int
	MaxItemsPerDay  int
	MaxTripDays     int
}

// NewItineraryService wires the planning pipeline.
func NewItineraryService(
	repo savedItineraryRepository,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ItineraryServiceConfig,
) *ItineraryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.DayStartMinutes <= 0 {
		cfg.DayStartMinutes = 8 * 60
	}
	if cfg.DayEndMinutes <= 0 {
		cfg.DayEndMinutes = 22 * 60
	}
	if cfg.FixPasses <= 0 {
		cfg.FixPasses = defaultFixPasses
	}
	if cfg.MaxItemsPerDay <= 0 {
		cfg.MaxItemsPerDay = 24
	}
	if cfg.MaxTripDays <= 0 {
		cfg.MaxTripDays = 30
	}
	coherence := NewCoherenceValidator()
	return &ItineraryService{
		repo:      repo,
		tx:        tx,
		cache:     cache,
		coherence: coherence,
		geography: NewGeographyAnalyzer(),
		fixer:     NewAutoFixer(coherence, cfg.DayStartMinutes, cfg.DayEndMinutes, cfg.FixPasses),
		transport: NewTransportFeasibilityChecker(),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		store:     newPlanProposalStore(cfg.ProposalTTL),
		cfg:       cfg,
	}
}

// WithCacheWarming attaches a task queue that pre-populates the itinerary
// cache after each save.
func (s *ItineraryService) WithCacheWarming(queue *jobs.Queue) *ItineraryService {
	s.warmQueue = queue
	return s
}

// Generate schedules the supplied candidate pool into a validated proposal.
func (s *ItineraryService) Generate(ctx context.Context, req dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan generation payload")
	}
	if len(req.Days) > s.cfg.MaxTripDays {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("trip exceeds the maximum duration of %d days", s.cfg.MaxTripDays))
	}

	trip := models.Trip{
		Origin:       req.Origin,
		Destination:  req.Destination,
		DurationDays: len(req.Days),
	}
	if req.Accommodation != nil {
		trip.Accommodation = &models.TripEntity{
			Title:       req.Accommodation.Title,
			Coords:      req.Accommodation.Coords,
			Reliability: models.DataReliability(req.Accommodation.Reliability),
		}
	}
	for _, flight := range req.Flights {
		trip.Flights = append(trip.Flights, models.TripEntity{
			Title:       flight.Title,
			Coords:      flight.Coords,
			Reliability: models.DataReliability(flight.Reliability),
		})
	}

	var unplaced []string
	placedCount := 0
	for i, dayReq := range req.Days {
		day, dropped, err := s.scheduleDay(i+1, dayReq)
		if err != nil {
			return nil, err
		}
		placedCount += len(day.Items)
		unplaced = append(unplaced, dropped...)
		trip.Days = append(trip.Days, day)
	}

	report := s.coherence.Validate(trip)
	issuesBefore := len(report.All())
	fixApplied := false
	if !req.SkipAutoFix && len(report.Errors) > 0 {
		trip = s.fixer.Fix(trip)
		report = s.coherence.Validate(trip)
		fixApplied = true
		s.metrics.ObserveAutoFix()
	}
	geoIssues := s.geography.Analyze(trip)

	issues := append(report.All(), geoIssues...)
	criticals, warnings := 0, 0
	for _, issue := range issues {
		if issue.IsError() {
			criticals++
		} else {
			warnings++
		}
		s.metrics.ObservePlanIssue(issue.Category, string(issue.Severity))
	}
	score := 100 - criticalPenalty*float64(criticals) - warningPenalty*float64(warnings) - unplacedPenalty*float64(len(unplaced))
	if score < 0 {
		score = 0
	}

	proposal := planProposal{
		ProposalID:  uuid.NewString(),
		TravelerID:  req.TravelerID,
		Destination: req.Destination,
		Trip:        trip,
		Issues:      issues,
		Criticals:   criticals,
		Score:       score,
		Stats: dto.PlanStats{
			ItemsPlaced:     placedCount,
			ItemsDropped:    len(unplaced),
			FixApplied:      fixApplied,
			IssuesBeforeFix: issuesBefore,
			IssuesAfterFix:  len(report.All()),
		},
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)
	s.metrics.ObservePlanGenerated(score)

	s.logger.Info("plan generated",
		zap.String("proposal_id", proposal.ProposalID),
		zap.String("destination", req.Destination),
		zap.Int("days", len(trip.Days)),
		zap.Float64("score", score),
		zap.Int("issues", len(issues)),
	)

	return &dto.GeneratePlanResponse{
		ProposalID: proposal.ProposalID,
		Score:      score,
		Valid:      report.Valid,
		Trip:       trip,
		Issues:     issues,
		Unplaced:   unplaced,
		Stats:      proposal.Stats,
	}, nil
}

// scheduleDay runs the cursor discipline over one day's candidate pool.
// Items that do not fit are returned as dropped, not errors.
func (s *ItineraryService) scheduleDay(dayNumber int, req dto.DayPlanPayload) (models.TripDay, []string, error) {
	if len(req.Fixed)+len(req.Items) > s.cfg.MaxItemsPerDay {
		return models.TripDay{}, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d exceeds the maximum of %d items", dayNumber, s.cfg.MaxItemsPerDay))
	}
	dayStart := s.cfg.DayStartMinutes
	dayEnd := s.cfg.DayEndMinutes
	if req.DayStart != "" {
		parsed, err := geo.ParseClock(req.DayStart)
		if err != nil {
			return models.TripDay{}, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d: invalid dayStart: %v", dayNumber, err))
		}
		dayStart = parsed
	}
	if req.DayEnd != "" {
		parsed, err := geo.ParseClock(req.DayEnd)
		if err != nil {
			return models.TripDay{}, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d: invalid dayEnd: %v", dayNumber, err))
		}
		dayEnd = parsed
	}

	sched := NewDayScheduler(req.Date, dayStart, dayEnd)

	fixed := make([]models.FixedItem, 0, len(req.Fixed))
	for _, payload := range req.Fixed {
		start, err := geo.ParseClock(payload.StartTime)
		if err != nil {
			return models.TripDay{}, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d: fixed item %q: %v", dayNumber, payload.Title, err))
		}
		end, err := geo.ParseClock(payload.EndTime)
		if err != nil {
			return models.TripDay{}, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d: fixed item %q: %v", dayNumber, payload.Title, err))
		}
		// 23:45-00:30 crosses midnight: keep the end on this scheduling
		// day's axis so the interval stays comparable.
		if end < start {
			end += 24 * 60
		}
		item := models.FixedItem{
			ID:           payload.ID,
			Title:        payload.Title,
			Category:     models.ItemCategory(payload.Category),
			StartMinutes: start,
			EndMinutes:   end,
			Coords:       payload.Coords,
			Reliability:  models.DataReliability(payload.Reliability),
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		fixed = append(fixed, item)
	}
	sort.SliceStable(fixed, func(i, j int) bool { return fixed[i].StartMinutes < fixed[j].StartMinutes })
	for _, item := range fixed {
		sched.InsertFixed(item)
	}
	if block := findInboundBlock(sched.Items()); block.found {
		sched.AdvanceTo(block.end)
	}

	var dropped []string
	for _, payload := range req.Items {
		spec := models.ItemSpec{
			ID:              payload.ID,
			Title:           payload.Title,
			Category:        models.ItemCategory(payload.Category),
			DurationMinutes: payload.DurationMinutes,
			TravelMinutes:   payload.TravelMinutes,
			CostEstimate:    payload.CostEstimate,
			Coords:          payload.Coords,
			Meal:            models.MealSlot(payload.Meal),
			AtAccommodation: payload.AtAccommodation,
			Reliability:     models.DataReliability(payload.Reliability),
		}
		if spec.ID == "" {
			spec.ID = uuid.NewString()
		}
		if payload.MinStartTime != "" {
			minStart, err := geo.ParseClock(payload.MinStartTime)
			if err != nil {
				return models.TripDay{}, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d: item %q: %v", dayNumber, payload.Title, err))
			}
			spec.MinStartMinutes = &minStart
		}
		if _, ok := sched.Add(spec); !ok {
			dropped = append(dropped, spec.ID)
		}
	}

	return models.TripDay{
		DayNumber:       dayNumber,
		Date:            req.Date,
		Theme:           req.Theme,
		DayTrip:         req.DayTrip,
		DayStartMinutes: sched.DayStart(),
		DayEndMinutes:   sched.DayEnd(),
		Items:           sched.Items(),
	}, dropped, nil
}

// Save persists a generated proposal as a versioned itinerary.
func (s *ItineraryService) Save(ctx context.Context, req dto.SavePlanRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save plan payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrProposalExpired, "")
	}
	if proposal.Criticals > 0 {
		return "", appErrors.Clone(appErrors.ErrUnresolvedIssues, fmt.Sprintf("plan has %d unresolved critical issues", proposal.Criticals))
	}
	if s.tx == nil || s.repo == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "itinerary persistence unavailable")
	}

	payloadBytes, marshalErr := json.Marshal(proposal.Trip)
	if marshalErr != nil {
		return "", appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode trip payload")
	}
	metaBytes, marshalErr := json.Marshal(map[string]any{
		"score":     proposal.Score,
		"stats":     proposal.Stats,
		"issues":    len(proposal.Issues),
		"generated": proposal.RequestedAt,
		"algorithm": "cursor_v1",
	})
	if marshalErr != nil {
		return "", appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode plan metadata")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	record := &models.SavedItinerary{
		TravelerID:  proposal.TravelerID,
		Destination: proposal.Destination,
		Status:      models.SavedItineraryStatusDraft,
		Payload:     types.JSONText(payloadBytes),
		Meta:        types.JSONText(metaBytes),
	}
	if err = s.repo.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create itinerary")
		return "", err
	}
	if req.Accept {
		if err = s.repo.UpdateStatus(ctx, tx, record.ID, models.SavedItineraryStatusAccepted); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept itinerary")
			return "", err
		}
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit itinerary transaction")
		return "", err
	}

	s.store.Delete(req.ProposalID)
	if s.warmQueue != nil {
		if warmErr := s.warmQueue.Enqueue(jobs.Task{ID: record.ID, Kind: "itinerary-cache-warm"}); warmErr != nil {
			s.logger.Warn("cache warm enqueue failed", zap.String("itinerary_id", record.ID), zap.Error(warmErr))
		}
	}
	s.logger.Info("plan saved",
		zap.String("itinerary_id", record.ID),
		zap.String("traveler_id", record.TravelerID),
		zap.Int("version", record.Version),
	)
	return record.ID, nil
}

// List returns saved itinerary versions for a traveler.
func (s *ItineraryService) List(ctx context.Context, query dto.SavedItineraryQuery) ([]models.SavedItinerary, error) {
	if query.TravelerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "travelerId is required")
	}
	list, err := s.repo.ListByTraveler(ctx, query.TravelerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list itineraries")
	}
	return list, nil
}

// Get loads one saved itinerary, read-through cached when caching is on.
func (s *ItineraryService) Get(ctx context.Context, id string) (*models.SavedItinerary, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "itinerary id is required")
	}
	cacheKey := itineraryCacheKey(id)
	var cached models.SavedItinerary
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "itinerary not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load itinerary")
	}
	_ = s.cache.Set(ctx, cacheKey, record, 0)
	return record, nil
}

// Delete removes a saved itinerary version.
func (s *ItineraryService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "itinerary id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "itinerary not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete itinerary")
	}
	_ = s.cache.Invalidate(ctx, itineraryCacheKey(id))
	return nil
}

// ValidateTrip runs the coherence and geography rules over a supplied trip.
func (s *ItineraryService) ValidateTrip(ctx context.Context, req dto.ValidateTripRequest) (*dto.ValidateTripResponse, error) {
	if err := ensureTripStructure(req.Trip); err != nil {
		return nil, err
	}
	report := s.coherence.Validate(req.Trip)
	return &dto.ValidateTripResponse{
		Report:    report,
		Geography: s.geography.Analyze(req.Trip),
	}, nil
}

// FixTrip repairs a supplied trip and reports the violation delta.
func (s *ItineraryService) FixTrip(ctx context.Context, req dto.FixTripRequest) (*dto.FixTripResponse, error) {
	if err := ensureTripStructure(req.Trip); err != nil {
		return nil, err
	}
	before := len(s.coherence.Validate(req.Trip).All())
	fixed := s.fixer.Fix(req.Trip)
	remaining := s.coherence.Validate(fixed).All()
	return &dto.FixTripResponse{
		Trip:         fixed,
		IssuesBefore: before,
		IssuesAfter:  len(remaining),
		Remaining:    remaining,
	}, nil
}

// CheckFeasibility answers which transport modes are viable for a route.
func (s *ItineraryService) CheckFeasibility(ctx context.Context, query dto.FeasibilityQuery) (*dto.FeasibilityResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feasibility query")
	}
	distance := query.DistanceKm
	if distance == 0 && query.OriginCoords != nil && query.DestCoords != nil &&
		!query.OriginCoords.IsZero() && !query.DestCoords.IsZero() {
		distance = geo.Haversine(*query.OriginCoords, *query.DestCoords)
	}
	results := s.transport.Check(query.Origin, query.Destination, distance, query.OriginCoords, query.DestCoords)
	return &dto.FeasibilityResponse{
		Origin:      query.Origin,
		Destination: query.Destination,
		DistanceKm:  distance,
		Results:     results,
	}, nil
}

// ensureTripStructure fails loudly on structurally invalid trips; malformed
// content (missing coordinates and the like) is the validators' job.
func ensureTripStructure(trip models.Trip) error {
	if len(trip.Days) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "trip must contain at least one day")
	}
	for i, day := range trip.Days {
		if day.DayNumber < 1 || day.DayNumber > len(trip.Days) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day at index %d references day number %d outside the trip", i, day.DayNumber))
		}
	}
	return nil
}

func itineraryCacheKey(id string) string {
	return "itinerary:" + id
}

// --- Proposal cache ---

type planProposal struct {
	ProposalID  string
	TravelerID  string
	Destination string
	Trip        models.Trip
	Issues      []models.Issue
	Criticals   int
	Score       float64
	Stats       dto.PlanStats
	RequestedAt time.Time
}

type planProposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]planProposal
}

func newPlanProposalStore(ttl time.Duration) *planProposalStore {
	return &planProposalStore{
		ttl:   ttl,
		items: make(map[string]planProposal),
	}
}

func (s *planProposalStore) Save(proposal planProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *planProposalStore) Get(id string) (planProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return planProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return planProposal{}, false
	}
	return proposal, true
}

func (s *planProposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
