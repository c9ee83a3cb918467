package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-app/trip-planner-api/internal/models"
)

func placedAt(id, title string, category models.ItemCategory, start, end int) models.PlacedItem {
	return models.PlacedItem{ID: id, Title: title, Category: category, StartMinutes: start, EndMinutes: end}
}

func singleDayTrip(items ...models.PlacedItem) models.Trip {
	return models.Trip{
		Destination:  "Paris",
		DurationDays: 1,
		Days:         []models.TripDay{{DayNumber: 1, Date: "2026-06-01", Items: items}},
	}
}

func TestCoherenceValidatorCleanTrip(t *testing.T) {
	validator := NewCoherenceValidator()
	report := validator.Validate(singleDayTrip(
		placedAt("a", "Louvre", models.CategoryActivity, 9*60, 11*60),
		placedAt("b", "Orsay", models.CategoryActivity, 11*60+30, 13*60),
	))
	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestCoherenceValidatorDetectsOverlap(t *testing.T) {
	validator := NewCoherenceValidator()
	report := validator.Validate(singleDayTrip(
		placedAt("a", "Louvre", models.CategoryActivity, 9*60, 11*60),
		placedAt("b", "Orsay", models.CategoryActivity, 10*60, 12*60),
	))
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, models.CodeOverlap, report.Errors[0].Code)
	assert.Equal(t, 60.0, report.Errors[0].Details["overlapMinutes"])
}

func TestCoherenceValidatorActivityBeforeArrival(t *testing.T) {
	validator := NewCoherenceValidator()
	flight := placedAt("fl", "Flight", models.CategoryFlight, 10*60, 12*60)
	flight.Fixed = true
	report := validator.Validate(singleDayTrip(
		flight,
		placedAt("a", "Louvre", models.CategoryActivity, 8*60, 9*60),
	))
	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
	assert.Equal(t, models.CodeActivityBeforeArrival, report.Errors[0].Code)
}

func TestCoherenceValidatorActivityBeforeCheckin(t *testing.T) {
	validator := NewCoherenceValidator()
	report := validator.Validate(singleDayTrip(
		placedAt("fl", "Flight", models.CategoryFlight, 8*60, 10*60),
		placedAt("ci", "Hotel check-in", models.CategoryCheckin, 11*60, 11*60+30),
		placedAt("a", "Louvre", models.CategoryActivity, 10*60+15, 11*60+15),
	))
	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
	assert.Equal(t, models.CodeActivityBeforeCheckin, report.Errors[0].Code)
}

func TestCoherenceValidatorCheckinWithoutArrivalStillGates(t *testing.T) {
	validator := NewCoherenceValidator()
	report := validator.Validate(singleDayTrip(
		placedAt("ci", "Hotel check-in", models.CategoryCheckin, 14*60, 14*60+30),
		placedAt("a", "Louvre", models.CategoryActivity, 13*60, 14*60),
	))
	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
	assert.Equal(t, models.CodeActivityBeforeCheckin, report.Errors[0].Code)
}

func TestCoherenceValidatorMealOrder(t *testing.T) {
	validator := NewCoherenceValidator()
	dinner := placedAt("d", "Le Bistro", models.CategoryRestaurant, 11*60, 12*60)
	dinner.Meal = models.MealDinner
	lunch := placedAt("l", "Cafe", models.CategoryRestaurant, 14*60, 15*60)
	lunch.Meal = models.MealLunch
	report := validator.Validate(singleDayTrip(dinner, lunch))
	assert.False(t, report.Valid)

	codes := make([]string, 0, len(report.Errors))
	for _, issue := range report.Errors {
		codes = append(codes, issue.Code)
	}
	assert.Contains(t, codes, models.CodeMealWrongOrder)
}

func TestCoherenceValidatorMorningDinner(t *testing.T) {
	validator := NewCoherenceValidator()
	dinner := placedAt("d", "Le Bistro", models.CategoryRestaurant, 9*60, 10*60)
	dinner.Meal = models.MealDinner
	report := validator.Validate(singleDayTrip(dinner))
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, models.CodeMealWrongOrder, report.Errors[0].Code)
}

func TestCoherenceValidatorDepartureBeforeCheckout(t *testing.T) {
	validator := NewCoherenceValidator()
	report := validator.Validate(singleDayTrip(
		placedAt("co", "Checkout", models.CategoryCheckout, 11*60, 11*60+30),
		placedAt("tr", "Train home", models.CategoryTrain, 10*60, 13*60),
	))
	assert.False(t, report.Valid)

	found := false
	for _, issue := range report.Errors {
		if issue.Code == models.CodeDepartureBeforeCheckout {
			found = true
		}
	}
	assert.True(t, found, "expected a departure-before-checkout issue")
}

func TestCoherenceValidatorArrivalLegBeforeCheckoutIgnored(t *testing.T) {
	validator := NewCoherenceValidator()
	report := validator.Validate(singleDayTrip(
		placedAt("in", "Morning train in", models.CategoryTrain, 7*60, 9*60),
		placedAt("co", "Checkout", models.CategoryCheckout, 11*60, 11*60+30),
	))
	for _, issue := range report.Errors {
		assert.NotEqual(t, models.CodeDepartureBeforeCheckout, issue.Code)
	}
}

func TestCoherenceValidatorDepartureDayAllowsMorningActivity(t *testing.T) {
	validator := NewCoherenceValidator()
	flight := placedAt("fl", "Flight home", models.CategoryFlight, 18*60, 20*60)
	flight.Fixed = true
	report := validator.Validate(singleDayTrip(
		placedAt("co", "Checkout", models.CategoryCheckout, 9*60+30, 10*60),
		placedAt("a", "Seine walk", models.CategoryActivity, 11*60, 12*60),
		flight,
	))
	assert.True(t, report.Valid, "an outbound leg must not gate the morning")
	assert.Empty(t, report.Errors)
}

func TestCoherenceValidatorHotelChangeDayDoesNotGateMorning(t *testing.T) {
	validator := NewCoherenceValidator()
	report := validator.Validate(singleDayTrip(
		placedAt("co", "Checkout", models.CategoryCheckout, 9*60+30, 10*60),
		placedAt("a", "Seine walk", models.CategoryActivity, 11*60, 12*60),
		placedAt("ci", "Next hotel check-in", models.CategoryCheckin, 15*60, 15*60+30),
	))
	assert.True(t, report.Valid, "the traveler is already in town before a mid-trip check-in")
	assert.Empty(t, report.Errors)
}

func TestCoherenceValidatorDuplicateAcrossDays(t *testing.T) {
	validator := NewCoherenceValidator()
	trip := models.Trip{
		Destination:  "Paris",
		DurationDays: 2,
		Days: []models.TripDay{
			{DayNumber: 1, Items: []models.PlacedItem{placedAt("a1", "Eiffel Tower", models.CategoryActivity, 9*60, 11*60)}},
			{DayNumber: 2, Items: []models.PlacedItem{placedAt("a2", "eiffel  tower", models.CategoryActivity, 9*60, 11*60)}},
		},
	}
	report := validator.Validate(trip)
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, models.CodeDuplicateAttraction, report.Errors[0].Code)
	assert.ElementsMatch(t, []string{"a1", "a2"}, report.Errors[0].ItemIDs)
}

func TestCoherenceValidatorDuplicateSameDayIsWarning(t *testing.T) {
	validator := NewCoherenceValidator()
	report := validator.Validate(singleDayTrip(
		placedAt("a1", "Eiffel Tower", models.CategoryActivity, 9*60, 10*60),
		placedAt("a2", "Eiffel Tower", models.CategoryActivity, 14*60, 15*60),
	))
	assert.True(t, report.Valid, "same-day duplicates warn but do not invalidate")
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, models.CodeDuplicateAttraction, report.Warnings[0].Code)
}

func TestCoherenceValidatorDoesNotMutateInput(t *testing.T) {
	validator := NewCoherenceValidator()
	trip := singleDayTrip(
		placedAt("b", "Orsay", models.CategoryActivity, 11*60, 12*60),
		placedAt("a", "Louvre", models.CategoryActivity, 9*60, 10*60),
	)
	_ = validator.Validate(trip)
	assert.Equal(t, "b", trip.Days[0].Items[0].ID, "validator must not reorder the caller's slice")
}
