package service

import (
	"fmt"
	"sort"

	"github.com/wayfarer-app/trip-planner-api/internal/models"
)

// CoherenceValidator evaluates an assembled trip for temporal and logical
// plausibility. Validate is pure and idempotent: it never mutates the trip
// and never fails, it only reports.
type CoherenceValidator struct{}

// NewCoherenceValidator constructs the validator.
func NewCoherenceValidator() *CoherenceValidator {
	return &CoherenceValidator{}
}

// Validate runs every rule and aggregates the findings. Validity is decided
// by errors alone; warnings never flip it.
func (v *CoherenceValidator) Validate(trip models.Trip) models.ValidationReport {
	var issues []models.Issue
	for _, day := range trip.Days {
		items := sortedByStart(day.Items)
		issues = append(issues, checkOverlaps(day.DayNumber, items)...)
		issues = append(issues, checkArrivalOrdering(day.DayNumber, items)...)
		issues = append(issues, checkMealOrder(day.DayNumber, items)...)
		issues = append(issues, checkDepartureOrdering(day.DayNumber, items)...)
	}
	issues = append(issues, checkDuplicateAttractions(trip)...)

	report := models.ValidationReport{Errors: []models.Issue{}, Warnings: []models.Issue{}}
	for _, issue := range issues {
		if issue.IsError() {
			report.Errors = append(report.Errors, issue)
		} else {
			report.Warnings = append(report.Warnings, issue)
		}
	}
	report.Valid = len(report.Errors) == 0
	return report
}

func sortedByStart(items []models.PlacedItem) []models.PlacedItem {
	out := make([]models.PlacedItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartMinutes < out[j].StartMinutes
	})
	return out
}

func checkOverlaps(dayNumber int, items []models.PlacedItem) []models.Issue {
	var issues []models.Issue
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if !items[i].Overlaps(items[j]) {
				continue
			}
			issues = append(issues, models.Issue{
				Code:      models.CodeOverlap,
				Category:  models.CategoryCoherence,
				Severity:  models.SeverityCritical,
				Message:   fmt.Sprintf("%q and %q occupy overlapping time slots", items[i].Title, items[j].Title),
				DayNumber: dayNumber,
				ItemIDs:   []string{items[i].ID, items[j].ID},
				Details: map[string]float64{
					"overlapMinutes": float64(minInt(items[i].EndMinutes, items[j].EndMinutes) - maxInt(items[i].StartMinutes, items[j].StartMinutes)),
				},
			})
		}
	}
	return issues
}

// inboundBlock describes the day's arrival logistics chain: an inbound
// transport leg, optionally followed by a transfer and a hotel check-in.
type inboundBlock struct {
	arrivalEnd  int
	transferEnd int
	checkinEnd  int
	end         int
	found       bool
}

// findInboundBlock locates the arrival chain in start order. A transfer or
// check-in only joins the chain if it starts at or after the previous link.
// A leg that begins after the day's checkout ends is the way home, not the
// way in, and never opens or extends a block.
func findInboundBlock(items []models.PlacedItem) inboundBlock {
	outboundFrom := -1
	for _, item := range items {
		if item.Category == models.CategoryCheckout {
			outboundFrom = item.EndMinutes
			break
		}
	}
	departs := func(item models.PlacedItem) bool {
		return outboundFrom >= 0 && item.StartMinutes >= outboundFrom
	}

	block := inboundBlock{}
	for _, item := range items {
		if item.Category.IsArrival() && !departs(item) {
			block.found = true
			block.arrivalEnd = item.EndMinutes
			block.end = item.EndMinutes
			break
		}
	}
	if !block.found {
		// A check-in without an inbound leg still gates the day (e.g.
		// arrival by car): treat it as a one-element block. A check-in at
		// the next hotel after checkout does not; the traveler is already
		// in town.
		for _, item := range items {
			if item.Category == models.CategoryCheckin && !departs(item) {
				block.found = true
				block.checkinEnd = item.EndMinutes
				block.end = item.EndMinutes
				break
			}
		}
		return block
	}
	for _, item := range items {
		if item.Category == models.CategoryTransport && item.StartMinutes >= block.arrivalEnd && !departs(item) {
			block.transferEnd = item.EndMinutes
			if item.EndMinutes > block.end {
				block.end = item.EndMinutes
			}
			break
		}
	}
	for _, item := range items {
		if item.Category == models.CategoryCheckin && item.StartMinutes >= block.arrivalEnd && !departs(item) {
			block.checkinEnd = item.EndMinutes
			if item.EndMinutes > block.end {
				block.end = item.EndMinutes
			}
			break
		}
	}
	return block
}

func checkArrivalOrdering(dayNumber int, items []models.PlacedItem) []models.Issue {
	block := findInboundBlock(items)
	if !block.found {
		return nil
	}

	var issues []models.Issue
	for _, item := range items {
		if item.Category != models.CategoryActivity && item.Category != models.CategoryRestaurant {
			continue
		}
		if item.StartMinutes >= block.end {
			break
		}
		code := models.CodeIllogicalSequence
		message := fmt.Sprintf("%q starts before the day's arrival logistics complete", item.Title)
		switch {
		case block.arrivalEnd > 0 && item.StartMinutes < block.arrivalEnd:
			code = models.CodeActivityBeforeArrival
			message = fmt.Sprintf("%q starts before the traveler has arrived", item.Title)
		case block.checkinEnd > 0 && item.StartMinutes < block.checkinEnd:
			code = models.CodeActivityBeforeCheckin
			message = fmt.Sprintf("%q starts before hotel check-in completes", item.Title)
		}
		issues = append(issues, models.Issue{
			Code:      code,
			Category:  models.CategoryCoherence,
			Severity:  models.SeverityCritical,
			Message:   message,
			DayNumber: dayNumber,
			ItemTitle: item.Title,
			ItemIDs:   []string{item.ID},
			Details: map[string]float64{
				"itemStart": float64(item.StartMinutes),
				"blockEnd":  float64(block.end),
			},
		})
		// Only the first offending occurrence matters; later items are a
		// consequence of the same misplacement.
		break
	}
	return issues
}

// noonMinutes separates "morning" from the earliest defensible dinner slot.
const noonMinutes = 12 * 60

func checkMealOrder(dayNumber int, items []models.PlacedItem) []models.Issue {
	var meals []models.PlacedItem
	for _, item := range items {
		if item.Meal != models.MealNone {
			meals = append(meals, item)
		}
	}

	var issues []models.Issue
	for i := 0; i < len(meals)-1; i++ {
		if meals[i].Meal.Rank() > meals[i+1].Meal.Rank() {
			issues = append(issues, models.Issue{
				Code:      models.CodeMealWrongOrder,
				Category:  models.CategoryCoherence,
				Severity:  models.SeverityCritical,
				Message:   fmt.Sprintf("%s %q is scheduled before %s %q", meals[i].Meal, meals[i].Title, meals[i+1].Meal, meals[i+1].Title),
				DayNumber: dayNumber,
				ItemIDs:   []string{meals[i].ID, meals[i+1].ID},
			})
		}
	}
	for _, meal := range meals {
		if meal.Meal == models.MealDinner && meal.StartMinutes < noonMinutes {
			issues = append(issues, models.Issue{
				Code:      models.CodeMealWrongOrder,
				Category:  models.CategoryCoherence,
				Severity:  models.SeverityCritical,
				Message:   fmt.Sprintf("dinner %q is scheduled in the morning", meal.Title),
				DayNumber: dayNumber,
				ItemTitle: meal.Title,
				ItemIDs:   []string{meal.ID},
				Details:   map[string]float64{"startMinutes": float64(meal.StartMinutes)},
			})
		}
	}
	return issues
}

func checkDepartureOrdering(dayNumber int, items []models.PlacedItem) []models.Issue {
	var issues []models.Issue
	for _, checkout := range items {
		if checkout.Category != models.CategoryCheckout {
			continue
		}
		for _, leg := range items {
			if !leg.Category.IsArrival() && leg.Category != models.CategoryTransport {
				continue
			}
			// A leg that completes before checkout even begins is an
			// arrival, not a departure.
			if leg.EndMinutes <= checkout.StartMinutes {
				continue
			}
			if leg.StartMinutes < checkout.EndMinutes {
				issues = append(issues, models.Issue{
					Code:      models.CodeDepartureBeforeCheckout,
					Category:  models.CategoryCoherence,
					Severity:  models.SeverityCritical,
					Message:   fmt.Sprintf("departure %q starts before checkout completes", leg.Title),
					DayNumber: dayNumber,
					ItemTitle: leg.Title,
					ItemIDs:   []string{checkout.ID, leg.ID},
				})
			}
		}
	}
	return issues
}

func checkDuplicateAttractions(trip models.Trip) []models.Issue {
	type occurrence struct {
		dayNumber int
		item      models.PlacedItem
	}
	seen := make(map[string][]occurrence)
	for _, day := range trip.Days {
		for _, item := range day.Items {
			if item.Category != models.CategoryActivity {
				continue
			}
			key := models.NormalizedTitle(item.Title)
			if key == "" {
				continue
			}
			seen[key] = append(seen[key], occurrence{dayNumber: day.DayNumber, item: item})
		}
	}

	// Deterministic output order regardless of map iteration.
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var issues []models.Issue
	for _, key := range keys {
		occ := seen[key]
		if len(occ) < 2 {
			continue
		}
		crossDay := false
		ids := make([]string, 0, len(occ))
		days := make(map[int]bool)
		for _, o := range occ {
			ids = append(ids, o.item.ID)
			days[o.dayNumber] = true
		}
		crossDay = len(days) > 1

		severity := models.SeverityWarning
		if crossDay {
			severity = models.SeverityCritical
		}
		issues = append(issues, models.Issue{
			Code:      models.CodeDuplicateAttraction,
			Category:  models.CategoryCoherence,
			Severity:  severity,
			Message:   fmt.Sprintf("attraction %q appears %d times in the itinerary", occ[0].item.Title, len(occ)),
			DayNumber: occ[0].dayNumber,
			ItemTitle: occ[0].item.Title,
			ItemIDs:   ids,
			Details:   map[string]float64{"occurrences": float64(len(occ))},
		})
	}
	return issues
}
