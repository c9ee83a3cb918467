package service

import (
	"fmt"

	"github.com/wayfarer-app/trip-planner-api/internal/models"
	"github.com/wayfarer-app/trip-planner-api/pkg/geo"
)

// Spatial plausibility thresholds, in kilometres and minutes.
const (
	activityRadiusKm   = 30.0
	restaurantRadiusKm = 15.0
	legWarnKm          = 20.0
	urbanLegHardKm     = 4.0
	longLegKm          = 2.5
	impossibleLegKm    = 5.0
	impossibleGapMin   = 15
	outlierMinItems    = 3
	outlierFloorKm     = 3.0
	outlierPercentile  = 0.90
	maxLongLegsPerDay  = 1
)

// GeographyAnalyzer evaluates an assembled trip for spatial plausibility.
// Analyze never fails: malformed coordinates become issues, not errors.
type GeographyAnalyzer struct{}

// NewGeographyAnalyzer constructs the analyzer.
func NewGeographyAnalyzer() *GeographyAnalyzer {
	return &GeographyAnalyzer{}
}

// Analyze reports every spatial issue found in the trip.
func (a *GeographyAnalyzer) Analyze(trip models.Trip) []models.Issue {
	var issues []models.Issue
	center, hasCenter := referenceCenter(trip)

	for _, day := range trip.Days {
		items := sortedByStart(day.Items)
		issues = append(issues, checkCoordinates(day.DayNumber, items)...)
		if hasCenter {
			issues = append(issues, checkRadius(day, items, center)...)
		}
		issues = append(issues, checkLegs(day, items)...)
		issues = append(issues, checkDayOutliers(day.DayNumber, items)...)
	}
	if issue, flagged := checkReliability(trip); flagged {
		issues = append(issues, issue)
	}
	return issues
}

// referenceCenter prefers the accommodation when geocoded, falling back to
// the centroid of all geocoded activities.
func referenceCenter(trip models.Trip) (geo.Point, bool) {
	if trip.Accommodation != nil && !trip.Accommodation.Coords.IsZero() && trip.Accommodation.Coords.InRange() {
		return trip.Accommodation.Coords, true
	}
	var points []geo.Point
	for _, day := range trip.Days {
		for _, item := range day.Items {
			if item.Category == models.CategoryActivity && !item.Coords.IsZero() && item.Coords.InRange() {
				points = append(points, item.Coords)
			}
		}
	}
	if len(points) == 0 {
		return geo.Point{}, false
	}
	return geo.Centroid(points), true
}

func checkCoordinates(dayNumber int, items []models.PlacedItem) []models.Issue {
	var issues []models.Issue
	for _, item := range items {
		switch {
		case item.Coords.IsZero():
			issues = append(issues, models.Issue{
				Code:      models.CodeGeoNotGeocoded,
				Category:  models.CategoryGeography,
				Severity:  models.SeverityCritical,
				Message:   fmt.Sprintf("%q has no geocoded coordinates", item.Title),
				DayNumber: dayNumber,
				ItemTitle: item.Title,
				ItemIDs:   []string{item.ID},
			})
		case !item.Coords.InRange():
			issues = append(issues, models.Issue{
				Code:      models.CodeGeoOutOfRange,
				Category:  models.CategoryGeography,
				Severity:  models.SeverityCritical,
				Message:   fmt.Sprintf("%q has out-of-range coordinates", item.Title),
				DayNumber: dayNumber,
				ItemTitle: item.Title,
				ItemIDs:   []string{item.ID},
				Details:   map[string]float64{"lat": item.Coords.Lat, "lng": item.Coords.Lng},
			})
		}
	}
	return issues
}

func checkRadius(day models.TripDay, items []models.PlacedItem, center geo.Point) []models.Issue {
	var issues []models.Issue
	for _, item := range items {
		if item.Coords.IsZero() || !item.Coords.InRange() {
			continue
		}
		distance := geo.Haversine(center, item.Coords)
		switch item.Category {
		case models.CategoryActivity:
			if !day.DayTrip && distance > activityRadiusKm {
				issues = append(issues, models.Issue{
					Code:      models.CodeGeoFarFromCenter,
					Category:  models.CategoryGeography,
					Severity:  models.SeverityWarning,
					Message:   fmt.Sprintf("activity %q is %.1f km from the trip's base", item.Title, distance),
					DayNumber: day.DayNumber,
					ItemTitle: item.Title,
					ItemIDs:   []string{item.ID},
					Details:   map[string]float64{"distanceKm": distance},
				})
			}
		case models.CategoryRestaurant:
			if !item.AtAccommodation && distance > restaurantRadiusKm {
				issues = append(issues, models.Issue{
					Code:      models.CodeGeoRestaurantFar,
					Category:  models.CategoryGeography,
					Severity:  models.SeverityWarning,
					Message:   fmt.Sprintf("restaurant %q is %.1f km from the trip's base", item.Title, distance),
					DayNumber: day.DayNumber,
					ItemTitle: item.Title,
					ItemIDs:   []string{item.ID},
					Details:   map[string]float64{"distanceKm": distance},
				})
			}
		}
	}
	return issues
}

func checkLegs(day models.TripDay, items []models.PlacedItem) []models.Issue {
	located := make([]models.PlacedItem, 0, len(items))
	for _, item := range items {
		if item.Category.IsLogistics() {
			continue
		}
		if item.Coords.IsZero() || !item.Coords.InRange() {
			continue
		}
		located = append(located, item)
	}

	var issues []models.Issue
	longLegs := 0
	for i := 0; i+1 < len(located); i++ {
		prev, next := located[i], located[i+1]
		distance := geo.Haversine(prev.Coords, next.Coords)
		gap := next.StartMinutes - prev.EndMinutes

		if distance > impossibleLegKm && gap < impossibleGapMin {
			issues = append(issues, models.Issue{
				Code:      models.CodeGeoImpossibleTransition,
				Category:  models.CategoryGeography,
				Severity:  models.SeverityCritical,
				Message:   fmt.Sprintf("%.1f km between %q and %q with only %d minutes of transit", distance, prev.Title, next.Title, gap),
				DayNumber: day.DayNumber,
				ItemIDs:   []string{prev.ID, next.ID},
				Details:   map[string]float64{"distanceKm": distance, "gapMinutes": float64(gap)},
			})
		}

		if !day.DayTrip {
			if distance > urbanLegHardKm {
				issues = append(issues, models.Issue{
					Code:      models.CodeGeoUrbanLegExceeded,
					Category:  models.CategoryGeography,
					Severity:  models.SeverityCritical,
					Message:   fmt.Sprintf("%.1f km between consecutive stops %q and %q exceeds the urban leg limit", distance, prev.Title, next.Title),
					DayNumber: day.DayNumber,
					ItemIDs:   []string{prev.ID, next.ID},
					Details:   map[string]float64{"distanceKm": distance},
				})
			}
			if distance > legWarnKm {
				issues = append(issues, models.Issue{
					Code:      models.CodeGeoLongLeg,
					Category:  models.CategoryGeography,
					Severity:  models.SeverityWarning,
					Message:   fmt.Sprintf("%.1f km between %q and %q", distance, prev.Title, next.Title),
					DayNumber: day.DayNumber,
					ItemIDs:   []string{prev.ID, next.ID},
					Details:   map[string]float64{"distanceKm": distance},
				})
			}
			if distance > longLegKm {
				longLegs++
			}
		}
	}
	if !day.DayTrip && longLegs > maxLongLegsPerDay {
		issues = append(issues, models.Issue{
			Code:      models.CodeGeoTooManyLongLegs,
			Category:  models.CategoryGeography,
			Severity:  models.SeverityWarning,
			Message:   fmt.Sprintf("day %d has %d legs over %.1f km; at most one is expected", day.DayNumber, longLegs, longLegKm),
			DayNumber: day.DayNumber,
			Details:   map[string]float64{"longLegs": float64(longLegs)},
		})
	}
	return issues
}

func checkDayOutliers(dayNumber int, items []models.PlacedItem) []models.Issue {
	var located []models.PlacedItem
	var points []geo.Point
	for _, item := range items {
		if item.Category.IsLogistics() || item.Coords.IsZero() || !item.Coords.InRange() {
			continue
		}
		located = append(located, item)
		points = append(points, item.Coords)
	}
	if len(located) < outlierMinItems {
		return nil
	}

	centroid := geo.Centroid(points)
	distances := make([]float64, len(located))
	for i, item := range located {
		distances[i] = geo.Haversine(centroid, item.Coords)
	}
	threshold := geo.Percentile(distances, outlierPercentile)
	if threshold < outlierFloorKm {
		threshold = outlierFloorKm
	}

	var issues []models.Issue
	for i, item := range located {
		if distances[i] > threshold {
			issues = append(issues, models.Issue{
				Code:      models.CodeGeoDayOutlier,
				Category:  models.CategoryGeography,
				Severity:  models.SeverityWarning,
				Message:   fmt.Sprintf("%q sits %.1f km from the rest of the day's stops", item.Title, distances[i]),
				DayNumber: dayNumber,
				ItemTitle: item.Title,
				ItemIDs:   []string{item.ID},
				Details:   map[string]float64{"distanceKm": distances[i], "thresholdKm": threshold},
			})
		}
	}
	return issues
}

// checkReliability warns when generated placements outnumber verified and
// estimated ones combined, a signal of poor geocoding quality.
func checkReliability(trip models.Trip) (models.Issue, bool) {
	var verified, estimated, generated int
	count := func(r models.DataReliability) {
		switch r {
		case models.ReliabilityVerified:
			verified++
		case models.ReliabilityEstimated:
			estimated++
		case models.ReliabilityGenerated:
			generated++
		}
	}
	for _, day := range trip.Days {
		for _, item := range day.Items {
			count(item.Reliability)
		}
	}
	if trip.Accommodation != nil {
		count(trip.Accommodation.Reliability)
	}
	for _, flight := range trip.Flights {
		count(flight.Reliability)
	}

	if generated <= verified+estimated {
		return models.Issue{}, false
	}
	return models.Issue{
		Code:     models.CodeGeoDataReliability,
		Category: models.CategoryGeography,
		Severity: models.SeverityWarning,
		Message:  fmt.Sprintf("%d generated items outnumber %d verified/estimated ones", generated, verified+estimated),
		Details: map[string]float64{
			"verified":  float64(verified),
			"estimated": float64(estimated),
			"generated": float64(generated),
		},
	}, true
}
