package service

import (
	"strings"

	"github.com/wayfarer-app/trip-planner-api/internal/models"
	"github.com/wayfarer-app/trip-planner-api/pkg/geo"
)

// Mainland distance thresholds in kilometres.
const (
	planeMinKm     = 100.0
	trainWarnKm    = 2500.0
	busMaxKm       = 2000.0
	busWarnKm      = 1200.0
	carMaxKm       = 3000.0
	carWarnKm      = 1500.0
	ferryLongHaulK = 1500.0
)

// planeOnlyIslands are too remote for scheduled ferry service.
var planeOnlyIslands = []string{
	"iceland", "reykjavik",
	"azores", "ponta delgada",
	"madeira", "funchal",
	"canary islands", "tenerife", "gran canaria", "lanzarote", "fuerteventura",
}

// ferryIslands are reachable by sea but not by road or rail.
var ferryIslands = []string{
	"sicily", "palermo", "catania", "messina", "taormina",
	"sardinia", "cagliari", "olbia",
	"corsica", "ajaccio", "bastia",
	"crete", "heraklion", "chania",
	"rhodes", "santorini", "mykonos", "naxos", "paros", "corfu",
	"mallorca", "palma", "ibiza", "menorca",
	"malta", "valletta",
}

// shortStraitRailIslands carry through-trains over a strait rail link
// (the Messina train ferry), so rail is not ruled out.
var shortStraitRailIslands = []string{
	"sicily", "palermo", "catania", "messina", "taormina",
}

// tunnelLinkedPlaces sit on a landmass whose only fixed rail connection to
// the mainland is the Channel Tunnel.
var tunnelLinkedPlaces = []string{
	"united kingdom", "great britain", "england", "scotland", "wales",
	"london", "manchester", "birmingham", "edinburgh", "glasgow",
	"liverpool", "bristol", "leeds", "cardiff",
}

// TransportFeasibilityChecker decides which transport modes are physically
// viable for an origin/destination pair. The decision table is deterministic
// and ordered: continents, then island groups, then fixed-link landmasses,
// then mainland distance rules.
type TransportFeasibilityChecker struct{}

// NewTransportFeasibilityChecker constructs the checker.
func NewTransportFeasibilityChecker() *TransportFeasibilityChecker {
	return &TransportFeasibilityChecker{}
}

// Check returns one verdict per transport mode, in stable mode order.
// Coordinates are optional; when absent the continental rule is skipped.
func (c *TransportFeasibilityChecker) Check(origin, destination string, distanceKm float64, originCoords, destCoords *geo.Point) []models.FeasibilityResult {
	from := normalizePlace(origin)
	to := normalizePlace(destination)

	if originCoords != nil && destCoords != nil {
		fromContinent := continentOf(*originCoords)
		toContinent := continentOf(*destCoords)
		if fromContinent != "" && toContinent != "" && fromContinent != toContinent {
			return onlyPlane("intercontinental route", distanceKm)
		}
	}

	if placeInGroup(from, planeOnlyIslands) || placeInGroup(to, planeOnlyIslands) {
		return onlyPlane("island group too remote for ferry service", distanceKm)
	}

	if placeInGroup(from, ferryIslands) || placeInGroup(to, ferryIslands) {
		return ferryIslandRules(from, to, distanceKm)
	}

	fromTunnel := placeInGroup(from, tunnelLinkedPlaces)
	toTunnel := placeInGroup(to, tunnelLinkedPlaces)
	if fromTunnel != toTunnel {
		return tunnelLinkRules(distanceKm)
	}

	return mainlandRules(distanceKm)
}

func onlyPlane(reason string, distanceKm float64) []models.FeasibilityResult {
	results := make([]models.FeasibilityResult, 0, len(models.AllTransportModes))
	for _, mode := range models.AllTransportModes {
		if mode == models.ModePlane {
			results = append(results, models.FeasibilityResult{Mode: mode, Feasible: true})
			continue
		}
		results = append(results, models.FeasibilityResult{Mode: mode, Feasible: false, Reason: reason})
	}
	return results
}

func ferryIslandRules(from, to string, distanceKm float64) []models.FeasibilityResult {
	railLink := placeInGroup(from, shortStraitRailIslands) || placeInGroup(to, shortStraitRailIslands)
	longHaul := distanceKm > ferryLongHaulK

	results := []models.FeasibilityResult{
		{Mode: models.ModePlane, Feasible: true},
	}
	if railLink {
		results = append(results, models.FeasibilityResult{Mode: models.ModeTrain, Feasible: true, Reason: "through-carriages cross the strait by rail ferry"})
	} else {
		results = append(results, models.FeasibilityResult{Mode: models.ModeTrain, Feasible: false, Reason: "no rail connection to the island"})
	}
	results = append(results, models.FeasibilityResult{Mode: models.ModeBus, Feasible: false, Reason: "no road connection to the island"})

	carReason := ""
	if longHaul {
		carReason = "long crossing; expect a night ferry"
	}
	results = append(results,
		models.FeasibilityResult{Mode: models.ModeCar, Feasible: true, Warning: longHaul, Reason: carReason},
		models.FeasibilityResult{Mode: models.ModeFerry, Feasible: true, Warning: longHaul, Reason: carReason},
	)
	return results
}

func tunnelLinkRules(distanceKm float64) []models.FeasibilityResult {
	plane := models.FeasibilityResult{Mode: models.ModePlane, Feasible: true}
	if distanceKm > 0 && distanceKm <= planeMinKm {
		plane = models.FeasibilityResult{Mode: models.ModePlane, Feasible: false, Reason: "distance too short for a flight"}
	}
	return []models.FeasibilityResult{
		plane,
		{Mode: models.ModeTrain, Feasible: true, Reason: "fixed rail link via the Channel Tunnel"},
		{Mode: models.ModeBus, Feasible: false, Reason: "no through coach service across the fixed link"},
		{Mode: models.ModeCar, Feasible: true, Reason: "car shuttle or ferry crossing required"},
		{Mode: models.ModeFerry, Feasible: true},
	}
}

func mainlandRules(distanceKm float64) []models.FeasibilityResult {
	results := make([]models.FeasibilityResult, 0, len(models.AllTransportModes))

	if distanceKm > planeMinKm {
		results = append(results, models.FeasibilityResult{Mode: models.ModePlane, Feasible: true})
	} else {
		results = append(results, models.FeasibilityResult{Mode: models.ModePlane, Feasible: false, Reason: "distance too short for a flight"})
	}

	train := models.FeasibilityResult{Mode: models.ModeTrain, Feasible: true}
	if distanceKm > trainWarnKm {
		train.Warning = true
		train.Reason = "very long rail journey; consider flying"
	}
	results = append(results, train)

	switch {
	case distanceKm > busMaxKm:
		results = append(results, models.FeasibilityResult{Mode: models.ModeBus, Feasible: false, Reason: "distance exceeds practical coach range"})
	case distanceKm > busWarnKm:
		results = append(results, models.FeasibilityResult{Mode: models.ModeBus, Feasible: true, Warning: true, Reason: "long coach journey"})
	default:
		results = append(results, models.FeasibilityResult{Mode: models.ModeBus, Feasible: true})
	}

	switch {
	case distanceKm > carMaxKm:
		results = append(results, models.FeasibilityResult{Mode: models.ModeCar, Feasible: false, Reason: "distance exceeds practical driving range"})
	case distanceKm > carWarnKm:
		results = append(results, models.FeasibilityResult{Mode: models.ModeCar, Feasible: true, Warning: true, Reason: "long drive; plan an overnight stop"})
	default:
		results = append(results, models.FeasibilityResult{Mode: models.ModeCar, Feasible: true})
	}

	results = append(results, models.FeasibilityResult{Mode: models.ModeFerry, Feasible: false, Reason: "no mainland-to-mainland ferry route"})
	return results
}

func normalizePlace(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func placeInGroup(place string, group []string) bool {
	if place == "" {
		return false
	}
	for _, key := range group {
		if strings.Contains(place, key) {
			return true
		}
	}
	return false
}

// continentOf approximates the continent of a coordinate via coarse
// latitude/longitude banding. The empty string means "unknown"; islands in
// overlapping bands are resolved by the name-based rules that run next.
func continentOf(p geo.Point) string {
	switch {
	case p.Lat >= 34 && p.Lat <= 72 && p.Lng >= -25 && p.Lng <= 45:
		return "europe"
	case p.Lat >= -35 && p.Lat < 34 && p.Lng >= -18 && p.Lng <= 52:
		return "africa"
	case p.Lat >= 0 && p.Lat <= 78 && p.Lng > 45 && p.Lng <= 180:
		return "asia"
	case p.Lat >= 7 && p.Lat <= 84 && p.Lng >= -170 && p.Lng < -50:
		return "north america"
	case p.Lat >= -56 && p.Lat < 13 && p.Lng >= -82 && p.Lng < -34:
		return "south america"
	case p.Lat >= -50 && p.Lat <= -10 && p.Lng >= 110 && p.Lng <= 155:
		return "australia"
	}
	return ""
}
