package models

// Severity grades how strongly an issue should be surfaced.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Issue codes form the stable public contract consumed by reporting tooling.
const (
	CodeOverlap                 = "OVERLAP"
	CodeActivityBeforeArrival   = "ACTIVITY_BEFORE_ARRIVAL"
	CodeActivityBeforeCheckin   = "ACTIVITY_BEFORE_HOTEL_CHECKIN"
	CodeIllogicalSequence       = "ILLOGICAL_SEQUENCE"
	CodeMealWrongOrder          = "MEAL_WRONG_ORDER"
	CodeDuplicateAttraction     = "DUPLICATE_ATTRACTION"
	CodeDepartureBeforeCheckout = "DEPARTURE_BEFORE_CHECKOUT"

	CodeGeoNotGeocoded          = "GEO_NOT_GEOCODED"
	CodeGeoOutOfRange           = "GEO_OUT_OF_RANGE"
	CodeGeoFarFromCenter        = "GEO_FAR_FROM_CENTER"
	CodeGeoRestaurantFar        = "GEO_RESTAURANT_FAR"
	CodeGeoLongLeg              = "GEO_LONG_LEG"
	CodeGeoUrbanLegExceeded     = "GEO_URBAN_LEG_EXCEEDED"
	CodeGeoTooManyLongLegs      = "GEO_TOO_MANY_LONG_LEGS"
	CodeGeoImpossibleTransition = "GEO_IMPOSSIBLE_TRANSITION"
	CodeGeoDayOutlier           = "GEO_DAY_OUTLIER"
	CodeGeoDataReliability      = "GEO_DATA_RELIABILITY"
)

// Issue categories.
const (
	CategoryCoherence = "coherence"
	CategoryGeography = "geography"
)

// Issue is one coherence or geography finding on an assembled trip.
type Issue struct {
	Code      string             `json:"code"`
	Category  string             `json:"category"`
	Severity  Severity           `json:"severity"`
	Message   string             `json:"message"`
	DayNumber int                `json:"dayNumber,omitempty"`
	ItemTitle string             `json:"itemTitle,omitempty"`
	ItemIDs   []string           `json:"itemIds,omitempty"`
	Details   map[string]float64 `json:"details,omitempty"`
}

// IsError reports whether the issue invalidates the trip.
func (i Issue) IsError() bool {
	return i.Severity == SeverityCritical
}

// ValidationReport aggregates the validator's findings.
type ValidationReport struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// All returns errors followed by warnings.
func (r ValidationReport) All() []Issue {
	out := make([]Issue, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	out = append(out, r.Warnings...)
	return out
}

// Conflict describes an interval collision inside a single day.
type Conflict struct {
	FirstID      string `json:"firstId"`
	SecondID     string `json:"secondId"`
	FirstTitle   string `json:"firstTitle"`
	SecondTitle  string `json:"secondTitle"`
	OverlapStart int    `json:"overlapStart"`
	OverlapEnd   int    `json:"overlapEnd"`
}
