package models

import (
	"strings"

	"github.com/wayfarer-app/trip-planner-api/pkg/geo"
)

// ItemCategory is the closed set of event kinds an itinerary can contain.
type ItemCategory string

const (
	CategoryActivity   ItemCategory = "activity"
	CategoryRestaurant ItemCategory = "restaurant"
	CategoryFlight     ItemCategory = "flight"
	CategoryTrain      ItemCategory = "train"
	CategoryBus        ItemCategory = "bus"
	CategoryTransport  ItemCategory = "transport"
	CategoryCheckin    ItemCategory = "checkin"
	CategoryCheckout   ItemCategory = "checkout"
	CategoryParking    ItemCategory = "parking"
	CategoryLuggage    ItemCategory = "luggage"
)

// IsLogistics reports whether the category moves or stores the traveler
// rather than occupying them.
func (c ItemCategory) IsLogistics() bool {
	switch c {
	case CategoryFlight, CategoryTrain, CategoryBus, CategoryTransport,
		CategoryCheckin, CategoryCheckout, CategoryParking, CategoryLuggage:
		return true
	}
	return false
}

// IsArrival reports whether the category is an inbound transport leg.
func (c ItemCategory) IsArrival() bool {
	switch c {
	case CategoryFlight, CategoryTrain, CategoryBus:
		return true
	}
	return false
}

// MealSlot tags restaurant items with their expected place in the day.
type MealSlot string

const (
	MealNone      MealSlot = ""
	MealBreakfast MealSlot = "breakfast"
	MealLunch     MealSlot = "lunch"
	MealDinner    MealSlot = "dinner"
)

// Rank orders meal slots chronologically; MealNone ranks last.
func (m MealSlot) Rank() int {
	switch m {
	case MealBreakfast:
		return 0
	case MealLunch:
		return 1
	case MealDinner:
		return 2
	}
	return 3
}

// DataReliability tags how an item's metadata was sourced.
type DataReliability string

const (
	ReliabilityVerified  DataReliability = "verified"
	ReliabilityEstimated DataReliability = "estimated"
	ReliabilityGenerated DataReliability = "generated"
)

// ItemSpec is a flexible candidate event waiting for a time slot.
type ItemSpec struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Category        ItemCategory    `json:"category"`
	DurationMinutes int             `json:"durationMinutes"`
	TravelMinutes   int             `json:"travelMinutes"`
	MinStartMinutes *int            `json:"minStartMinutes,omitempty"`
	CostEstimate    float64         `json:"costEstimate,omitempty"`
	Coords          geo.Point       `json:"coords"`
	Meal            MealSlot        `json:"meal,omitempty"`
	AtAccommodation bool            `json:"atAccommodation,omitempty"`
	Reliability     DataReliability `json:"reliability,omitempty"`
}

// FixedItem is an immutable event with an externally dictated interval.
type FixedItem struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Category     ItemCategory    `json:"category"`
	StartMinutes int             `json:"startMinutes"`
	EndMinutes   int             `json:"endMinutes"`
	Coords       geo.Point       `json:"coords"`
	Reliability  DataReliability `json:"reliability,omitempty"`
}

// PlacedItem is an event bound to a concrete [start, end) interval on a day.
type PlacedItem struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Category        ItemCategory    `json:"category"`
	StartMinutes    int             `json:"startMinutes"`
	EndMinutes      int             `json:"endMinutes"`
	StartTime       string          `json:"startTime"`
	EndTime         string          `json:"endTime"`
	Fixed           bool            `json:"fixed"`
	TravelMinutes   int             `json:"travelMinutes,omitempty"`
	MinStartMinutes *int            `json:"minStartMinutes,omitempty"`
	CostEstimate    float64         `json:"costEstimate,omitempty"`
	Coords          geo.Point       `json:"coords"`
	Meal            MealSlot        `json:"meal,omitempty"`
	AtAccommodation bool            `json:"atAccommodation,omitempty"`
	Reliability     DataReliability `json:"reliability,omitempty"`
}

// Overlaps reports whether two half-open intervals intersect.
func (p PlacedItem) Overlaps(other PlacedItem) bool {
	return p.StartMinutes < other.EndMinutes && other.StartMinutes < p.EndMinutes
}

// NormalizedTitle folds case and whitespace for duplicate detection.
func NormalizedTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// TripDay is one scheduled day of a trip, items ordered by start time.
// DayStartMinutes and DayEndMinutes record the window the day was scheduled
// against so that repairs replay it instead of the service default.
type TripDay struct {
	DayNumber       int          `json:"dayNumber"`
	Date            string       `json:"date"`
	Theme           string       `json:"theme,omitempty"`
	DayTrip         bool         `json:"dayTrip,omitempty"`
	DayStartMinutes int          `json:"dayStartMinutes,omitempty"`
	DayEndMinutes   int          `json:"dayEndMinutes,omitempty"`
	Items           []PlacedItem `json:"items"`
}

// Clone returns a deep copy of the day.
func (d TripDay) Clone() TripDay {
	out := d
	out.Items = make([]PlacedItem, len(d.Items))
	copy(out.Items, d.Items)
	return out
}

// TripEntity is a trip-level asset (accommodation, flight booking) carrying
// the shared coordinate and reliability contract.
type TripEntity struct {
	Title       string          `json:"title"`
	Coords      geo.Point       `json:"coords"`
	Reliability DataReliability `json:"reliability,omitempty"`
}

// Trip is the assembled multi-day itinerary the validators operate on.
type Trip struct {
	Origin        string       `json:"origin,omitempty"`
	Destination   string       `json:"destination"`
	DurationDays  int          `json:"durationDays"`
	Days          []TripDay    `json:"days"`
	Accommodation *TripEntity  `json:"accommodation,omitempty"`
	Flights       []TripEntity `json:"flights,omitempty"`
}

// Clone returns a deep copy so repairs never alias the input trip.
func (t Trip) Clone() Trip {
	out := t
	out.Days = make([]TripDay, len(t.Days))
	for i, day := range t.Days {
		out.Days[i] = day.Clone()
	}
	if t.Accommodation != nil {
		acc := *t.Accommodation
		out.Accommodation = &acc
	}
	if t.Flights != nil {
		out.Flights = make([]TripEntity, len(t.Flights))
		copy(out.Flights, t.Flights)
	}
	return out
}
