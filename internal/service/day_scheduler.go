package service

import (
	"sort"

	"github.com/wayfarer-app/trip-planner-api/internal/models"
	"github.com/wayfarer-app/trip-planner-api/pkg/geo"
)

// minDaySpanMinutes is the smallest usable day window. A return flight
// departing early can force an apparent dayEnd before dayStart; the scheduler
// corrects by raising dayEnd, never by lowering dayStart.
const minDaySpanMinutes = 60

// DayScheduler allocates time slots within a single day's timeline. The
// cursor tracks where the traveler currently is in time: physical
// availability, as opposed to venue opening hours which arrive per item.
// An instance is owned by exactly one generation call and discarded after.
type DayScheduler struct {
	date     string
	dayStart int
	dayEnd   int
	cursor   int
	items    []models.PlacedItem
}

// NewDayScheduler builds a scheduler for one day. Boundaries are minutes
// since midnight; an invalid window is corrected upward.
func NewDayScheduler(date string, dayStart, dayEnd int) *DayScheduler {
	if dayEnd < dayStart+minDaySpanMinutes {
		dayEnd = dayStart + minDaySpanMinutes
	}
	return &DayScheduler{
		date:     date,
		dayStart: dayStart,
		dayEnd:   dayEnd,
		cursor:   dayStart,
	}
}

// Date returns the scheduling date.
func (s *DayScheduler) Date() string { return s.date }

// DayStart returns the corrected day start in minutes.
func (s *DayScheduler) DayStart() int { return s.dayStart }

// DayEnd returns the corrected day end in minutes.
func (s *DayScheduler) DayEnd() int { return s.dayEnd }

// Cursor returns the current earliest-available time.
func (s *DayScheduler) Cursor() int { return s.cursor }

// InsertFixed places an immutable item at its own interval. The cursor is
// not advanced; a fixed block only frees the traveler once the caller says
// so via AdvanceTo.
func (s *DayScheduler) InsertFixed(item models.FixedItem) models.PlacedItem {
	placed := models.PlacedItem{
		ID:           item.ID,
		Title:        item.Title,
		Category:     item.Category,
		StartMinutes: item.StartMinutes,
		EndMinutes:   item.EndMinutes,
		StartTime:    geo.FormatClock(item.StartMinutes),
		EndTime:      geo.FormatClock(item.EndMinutes),
		Fixed:        true,
		Coords:       item.Coords,
		Reliability:  item.Reliability,
	}
	s.items = append(s.items, placed)
	return placed
}

// AdvanceTo moves the cursor forward, never backward. Used once arrival
// logistics complete so activities cannot be placed before the traveler
// has actually arrived.
func (s *DayScheduler) AdvanceTo(minutes int) {
	if minutes > s.cursor {
		s.cursor = minutes
	}
}

// Add places a flexible item at the earliest slot that honours its travel
// buffer and opening time. The second return value is false when the item
// does not fit today; that is a normal outcome, not an error.
func (s *DayScheduler) Add(spec models.ItemSpec) (models.PlacedItem, bool) {
	earliest := s.cursor + spec.TravelMinutes
	// An opening time already behind the cursor is irrelevant: the item
	// cannot retroactively start in the past.
	if spec.MinStartMinutes != nil && *spec.MinStartMinutes >= earliest {
		earliest = *spec.MinStartMinutes
	}

	if earliest+spec.DurationMinutes > s.dayEnd {
		return models.PlacedItem{}, false
	}

	placed := models.PlacedItem{
		ID:              spec.ID,
		Title:           spec.Title,
		Category:        spec.Category,
		StartMinutes:    earliest,
		EndMinutes:      earliest + spec.DurationMinutes,
		StartTime:       geo.FormatClock(earliest),
		EndTime:         geo.FormatClock(earliest + spec.DurationMinutes),
		TravelMinutes:   spec.TravelMinutes,
		MinStartMinutes: spec.MinStartMinutes,
		CostEstimate:    spec.CostEstimate,
		Coords:          spec.Coords,
		Meal:            spec.Meal,
		AtAccommodation: spec.AtAccommodation,
		Reliability:     spec.Reliability,
	}
	s.items = append(s.items, placed)
	s.cursor = placed.EndMinutes
	return placed, true
}

// CanFit probes whether an item of the given size would fit without
// mutating any state.
func (s *DayScheduler) CanFit(durationMinutes, travelMinutes int) bool {
	return s.cursor+travelMinutes+durationMinutes <= s.dayEnd
}

// RemainingMinutes returns the unallocated time left in the day.
func (s *DayScheduler) RemainingMinutes() int {
	return s.dayEnd - s.cursor
}

// Items returns all placed items ordered by start time.
func (s *DayScheduler) Items() []models.PlacedItem {
	out := make([]models.PlacedItem, len(s.items))
	copy(out, s.items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartMinutes < out[j].StartMinutes
	})
	return out
}

// Validate scans all placed items and reports every pair whose intervals
// intersect. Fixed items are trusted as given, so conflicts among them are
// reported rather than prevented.
func (s *DayScheduler) Validate() (bool, []models.Conflict) {
	items := s.Items()
	var conflicts []models.Conflict
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if !items[i].Overlaps(items[j]) {
				continue
			}
			conflicts = append(conflicts, models.Conflict{
				FirstID:      items[i].ID,
				SecondID:     items[j].ID,
				FirstTitle:   items[i].Title,
				SecondTitle:  items[j].Title,
				OverlapStart: maxInt(items[i].StartMinutes, items[j].StartMinutes),
				OverlapEnd:   minInt(items[i].EndMinutes, items[j].EndMinutes),
			})
		}
	}
	return len(conflicts) == 0, conflicts
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
