package service

import (
	"sort"

	"github.com/wayfarer-app/trip-planner-api/internal/models"
)

const defaultFixPasses = 3

// AutoFixer repairs coherence violations by rebuilding each day from its own
// items: fixed items stay exactly where they are, flexible items are
// re-queued in their original relative order through a fresh DayScheduler.
// Re-scheduling from scratch makes overlap and arrival-ordering violations
// structurally impossible to recur.
type AutoFixer struct {
	validator *CoherenceValidator
	dayStart  int
	dayEnd    int
	passes    int
}

// NewAutoFixer constructs a fixer using the given default day window
// (minutes since midnight) for rebuilt days.
func NewAutoFixer(validator *CoherenceValidator, dayStart, dayEnd, passes int) *AutoFixer {
	if validator == nil {
		validator = NewCoherenceValidator()
	}
	if passes <= 0 {
		passes = defaultFixPasses
	}
	return &AutoFixer{validator: validator, dayStart: dayStart, dayEnd: dayEnd, passes: passes}
}

// Fix returns a corrected copy of the trip. The input is never mutated.
// The result carries at most as many violations as the input; some
// conflicts, such as inherently unsatisfiable fixed logistics, cannot be
// repaired and remain surfaced by the validator.
func (f *AutoFixer) Fix(trip models.Trip) models.Trip {
	best := trip.Clone()
	bestCount := f.violationCount(best)
	if bestCount == 0 {
		return best
	}

	current := best
	for pass := 0; pass < f.passes; pass++ {
		candidate := f.repairPass(current)
		count := f.violationCount(candidate)
		if count < bestCount {
			best = candidate
			bestCount = count
		}
		if count == 0 || count >= f.violationCount(current) {
			break
		}
		current = candidate
	}
	return best
}

func (f *AutoFixer) violationCount(trip models.Trip) int {
	report := f.validator.Validate(trip)
	return len(report.Errors) + len(report.Warnings)
}

func (f *AutoFixer) repairPass(trip models.Trip) models.Trip {
	out := trip.Clone()

	// Cross-day duplicate attractions: keep the first occurrence, drop the
	// ones scheduled on later days.
	seenDay := make(map[string]int)
	for i := range out.Days {
		day := &out.Days[i]
		kept := day.Items[:0]
		for _, item := range day.Items {
			if item.Category == models.CategoryActivity {
				key := models.NormalizedTitle(item.Title)
				if firstDay, ok := seenDay[key]; ok && firstDay != day.DayNumber {
					continue
				}
				if _, ok := seenDay[key]; !ok {
					seenDay[key] = day.DayNumber
				}
			}
			kept = append(kept, item)
		}
		day.Items = kept
	}

	for i := range out.Days {
		out.Days[i] = f.rebuildDay(out.Days[i])
	}
	return out
}

// rebuildDay re-runs the cursor discipline over the day's own items.
// Flexible items that no longer fit are dropped, which is the normal
// cannot-place outcome rather than a failure.
func (f *AutoFixer) rebuildDay(day models.TripDay) models.TripDay {
	var fixed []models.PlacedItem
	var flexible []models.PlacedItem
	for _, item := range day.Items {
		if item.Fixed {
			fixed = append(fixed, item)
		} else {
			flexible = append(flexible, item)
		}
	}
	sort.SliceStable(fixed, func(i, j int) bool { return fixed[i].StartMinutes < fixed[j].StartMinutes })
	sort.SliceStable(flexible, func(i, j int) bool { return flexible[i].StartMinutes < flexible[j].StartMinutes })

	// Replay the window the day was scheduled against; a day generated with
	// a late-night override must not lose its evening to the default.
	dayStart, dayEnd := f.dayStart, f.dayEnd
	if day.DayEndMinutes > 0 {
		dayStart, dayEnd = day.DayStartMinutes, day.DayEndMinutes
	}
	sched := NewDayScheduler(day.Date, dayStart, dayEnd)
	for _, item := range fixed {
		sched.InsertFixed(models.FixedItem{
			ID:           item.ID,
			Title:        item.Title,
			Category:     item.Category,
			StartMinutes: item.StartMinutes,
			EndMinutes:   item.EndMinutes,
			Coords:       item.Coords,
			Reliability:  item.Reliability,
		})
	}
	if block := findInboundBlock(sortedByStart(fixed)); block.found {
		sched.AdvanceTo(block.end)
	}

	for _, item := range flexible {
		spec := models.ItemSpec{
			ID:              item.ID,
			Title:           item.Title,
			Category:        item.Category,
			DurationMinutes: item.EndMinutes - item.StartMinutes,
			TravelMinutes:   item.TravelMinutes,
			MinStartMinutes: item.MinStartMinutes,
			CostEstimate:    item.CostEstimate,
			Coords:          item.Coords,
			Meal:            item.Meal,
			AtAccommodation: item.AtAccommodation,
			Reliability:     item.Reliability,
		}
		_, _ = sched.Add(spec)
	}

	rebuilt := day
	rebuilt.Items = sched.Items()
	return rebuilt
}
