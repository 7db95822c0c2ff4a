// Package window centralizes the report-type specific time-window rules.
// Date-offset logic (tomorrow vs. day-after-tomorrow, the cross-midnight
// night window) lives here and nowhere else; call sites must not re-derive
// it.
package window

import (
	"time"

	"trailwatch/internal/types"
)

// Default wall-clock hour bounds for the evaluation windows.
const (
	DefaultDayStartHour   = 5
	DefaultDayEndHour     = 17
	DefaultNightStartHour = 22
	DefaultNightEndHour   = 5
)

// Set is the concrete window selection for one report generation.
type Set struct {
	// Primary is the daytime evaluation window for the stage's metrics.
	Primary types.TimeWindow

	// Night is the cross-midnight window used only for the minimum-temperature
	// metric of evening reports, evaluated over the night-anchor waypoint
	// only. Nil for morning and update reports.
	Night *types.TimeWindow

	// ThunderstormOutlook is the forward-looking window for the "next day"
	// thunderstorm metric: +1 day for morning and update reports, +2 days
	// for evening reports (which already evaluate tomorrow).
	ThunderstormOutlook types.TimeWindow

	// LowConfidence is set when an unknown report type fell back to the
	// morning rules. Callers must surface this rather than silently trusting
	// the result.
	LowConfidence bool
}

// Selector computes window sets from configured hour bounds.
type Selector struct {
	DayStartHour   int
	DayEndHour     int
	NightStartHour int
	NightEndHour   int
}

// NewSelector returns a Selector with the standard hour bounds
// (daytime 05:00-17:00, night 22:00-05:00).
func NewSelector() Selector {
	return Selector{
		DayStartHour:   DefaultDayStartHour,
		DayEndHour:     DefaultDayEndHour,
		NightStartHour: DefaultNightStartHour,
		NightEndHour:   DefaultNightEndHour,
	}
}

// Select produces the window set for the given report type and reference
// time. The reference time's calendar date anchors all offsets; its hour is
// consulted only by the update report, whose primary window starts at the
// current hour.
//
// Rules:
//   - morning: primary = (ref, day window); outlook = ref+1.
//   - evening: primary = (ref+1, day window) -- tomorrow's stage; night =
//     (ref, night start -> night end next day); outlook = ref+2.
//   - update: primary = (ref, current hour -> day end); outlook = ref+1.
//
// An unknown report type falls back to the morning rules with LowConfidence
// set.
func (s Selector) Select(rt types.ReportType, ref time.Time) Set {
	day := midnight(ref)

	switch rt {
	case types.ReportMorning:
		return Set{
			Primary:             s.dayWindow(day),
			ThunderstormOutlook: s.dayWindow(day.AddDate(0, 0, 1)),
		}

	case types.ReportEvening:
		night := types.TimeWindow{
			Date:            day,
			StartHour:       s.NightStartHour,
			EndHour:         s.NightEndHour,
			CrossesMidnight: true,
		}
		return Set{
			Primary:             s.dayWindow(day.AddDate(0, 0, 1)),
			Night:               &night,
			ThunderstormOutlook: s.dayWindow(day.AddDate(0, 0, 2)),
		}

	case types.ReportUpdate:
		start := ref.Hour()
		if start < s.DayStartHour {
			start = s.DayStartHour
		}
		if start > s.DayEndHour {
			// Past the day window: the primary window is empty, which
			// downstream stages handle as a valid no-data state.
			start = s.DayEndHour
		}
		return Set{
			Primary: types.TimeWindow{
				Date:      day,
				StartHour: start,
				EndHour:   s.DayEndHour,
			},
			ThunderstormOutlook: s.dayWindow(day.AddDate(0, 0, 1)),
		}
	}

	// Unknown report type: morning rules, flagged low-confidence.
	set := s.Select(types.ReportMorning, ref)
	set.LowConfidence = true
	return set
}

func (s Selector) dayWindow(day time.Time) types.TimeWindow {
	return types.TimeWindow{
		Date:      day,
		StartHour: s.DayStartHour,
		EndHour:   s.DayEndHour,
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
