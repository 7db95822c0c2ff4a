package types

import (
	"time"
)

// ForecastEntry is one provider sample for one waypoint at one instant.
// Optional metrics are pointer-typed: nil means the provider did not report
// the value, which is distinct from a reported zero. Entries are immutable
// once fetched; they are owned by the waypoint's time-series view.
type ForecastEntry struct {
	Time                       time.Time `json:"time"`
	TemperatureC               *float64  `json:"temperature_c,omitempty"`
	WindSpeedKmh               *float64  `json:"wind_speed_kmh,omitempty"`
	WindGustKmh                *float64  `json:"wind_gust_kmh,omitempty"`
	PrecipitationMM            *float64  `json:"precipitation_mm,omitempty"`
	RainProbabilityPct         *float64  `json:"rain_probability_pct,omitempty"`
	ThunderstormProbabilityPct *float64  `json:"thunderstorm_probability_pct,omitempty"`
	Condition                  string    `json:"condition,omitempty"`
	CAPE                       *float64  `json:"cape,omitempty"`
}

// Waypoint is a fixed geographic sample point along a stage. Index is the
// 0-based position along the route segment and is preserved through all
// aggregation output for traceability ("waypoint 3 of stage X").
type Waypoint struct {
	Lat     float64         `json:"lat"`
	Lon     float64         `json:"lon"`
	Label   string          `json:"label"`
	Index   int             `json:"index"`
	Entries []ForecastEntry `json:"-"`
}

// Stage is one day's hiking leg, composed of an ordered sequence of waypoints.
type Stage struct {
	Name      string     `json:"name"`
	Index     int        `json:"index"`
	Waypoints []Waypoint `json:"waypoints"`
}

// LastWaypoint returns a pointer to the final waypoint of the stage, or nil
// for an empty stage. The evening report's night metric is evaluated over
// this waypoint only.
func (s *Stage) LastWaypoint() *Waypoint {
	if len(s.Waypoints) == 0 {
		return nil
	}
	return &s.Waypoints[len(s.Waypoints)-1]
}

// StageWaypoints is the engine's input: the waypoints of the stage being
// evaluated for the daytime metrics, plus the optional night anchor (the last
// waypoint of today's stage) used only by the evening report's cold metric.
// The two sets are deliberately independent; see the window selection rules.
type StageWaypoints struct {
	StageName   string
	Primary     []Waypoint
	NightAnchor *Waypoint
}

// TimeWindow is a half-open [start, end) wall-clock hour range on a calendar
// date. A cross-midnight window (the 22:00->05:00 night window) is anchored to
// its start day: Date holds the evening's date and EndHour refers to the
// following day.
type TimeWindow struct {
	Date            time.Time `json:"date"`
	StartHour       int       `json:"start_hour"`
	EndHour         int       `json:"end_hour"`
	CrossesMidnight bool      `json:"crosses_midnight,omitempty"`
}

// Validate checks the structural invariants of the window. It returns an
// AppError with code validation_time_window_invalid on violation; this is the
// one programmer-error input the aggregation stages reject outright.
func (w TimeWindow) Validate() error {
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 23 {
		return NewAppError(ErrCodeValidationInvalidWindow,
			"window hours must be wall-clock hours 0-23", nil)
	}
	if !w.CrossesMidnight && w.EndHour < w.StartHour {
		return NewAppError(ErrCodeValidationInvalidWindow,
			"same-day window must not end before it starts", nil)
	}
	if w.Date.IsZero() {
		return NewAppError(ErrCodeValidationInvalidWindow,
			"window date must be set", nil)
	}
	return nil
}

// Contains reports whether t falls inside the window. Membership is evaluated
// in t's own location: inclusive of the start hour, exclusive of the end hour.
// A same-day window with StartHour == EndHour is empty.
func (w TimeWindow) Contains(t time.Time) bool {
	y, m, d := w.Date.Date()
	ty, tm, td := t.Date()
	sameDay := ty == y && tm == m && td == d

	if !w.CrossesMidnight {
		return sameDay && t.Hour() >= w.StartHour && t.Hour() < w.EndHour
	}

	if sameDay {
		return t.Hour() >= w.StartHour
	}
	ny, nm, nd := w.Date.AddDate(0, 0, 1).Date()
	if ty == ny && tm == nm && td == nd {
		return t.Hour() < w.EndHour
	}
	return false
}

// Sample is one (timestamp, value) pair within a MetricSeries. WaypointIndex
// records which waypoint contributed the sample; it is traceability metadata
// and takes no part in extrema computation.
type Sample struct {
	Time          time.Time `json:"time"`
	Value         float64   `json:"value"`
	WaypointIndex int       `json:"waypoint_index"`
}

// MetricSeries is a time-ordered sequence of samples for one metric, merged
// across all waypoints of a segment for one window. Duplicate timestamps from
// different waypoints remain distinct samples. Absent provider values never
// enter a series, so a zero-length series is the canonical "no data" state.
type MetricSeries struct {
	Metric   Metric   `json:"metric"`
	Samples  []Sample `json:"samples"`
	Excluded int      `json:"excluded,omitempty"` // implausible samples dropped during merge
}

// Empty reports whether the series carries no samples.
func (s MetricSeries) Empty() bool { return len(s.Samples) == 0 }

// ExtremaResult is the finder's output for one metric. MaxTime is the
// earliest timestamp at which the series-wide maximum occurs; ThresholdTime
// is the first timestamp whose per-timestamp maximum meets or exceeds the
// configured threshold. Both are nil, and HasData reports false, when the
// series had no samples -- callers must never read MaxValue in that case.
type ExtremaResult struct {
	Metric         Metric     `json:"metric"`
	MaxValue       float64    `json:"max_value"`
	MaxTime        *time.Time `json:"max_time,omitempty"`
	MaxWaypoint    int        `json:"max_waypoint"` // -1 when no data
	ThresholdValue *float64   `json:"threshold_value,omitempty"`
	ThresholdTime  *time.Time `json:"threshold_time,omitempty"`
	SampleCount    int        `json:"sample_count"`
	Excluded       int        `json:"excluded,omitempty"`
}

// HasData distinguishes a real maximum from the no-data state. A MaxValue of
// 0 with HasData() true is a genuine observation.
func (r ExtremaResult) HasData() bool { return r.SampleCount > 0 }

// RiskResult is the classifier's output for one hazard category. It is
// created once per report generation, immutable, and discarded after
// formatting. DataAvailable false means the underlying series had no usable
// samples; the formatter renders this as "data unavailable", never as 0.
type RiskResult struct {
	Hazard        HazardCategory  `json:"hazard"`
	HasRisk       bool            `json:"has_risk"`
	Description   string          `json:"description"`
	DataAvailable bool            `json:"data_available"`
	QualityNotes  []string        `json:"quality_notes,omitempty"`
	Extrema       []ExtremaResult `json:"extrema,omitempty"`
}

// StoredReport is the persisted form of one delivered report: the rendered
// texts plus the full structured result, so later report generations can
// compare risk scores against what was actually sent.
type StoredReport struct {
	ID           string        `json:"id"`
	ReportType   ReportType    `json:"report_type"`
	Trigger      TriggerKind   `json:"trigger"`
	StageName    string        `json:"stage_name"`
	GeneratedFor time.Time     `json:"generated_for"`
	RiskScore    float64       `json:"risk_score"`
	Compact      string        `json:"compact"`
	Body         string        `json:"body"`
	Result       *ReportResult `json:"result,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ReportResult is the engine's complete output for one report generation.
type ReportResult struct {
	ReportType    ReportType                       `json:"report_type"`
	StageName     string                           `json:"stage_name"`
	GeneratedFor  time.Time                        `json:"generated_for"`
	LowConfidence bool                             `json:"low_confidence,omitempty"`
	Risks         []RiskResult                     `json:"risks"`
	Extrema       map[Metric]ExtremaResult         `json:"extrema"`
	Night         *ExtremaResult                   `json:"night,omitempty"`
	Outlook       *ExtremaResult                   `json:"outlook,omitempty"`
	Windows       map[string]TimeWindow            `json:"windows"`
}
