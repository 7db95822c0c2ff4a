// Package route loads the trek definition (ordered stages with their
// waypoints) and resolves calendar dates to stages. The stage index for a
// date is simply the number of days elapsed since the trek's start date;
// rest days are modeled as duplicate stages in the file.
package route

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"trailwatch/internal/types"
)

// Route is the full trek definition.
type Route struct {
	Name      string        `json:"name"`
	StartDate civilDate     `json:"start_date"`
	Stages    []types.Stage `json:"stages"`
}

// civilDate unmarshals a bare "2006-01-02" date as a UTC midnight instant.
type civilDate struct {
	time.Time
}

func (d *civilDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d civilDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

// Load reads and validates a route file. Waypoint indices are assigned from
// their position within each stage, overriding whatever the file carries.
func Load(path string) (*Route, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationStageFile,
			fmt.Sprintf("reading route file %s", path), err)
	}
	var r Route
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationStageFile,
			fmt.Sprintf("parsing route file %s", path), err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	for si := range r.Stages {
		r.Stages[si].Index = si
		for wi := range r.Stages[si].Waypoints {
			r.Stages[si].Waypoints[wi].Index = wi
		}
	}
	return &r, nil
}

// Validate checks the structural invariants of the route definition.
func (r *Route) Validate() error {
	if r.StartDate.IsZero() {
		return types.NewAppError(types.ErrCodeValidationStageFile,
			"route start date missing", nil)
	}
	if len(r.Stages) == 0 {
		return types.NewAppError(types.ErrCodeValidationStageFile,
			"route has no stages", nil)
	}
	for si, st := range r.Stages {
		if st.Name == "" {
			return types.NewAppError(types.ErrCodeValidationStageFile,
				fmt.Sprintf("stage %d has no name", si), nil)
		}
		if len(st.Waypoints) == 0 {
			return types.NewAppError(types.ErrCodeValidationStageFile,
				fmt.Sprintf("stage %q has no waypoints", st.Name), nil)
		}
		for _, wp := range st.Waypoints {
			if wp.Lat < -90 || wp.Lat > 90 {
				return types.NewAppError(types.ErrCodeValidationInvalidLat,
					fmt.Sprintf("stage %q waypoint %q: latitude %.4f", st.Name, wp.Label, wp.Lat), nil)
			}
			if wp.Lon < -180 || wp.Lon > 180 {
				return types.NewAppError(types.ErrCodeValidationInvalidLon,
					fmt.Sprintf("stage %q waypoint %q: longitude %.4f", st.Name, wp.Label, wp.Lon), nil)
			}
		}
	}
	return nil
}

// StageForDate resolves a calendar date to the stage hiked that day. Dates
// before the start or past the final stage return a not-found error: the trek
// is simply not underway.
func (r *Route) StageForDate(date time.Time) (*types.Stage, error) {
	idx := daysBetween(r.StartDate.Time, date)
	if idx < 0 || idx >= len(r.Stages) {
		return nil, types.NewAppError(types.ErrCodeNotFoundStage,
			fmt.Sprintf("no stage on %s (trek spans %d days from %s)",
				date.Format("2006-01-02"), len(r.Stages), r.StartDate.Format("2006-01-02")), nil)
	}
	return &r.Stages[idx], nil
}

// StageAfter returns the stage hiked n days after the given date, for the
// evening report's tomorrow view and the outlook passes.
func (r *Route) StageAfter(date time.Time, n int) (*types.Stage, error) {
	return r.StageForDate(date.AddDate(0, 0, n))
}

// daysBetween counts whole calendar days from a to b, ignoring clock time.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	am0 := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bm0 := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bm0.Sub(am0) / (24 * time.Hour))
}
