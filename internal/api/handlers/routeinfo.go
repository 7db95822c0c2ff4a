package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"trailwatch/internal/core"
	"trailwatch/internal/route"
	"trailwatch/internal/types"
)

// RouteHandler exposes the loaded trek definition: stage lookup by date and
// nearest-waypoint resolution.
type RouteHandler struct {
	route  *route.Route
	clock  types.Clock
	logger *slog.Logger
}

// NewRouteHandler creates a RouteHandler.
func NewRouteHandler(r *route.Route, clock types.Clock, logger *slog.Logger) *RouteHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteHandler{route: r, clock: clock, logger: logger}
}

// RegisterRoutes mounts the route endpoints under /v1.
func (h *RouteHandler) RegisterRoutes(r chi.Router) {
	r.Route("/route", func(r chi.Router) {
		r.Get("/", h.HandleGetRoute)
		r.Get("/stage", h.HandleGetStage)
		r.Get("/nearest", h.HandleNearest)
	})
}

type stageSummary struct {
	Name      string `json:"name"`
	Index     int    `json:"index"`
	Waypoints int    `json:"waypoints"`
}

type routeResponse struct {
	Name      string         `json:"name"`
	StartDate string         `json:"start_date"`
	Days      int            `json:"days"`
	Stages    []stageSummary `json:"stages"`
}

// HandleGetRoute handles GET /v1/route.
func (h *RouteHandler) HandleGetRoute(w http.ResponseWriter, r *http.Request) {
	resp := routeResponse{
		Name:      h.route.Name,
		StartDate: h.route.StartDate.Format("2006-01-02"),
		Days:      len(h.route.Stages),
	}
	for _, st := range h.route.Stages {
		resp.Stages = append(resp.Stages, stageSummary{
			Name:      st.Name,
			Index:     st.Index,
			Waypoints: len(st.Waypoints),
		})
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}

// HandleGetStage handles GET /v1/route/stage?date=2026-07-14. A missing date
// defaults to today's stage.
func (h *RouteHandler) HandleGetStage(w http.ResponseWriter, r *http.Request) {
	date := h.clock.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidDate,
				"date must be formatted YYYY-MM-DD",
				err,
			))
			return
		}
		date = parsed
	}

	stage, err := h.route.StageForDate(date)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: stage})
}

type nearestResponse struct {
	Waypoint   *types.Waypoint `json:"waypoint"`
	DistanceKm float64         `json:"distance_km"`
}

// HandleNearest handles GET /v1/route/nearest?lat=42.45&lon=8.80.
func (h *RouteHandler) HandleNearest(w http.ResponseWriter, r *http.Request) {
	lat, err := coordParam(r, "lat", -90, 90, types.ErrCodeValidationInvalidLat)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	lon, err := coordParam(r, "lon", -180, 180, types.ErrCodeValidationInvalidLon)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	wp, dist := h.route.NearestWaypoint(lat, lon)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: nearestResponse{
		Waypoint:   wp,
		DistanceKm: dist,
	}})
}

// coordParam parses a required float query parameter within bounds.
func coordParam(r *http.Request, name string, min, max float64, code types.ErrorCode) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, types.NewAppError(
			types.ErrCodeValidationMissingField,
			name+" query parameter is required",
			nil,
		)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < min || v > max {
		return 0, types.NewAppError(code, name+" must be a number within range", err)
	}
	return v, nil
}
