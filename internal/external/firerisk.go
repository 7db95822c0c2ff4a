package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"trailwatch/internal/types"
)

// fireRiskAPIBase is the default base URL of the Corsican fire-risk bulletin
// service. Overridable in tests via FireRiskClientConfig.BaseURL.
const fireRiskAPIBase = "https://www.risque-prevention-incendie.fr"

// FireRiskClientConfig holds the configuration for creating a FireRiskClient.
type FireRiskClientConfig struct {
	BaseURL string // Override for testing; defaults to fireRiskAPIBase
	Logger  *slog.Logger
}

// fireRiskBulletin is the wire shape of the daily bulletin: one risk level
// per massif, with the massif's representative coordinate.
type fireRiskBulletin struct {
	Date    string `json:"date"`
	Massifs []struct {
		Name  string  `json:"name"`
		Lat   float64 `json:"lat"`
		Lon   float64 `json:"lon"`
		Level int     `json:"level"` // 0 low .. 4 extreme
	} `json:"massifs"`
}

// fireRiskLevels maps bulletin levels to the warning labels used in reports.
// Level 0 and 1 produce no warning.
var fireRiskLevels = map[int]string{
	2: "fire risk: elevated",
	3: "fire risk: high",
	4: "fire risk: extreme, access may be closed",
}

// FireRiskClient implements types.FireRiskLookup against the daily fire-risk
// bulletin. The bulletin covers whole massifs, so lookups resolve the
// coordinate to the nearest massif centre.
type FireRiskClient struct {
	base    *BaseClient
	baseURL string
	logger  *slog.Logger
}

// NewFireRiskClient creates a FireRiskClient.
func NewFireRiskClient(httpClient *http.Client, cfg FireRiskClientConfig) *FireRiskClient {
	base := NewBaseClient(
		httpClient,
		"firerisk",
		DefaultRetryPolicy(),
		"TrailWatch/1.0",
	)
	return NewFireRiskClientWithBase(base, cfg)
}

// NewFireRiskClientWithBase creates a FireRiskClient with a pre-configured
// BaseClient, used by tests to disable retries.
func NewFireRiskClientWithBase(base *BaseClient, cfg FireRiskClientConfig) *FireRiskClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fireRiskAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FireRiskClient{
		base:    base,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// WarningFor returns the fire-risk warning applying to the given coordinate
// on the given date, or an empty string when the risk level does not warrant
// one.
func (c *FireRiskClient) WarningFor(ctx context.Context, lat, lon float64, date time.Time) (string, error) {
	reqURL := fmt.Sprintf("%s/bulletin/%s.json", c.baseURL, date.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create fire-risk bulletin request",
			err,
		)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return "", c.wrapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ErrorContext(ctx, "fire-risk bulletin error",
			"status_code", resp.StatusCode,
			"response_body", string(bodyBytes),
		)
		return "", types.NewAppError(
			types.ErrCodeUpstreamFireRisk,
			fmt.Sprintf("fire-risk bulletin returned %d", resp.StatusCode),
			fmt.Errorf("bulletin request returned %d", resp.StatusCode),
		)
	}

	var bulletin fireRiskBulletin
	if err := json.NewDecoder(resp.Body).Decode(&bulletin); err != nil {
		return "", types.NewAppError(
			types.ErrCodeUpstreamFireRisk,
			"failed to decode fire-risk bulletin",
			err,
		)
	}

	level, massif := c.nearestMassifLevel(bulletin, lat, lon)
	warning := fireRiskLevels[level]

	c.logger.DebugContext(ctx, "fire-risk bulletin resolved",
		"date", date.Format("2006-01-02"),
		"massif", massif,
		"level", level,
	)

	return warning, nil
}

// nearestMassifLevel picks the massif whose centre is closest to the
// coordinate. Flat equirectangular distance is plenty at massif scale.
func (c *FireRiskClient) nearestMassifLevel(b fireRiskBulletin, lat, lon float64) (int, string) {
	bestDist := math.MaxFloat64
	level := 0
	name := ""
	for _, m := range b.Massifs {
		dLat := m.Lat - lat
		dLon := (m.Lon - lon) * math.Cos(lat*math.Pi/180)
		if d := dLat*dLat + dLon*dLon; d < bestDist {
			bestDist = d
			level = m.Level
			name = m.Name
		}
	}
	return level, name
}

func (c *FireRiskClient) wrapError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return types.NewAppError(
			appErr.Code,
			fmt.Sprintf("fire-risk lookup: %s", appErr.Message),
			appErr.Err,
		)
	}
	return types.NewAppError(types.ErrCodeUpstreamFireRisk, "fire-risk lookup failed", err)
}

// Compile-time interface compliance check.
var _ types.FireRiskLookup = (*FireRiskClient)(nil)
