// Package vinlookup resolves a VIN to manufacturer, model, year and class
// through the RapidAPI vinlookup endpoint, optionally behind a Redis cache.
package vinlookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vehicle-financing/internal/common/config"
	apperrors "vehicle-financing/internal/common/errors"
	commonhttp "vehicle-financing/internal/common/http"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/common/metrics"
	"vehicle-financing/internal/models"
)

const SourceUpstream = "upstream"

// response is the vinlookup payload. year arrives as a string or a number
// depending on the provider revision.
type response struct {
	VIN          string      `json:"vin"`
	Manufacturer string      `json:"manufacturer"`
	Model        string      `json:"model"`
	Year         json.Number `json:"year"`
	Class        string      `json:"class"`
}

type Client struct {
	http    *commonhttp.Client
	baseURL string
	host    string
	apiKey  string
	log     logger.Logger
}

func NewClient(cfg config.VINLookupConfig, log logger.Logger) *Client {
	return NewClientWithHTTP(cfg, commonhttp.NewClient(config.GetDuration(cfg.Timeout)), log)
}

func NewClientWithHTTP(cfg config.VINLookupConfig, httpClient *commonhttp.Client, log logger.Logger) *Client {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return &Client{
		http:    httpClient,
		baseURL: fmt.Sprintf("%s://%s/v1/vinlookup", scheme, cfg.Host),
		host:    cfg.Host,
		apiKey:  cfg.APIKey,
		log:     log.WithFields(map[string]interface{}{"component": "vinlookup"}),
	}
}

// Lookup calls the provider once. Any failure, including an unparseable
// year, is reported as VEHICLE_DATA_FETCH_FAILED.
func (c *Client) Lookup(ctx context.Context, vin string) (attrs models.VehicleAttributes, err error) {
	start := time.Now()
	defer func() { metrics.RecordVINLookup(SourceUpstream, err, time.Since(start)) }()

	var resp response
	err = c.http.GetJSON(ctx, c.baseURL+"?vin="+url.QueryEscape(vin), map[string]string{
		"x-rapidapi-key":  c.apiKey,
		"x-rapidapi-host": c.host,
	}, &resp)
	if err != nil {
		c.log.Warn("VIN lookup failed", map[string]interface{}{"vin": vin, "error": err.Error()})
		return models.VehicleAttributes{}, apperrors.NewVehicleDataFetchFailedError(err)
	}

	year, convErr := strconv.Atoi(strings.TrimSpace(resp.Year.String()))
	if convErr != nil {
		err = apperrors.NewVehicleDataFetchFailedError(fmt.Errorf("unparseable year %q: %w", resp.Year, convErr))
		return models.VehicleAttributes{}, err
	}

	c.log.Debug("VIN lookup succeeded", map[string]interface{}{
		"vin":          vin,
		"manufacturer": resp.Manufacturer,
		"year":         year,
	})

	return models.VehicleAttributes{
		VIN:          resp.VIN,
		Manufacturer: resp.Manufacturer,
		Model:        resp.Model,
		Year:         year,
		Class:        resp.Class,
	}, nil
}
