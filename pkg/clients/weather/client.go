package weather

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/config"
	"github.com/mamadbah2/dairyfeed/pkg/cache"
)

// Unknown is recorded when the current weather cannot be determined.
const Unknown = "Unknown"

// Provider returns a short description of the current weather.
type Provider interface {
	Current(ctx context.Context) string
}

// APIClient is a resty-backed OpenWeather client with an in-memory cache.
type APIClient struct {
	httpClient *resty.Client
	apiKey     string
	location   string
	ttl        time.Duration
	cache      cache.Cache[string, string]
	logger     *zap.Logger
}

// NewClient builds a weather client. A missing API key makes Current return Unknown.
func NewClient(cfg config.WeatherConfig, logger *zap.Logger) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	var store cache.Cache[string, string] = cache.Noop[string, string]{}
	if cfg.CacheTTL > 0 {
		store = cache.NewTTLCache[string, string]()
	}

	return &APIClient{
		httpClient: restyClient,
		apiKey:     cfg.APIKey,
		location:   cfg.Location,
		ttl:        cfg.CacheTTL,
		cache:      store,
		logger:     logger,
	}
}

type currentWeather struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

type apiError struct {
	Cod     any    `json:"cod"`
	Message string `json:"message"`
}

// Current returns the weather description for the configured location, or Unknown.
// Failures are logged and never returned.
func (c *APIClient) Current(ctx context.Context) string {
	if c.apiKey == "" {
		return Unknown
	}
	if cached, ok := c.cache.Get(c.location); ok {
		return cached
	}

	description, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("weather lookup failed", zap.String("location", c.location), zap.Error(err))
		return Unknown
	}

	c.cache.Set(c.location, description, c.ttl)
	return description
}

func (c *APIClient) fetch(ctx context.Context) (string, error) {
	result := new(currentWeather)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     c.location,
			"appid": c.apiKey,
			"units": "metric",
			"lang":  "id",
		}).
		SetResult(result).
		SetError(apiErr).
		Get("/data/2.5/weather")
	if err != nil {
		return "", fmt.Errorf("fetch weather: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return "", fmt.Errorf("openweather api error: status=%d, message=%s", resp.StatusCode(), apiErr.Message)
	}
	if len(result.Weather) == 0 || result.Weather[0].Description == "" {
		return "", fmt.Errorf("openweather response has no weather entry")
	}

	return result.Weather[0].Description, nil
}
