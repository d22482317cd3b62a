package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// APIClient reads dashboard data sets from a JSON API rooted at base.
type APIClient struct {
	base string
	c    HTTPClient
}

func NewAPIClient(base string, timeout time.Duration) *APIClient {
	return NewAPIClientWith(base, NewHTTPClient(timeout))
}

func NewAPIClientWith(base string, c HTTPClient) *APIClient {
	return &APIClient{base: strings.TrimRight(base, "/"), c: c}
}

func (a *APIClient) Campaigns(ctx context.Context) ([]models.Campaign, error) {
	var raw []campaignResp
	if err := getJSON(ctx, a.c, a.url("/campaigns"), &raw); err != nil {
		return nil, err
	}
	return NormalizeCampaigns(raw), nil
}

func (a *APIClient) Metrics(ctx context.Context) ([]models.MetricCard, error) {
	var out []models.MetricCard
	return out, getJSON(ctx, a.c, a.url("/metrics"), &out)
}

func (a *APIClient) Revenue(ctx context.Context) ([]models.TimeSeriesPoint, error) {
	return a.series(ctx, "/revenue")
}

func (a *APIClient) Users(ctx context.Context) ([]models.TimeSeriesPoint, error) {
	return a.series(ctx, "/users")
}

func (a *APIClient) Conversions(ctx context.Context) ([]models.TimeSeriesPoint, error) {
	return a.series(ctx, "/conversions")
}

func (a *APIClient) Channels(ctx context.Context) ([]models.CategoryPoint, error) {
	var out []models.CategoryPoint
	return out, getJSON(ctx, a.c, a.url("/channels"), &out)
}

func (a *APIClient) series(ctx context.Context, path string) ([]models.TimeSeriesPoint, error) {
	var out []models.TimeSeriesPoint
	return out, getJSON(ctx, a.c, a.url(path), &out)
}

func (a *APIClient) url(path string) string {
	if a.base == "" {
		return ""
	}
	return a.base + path
}

func getJSON(ctx context.Context, c HTTPClient, url string, v any) error {
	if url == "" {
		return errors.New("empty url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("non-2xx: %d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
