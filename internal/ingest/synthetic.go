package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

// Source supplies every data set the dashboard shows.
type Source interface {
	Campaigns(ctx context.Context) ([]models.Campaign, error)
	Metrics(ctx context.Context) ([]models.MetricCard, error)
	Revenue(ctx context.Context) ([]models.TimeSeriesPoint, error)
	Users(ctx context.Context) ([]models.TimeSeriesPoint, error)
	Conversions(ctx context.Context) ([]models.TimeSeriesPoint, error)
	Channels(ctx context.Context) ([]models.CategoryPoint, error)
}

var (
	_ Source = (*Synthetic)(nil)
	_ Source = (*APIClient)(nil)
)

// ErrInjected is returned by Synthetic while injected failures remain.
var ErrInjected = errors.New("synthetic upstream failure")

// Base latencies of the simulated API.
const (
	metricsDelay     = 800 * time.Millisecond
	revenueDelay     = 1200 * time.Millisecond
	usersDelay       = 1000 * time.Millisecond
	conversionsDelay = 900 * time.Millisecond
	channelsDelay    = 600 * time.Millisecond
	campaignsDelay   = 1500 * time.Millisecond
)

// Synthetic generates dashboard data in process and simulates network
// latency. Output is deterministic for a given seed and clock.
type Synthetic struct {
	latency   float64
	seed      uint64
	campaigns int
	now       func() time.Time
	failures  atomic.Int64
}

type SyntheticOption func(*Synthetic)

// WithLatency scales the simulated delays; 0 disables them.
func WithLatency(scale float64) SyntheticOption {
	return func(s *Synthetic) { s.latency = max(scale, 0) }
}

func WithSeed(seed uint64) SyntheticOption { return func(s *Synthetic) { s.seed = seed } }

func WithClock(now func() time.Time) SyntheticOption { return func(s *Synthetic) { s.now = now } }

// WithCampaignCount pads the fixed campaign rows with generated ones up to n.
func WithCampaignCount(n int) SyntheticOption { return func(s *Synthetic) { s.campaigns = n } }

// WithFailures makes the next n fetches fail.
func WithFailures(n int) SyntheticOption { return func(s *Synthetic) { s.failures.Store(int64(n)) } }

func NewSynthetic(opts ...SyntheticOption) *Synthetic {
	s := &Synthetic{latency: 1, seed: 42, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// InjectFailures makes the next n fetches fail.
func (s *Synthetic) InjectFailures(n int) { s.failures.Store(int64(n)) }

func (s *Synthetic) wait(ctx context.Context, d time.Duration) error {
	if s.failures.Add(-1) >= 0 {
		return ErrInjected
	}
	s.failures.Store(0)
	d = time.Duration(float64(d) * s.latency)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Synthetic) Campaigns(ctx context.Context) ([]models.Campaign, error) {
	if err := s.wait(ctx, campaignsDelay); err != nil {
		return nil, err
	}
	return GenerateCampaigns(s.campaigns, s.seed), nil
}

func (s *Synthetic) Metrics(ctx context.Context) ([]models.MetricCard, error) {
	if err := s.wait(ctx, metricsDelay); err != nil {
		return nil, err
	}
	return []models.MetricCard{
		{ID: "revenue", Title: "Total Revenue", Value: 284750, Change: 12.5, ChangeType: models.ChangeIncrease, Format: models.FormatCurrency},
		{ID: "users", Title: "Active Users", Value: 18420, Change: -2.3, ChangeType: models.ChangeDecrease, Format: models.FormatNumber},
		{ID: "conversions", Title: "Conversions", Value: 1247, Change: 8.7, ChangeType: models.ChangeIncrease, Format: models.FormatNumber},
		{ID: "growth", Title: "Growth Rate", Value: 15.8, Change: 3.2, ChangeType: models.ChangeIncrease, Format: models.FormatPercentage},
	}, nil
}

func (s *Synthetic) Revenue(ctx context.Context) ([]models.TimeSeriesPoint, error) {
	if err := s.wait(ctx, revenueDelay); err != nil {
		return nil, err
	}
	return GenerateTimeSeries(s.now(), 30, 8500, 0.15, s.seed), nil
}

func (s *Synthetic) Users(ctx context.Context) ([]models.TimeSeriesPoint, error) {
	if err := s.wait(ctx, usersDelay); err != nil {
		return nil, err
	}
	return GenerateTimeSeries(s.now(), 30, 620, 0.12, s.seed+1), nil
}

func (s *Synthetic) Conversions(ctx context.Context) ([]models.TimeSeriesPoint, error) {
	if err := s.wait(ctx, conversionsDelay); err != nil {
		return nil, err
	}
	return GenerateTimeSeries(s.now(), 30, 42, 0.2, s.seed+2), nil
}

func (s *Synthetic) Channels(ctx context.Context) ([]models.CategoryPoint, error) {
	if err := s.wait(ctx, channelsDelay); err != nil {
		return nil, err
	}
	return []models.CategoryPoint{
		{ID: "organic", Name: "Organic Search", Category: "acquisition", Value: 35, Color: "hsl(var(--chart-1))"},
		{ID: "paid", Name: "Paid Search", Category: "acquisition", Value: 28, Color: "hsl(var(--chart-2))"},
		{ID: "social", Name: "Social Media", Category: "acquisition", Value: 22, Color: "hsl(var(--chart-3))"},
		{ID: "direct", Name: "Direct", Category: "acquisition", Value: 15, Color: "hsl(var(--chart-4))"},
	}, nil
}

// GenerateTimeSeries produces one point per day for the days before now,
// with a 20% growth trend across the window and random volatility.
func GenerateTimeSeries(now time.Time, days int, base, volatility float64, seed uint64) []models.TimeSeriesPoint {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	start := dayUTC(now).AddDate(0, 0, -days)
	out := make([]models.TimeSeriesPoint, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(time.DateOnly)
		random := 1 + (rng.Float64()-0.5)*volatility
		trend := 1 + (float64(i)/float64(days))*0.2
		v := float64(int64(base*random*trend + 0.5))

		prev := v * 0.95
		if i > 0 {
			prev = out[i-1].Value
		}
		out = append(out, models.TimeSeriesPoint{
			ID:            fmt.Sprintf("data_%d", i),
			Name:          date,
			Date:          date,
			Value:         v,
			PreviousValue: &prev,
		})
	}
	return out
}

var fixedCampaigns = []models.Campaign{
	{ID: "camp_001", Campaign: "Holiday Sale 2024", Impressions: 125000, Clicks: 3200, Conversions: 156, Cost: 2400, Revenue: 8900, ROAS: 3.71, Date: "2024-01-15", Status: models.StatusActive},
	{ID: "camp_002", Campaign: "Spring Collection Launch", Impressions: 98500, Clicks: 2850, Conversions: 142, Cost: 1950, Revenue: 7200, ROAS: 3.69, Date: "2024-01-14", Status: models.StatusActive},
	{ID: "camp_003", Campaign: "Brand Awareness Q1", Impressions: 156000, Clicks: 1890, Conversions: 89, Cost: 3200, Revenue: 4500, ROAS: 1.41, Date: "2024-01-13", Status: models.StatusPaused},
	{ID: "camp_004", Campaign: "Retargeting Campaign", Impressions: 45000, Clicks: 2100, Conversions: 198, Cost: 1200, Revenue: 9800, ROAS: 8.17, Date: "2024-01-12", Status: models.StatusActive},
	{ID: "camp_005", Campaign: "Mobile App Install", Impressions: 78000, Clicks: 1560, Conversions: 78, Cost: 890, Revenue: 2340, ROAS: 2.63, Date: "2024-01-11", Status: models.StatusCompleted},
}

var campaignThemes = []string{
	"Summer Clearance", "Back to School", "Black Friday", "Loyalty Rewards",
	"Video Prospecting", "Search Brand Terms", "Lookalike Audiences", "Newsletter Signup",
}

var statusCycle = []models.Status{models.StatusActive, models.StatusActive, models.StatusPaused, models.StatusCompleted}

// GenerateCampaigns returns the fixed campaign rows followed by generated
// rows until n rows exist.
func GenerateCampaigns(n int, seed uint64) []models.Campaign {
	out := make([]models.Campaign, 0, max(n, len(fixedCampaigns)))
	out = append(out, fixedCampaigns...)
	rng := rand.New(rand.NewPCG(seed, seed+7))
	last, _ := time.Parse(time.DateOnly, fixedCampaigns[len(fixedCampaigns)-1].Date)
	for i := len(out); i < n; i++ {
		impressions := 10000 + rng.IntN(190000)
		clicks := impressions * (5 + rng.IntN(30)) / 1000
		conversions := clicks * (2 + rng.IntN(8)) / 100
		cost := float64(200 + rng.IntN(4800))
		revenue := float64(int64(cost * (0.5 + rng.Float64()*6)))
		out = append(out, models.Campaign{
			ID:          fmt.Sprintf("camp_%03d", i+1),
			Campaign:    fmt.Sprintf("%s #%d", campaignThemes[i%len(campaignThemes)], i+1),
			Impressions: impressions,
			Clicks:      clicks,
			Conversions: conversions,
			Cost:        cost,
			Revenue:     revenue,
			ROAS:        round2(revenue / cost),
			Date:        last.AddDate(0, 0, -(i - len(fixedCampaigns) + 1)).Format(time.DateOnly),
			Status:      statusCycle[i%len(statusCycle)],
		})
	}
	return out
}
