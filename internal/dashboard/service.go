// Package dashboard wires the data sources into named, retrying resources
// and exposes the read models the HTTP layer and CLI serve.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/insights-dashboard/internal/ingest"
	"github.com/AngelCh415/insights-dashboard/internal/loader"
	"github.com/AngelCh415/insights-dashboard/internal/metrics"
	"github.com/AngelCh415/insights-dashboard/internal/models"
	"github.com/AngelCh415/insights-dashboard/internal/table"
)

const (
	KeyMetrics     = "metrics"
	KeyRevenue     = "revenue-data"
	KeyUsers       = "user-data"
	KeyConversions = "conversion-data"
	KeyChannels    = "channel-data"
	KeyCampaigns   = "campaign-data"
)

// SummaryWindowDays is the period length the summary cards compare.
const SummaryWindowDays = 30

var (
	ErrUnknownResource = errors.New("unknown resource")
	ErrUnknownSeries   = errors.New("unknown series")
	ErrLoadFailed      = errors.New("load failed")
)

type Options struct {
	Policy         loader.RetryPolicy
	Timeout        time.Duration
	AutoRetryDelay time.Duration
	AutoRetryMax   int
}

func DefaultOptions() Options {
	return Options{
		Policy:         loader.DefaultRetryPolicy(),
		AutoRetryDelay: loader.DefaultAutoRetryDelay,
		AutoRetryMax:   loader.DefaultAutoRetryMax,
	}
}

// Outcome is an untyped loader.Result tagged with its key.
type Outcome struct {
	Key     string `json:"key"`
	Data    any    `json:"data,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type binding struct {
	loader.Handle
	load  func(ctx context.Context) Outcome
	retry func(ctx context.Context) Outcome
}

func bind[T any](r *loader.Resource[T]) *binding {
	wrap := func(res loader.Result[T]) Outcome {
		o := Outcome{Key: r.Key(), Success: res.Success, Error: res.Error, Message: res.Message}
		if res.Success {
			o.Data = res.Data
		}
		return o
	}
	return &binding{
		Handle: r,
		load:   func(ctx context.Context) Outcome { return wrap(r.Load(ctx)) },
		retry:  func(ctx context.Context) Outcome { return wrap(r.Retry(ctx)) },
	}
}

type Service struct {
	log *slog.Logger
	reg *loader.Registry
	opt Options

	metrics     *loader.Resource[[]models.MetricCard]
	revenue     *loader.Resource[[]models.TimeSeriesPoint]
	users       *loader.Resource[[]models.TimeSeriesPoint]
	conversions *loader.Resource[[]models.TimeSeriesPoint]
	channels    *loader.Resource[[]models.CategoryPoint]
	campaigns   *loader.Resource[[]models.Campaign]

	keys     []string
	bindings map[string]*binding

	mu    sync.Mutex
	autos map[string]*loader.AutoRetry
}

func New(src ingest.Source, reg *loader.Registry, log *slog.Logger, opt Options) *Service {
	if log == nil {
		log = slog.Default()
	}
	ro := []loader.ResourceOption{loader.WithPolicy(opt.Policy), loader.WithTimeout(opt.Timeout)}
	s := &Service{
		log:         log,
		reg:         reg,
		opt:         opt,
		metrics:     loader.NewResource(reg, KeyMetrics, src.Metrics, ro...),
		revenue:     loader.NewResource(reg, KeyRevenue, src.Revenue, ro...),
		users:       loader.NewResource(reg, KeyUsers, src.Users, ro...),
		conversions: loader.NewResource(reg, KeyConversions, src.Conversions, ro...),
		channels:    loader.NewResource(reg, KeyChannels, src.Channels, ro...),
		campaigns:   loader.NewResource(reg, KeyCampaigns, src.Campaigns, ro...),
		autos:       map[string]*loader.AutoRetry{},
	}
	s.bindings = map[string]*binding{
		KeyMetrics:     bind(s.metrics),
		KeyRevenue:     bind(s.revenue),
		KeyUsers:       bind(s.users),
		KeyConversions: bind(s.conversions),
		KeyChannels:    bind(s.channels),
		KeyCampaigns:   bind(s.campaigns),
	}
	s.keys = []string{KeyMetrics, KeyRevenue, KeyUsers, KeyConversions, KeyChannels, KeyCampaigns}
	return s
}

// Keys lists the resource keys in dashboard order.
func (s *Service) Keys() []string { return append([]string(nil), s.keys...) }

func (s *Service) binding(key string) (*binding, error) {
	b, ok := s.bindings[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, key)
	}
	return b, nil
}

func (s *Service) Load(ctx context.Context, key string) (Outcome, error) {
	b, err := s.binding(key)
	if err != nil {
		return Outcome{}, err
	}
	return b.load(ctx), nil
}

// Retry clears the resource error, resets its auto-retry budget and loads.
func (s *Service) Retry(ctx context.Context, key string) (Outcome, error) {
	b, err := s.binding(key)
	if err != nil {
		return Outcome{}, err
	}
	if a := s.auto(key); a != nil {
		err := a.Retry(ctx)
		o := Outcome{Key: key, Success: err == nil, Message: "Data fetched successfully"}
		if err != nil {
			o.Error, o.Message = err.Error(), "Failed to load "+key
		} else {
			o.Data, _ = s.reg.Data(key)
		}
		return o, nil
	}
	return b.retry(ctx), nil
}

type ResourceStatus struct {
	Key         string              `json:"key"`
	State       models.LoadingState `json:"state"`
	AutoRetries int                 `json:"autoRetries"`
	CanRetry    bool                `json:"canRetry"`
	Message     string              `json:"message,omitempty"`
}

func (s *Service) Status(key string) (ResourceStatus, error) {
	b, err := s.binding(key)
	if err != nil {
		return ResourceStatus{}, err
	}
	st := ResourceStatus{Key: key, State: b.State()}
	if a := s.auto(key); a != nil {
		st.AutoRetries = a.Count()
		st.CanRetry = a.CanRetry()
		st.Message = a.Message()
	} else if st.State.HasError() {
		st.CanRetry = true
		st.Message = fmt.Sprintf("Failed to load %s: %s", key, st.State.Error)
	}
	return st, nil
}

// Snapshot is the settled result of loading every resource.
type Snapshot struct {
	Results   []Outcome `json:"results"`
	IsLoading bool      `json:"isLoading"`
	HasError  bool      `json:"hasError"`
}

func (s Snapshot) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// LoadAll loads every resource concurrently and waits for all of them to
// settle. One failure never cancels the others.
func (s *Service) LoadAll(ctx context.Context) Snapshot {
	out := make([]Outcome, len(s.keys))
	var g errgroup.Group
	for i, key := range s.keys {
		b := s.bindings[key]
		g.Go(func() error {
			out[i] = b.load(ctx)
			return nil
		})
	}
	_ = g.Wait()

	snap := Snapshot{Results: out}
	for _, key := range s.keys {
		st := s.reg.State(key)
		snap.IsLoading = snap.IsLoading || st.IsLoading
		snap.HasError = snap.HasError || st.HasError()
	}
	s.log.Info("dashboard loaded", slog.Int("succeeded", snap.Succeeded()), slog.Int("total", len(out)))
	return snap
}

// Refresh reloads everything and reports whether any resource loaded.
func (s *Service) Refresh(ctx context.Context) bool {
	return s.LoadAll(ctx).Succeeded() > 0
}

type Health struct {
	Status    string                         `json:"status"`
	Resources map[string]models.LoadingState `json:"resources"`
}

// Health is "ok" until any resource holds an error.
func (s *Service) Health() Health {
	h := Health{Status: "ok", Resources: make(map[string]models.LoadingState, len(s.keys))}
	for _, key := range s.keys {
		st := s.reg.State(key)
		h.Resources[key] = st
		if st.HasError() {
			h.Status = "degraded"
		}
	}
	return h
}

// StartAutoRetry arms an auto-retry controller on every resource until
// ctx ends or Close is called.
func (s *Service) StartAutoRetry(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range s.keys {
		if _, ok := s.autos[key]; ok {
			continue
		}
		a := loader.NewAutoRetry(s.bindings[key], s.opt.AutoRetryDelay, s.opt.AutoRetryMax, s.log)
		a.Start(ctx)
		s.autos[key] = a
	}
}

func (s *Service) auto(key string) *loader.AutoRetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autos[key]
}

// Close stops every auto-retry controller.
func (s *Service) Close() {
	s.mu.Lock()
	autos := s.autos
	s.autos = map[string]*loader.AutoRetry{}
	s.mu.Unlock()
	for _, a := range autos {
		a.Stop()
	}
}

func ensure[T any](ctx context.Context, r *loader.Resource[T]) (T, error) {
	if v, ok := r.Data(); ok {
		return v, nil
	}
	res := r.Load(ctx)
	if !res.Success {
		var zero T
		return zero, fmt.Errorf("%w: %s: %s", ErrLoadFailed, r.Key(), res.Error)
	}
	return res.Data, nil
}

// Campaigns returns the loaded campaign rows, loading them on first use.
func (s *Service) Campaigns(ctx context.Context) ([]models.Campaign, error) {
	return ensure(ctx, s.campaigns)
}

// Table runs the filter, sort and paginate pipeline over the campaign rows.
func (s *Service) Table(ctx context.Context, q table.Query) (table.Page, error) {
	rows, err := s.Campaigns(ctx)
	if err != nil {
		return table.Page{}, err
	}
	return table.Apply(rows, q), nil
}

// Rows is Table without pagination, for exports.
func (s *Service) Rows(ctx context.Context, q table.Query) ([]models.Campaign, error) {
	rows, err := s.Campaigns(ctx)
	if err != nil {
		return nil, err
	}
	rows = table.Filter(rows, q.Search, q.Predicates)
	return table.Sort(rows, q.Sort), nil
}

// Series names accepted by Series.
var SeriesNames = []string{"revenue", "users", "conversions"}

type SeriesView struct {
	Name   string                   `json:"name"`
	Points []models.TimeSeriesPoint `json:"points"`
	Stats  *metrics.SeriesSummary   `json:"stats,omitempty"`
}

func (s *Service) Series(ctx context.Context, name string) (SeriesView, error) {
	var r *loader.Resource[[]models.TimeSeriesPoint]
	switch name {
	case "revenue":
		r = s.revenue
	case "users":
		r = s.users
	case "conversions":
		r = s.conversions
	default:
		return SeriesView{}, fmt.Errorf("%w: %q", ErrUnknownSeries, name)
	}
	pts, err := ensure(ctx, r)
	if err != nil {
		return SeriesView{}, err
	}
	return SeriesView{Name: name, Points: pts, Stats: metrics.SeriesStats(pts)}, nil
}

type ChannelView struct {
	Points []models.CategoryPoint   `json:"points"`
	Stats  *metrics.CategorySummary `json:"stats,omitempty"`
}

func (s *Service) Channels(ctx context.Context) (ChannelView, error) {
	pts, err := ensure(ctx, s.channels)
	if err != nil {
		return ChannelView{}, err
	}
	return ChannelView{Points: pts, Stats: metrics.CategoryStats(pts)}, nil
}

// Summary computes metric cards from the campaign rows, comparing the
// latest window with the one before it.
func (s *Service) Summary(ctx context.Context) ([]models.MetricCard, error) {
	rows, err := s.Campaigns(ctx)
	if err != nil {
		return nil, err
	}
	cur, prev := metrics.SplitPeriods(rows, SummaryWindowDays)
	return metrics.Summary(cur, prev), nil
}
