package httpx

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/insights-dashboard/internal/dashboard"
	"github.com/AngelCh415/insights-dashboard/internal/export"
	"github.com/AngelCh415/insights-dashboard/internal/ingest"
	"github.com/AngelCh415/insights-dashboard/internal/loader"
	"github.com/AngelCh415/insights-dashboard/internal/store"
	"github.com/AngelCh415/insights-dashboard/internal/table"
	"github.com/AngelCh415/insights-dashboard/internal/theme"
	"github.com/AngelCh415/insights-dashboard/internal/utils"
)

type fixture struct {
	srv  *httptest.Server
	src  *ingest.Synthetic
	sink *export.MemorySink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	src := ingest.NewSynthetic(ingest.WithLatency(0))
	opt := dashboard.DefaultOptions()
	opt.Policy = loader.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond}
	svc := dashboard.New(src, loader.NewRegistry(loader.WithLogger(log), loader.WithMetrics(loader.NewMetrics(reg))), log, opt)

	sink := export.NewMemorySink()
	h := NewRouter(log, Deps{
		Dashboard:   svc,
		Theme:       theme.NewManager(store.NewMemoryStore(), theme.WithLogger(log)),
		Exporter:    export.NewExporter(sink, log),
		Gatherer:    reg,
		HTTPMetrics: utils.NewHTTPMetrics(reg),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, src: src, sink: sink}
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, 200, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get(utils.RequestIDHeader))
}

func TestCampaignsSortAndPage(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodGet, "/api/campaigns?sort=roas&dir=desc&page_size=2", "")
	require.Equal(t, 200, res.StatusCode)

	page := decode[campaignsResponse](t, res)
	assert.Equal(t, 5, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, table.PageSizeOptions, page.PageSizeOptions)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "camp_004", page.Rows[0].ID)
}

func TestCampaignsFilterAndClamp(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodGet, "/api/campaigns?filter=roas:greater:3&page=9", "")
	require.Equal(t, 200, res.StatusCode)

	page := decode[table.Page](t, res)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 1, page.Page)
}

func TestCampaignsBadInput(t *testing.T) {
	f := newFixture(t)
	for _, q := range []string{"filter=nope", "filter=roas:between:3", "sort=color", "sort=roas&dir=up", "page=x"} {
		res := f.do(t, http.MethodGet, "/api/campaigns?"+q, "")
		assert.Equal(t, 400, res.StatusCode, q)
		body := decode[map[string]string](t, res)
		assert.NotEmpty(t, body["error"], q)
	}
}

func TestCampaignsUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.src.InjectFailures(1)
	res := f.do(t, http.MethodGet, "/api/campaigns", "")
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
}

func TestExportDownload(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodGet, "/api/campaigns/export?q=holiday", "")
	require.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "campaign-performance.csv")

	recs, err := csv.NewReader(res.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Campaign Name", recs[0][1])
	assert.Equal(t, "Holiday Sale 2024", recs[1][1])
}

func TestExportXLSXAndEmpty(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodGet, "/api/campaigns/export?format=xlsx&filename=report", "")
	require.Equal(t, 200, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Disposition"), "report.xlsx")

	res = f.do(t, http.MethodGet, "/api/campaigns/export?q=zzz", "")
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res = f.do(t, http.MethodGet, "/api/campaigns/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestExportSave(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodPost, "/api/campaigns/export?filter=status:equals:active", "")
	require.Equal(t, 200, res.StatusCode)

	out := decode[export.Outcome](t, res)
	assert.True(t, out.Written)
	assert.Equal(t, 3, out.Rows)
	file, ok := f.sink.File("campaign-performance.csv")
	require.True(t, ok)
	assert.Equal(t, out.Bytes, len(file.Payload))
}

func TestSeriesAndChannels(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodGet, "/api/series/revenue", "")
	require.Equal(t, 200, res.StatusCode)
	v := decode[dashboard.SeriesView](t, res)
	assert.NotEmpty(t, v.Points)
	assert.NotNil(t, v.Stats)

	res = f.do(t, http.MethodGet, "/api/series/bogus", "")
	assert.Equal(t, 404, res.StatusCode)

	res = f.do(t, http.MethodGet, "/api/channels", "")
	require.Equal(t, 200, res.StatusCode)
	ch := decode[dashboard.ChannelView](t, res)
	assert.Len(t, ch.Points, 4)
}

func TestResources(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodGet, "/api/resources/nope", "")
	assert.Equal(t, 404, res.StatusCode)

	f.src.InjectFailures(1)
	res = f.do(t, http.MethodPost, "/api/resources/"+dashboard.KeyCampaigns+"/load", "")
	require.Equal(t, http.StatusBadGateway, res.StatusCode)
	o := decode[dashboard.Outcome](t, res)
	assert.False(t, o.Success)
	assert.Equal(t, "Failed to load campaign-data", o.Message)

	res = f.do(t, http.MethodGet, "/api/resources/"+dashboard.KeyCampaigns, "")
	st := decode[dashboard.ResourceStatus](t, res)
	assert.True(t, st.State.HasError())

	res = f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	res = f.do(t, http.MethodPost, "/api/resources/"+dashboard.KeyCampaigns+"/retry", "")
	require.Equal(t, 200, res.StatusCode)
	o = decode[dashboard.Outcome](t, res)
	assert.True(t, o.Success)
	assert.Equal(t, "Data fetched successfully", o.Message)
}

func TestDashboardSnapshot(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, 200, res.StatusCode)
	snap := decode[dashboard.Snapshot](t, res)
	assert.Len(t, snap.Results, 6)
	assert.False(t, snap.HasError)

	res = f.do(t, http.MethodGet, "/api/summary", "")
	require.Equal(t, 200, res.StatusCode)
}

func TestTheme(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodGet, "/api/theme?prefers_dark=true", "")
	body := decode[themeBody](t, res)
	assert.Equal(t, theme.System, body.Mode)
	assert.Equal(t, theme.Dark, body.Resolved)
	assert.Equal(t, theme.DefaultStorageKey, body.StorageKey)

	res = f.do(t, http.MethodPut, "/api/theme", `{"mode":"light"}`)
	require.Equal(t, 200, res.StatusCode)

	res = f.do(t, http.MethodGet, "/api/theme", "")
	assert.Equal(t, theme.Light, decode[themeBody](t, res).Mode)

	res = f.do(t, http.MethodPut, "/api/theme", `{"mode":"purple"}`)
	assert.Equal(t, 400, res.StatusCode)
	res = f.do(t, http.MethodPut, "/api/theme", `not json`)
	assert.Equal(t, 400, res.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/campaigns", "")
	res := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, 200, res.StatusCode)
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), "dashboard_http_request_duration_seconds")
	assert.Contains(t, string(b), `route="/api/campaigns"`)
}
