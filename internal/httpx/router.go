package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/insights-dashboard/internal/dashboard"
	"github.com/AngelCh415/insights-dashboard/internal/export"
	"github.com/AngelCh415/insights-dashboard/internal/table"
	"github.com/AngelCh415/insights-dashboard/internal/theme"
	"github.com/AngelCh415/insights-dashboard/internal/utils"
)

type Deps struct {
	Dashboard *dashboard.Service
	Theme     *theme.Manager
	// Exporter saves server-side exports; downloads bypass it.
	Exporter        *export.Exporter
	Gatherer        prometheus.Gatherer
	HTTPMetrics     *utils.HTTPMetrics
	DefaultPageSize int
}

type router struct {
	log  *slog.Logger
	deps Deps
}

func NewRouter(log *slog.Logger, deps Deps) http.Handler {
	if deps.DefaultPageSize <= 0 {
		deps.DefaultPageSize = table.DefaultPageSize
	}
	rt := &router{log: log, deps: deps}

	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	if deps.HTTPMetrics != nil {
		mux.Use(deps.HTTPMetrics.Middleware)
	}
	mux.Use(utils.Logger(log))
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", rt.ready)
	if deps.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.Route("/api", func(api chi.Router) {
		api.Get("/campaigns", rt.campaigns)
		api.Get("/campaigns/export", rt.download)
		api.Post("/campaigns/export", rt.saveExport)
		api.Get("/series/{name}", rt.series)
		api.Get("/channels", rt.channels)
		api.Get("/summary", rt.summary)
		api.Get("/dashboard", rt.dashboard)

		api.Get("/resources", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, rt.deps.Dashboard.Keys())
		})
		api.Get("/resources/{key}", rt.resourceStatus)
		api.Post("/resources/{key}/load", rt.resourceLoad)
		api.Post("/resources/{key}/retry", rt.resourceRetry)

		api.Get("/theme", rt.getTheme)
		api.Put("/theme", rt.putTheme)
	})

	return mux
}

func (rt *router) ready(w http.ResponseWriter, r *http.Request) {
	h := rt.deps.Dashboard.Health()
	code := http.StatusOK
	if h.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, h)
}

func (rt *router) campaigns(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, rt.deps.DefaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	page, err := rt.deps.Dashboard.Table(r.Context(), q)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, 200, campaignsResponse{Page: page, PageSizeOptions: table.PageSizeOptions})
}

type campaignsResponse struct {
	table.Page
	PageSizeOptions []int `json:"pageSizeOptions"`
}

func (rt *router) download(w http.ResponseWriter, r *http.Request) {
	q, format, err := exportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, err := rt.deps.Dashboard.Rows(r.Context(), q)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	ex := export.NewExporter(responseSink{w}, rt.log)
	out, err := export.Export(r.Context(), ex, format, rows, exportName(r), export.CampaignLabels)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	if !out.Written {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (rt *router) saveExport(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Exporter == nil {
		writeError(w, http.StatusNotImplemented, errors.New("server-side export disabled"))
		return
	}
	q, format, err := exportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, err := rt.deps.Dashboard.Rows(r.Context(), q)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	out, err := export.Export(r.Context(), rt.deps.Exporter, format, rows, exportName(r), export.CampaignLabels)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, 200, out)
}

func (rt *router) series(w http.ResponseWriter, r *http.Request) {
	v, err := rt.deps.Dashboard.Series(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, 200, v)
}

func (rt *router) channels(w http.ResponseWriter, r *http.Request) {
	v, err := rt.deps.Dashboard.Channels(r.Context())
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, 200, v)
}

func (rt *router) summary(w http.ResponseWriter, r *http.Request) {
	cards, err := rt.deps.Dashboard.Summary(r.Context())
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, 200, cards)
}

func (rt *router) dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, rt.deps.Dashboard.LoadAll(r.Context()))
}

func (rt *router) resourceStatus(w http.ResponseWriter, r *http.Request) {
	st, err := rt.deps.Dashboard.Status(chi.URLParam(r, "key"))
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, 200, st)
}

func (rt *router) resourceLoad(w http.ResponseWriter, r *http.Request) {
	o, err := rt.deps.Dashboard.Load(r.Context(), chi.URLParam(r, "key"))
	rt.outcome(w, r, o, err)
}

func (rt *router) resourceRetry(w http.ResponseWriter, r *http.Request) {
	o, err := rt.deps.Dashboard.Retry(r.Context(), chi.URLParam(r, "key"))
	rt.outcome(w, r, o, err)
}

func (rt *router) outcome(w http.ResponseWriter, r *http.Request, o dashboard.Outcome, err error) {
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	code := http.StatusOK
	if !o.Success {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, o)
}

type themeBody struct {
	Mode       theme.Mode `json:"mode"`
	Resolved   theme.Mode `json:"resolved,omitempty"`
	StorageKey string     `json:"storageKey,omitempty"`
}

func (rt *router) getTheme(w http.ResponseWriter, r *http.Request) {
	mode := rt.deps.Theme.Sync(r.Context())
	body := themeBody{Mode: mode, StorageKey: rt.deps.Theme.StorageKey()}
	if v := r.URL.Query().Get("prefers_dark"); v != "" {
		dark, _ := strconv.ParseBool(v)
		body.Resolved = theme.ResolveMode(mode, dark)
	}
	writeJSON(w, 200, body)
}

func (rt *router) putTheme(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad body: %w", err))
		return
	}
	mode, err := theme.ParseMode(in.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := rt.deps.Theme.Set(r.Context(), mode); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, 200, themeBody{Mode: rt.deps.Theme.Current(), StorageKey: rt.deps.Theme.StorageKey()})
}

// fail maps domain errors to status codes.
func (rt *router) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, dashboard.ErrUnknownResource), errors.Is(err, dashboard.ErrUnknownSeries):
		code = http.StatusNotFound
	case errors.Is(err, dashboard.ErrLoadFailed):
		code = http.StatusBadGateway
	}
	if code >= 500 {
		rt.log.Error("request failed", slog.String("path", r.URL.Path), slog.String("rid", utils.RID(r.Context())), slog.String("err", err.Error()))
	}
	writeError(w, code, err)
}

func parseQuery(r *http.Request, defaultPageSize int) (table.Query, error) {
	v := r.URL.Query()
	q := table.Query{Search: v.Get("q"), Page: 1, PageSize: defaultPageSize}
	for _, f := range v["filter"] {
		p, err := table.ParsePredicate(f)
		if err != nil {
			return q, err
		}
		q.Predicates = append(q.Predicates, p)
	}
	if s := v.Get("sort"); s != "" {
		col, err := table.ParseColumn(s)
		if err != nil {
			return q, err
		}
		dir, err := table.ParseDirection(v.Get("dir"))
		if err != nil {
			return q, err
		}
		q.Sort = &table.SortConfig{Column: col, Direction: dir}
	}
	var err error
	if q.Page, err = intParam(v.Get("page"), 1); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(v.Get("page_size"), defaultPageSize); err != nil {
		return q, err
	}
	return q, nil
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad integer %q", s)
	}
	return n, nil
}

func exportRequest(r *http.Request) (table.Query, export.Format, error) {
	q, err := parseQuery(r, table.DefaultPageSize)
	if err != nil {
		return q, "", err
	}
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	return q, f, err
}

func exportName(r *http.Request) string {
	if n := strings.TrimSpace(r.URL.Query().Get("filename")); n != "" {
		return n
	}
	return "campaign-performance"
}

// responseSink streams an export as a download.
type responseSink struct{ w http.ResponseWriter }

func (s responseSink) Save(_ context.Context, filename, contentType string, payload []byte) error {
	s.w.Header().Set("Content-Type", contentType)
	s.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	s.w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	_, err := s.w.Write(payload)
	return err
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
