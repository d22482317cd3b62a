package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename appends the format extension unless name already has it.
func (f Format) Filename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == "/" {
		name = "export"
	}
	ext := "." + string(f)
	if strings.EqualFold(filepath.Ext(name), ext) {
		return name
	}
	return name + ext
}

// Header labels used by the dashboard reports.
var (
	CampaignLabels = map[string]string{
		"id":          "ID",
		"campaign":    "Campaign Name",
		"impressions": "Impressions",
		"clicks":      "Clicks",
		"conversions": "Conversions",
		"cost":        "Cost ($)",
		"revenue":     "Revenue ($)",
		"roas":        "ROAS",
		"date":        "Date",
		"status":      "Status",
	}
	RevenueLabels = map[string]string{
		"id":            "ID",
		"name":          "Date",
		"date":          "Full Date",
		"value":         "Revenue ($)",
		"previousValue": "Previous Revenue ($)",
		"category":      "Category",
	}
)

type Outcome struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Rows        int    `json:"rows"`
	Bytes       int    `json:"bytes"`
	// Written is false when there was nothing to export.
	Written bool `json:"written"`
}

type Exporter struct {
	sink Sink
	log  *slog.Logger
}

func NewExporter(sink Sink, log *slog.Logger) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{sink: sink, log: log}
}

// Render builds the payload without saving it.
func Render[R Record](format Format, rows []R, labels map[string]string, sheet string) ([]byte, error) {
	switch format {
	case FormatXLSX:
		return XLSX(rows, labels, sheet)
	case FormatCSV, "":
		return CSV(rows, labels)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// Export renders rows and hands them to the sink. An empty input is logged
// and skipped, never an error.
func Export[R Record](ctx context.Context, e *Exporter, format Format, rows []R, filename string, labels map[string]string) (Outcome, error) {
	name := format.Filename(filename)
	out := Outcome{Filename: name, ContentType: format.ContentType(), Rows: len(rows)}

	payload, err := Render(format, rows, labels, "Report")
	if errors.Is(err, ErrNoData) {
		e.log.Warn("export skipped: no data", slog.String("file", name))
		return out, nil
	}
	if err != nil {
		return out, err
	}
	if err := e.sink.Save(ctx, name, out.ContentType, payload); err != nil {
		return out, fmt.Errorf("save %s: %w", name, err)
	}
	out.Bytes = len(payload)
	out.Written = true
	e.log.Info("export written", slog.String("file", name), slog.Int("rows", len(rows)), slog.Int("bytes", len(payload)))
	return out, nil
}
