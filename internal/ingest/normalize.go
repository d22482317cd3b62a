package ingest

import (
	"strings"
	"time"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

type campaignResp struct {
	ID          string  `json:"id"`
	Campaign    string  `json:"campaign"`
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	Conversions int     `json:"conversions"`
	Cost        float64 `json:"cost"`
	Revenue     float64 `json:"revenue"`
	ROAS        float64 `json:"roas"`
	Date        string  `json:"date"`
	Status      string  `json:"status"`
}

// NormalizeCampaigns cleans rows coming from an upstream API. Rows with an
// unreadable date are dropped and duplicate ids keep their first row.
func NormalizeCampaigns(raw []campaignResp) []models.Campaign {
	seen := make(map[string]struct{}, len(raw))
	out := make([]models.Campaign, 0, len(raw))
	for _, r := range raw {
		d, ok := parseDay(r.Date)
		if !ok {
			continue
		}
		id := strings.TrimSpace(r.ID)
		if id != "" {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		cost, revenue := maxf(r.Cost), maxf(r.Revenue)
		roas := maxf(r.ROAS)
		if roas == 0 {
			roas = round2(safeDivF(revenue, cost))
		}
		status := models.Status(strings.ToLower(strings.TrimSpace(r.Status)))
		if !status.Valid() {
			status = ""
		}
		out = append(out, models.Campaign{
			ID:          id,
			Campaign:    coalesce(r.Campaign, "unknown"),
			Impressions: max0(r.Impressions),
			Clicks:      max0(r.Clicks),
			Conversions: max0(r.Conversions),
			Cost:        cost,
			Revenue:     revenue,
			ROAS:        roas,
			Date:        d.Format(time.DateOnly),
			Status:      status,
		})
	}
	return out
}

func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, true
	}
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return dayUTC(d), true
	}
	return time.Time{}, false
}

func coalesce(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
func dayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
func safeDivF(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}
func maxf(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
func round2(f float64) float64 { return float64(int64(f*100+0.5)) / 100 }
