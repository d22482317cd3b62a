package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

type totals struct {
	Impressions int
	Clicks      int
	Conversions int
	Cost        float64
	Revenue     float64
}

func sum(rows []models.Campaign) totals {
	var t totals
	for _, r := range rows {
		t.Impressions += r.Impressions
		t.Clicks += r.Clicks
		t.Conversions += r.Conversions
		t.Cost += r.Cost
		t.Revenue += r.Revenue
	}
	return t
}

func (t totals) roas() float64 { return round2(safeDiv(t.Revenue, t.Cost)) }
func (t totals) ctr() float64 {
	return round3(safeDiv(float64(t.Clicks), float64(t.Impressions)) * 100)
}

// Summary builds the metric cards for current, with changes measured
// against previous. An empty previous period reports no change.
func Summary(current, previous []models.Campaign) []models.MetricCard {
	cur, prev := sum(current), sum(previous)
	cards := []models.MetricCard{
		card("revenue", "Total Revenue", round2(cur.Revenue), round2(prev.Revenue), models.FormatCurrency),
		card("cost", "Ad Spend", round2(cur.Cost), round2(prev.Cost), models.FormatCurrency),
		card("conversions", "Conversions", float64(cur.Conversions), float64(prev.Conversions), models.FormatNumber),
		card("roas", "ROAS", cur.roas(), prev.roas(), models.FormatNumber),
		card("ctr", "Click-through Rate", cur.ctr(), prev.ctr(), models.FormatPercentage),
	}
	return cards
}

func card(id, title string, cur, prev float64, f models.Format) models.MetricCard {
	change := round2(PercentageChange(cur, prev))
	ct := models.ChangeIncrease
	if change < 0 {
		ct = models.ChangeDecrease
	}
	return models.MetricCard{
		ID:         id,
		Title:      title,
		Value:      cur,
		Display:    FormatValue(cur, f),
		Change:     change,
		ChangeType: ct,
		Format:     f,
	}
}

// SplitPeriods splits rows into the last `days` days ending at the newest
// row and the `days` days before that. Rows with unreadable dates are
// ignored.
func SplitPeriods(rows []models.Campaign, days int) (current, previous []models.Campaign) {
	if days <= 0 || len(rows) == 0 {
		return rows, nil
	}
	type dated struct {
		d time.Time
		r models.Campaign
	}
	var ds []dated
	for _, r := range rows {
		d, err := time.Parse(time.DateOnly, r.Date)
		if err != nil {
			continue
		}
		ds = append(ds, dated{d, r})
	}
	if len(ds) == 0 {
		return nil, nil
	}
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].d.After(ds[j].d) })
	end := ds[0].d
	curFrom := end.AddDate(0, 0, -days+1)
	prevFrom := curFrom.AddDate(0, 0, -days)
	for _, x := range ds {
		switch {
		case !x.d.Before(curFrom):
			current = append(current, x.r)
		case !x.d.Before(prevFrom):
			previous = append(previous, x.r)
		}
	}
	return current, previous
}

// PercentageChange is 0 when there is nothing to compare against.
func PercentageChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
func round2(f float64) float64 { return math.Round(f*100) / 100 }
func round3(f float64) float64 { return math.Round(f*1000) / 1000 }
