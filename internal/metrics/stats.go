package metrics

import "github.com/AngelCh415/insights-dashboard/internal/models"

type SeriesSummary struct {
	Trend           string  `json:"trend"`
	TrendPercentage float64 `json:"trendPercentage"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
	Avg             float64 `json:"avg"`
	Total           float64 `json:"total"`
	TotalGrowth     float64 `json:"totalGrowth"`
}

// SeriesStats summarizes a time series; nil when there are no points.
func SeriesStats(points []models.TimeSeriesPoint) *SeriesSummary {
	if len(points) == 0 {
		return nil
	}
	first, last := points[0].Value, points[len(points)-1].Value
	s := &SeriesSummary{Min: first, Max: first}
	for _, p := range points {
		s.Total += p.Value
		s.Min = min(s.Min, p.Value)
		s.Max = max(s.Max, p.Value)
	}
	s.Avg = s.Total / float64(len(points))
	s.Trend = "down"
	if last > first {
		s.Trend = "up"
	}
	s.TrendPercentage = round2(PercentageChange(last, first))
	s.TotalGrowth = last - first
	return s
}

type Share struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

type CategorySummary struct {
	Total         float64               `json:"total"`
	Top           *models.CategoryPoint `json:"top,omitempty"`
	TopPercentage float64               `json:"topPercentage"`
	Shares        []Share               `json:"shares"`
}

// CategoryStats summarizes a pie chart data set; nil when empty.
func CategoryStats(points []models.CategoryPoint) *CategorySummary {
	if len(points) == 0 {
		return nil
	}
	s := &CategorySummary{Shares: make([]Share, 0, len(points))}
	top := 0
	for i, p := range points {
		s.Total += p.Value
		if p.Value > points[top].Value {
			top = i
		}
	}
	t := points[top]
	s.Top = &t
	s.TopPercentage = round2(safeDiv(t.Value, s.Total) * 100)
	for _, p := range points {
		s.Shares = append(s.Shares, Share{ID: p.ID, Name: p.Name, Value: p.Value, Percentage: round2(safeDiv(p.Value, s.Total) * 100)})
	}
	return s
}
