package models

import (
	"strconv"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// Campaign is one row of the campaign performance table.
// Status is optional; the zero value reads as active.
type Campaign struct {
	ID          string  `json:"id"`
	Campaign    string  `json:"campaign"`
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	Conversions int     `json:"conversions"`
	Cost        float64 `json:"cost"`
	Revenue     float64 `json:"revenue"`
	ROAS        float64 `json:"roas"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Status      Status  `json:"status,omitempty"`
}

func (c Campaign) EffectiveStatus() Status {
	if c.Status == "" {
		return StatusActive
	}
	return c.Status
}

type TimeSeriesPoint struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Date          string   `json:"date"`
	Value         float64  `json:"value"`
	PreviousValue *float64 `json:"previousValue,omitempty"`
	Category      string   `json:"category,omitempty"`
}

type CategoryPoint struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Value    float64 `json:"value"`
	Color    string  `json:"color,omitempty"`
}

type Format string

const (
	FormatCurrency   Format = "currency"
	FormatNumber     Format = "number"
	FormatPercentage Format = "percentage"
)

type ChangeType string

const (
	ChangeIncrease ChangeType = "increase"
	ChangeDecrease ChangeType = "decrease"
)

type MetricCard struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Value      float64    `json:"value"`
	Display    string     `json:"display"`
	Change     float64    `json:"change"`
	ChangeType ChangeType `json:"changeType"`
	Format     Format     `json:"format"`
}

// LoadingState is the observable state of a named resource.
type LoadingState struct {
	IsLoading   bool       `json:"isLoading"`
	Error       string     `json:"error,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

func (s LoadingState) HasError() bool { return s.Error != "" }

// FormatFloat renders numbers the way they appear in exports and filters:
// shortest representation, no exponent for ordinary magnitudes.
func FormatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Field is one named cell of a record, in column order.
type Field struct {
	Key   string
	Value any
}

func (c Campaign) Fields() []Field {
	var status any
	if c.Status != "" {
		status = string(c.Status)
	}
	return []Field{
		{"id", c.ID},
		{"campaign", c.Campaign},
		{"impressions", c.Impressions},
		{"clicks", c.Clicks},
		{"conversions", c.Conversions},
		{"cost", c.Cost},
		{"revenue", c.Revenue},
		{"roas", c.ROAS},
		{"date", c.Date},
		{"status", status},
	}
}

func (p TimeSeriesPoint) Fields() []Field {
	var prev any
	if p.PreviousValue != nil {
		prev = *p.PreviousValue
	}
	out := []Field{
		{"id", p.ID},
		{"name", p.Name},
		{"date", p.Date},
		{"value", p.Value},
		{"previousValue", prev},
	}
	if p.Category != "" {
		out = append(out, Field{"category", p.Category})
	}
	return out
}

func (p CategoryPoint) Fields() []Field {
	return []Field{
		{"id", p.ID},
		{"name", p.Name},
		{"category", p.Category},
		{"value", p.Value},
		{"color", p.Color},
	}
}
