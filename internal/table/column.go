package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

type Column string

const (
	ColumnID          Column = "id"
	ColumnCampaign    Column = "campaign"
	ColumnImpressions Column = "impressions"
	ColumnClicks      Column = "clicks"
	ColumnConversions Column = "conversions"
	ColumnCost        Column = "cost"
	ColumnRevenue     Column = "revenue"
	ColumnROAS        Column = "roas"
	ColumnDate        Column = "date"
	ColumnStatus      Column = "status"
)

// Columns lists every campaign column in display order.
var Columns = []Column{
	ColumnID, ColumnCampaign, ColumnImpressions, ColumnClicks, ColumnConversions,
	ColumnCost, ColumnRevenue, ColumnROAS, ColumnDate, ColumnStatus,
}

var ErrUnknownColumn = errors.New("unknown column")

func ParseColumn(s string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Columns {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColumn, s)
}

func (c Column) Numeric() bool {
	switch c {
	case ColumnImpressions, ColumnClicks, ColumnConversions, ColumnCost, ColumnRevenue, ColumnROAS:
		return true
	}
	return false
}

type Kind int

const (
	KindString Kind = iota
	KindNumber
)

// Value is a single cell read out of a row.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
}

func stringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func numberValue(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func intValue(i int) Value        { return numberValue(float64(i)) }

func (v Value) String() string {
	if v.Kind == KindNumber {
		return models.FormatFloat(v.Num)
	}
	return v.Str
}

// ValueOf reads one column of a campaign row. Unknown columns read as an
// empty string.
func ValueOf(r models.Campaign, c Column) Value {
	switch c {
	case ColumnID:
		return stringValue(r.ID)
	case ColumnCampaign:
		return stringValue(r.Campaign)
	case ColumnImpressions:
		return intValue(r.Impressions)
	case ColumnClicks:
		return intValue(r.Clicks)
	case ColumnConversions:
		return intValue(r.Conversions)
	case ColumnCost:
		return numberValue(r.Cost)
	case ColumnRevenue:
		return numberValue(r.Revenue)
	case ColumnROAS:
		return numberValue(r.ROAS)
	case ColumnDate:
		return stringValue(r.Date)
	case ColumnStatus:
		return stringValue(string(r.EffectiveStatus()))
	}
	return stringValue("")
}
