package table

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Asc, Desc:
		return d, nil
	case "":
		return Asc, nil
	}
	return "", fmt.Errorf("bad sort direction %q", s)
}

type SortConfig struct {
	Column    Column    `json:"column"`
	Direction Direction `json:"direction"`
}

// Toggle is the column-header click: same column flips direction, a new
// column starts ascending. Earlier columns are not remembered.
func Toggle(prev *SortConfig, col Column) *SortConfig {
	if prev != nil && prev.Column == col {
		dir := Desc
		if prev.Direction == Desc {
			dir = Asc
		}
		return &SortConfig{Column: col, Direction: dir}
	}
	return &SortConfig{Column: col, Direction: Asc}
}

// Sort returns a new slice ordered by cfg. A nil cfg keeps input order.
//
// Pairs of values that are not both text, both numbers, or both parseable
// dates compare as equal; their relative order is not part of the contract.
func Sort(rows []models.Campaign, cfg *SortConfig) []models.Campaign {
	out := slices.Clone(rows)
	if out == nil {
		out = []models.Campaign{}
	}
	if cfg == nil {
		return out
	}
	coll := collate.New(language.English)
	slices.SortStableFunc(out, func(a, b models.Campaign) int {
		c := compareValues(coll, cfg.Column, ValueOf(a, cfg.Column), ValueOf(b, cfg.Column))
		if cfg.Direction == Desc {
			return -c
		}
		return c
	})
	return out
}

func compareValues(coll *collate.Collator, col Column, a, b Value) int {
	if col == ColumnDate {
		ta, errA := parseDate(a.Str)
		tb, errB := parseDate(b.Str)
		if errA != nil || errB != nil {
			return 0
		}
		return ta.Compare(tb)
	}
	switch {
	case a.Kind == KindString && b.Kind == KindString:
		return coll.CompareString(a.Str, b.Str)
	case a.Kind == KindNumber && b.Kind == KindNumber:
		return cmp.Compare(a.Num, b.Num)
	}
	return 0
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
