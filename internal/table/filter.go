package table

import (
	"strings"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

// Filter keeps the rows matching the free-text search and every predicate.
// The input is never modified and order is preserved.
func Filter(rows []models.Campaign, search string, preds []Predicate) []models.Campaign {
	var query string
	if strings.TrimSpace(search) != "" {
		query = strings.ToLower(search)
	}
	out := make([]models.Campaign, 0, len(rows))
	for _, r := range rows {
		if query != "" && !matchesSearch(r, query) {
			continue
		}
		if !matchesAll(r, preds) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// search only looks at the campaign name and status
func matchesSearch(r models.Campaign, query string) bool {
	return strings.Contains(strings.ToLower(r.Campaign), query) ||
		strings.Contains(strings.ToLower(string(r.EffectiveStatus())), query)
}

func matchesAll(r models.Campaign, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Match(r) {
			return false
		}
	}
	return true
}
