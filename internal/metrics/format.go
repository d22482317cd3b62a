package metrics

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatValue renders a metric for display: whole dollars for currency,
// grouped digits for numbers, one decimal for percentages.
func FormatValue(v float64, f models.Format) string {
	switch f {
	case models.FormatCurrency:
		n := int64(math.Round(v))
		if n < 0 {
			return printer.Sprintf("-$%d", -n)
		}
		return printer.Sprintf("$%d", n)
	case models.FormatNumber:
		return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
	case models.FormatPercentage:
		return fmt.Sprintf("%.1f%%", v)
	}
	return models.FormatFloat(v)
}
