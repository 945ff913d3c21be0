package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"stockdash/internal/domain"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	s := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.WriteString(sign)
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPrice formats a price as $X.XX.
func FormatPrice(p float64) string {
	return fmt.Sprintf("$%.2f", p)
}

// signPrefix returns "+" for non-negative values. Negative values carry
// their own sign through %f.
func signPrefix(v float64) string {
	if v >= 0 {
		return "+"
	}
	return ""
}

// FormatChange formats a day's move as "+2.15 (+1.24%)".
func FormatChange(change, changePct float64) string {
	return fmt.Sprintf("%s%.2f (%s%.2f%%)", signPrefix(change), change, signPrefix(changePct), changePct)
}

// FormatStockChange formats a stock's daily change.
func FormatStockChange(s domain.Stock) string {
	return FormatChange(s.Change, s.ChangePercent)
}

// FormatGainLoss formats a dollar gain or loss with its percentage,
// e.g. "+$254.30 (+15.41%)" or "-$12.00 (-2.40%)".
func FormatGainLoss(amount, pct float64) string {
	sign := "+"
	if amount < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s$%.2f (%s%.2f%%)", sign, math.Abs(amount), signPrefix(pct), pct)
}

// FormatAccuracy formats a model accuracy percentage as "87.3%".
func FormatAccuracy(a float64) string {
	return fmt.Sprintf("%.1f%%", a)
}

// FormatConfidence formats a 0-1 confidence as a whole percentage, "85%".
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.0f%%", c*100)
}

// ChangeClass returns the CSS-style class for a signed value.
func ChangeClass(v float64) string {
	if v >= 0 {
		return "positive"
	}
	return "negative"
}
