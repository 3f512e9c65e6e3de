package reconcile

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var fechaLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02",
}

func parseFecha(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range fechaLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// formatFecha renders a SAT timestamp as dd/mm/yyyy hh:mm:ss, the display
// format the report always used. Unparseable input passes through as-is.
func formatFecha(raw string) string {
	t, ok := parseFecha(raw)
	if !ok {
		return raw
	}
	return t.Format("02/01/2006 15:04:05")
}

// formatMoney renders an amount with two decimals and thousands separators,
// matching number_format output: 1234567.8 -> "1,234,567.80".
func formatMoney(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}

	intPart, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// parseTotal reads an amount that may arrive formatted ("$1,234.56") or
// plain ("1234.56"). Unparseable input yields zero.
func parseTotal(raw string) decimal.Decimal {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}
