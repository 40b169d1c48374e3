// Package components holds the small view helpers shared by every page.
package components

import (
	"context"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"nightlife-storefront/internal/middleware"
	"nightlife-storefront/internal/models"
	"nightlife-storefront/internal/validation"
)

// CSRFToken gets the CSRF token from the request context
func CSRFToken(ctx context.Context) string {
	return middleware.CSRFToken(ctx)
}

// CurrentUser is the signed in user, or nil.
func CurrentUser(ctx context.Context) *models.User {
	return middleware.GetUserFromContext(ctx)
}

// Money formats an amount with thousands separators: 125000 -> "$125,000".
// Cents are shown only when present.
func Money(d decimal.Decimal) string {
	neg := d.IsNegative()
	d = d.Abs()

	whole := d.Truncate(0).String()
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String()
	if frac := d.Sub(d.Truncate(0)); !frac.IsZero() {
		out += strings.TrimPrefix(frac.StringFixed(2), "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}

// PrettyDate turns "2024-06-01" into "Sat, Jun 1". Other input is returned as is.
func PrettyDate(date string) string {
	t, err := time.Parse(validation.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Mon, Jan 2")
}

// Weekdays are the values accepted by the club "day" filter.
func Weekdays() []string {
	return []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
}

// Funcs is the template function map of the views.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"money":      Money,
		"prettyDate": PrettyDate,
		"join":       strings.Join,
		"isMaps":     validation.IsGoogleMapsURL,
		"weekdays":   Weekdays,
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"eqType": func(t models.ItemType, s string) bool {
			return string(t) == s
		},
	}
}
