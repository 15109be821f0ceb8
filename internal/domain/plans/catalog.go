package plans

import (
	"strings"
	"time"
)

// Catalog is ordered the way the pricing table shows it.
var Catalog = []Plan{
	{
		ID:               Free,
		Name:             "Free",
		Price:            0,
		Period:           "forever",
		CreditsPerPeriod: 3,
		Features: []string{
			"3 free credits included",
			"Basic resume templates",
			"Manual resume builder",
			"PDF export",
		},
	},
	{
		ID:               Pro,
		Name:             "Pro",
		Price:            9.99,
		Period:           "month",
		PeriodMonths:     1,
		CreditsPerPeriod: 25,
		Features: []string{
			"25 credits per month",
			"AI bullet point generator",
			"AI resume optimization",
			"ATS keyword scoring",
			"Premium template library",
			"Multiple export formats",
			"Email support",
		},
	},
	{
		ID:               Premium,
		Name:             "Premium",
		Price:            50.99,
		Period:           "6 months",
		PeriodMonths:     6,
		CreditsPerPeriod: 200,
		Features: []string{
			"200 credits (6 months)",
			"Unlimited AI generations",
			"Advanced ATS optimization",
			"LinkedIn profile optimization",
			"Cover letter generator",
			"Interview preparation tools",
			"Priority support & coaching",
		},
	},
}

// Lookup returns the catalog entry for id, or nil if the id is unknown.
func Lookup(id ID) *Plan {
	for i := range Catalog {
		if Catalog[i].ID == id {
			p := Catalog[i]
			p.Features = append([]string(nil), p.Features...)
			return &p
		}
	}
	return nil
}

// Parse normalises user input ("  Pro ") into a catalog id.
func Parse(s string) (ID, bool) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	return id, Lookup(id) != nil
}

// PeriodEnd returns the end of the first billing period that starts at start,
// or nil for plans without expiry.
func PeriodEnd(p *Plan, start time.Time) *time.Time {
	if p == nil || p.PeriodMonths <= 0 {
		return nil
	}
	end := AddMonths(start, p.PeriodMonths)
	return &end
}

// AddMonths moves t forward by n calendar months keeping the day of month.
// When the target month is shorter, the result is clamped to its last day
// (Jan 31 + 1 month = Feb 28, or Feb 29 in leap years).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(first.Year(), first.Month(), t.Location())
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}
