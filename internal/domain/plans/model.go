package plans

// ID identifies a plan in the static catalog.
type ID string

const (
	Free    ID = "free"
	Pro     ID = "pro"
	Premium ID = "premium"
)

// Plan is a catalog entry. It is not persisted; subscriptions reference it by ID.
type Plan struct {
	ID               ID       `json:"id"`
	Name             string   `json:"name"`
	Price            float64  `json:"price"`
	Period           string   `json:"period"`
	PeriodMonths     int      `json:"-"` // 0 means the plan never expires
	CreditsPerPeriod int      `json:"credits_per_period"`
	Features         []string `json:"features"` // display text only
}
