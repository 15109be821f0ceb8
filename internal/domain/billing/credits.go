package billing

// InitialCredits is granted once, when the account row is created.
const InitialCredits = 3

// CreditPackage is a fixed-size bundle of credits sold on the credits page.
type CreditPackage struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Credits int     `json:"credits"`
	Price   float64 `json:"price"`
	Popular bool    `json:"popular"`
}

var CreditPackages = []CreditPackage{
	{ID: "starter", Name: "Starter Pack", Credits: 10, Price: 9.99},
	{ID: "professional", Name: "Professional Pack", Credits: 25, Price: 19.99, Popular: true},
	{ID: "enterprise", Name: "Enterprise Pack", Credits: 50, Price: 34.99},
}

func PackageByID(id string) (CreditPackage, bool) {
	for _, p := range CreditPackages {
		if p.ID == id {
			return p, true
		}
	}
	return CreditPackage{}, false
}

type TransactionType string

const (
	TransactionDeduct   TransactionType = "deduct"
	TransactionPurchase TransactionType = "purchase"
)

// CreditTransaction describes one balance change. It is not stored; the
// balance update itself is the record.
type CreditTransaction struct {
	UserID      string          `json:"user_id"`
	Amount      int             `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description,omitempty"`
}
