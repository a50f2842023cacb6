package domain

import "time"

// InsiderSide is the direction of an insider transaction.
type InsiderSide string

const (
	InsiderBuy  InsiderSide = "BUY"
	InsiderSell InsiderSide = "SELL"
)

// InsiderFiling is a raw insider transaction as reported by the provider.
type InsiderFiling struct {
	Symbol          string
	TransactionDate string // YYYY-MM-DD, may be malformed upstream
	Disposition     string // "A" acquired, "D" disposed
	TransactionType string // free text, e.g. "P-Purchase", "S-Sale", "M-Exempt"
	Securities      float64
	Price           float64
	ReportingName   string
	OwnerType       string // e.g. "director", "officer: CEO"
}

// InsiderTrade is a filing that passed the filters and was classified.
type InsiderTrade struct {
	Date   time.Time
	Name   string
	Role   string
	Side   InsiderSide
	Amount float64 // securities * price
	Price  float64
	Weight int // role weight, 3 for C-level
}

// InsiderSignal summarises recent insider activity for one symbol.
type InsiderSignal struct {
	Symbol      string
	Signals     []string // "Cluster Buy", "Cluster Sell"; empty means normal
	BuyerCount  int
	SellerCount int
	Trades      []InsiderTrade // top trades by (weight, amount) desc
}

// Label joins the signals, or returns "Normal" when there are none.
func (s InsiderSignal) Label() string {
	if len(s.Signals) == 0 {
		return "Normal"
	}
	out := s.Signals[0]
	for _, sig := range s.Signals[1:] {
		out += ", " + sig
	}
	return out
}
