// Package insider classifies recent insider filings and flags clusters.
package insider

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/marketdata"
	"whale-tracker/internal/observability"
)

const (
	// FilingLimit is the number of recent filings requested per symbol.
	FilingLimit = 30

	// MinAmount is the smallest transaction value (securities * price) kept.
	MinAmount = 10_000.0

	// ClusterSize is the number of distinct insiders that makes a cluster.
	ClusterSize = 3

	// TopTrades is the number of trades kept per signal.
	TopTrades = 5

	SignalClusterBuy  = "Cluster Buy"
	SignalClusterSell = "Cluster Sell"
)

// DefaultSymbols are the large caps checked when none are configured.
var DefaultSymbols = []string{"AAPL", "MSFT", "NVDA"}

// DefaultCutoff drops filings older than this date.
var DefaultCutoff = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// excludedTypes are non-market transactions.
var excludedTypes = []string{"grant", "award", "gift", "option"}

// Detector fetches and classifies insider filings.
type Detector struct {
	provider    marketdata.Provider
	cutoff      time.Time
	callTimeout time.Duration
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// Options configures Detector.
type Options struct {
	Cutoff      time.Time
	CallTimeout time.Duration
	Metrics     *observability.Metrics
	Logger      zerolog.Logger
}

// NewDetector creates a detector.
func NewDetector(provider marketdata.Provider, opts Options) *Detector {
	if opts.Cutoff.IsZero() {
		opts.Cutoff = DefaultCutoff
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	return &Detector{
		provider:    provider,
		cutoff:      opts.Cutoff,
		callTimeout: opts.CallTimeout,
		metrics:     opts.Metrics,
		logger:      opts.Logger.With().Str("component", "insider").Logger(),
	}
}

// Detect returns a signal for every symbol with at least one qualifying trade.
// Symbols whose filings cannot be fetched are logged and skipped.
func (d *Detector) Detect(ctx context.Context, symbols []string) ([]domain.InsiderSignal, error) {
	var signals []domain.InsiderSignal

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return signals, err
		}

		callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
		filings, err := d.provider.InsiderTrades(callCtx, symbol, FilingLimit)
		cancel()
		if err != nil {
			d.logger.Warn().Err(err).Str("symbol", symbol).Msg("insider filings unavailable")
			continue
		}

		signal, ok := Classify(symbol, filings, d.cutoff)
		if !ok {
			continue
		}
		d.metrics.RecordInsiderSignal(signal.Label())
		signals = append(signals, signal)
	}

	return signals, nil
}

// Classify filters filings and builds the signal. It reports false when no
// filing qualifies.
func Classify(symbol string, filings []domain.InsiderFiling, cutoff time.Time) (domain.InsiderSignal, bool) {
	var trades []domain.InsiderTrade
	buyers := make(map[string]struct{})
	sellers := make(map[string]struct{})

	for _, f := range filings {
		date, err := domain.ParseDate(f.TransactionDate)
		if err != nil || date.Before(cutoff) {
			continue
		}

		desc := strings.ToLower(f.TransactionType)
		if containsAny(desc, excludedTypes) {
			continue
		}

		amount := f.Securities * f.Price
		if amount < MinAmount {
			continue
		}

		name := f.ReportingName
		if name == "" {
			name = "Unknown"
		}
		trade := domain.InsiderTrade{
			Date:   date,
			Name:   name,
			Role:   f.OwnerType,
			Amount: amount,
			Price:  f.Price,
			Weight: RoleWeight(f.OwnerType),
		}

		disposition := strings.ToUpper(f.Disposition)
		switch {
		case disposition == "A" || strings.Contains(desc, "buy"):
			trade.Side = domain.InsiderBuy
			buyers[name] = struct{}{}
		case (disposition == "D" || strings.Contains(desc, "sell")) && !strings.Contains(desc, "exercise"):
			trade.Side = domain.InsiderSell
			sellers[name] = struct{}{}
		default:
			continue
		}
		trades = append(trades, trade)
	}

	if len(trades) == 0 {
		return domain.InsiderSignal{}, false
	}

	signal := domain.InsiderSignal{
		Symbol:      symbol,
		BuyerCount:  len(buyers),
		SellerCount: len(sellers),
	}
	if len(buyers) >= ClusterSize {
		signal.Signals = append(signal.Signals, SignalClusterBuy)
	}
	if len(sellers) >= ClusterSize {
		signal.Signals = append(signal.Signals, SignalClusterSell)
	}

	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].Weight != trades[j].Weight {
			return trades[i].Weight > trades[j].Weight
		}
		return trades[i].Amount > trades[j].Amount
	})
	if len(trades) > TopTrades {
		trades = trades[:TopTrades]
	}
	signal.Trades = trades

	return signal, true
}

// RoleWeight ranks an owner type: C-level 3, director/VP/officer 2, else 1.
func RoleWeight(ownerType string) int {
	role := strings.ToLower(ownerType)
	switch {
	case containsAny(role, []string{"ceo", "cfo", "president", "chairman"}):
		return 3
	case containsAny(role, []string{"director", "vp", "officer"}):
		return 2
	default:
		return 1
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
