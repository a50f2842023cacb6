package domain

import "time"

// TradeFlow classifies the direction of a large intraday print.
type TradeFlow string

const (
	FlowAccumulation TradeFlow = "ACCUMULATION"
	FlowDumping      TradeFlow = "DUMPING"
)

// String returns the string representation of TradeFlow.
func (f TradeFlow) String() string {
	return string(f)
}

// IsValid checks if the flow is a valid value.
func (f TradeFlow) IsValid() bool {
	return f == FlowAccumulation || f == FlowDumping
}

// LargeTrade is an intraday bar whose volume crossed the large-trade threshold.
type LargeTrade struct {
	Time   time.Time
	Volume int64
	Ratio  float64 // bar volume / average daily volume
	Price  float64 // bar close
	Flow   TradeFlow
}

// LargeTradeReport groups the large trades of one symbol's latest session.
type LargeTradeReport struct {
	Symbol    string
	Session   string // YYYY-MM-DD
	AvgVolume float64
	Trades    []LargeTrade
}
