// Package notify delivers finished briefings to external channels.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"whale-tracker/internal/reporting"
)

// Notifier sends a briefing somewhere.
type Notifier interface {
	Notify(ctx context.Context, r *reporting.Report) error
}

// Nop discards every briefing.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, *reporting.Report) error { return nil }

// Log writes the one-line alerts to a logger. Used when no channel is configured.
type Log struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (l Log) Notify(_ context.Context, r *reporting.Report) error {
	for _, alert := range reporting.RenderAlerts(r) {
		l.Logger.Info().Str("trade_date", r.TradeDate.Format("2006-01-02")).Msg(alert)
	}
	return nil
}

var (
	_ Notifier = Nop{}
	_ Notifier = Log{}
)
