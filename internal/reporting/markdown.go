package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"whale-tracker/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Whale Briefing %s\n\n", r.TradeDate.Format(domain.DateLayout)))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))
	}

	// Scan Summary
	sb.WriteString("## Scan Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Pages Fetched | %d |\n", r.Summary.PagesFetched))
	sb.WriteString(fmt.Sprintf("| Page Errors | %d |\n", r.Summary.PageErrors))
	sb.WriteString(fmt.Sprintf("| Rows Parsed | %d |\n", r.Summary.RowsParsed))
	sb.WriteString(fmt.Sprintf("| Row Parse Errors | %d |\n", r.Summary.RowParseErrors))
	sb.WriteString(fmt.Sprintf("| Symbols Evaluated | %d |\n", r.Summary.Evaluated))
	sb.WriteString(fmt.Sprintf("| Baseline Unavailable | %d |\n", r.Summary.BaselineUnavailable))
	sb.WriteString(fmt.Sprintf("| Fetch Errors | %d |\n", r.Summary.FetchErrors))
	sb.WriteString(fmt.Sprintf("| Whale Days | %d |\n", r.Summary.WhaleDays))
	sb.WriteString(fmt.Sprintf("| New Events | %d |\n", r.Summary.NewEvents))
	sb.WriteString(fmt.Sprintf("| Store Errors | %d |\n", r.Summary.StoreErrors))
	sb.WriteString("\n")

	// Whale Days
	sb.WriteString("## Whale Days\n\n")
	if len(r.Whales) > 0 {
		sb.WriteString("| Symbol | Group | Price | Volume | Z-Score | RVOL | 7d | 30d |\n")
		sb.WriteString("|--------|-------|-------|--------|---------|------|----|-----|\n")
		for _, w := range r.Whales {
			sb.WriteString(fmt.Sprintf("| %s | %s | $%s | %s | %.2f | %.2fx | %d | %d |\n",
				w.Symbol, w.Group, w.Price.StringFixed(2), humanize.Comma(w.Volume),
				w.ZScore, w.RelativeVolume, w.WeeklyFrequency, w.MonthlyFrequency))
		}
	} else {
		sb.WriteString("No whale days detected.\n")
	}
	sb.WriteString("\n")

	// Large Trades
	sb.WriteString("## Large Trades\n\n")
	if len(r.LargeTrades) > 0 {
		for _, lt := range r.LargeTrades {
			sb.WriteString(fmt.Sprintf("### %s (%s, avg volume %s)\n\n",
				lt.Symbol, lt.Session, humanize.Comma(int64(lt.AvgVolume))))
			sb.WriteString("| Time | Volume | Ratio | Price | Flow |\n")
			sb.WriteString("|------|--------|-------|-------|------|\n")
			for _, t := range lt.Trades {
				sb.WriteString(fmt.Sprintf("| %s | %s | %.1f%% | $%.2f | %s |\n",
					t.Time.Format("15:04:05"), humanize.Comma(t.Volume), t.Ratio*100, t.Price, flowLabel(t.Flow)))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No large trades detected.\n\n")
	}
	if len(r.WatchSkipped) > 0 {
		sb.WriteString(fmt.Sprintf("Skipped: %s\n\n", strings.Join(r.WatchSkipped, ", ")))
	}

	// Insider Activity
	sb.WriteString("## Insider Activity\n\n")
	if len(r.Insiders) > 0 {
		for _, s := range r.Insiders {
			sb.WriteString(fmt.Sprintf("### %s: %s (buyers %d, sellers %d)\n\n",
				s.Symbol, s.Label(), s.BuyerCount, s.SellerCount))
			sb.WriteString("| Date | Name | Role | Side | Amount | Price |\n")
			sb.WriteString("|------|------|------|------|--------|-------|\n")
			for _, t := range s.Trades {
				sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | $%s | $%.2f |\n",
					t.Date.Format(domain.DateLayout), t.Name, t.Role, t.Side,
					humanize.Comma(int64(t.Amount)), t.Price))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No insider activity.\n\n")
	}

	// Errors
	if len(r.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderAlerts returns the one-line whale alerts, one per record.
func RenderAlerts(r *Report) []string {
	alerts := make([]string, 0, len(r.Whales))
	for _, w := range r.Whales {
		alerts = append(alerts, w.Message())
	}
	return alerts
}

func flowLabel(f domain.TradeFlow) string {
	switch f {
	case domain.FlowAccumulation:
		return "Accumulation"
	case domain.FlowDumping:
		return "Dumping"
	default:
		return f.String()
	}
}
