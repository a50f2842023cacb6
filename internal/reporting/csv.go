package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"whale-tracker/internal/domain"
)

// RenderWhaleCSV renders whale records as CSV string.
func RenderWhaleCSV(records []domain.WhaleRecord) string {
	rows := [][]string{{
		"symbol", "group", "trade_date", "price", "volume",
		"z_score", "rel_volume", "weekly_frequency", "monthly_frequency",
	}}
	for _, r := range records {
		rows = append(rows, []string{
			r.Symbol,
			r.Group,
			r.TradeDate.Format(domain.DateLayout),
			r.Price.StringFixed(4),
			strconv.FormatInt(r.Volume, 10),
			fmt.Sprintf("%.2f", r.ZScore),
			fmt.Sprintf("%.2f", r.RelativeVolume),
			strconv.Itoa(r.WeeklyFrequency),
			strconv.Itoa(r.MonthlyFrequency),
		})
	}
	return writeCSV(rows)
}

// RenderLargeTradeCSV renders large trades as CSV string, one row per trade.
func RenderLargeTradeCSV(reports []domain.LargeTradeReport) string {
	rows := [][]string{{"symbol", "session", "time", "volume", "ratio", "price", "flow"}}
	for _, rep := range reports {
		for _, t := range rep.Trades {
			rows = append(rows, []string{
				rep.Symbol,
				rep.Session,
				t.Time.Format(time.TimeOnly),
				strconv.FormatInt(t.Volume, 10),
				fmt.Sprintf("%.6f", t.Ratio),
				fmt.Sprintf("%.4f", t.Price),
				t.Flow.String(),
			})
		}
	}
	return writeCSV(rows)
}

// RenderInsiderCSV renders insider trades as CSV string, one row per trade.
func RenderInsiderCSV(signals []domain.InsiderSignal) string {
	rows := [][]string{{"symbol", "signal", "date", "name", "role", "side", "amount", "price", "weight"}}
	for _, s := range signals {
		for _, t := range s.Trades {
			rows = append(rows, []string{
				s.Symbol,
				s.Label(),
				t.Date.Format(domain.DateLayout),
				t.Name,
				t.Role,
				string(t.Side),
				fmt.Sprintf("%.2f", t.Amount),
				fmt.Sprintf("%.4f", t.Price),
				strconv.Itoa(t.Weight),
			})
		}
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	// strings.Builder never fails a write
	_ = w.WriteAll(rows)
	return sb.String()
}
