// Package telegram sends briefing alerts through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/notify"
	"whale-tracker/internal/reporting"
)

// MaxMessageLength is the Telegram limit for one text message.
const MaxMessageLength = 4096

// sender is the subset of tgbotapi.BotAPI used here.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications.
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	logger         zerolog.Logger
}

// Config configures Client.
type Config struct {
	BotToken       string
	ChatID         string
	MaxRetries     int
	RetryDelayBase time.Duration
	// APIEndpoint overrides the Bot API URL format, e.g. for tests.
	APIEndpoint string
	Logger      zerolog.Logger
}

// NewClient creates a new Telegram client. It contacts the Bot API once to
// verify the token.
func NewClient(cfg Config) (*Client, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.BotToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return newClient(bot, cfg)
}

func newClient(bot sender, cfg Config) (*Client, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
		logger:         cfg.Logger.With().Str("component", "telegram").Logger(),
	}, nil
}

var _ notify.Notifier = (*Client)(nil)

// Notify sends the briefing summary, split into as many messages as needed.
func (c *Client) Notify(ctx context.Context, r *reporting.Report) error {
	for _, text := range splitMessage(FormatMessage(r), MaxMessageLength) {
		if err := c.send(ctx, text); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", i+1).Msg("telegram send failed")
		if i == c.maxRetries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// FormatMessage renders the briefing as a MarkdownV2 message.
func FormatMessage(r *reporting.Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🐋 *Whale Briefing %s*\n\n", escapeMarkdownV2(r.TradeDate.Format(domain.DateLayout))))

	if !r.HasFindings() {
		sb.WriteString(escapeMarkdownV2("No whale activity detected."))
		sb.WriteString("\n")
	}

	for _, alert := range reporting.RenderAlerts(r) {
		sb.WriteString(escapeMarkdownV2(alert))
		sb.WriteString("\n")
	}

	if len(r.LargeTrades) > 0 {
		sb.WriteString("\n*Large trades*\n")
		for _, lt := range r.LargeTrades {
			sb.WriteString(escapeMarkdownV2(fmt.Sprintf("%s: %d prints >= 1%% of avg volume", lt.Symbol, len(lt.Trades))))
			sb.WriteString("\n")
		}
	}

	var clusters []string
	for _, s := range r.Insiders {
		if len(s.Signals) > 0 {
			clusters = append(clusters, fmt.Sprintf("%s: %s", s.Symbol, s.Label()))
		}
	}
	if len(clusters) > 0 {
		sb.WriteString("\n*Insider clusters*\n")
		for _, line := range clusters {
			sb.WriteString(escapeMarkdownV2(line))
			sb.WriteString("\n")
		}
	}

	if len(r.Errors) > 0 {
		sb.WriteString(escapeMarkdownV2(fmt.Sprintf("\n%d phase(s) failed, see logs", len(r.Errors))))
		sb.WriteString("\n")
	}

	return sb.String()
}

// splitMessage breaks text on line boundaries into chunks no longer than limit.
// A single line longer than limit is cut on a rune boundary that does not
// separate a MarkdownV2 escape from its character.
func splitMessage(text string, limit int) []string {
	var chunks []string
	var cur strings.Builder

	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			cut := cutPoint(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// cutPoint returns the largest safe cut at or below limit. It always
// advances by at least one rune.
func cutPoint(line string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	if cut > 0 && line[cut-1] == '\\' {
		cut--
	}
	if cut == 0 {
		_, cut = utf8.DecodeRuneInString(line)
	}
	return cut
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var sb strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}
