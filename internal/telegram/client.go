// Package telegram sends reservoir risk alerts via the Telegram Bot API.
// It formats High/Critical assessments into MarkdownV2 messages that show
// where each value came from, and handles delivery with retry logic.
//
// A message is marked degraded when any value in an assessment was produced
// by a fallback tier rather than the live analysis backend.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/hydrowatch/internal/metrics"
	"github.com/rewired-gh/hydrowatch/internal/models"
)

// sender is the part of the bot API the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Send sends one alert message covering the given assessments
func (c *Client) Send(assessments []*models.Assessment) error {
	if len(assessments) == 0 {
		return nil
	}
	if err := c.send(formatMessage(assessments)); err != nil {
		return err
	}
	metrics.ObserveAlerts(len(assessments))
	return nil
}

// SendOutage notifies that no reservoir could be read from the analysis
// backend in a cycle, so every value shown is a local approximation.
func (c *Client) SendOutage(kind models.FailureKind, reservoirs int) error {
	message := "⚠️ *Analysis backend unavailable*\n\n"
	message += fmt.Sprintf("All %d reservoirs are served by fallback tiers\\.\n", reservoirs)
	message += fmt.Sprintf("Cause: %s\n", escapeMarkdownV2(string(kind)))
	return c.send(message)
}

// SendRecovery notifies that the backend answered again after an outage
func (c *Client) SendRecovery(outageCycles int) error {
	message := "✅ *Analysis backend recovered*\n\n"
	message += fmt.Sprintf("Live data restored after %d degraded cycle", outageCycles)
	if outageCycles != 1 {
		message += "s"
	}
	message += "\\.\n"
	return c.send(message)
}

// send delivers a MarkdownV2 message with linear backoff between attempts.
func (c *Client) send(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

var riskEmoji = map[models.RiskLevel]string{
	models.RiskLow:      "🟢",
	models.RiskModerate: "🟡",
	models.RiskHigh:     "🟠",
	models.RiskCritical: "🔴",
}

// formatMessage formats assessments into a Telegram message
func formatMessage(assessments []*models.Assessment) string {
	var b strings.Builder
	b.WriteString("🚨 *Reservoir Risk Alert*\n\n")

	dateStr := escapeMarkdownV2(assessments[0].AssessedAt.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "📅 Assessed: %s\n\n", dateStr)

	for i, a := range assessments {
		report := a.Report.Value
		reading := a.Reading.Value

		fmt.Fprintf(&b, "%d\\. %s *%s* \\(%s\\)\n",
			i+1, riskEmoji[report.RiskLevel], escapeMarkdownV2(a.Reservoir.Name), escapeMarkdownV2(string(a.Season)))
		fmt.Fprintf(&b, "   Risk: *%s* · Flood: %s · Drought: %s\n",
			escapeMarkdownV2(string(report.RiskLevel)),
			escapeMarkdownV2(fmt.Sprintf("%d%%", report.FloodProbability)),
			escapeMarkdownV2(string(report.DroughtSeverity)))
		fmt.Fprintf(&b, "   💧 Fill: %s \\(%s MCM\\)\n",
			escapeMarkdownV2(fmt.Sprintf("%.1f%%", reading.FillPercentage)),
			escapeMarkdownV2(fmt.Sprintf("%.0f", reading.VolumeMCM)))
		if a.Anomaly.Value.IsAnomaly {
			fmt.Fprintf(&b, "   📊 Volume anomaly: %s deviation\n",
				escapeMarkdownV2(fmt.Sprintf("%.1f%%", a.Anomaly.Value.DeviationPercent)))
		}
		fmt.Fprintf(&b, "   📝 %s\n", escapeMarkdownV2(report.Summary))
		fmt.Fprintf(&b, "   ➡️ %s\n", escapeMarkdownV2(report.Recommendation))
		if a.Degraded() {
			fmt.Fprintf(&b, "   ⚠️ _Degraded data_: %s\n", escapeMarkdownV2(provenance(a)))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// provenance lists the tier behind each non-remote value.
func provenance(a *models.Assessment) string {
	var parts []string
	add := func(name string, source models.Source) {
		if source != models.SourceRemote {
			parts = append(parts, name+"="+string(source))
		}
	}
	add("reading", a.Reading.Source)
	add("anomaly", a.Anomaly.Source)
	add("forecast", a.Forecast.Source)
	add("report", a.Report.Source)
	return strings.Join(parts, ", ")
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// \ _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	b.Grow(len(text))
	for _, char := range text {
		switch char {
		case '\\', '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
