// Package notify posts run summaries, evaluation results and budget alerts
// to a Telegram chat. Notifications are optional; Nop is used when no bot
// token is configured.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/url-risk-bench/internal/core/llm"
	"github.com/lueurxax/url-risk-bench/internal/eval"
	"github.com/lueurxax/url-risk-bench/internal/process/scoring"
)

const (
	messageLimit = 4000

	logKeyChatID = "chat_id"
	logKeyPart   = "part"
)

// Notifier delivers a preformatted HTML message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Sender is the part of tgbotapi.BotAPI used here.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends messages to one chat through the Bot API.
type Telegram struct {
	api    Sender
	chatID int64
	logger *zerolog.Logger
}

// NewTelegram authenticates the bot token and targets chatID.
func NewTelegram(token string, chatID int64, logger *zerolog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return NewTelegramWithSender(api, chatID, logger), nil
}

// NewTelegramWithSender builds a notifier on an existing sender.
func NewTelegramWithSender(api Sender, chatID int64, logger *zerolog.Logger) *Telegram {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Telegram{api: api, chatID: chatID, logger: logger}
}

// Notify sends text, split into parts that fit Telegram's message limit.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	for i, part := range split(text, messageLimit) {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // context errors pass through unchanged
		}

		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		if _, err := t.api.Send(msg); err != nil {
			t.logger.Error().Err(err).Int64(logKeyChatID, t.chatID).Int(logKeyPart, i+1).Msg("failed to send notification")

			return fmt.Errorf("send notification part %d to chat %d: %w", i+1, t.chatID, err)
		}
	}

	return nil
}

type nop struct{}

// Nop returns a notifier that drops every message.
func Nop() Notifier {
	return nop{}
}

func (nop) Notify(context.Context, string) error {
	return nil
}

// RunSummary formats a finished scoring run.
func RunSummary(run string, provider llm.Provider, s scoring.Summary, usage llm.Usage) string {
	var b strings.Builder

	status := "finished"
	if s.Interrupted {
		status = "interrupted"
	}

	fmt.Fprintf(&b, "<b>Scoring run %s</b> %s\n", html.EscapeString(run), status)
	fmt.Fprintf(&b, "Oracle: <code>%s/%s</code>\n", provider.Name(), html.EscapeString(provider.Model()))
	fmt.Fprintf(&b, "Scored: %d (neutral %d, skipped %d)\n", s.Count, s.Neutral, s.Skipped)

	if s.Count > 0 {
		fmt.Fprintf(&b, "Score mean %.3f, min %.3f, max %.3f\n", s.Mean, s.Min, s.Max)
	}

	fmt.Fprintf(&b, "Tokens: %d, est. cost $%.4f\n", usage.TotalTokens(), usage.CostUSD)
	fmt.Fprintf(&b, "Duration: %s", s.Duration.Round(time.Second))

	return b.String()
}

// EvalSummary formats an evaluation report.
func EvalSummary(title string, r eval.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(title))
	fmt.Fprintf(&b, "Samples: %d, coverage %.1f%%\n", len(r.Samples), r.Coverage*100)
	fmt.Fprintf(&b, "Threshold %.3f: TP %d, FP %d, TN %d, FN %d\n",
		r.Threshold, r.Confusion.TP, r.Confusion.FP, r.Confusion.TN, r.Confusion.FN)
	fmt.Fprintf(&b, "Precision %.3f, recall %.3f, F1 %.3f\n", r.Precision, r.Recall, r.F1)
	fmt.Fprintf(&b, "AUROC <b>%.4f</b>", r.AUC)

	return b.String()
}

// BudgetAlert formats a token budget alert.
func BudgetAlert(alert llm.BudgetAlert) string {
	return fmt.Sprintf("<b>Token budget %s</b>: %d of %d tokens used (%.0f%%)",
		html.EscapeString(alert.Level), alert.Tokens, alert.BudgetLimit, alert.Percentage*100)
}

// split breaks text at line boundaries so each part has at most limit runes.
// A single line longer than limit is cut.
func split(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var (
		parts   []string
		current strings.Builder
		size    int
	)

	flush := func() {
		if size > 0 {
			parts = append(parts, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)

		for len(runes) > limit {
			flush()
			parts = append(parts, string(runes[:limit]))
			runes = runes[limit:]
		}

		if size+len(runes) > limit {
			flush()
		}

		current.WriteString(string(runes))
		size += len(runes)
	}

	flush()

	return parts
}
