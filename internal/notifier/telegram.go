// Package notifier posts trade outcomes and newly detected levels to
// Telegram.
package notifier

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
	"github.com/FOREXfunguru/FOREX-sub000/internal/trade"
)

// Notifier delivers analysis results to a human.
type Notifier interface {
	NotifyTrade(t *trade.Trade) error
	NotifyLevels(instrument, granularity string, levels []model.Level) error
}

// Telegram posts messages to one chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(token string, chatID int64, logger zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notifier: telegram auth: %w", err)
	}
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: logger.With().Str("component", "notifier").Logger(),
	}, nil
}

// NotifyTrade posts a trade's terminal state.
func (n *Telegram) NotifyTrade(t *trade.Trade) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", t.Pair, t.Timeframe, t.Direction)
	fmt.Fprintf(&b, "outcome: %s (%.1f pips)\n", t.Outcome, t.Pips)
	fmt.Fprintf(&b, "entry %.5f | stop %.5f | target %.5f\n", t.Entry.Price, t.Stop.Price, t.Target.Price)
	if t.Entered {
		fmt.Fprintf(&b, "entered at %s\n", t.EntryTime.UTC().Format("2006-01-02 15:04"))
	}
	if !t.EndTime.IsZero() {
		fmt.Fprintf(&b, "closed at %s", t.EndTime.UTC().Format("2006-01-02 15:04"))
	}

	msg := tgbotapi.NewMessage(n.chatID, b.String())
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("notifier: send trade message: %w", err)
	}
	n.logger.Info().Str("trade", t.ID.String()).Msg("trade outcome posted")
	return nil
}

// NotifyLevels posts one scan's detected levels.
func (n *Telegram) NotifyLevels(instrument, granularity string, levels []model.Level) error {
	if len(levels) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %d level(s)\n", instrument, granularity, len(levels))
	for _, l := range levels {
		fmt.Fprintf(&b, "%.5f (bounces %d, score %.1f)\n", l.Price, l.BounceCount, l.TotalScore)
	}

	msg := tgbotapi.NewMessage(n.chatID, b.String())
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("notifier: send levels message: %w", err)
	}
	return nil
}

// Noop discards all notifications. Used in tests and when no Telegram
// credentials are configured.
type Noop struct{}

func (Noop) NotifyTrade(*trade.Trade) error                   { return nil }
func (Noop) NotifyLevels(string, string, []model.Level) error { return nil }
