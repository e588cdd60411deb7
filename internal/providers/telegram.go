// Package providers holds external escalation channels for system
// notifications.
package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"unit-gateway/internal/logging"
	"unit-gateway/internal/models"
	"unit-gateway/internal/utils"
)

// Telegram escalates critical notifications to an operator chat.
type Telegram struct {
	token   string
	chatID  int64
	limiter *rate.Limiter
	logger  *logging.Logger
}

func NewTelegram(token string, chatID int64, ratePerSecond int, logger *logging.Logger) *Telegram {
	return &Telegram{
		token:   token,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		logger:  logger,
	}
}

// Escalate sends the notification text to the configured chat.
func (t *Telegram) Escalate(ctx context.Context, n models.Notification) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	text := fmt.Sprintf("*%s*\n%s\n\n_%s_", n.Type, n.Message, n.Time.Format(time.RFC3339))

	return utils.Retry(t.logger, 3, time.Second, func() error {
		b, err := bot.New(t.token)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		params := &bot.SendMessageParams{
			ChatID:    t.chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", t.chatID, err)
		}
		return nil
	})
}
