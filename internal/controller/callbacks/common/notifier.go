package common

import (
	"context"
	"errors"

	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// ChatNotifier пишет ошибки сервисов в чат пользователя
type ChatNotifier struct {
	bot    *bot.Bot
	chatID int64
	logger *zap.Logger
}

func NewChatNotifier(b *bot.Bot, chatID int64, logger *zap.Logger) *ChatNotifier {
	return &ChatNotifier{bot: b, chatID: chatID, logger: logger}
}

// Notify отправляет текст ошибки. Устаревшие ответы молча отбрасываются.
func (n *ChatNotifier) Notify(ctx context.Context, err error) {
	if err == nil || errors.Is(err, model.ErrStaleResponse) {
		return
	}

	_, sendErr := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   ErrorMessage(err),
	})
	if sendErr != nil {
		n.logger.Error("Failed to send error notification",
			zap.Int64("chat_id", n.chatID),
			zap.NamedError("cause", err),
			zap.Error(sendErr))
	}
}
