package handlers

import (
	"context"
	"errors"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireSession проверяет, что пользователь вошёл в кабинет клиники
// Возвращает сессию и true если OK, nil и false если нет
func (h *Handlers) requireSession(ctx context.Context, b *bot.Bot, update *models.Update) (*model.Session, bool) {
	if update.Message == nil || update.Message.From == nil {
		return nil, false
	}

	telegramID := update.Message.From.ID
	session, err := h.sessionService.Resolve(ctx, telegramID)
	if err != nil {
		if !errors.Is(err, service.ErrNotLoggedIn) {
			h.logger.Error("Failed to resolve session", zap.Int64("telegram_id", telegramID), zap.Error(err))
			h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка. Попробуйте позже.")
			return nil, false
		}
		h.sendError(ctx, b, update.Message.Chat.ID, common.ErrorMessage(err))
		return nil, false
	}

	return session, true
}

// notifier пишет ошибки сервисов в чат команды
func (h *Handlers) notifier(b *bot.Bot, chatID int64) service.Notifier {
	return common.NewChatNotifier(b, chatID, h.logger)
}
