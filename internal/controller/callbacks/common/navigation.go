package common

import (
	"context"
	"errors"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ========================
// Common Navigation Handlers
// ========================

// HandleBackToMain возвращает пользователя к главному меню
func HandleBackToMain(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	hc := NewHandlerContext(ctx, b, callback, h)
	hc.ClearState()

	session, err := h.SessionService.Resolve(ctx, hc.TelegramID)
	if err != nil && !errors.Is(err, service.ErrNotLoggedIn) {
		h.Logger.Error("Failed to resolve session", zap.Int64("telegram_id", hc.TelegramID), zap.Error(err))
	}

	text, kb := BuildMainMenuScreen(session)
	if err := hc.EditMessage(text, kb); err != nil {
		h.Logger.Warn("Failed to show main menu", zap.Int64("telegram_id", hc.TelegramID), zap.Error(err))
	}
	hc.Answer("")
}

// HandleMenuBook запускает мастер записи из меню
func HandleMenuBook(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	h.HandleBook(ctx, b, updateFromCallback(callback))
	AnswerCallback(ctx, b, callback.ID, "")
}

// HandleMenuAppointments открывает список записей из меню
func HandleMenuAppointments(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	h.HandleMyAppointments(ctx, b, updateFromCallback(callback))
	AnswerCallback(ctx, b, callback.ID, "")
}

// updateFromCallback превращает нажатие кнопки в update с сообщением,
// чтобы переиспользовать обработчики команд
func updateFromCallback(callback *models.CallbackQuery) *models.Update {
	chatID := callback.From.ID
	if msg := GetMessageFromCallback(callback); msg != nil {
		chatID = msg.Chat.ID
	}

	return &models.Update{
		Message: &models.Message{
			Chat: models.Chat{ID: chatID},
			From: &callback.From,
		},
	}
}
