package common

import (
	"context"
	"errors"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// WithSession создаёт HandlerContext и загружает сессию клиники.
// Без сессии отвечает пользователю alert'ом и handler не вызывается.
func WithSession(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	handler func(*HandlerContext),
) {
	hc := NewHandlerContext(ctx, b, callback, h)

	if err := hc.LoadSession(); err != nil {
		if !errors.Is(err, service.ErrNotLoggedIn) {
			h.Logger.Error("Failed to resolve session",
				zap.Int64("telegram_id", hc.TelegramID),
				zap.Error(err))
		}
		hc.AnswerAlert(ErrorMessage(err))
		return
	}

	handler(hc)
}

// HandleError обрабатывает ошибку и отправляет ответ пользователю
func HandleError(hc *HandlerContext, err error, operation string) {
	hc.Handler.Logger.Error("Operation failed",
		zap.String("operation", operation),
		zap.Int64("telegram_id", hc.TelegramID),
		zap.Error(err))
	hc.AnswerAlert(ErrorMessage(err))
}

// HandleServiceError отвечает на ошибку мастера записи или списка записей.
// Если сервис уже написал об ошибке в чат, callback просто закрывается.
func HandleServiceError(hc *HandlerContext, err error, operation string) {
	switch {
	case errors.Is(err, model.ErrStaleResponse):
		hc.Handler.Logger.Debug("Stale response dropped",
			zap.String("operation", operation),
			zap.Int64("telegram_id", hc.TelegramID))
		hc.Answer("")
	case ReportedByService(err):
		hc.Handler.Logger.Warn("Operation failed",
			zap.String("operation", operation),
			zap.Int64("telegram_id", hc.TelegramID),
			zap.Error(err))
		hc.Answer("")
	default:
		hc.Handler.Logger.Info("Operation rejected",
			zap.String("operation", operation),
			zap.Int64("telegram_id", hc.TelegramID),
			zap.Error(err))
		hc.AnswerAlert(ErrorMessage(err))
	}
}
