package callbacks

import (
	"context"
	"strings"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/patient"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ========================
// Main Callback Router
// ========================

// Route распределяет callback query по соответствующим обработчикам
func Route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	data := callback.Data

	h.Logger.Debug("Routing callback",
		zap.String("data", data),
		zap.Int64("user_id", callback.From.ID),
		zap.String("user_name", callback.From.FirstName))

	switch {
	// ===== Common Navigation =====
	case data == common.Noop:
		// No operation - просто подтверждаем callback
		common.AnswerCallback(ctx, b, callback.ID, "")
	case data == common.BackToMain:
		common.HandleBackToMain(ctx, b, callback, h)
	case data == common.MenuBook:
		common.HandleMenuBook(ctx, b, callback, h)
	case data == common.MenuList:
		common.HandleMenuAppointments(ctx, b, callback, h)

	// ===== Booking Wizard =====
	case strings.HasPrefix(data, common.BookSpecialty):
		patient.HandleSelectSpecialty(ctx, b, callback, h)
	case strings.HasPrefix(data, common.BookDoctor):
		patient.HandleSelectDoctor(ctx, b, callback, h)
	case strings.HasPrefix(data, common.BookDate):
		patient.HandleSelectDate(ctx, b, callback, h)
	case strings.HasPrefix(data, common.BookTime):
		patient.HandleSelectTime(ctx, b, callback, h)
	case data == common.BookBack:
		patient.HandleBack(ctx, b, callback, h)
	case data == common.BookReason:
		patient.HandleAskReason(ctx, b, callback, h)
	case data == common.BookConfirm:
		patient.HandleConfirm(ctx, b, callback, h)
	case data == common.BookCancel:
		patient.HandleCancelBooking(ctx, b, callback, h)

	// ===== Appointment List =====
	case strings.HasPrefix(data, common.ListFilter):
		patient.HandleFilter(ctx, b, callback, h)
	case strings.HasPrefix(data, common.ListPage):
		patient.HandlePage(ctx, b, callback, h)
	case data == common.ListBack:
		patient.HandleBackToList(ctx, b, callback, h)
	case data == common.ListRefresh:
		patient.HandleRefresh(ctx, b, callback, h)
	case data == common.ListSearch:
		patient.HandleSearch(ctx, b, callback, h)
	case data == common.ListSearchClear:
		patient.HandleSearchClear(ctx, b, callback, h)
	case strings.HasPrefix(data, common.ListOpen):
		patient.HandleView(ctx, b, callback, h)
	case strings.HasPrefix(data, common.ListCancelYes):
		patient.HandleCancelConfirm(ctx, b, callback, h)
	case strings.HasPrefix(data, common.ListCancel):
		patient.HandleCancelAsk(ctx, b, callback, h)
	case strings.HasPrefix(data, common.ListRescheduleD):
		patient.HandleRescheduleDate(ctx, b, callback, h)
	case strings.HasPrefix(data, common.ListRescheduleT):
		patient.HandleRescheduleTime(ctx, b, callback, h)
	case strings.HasPrefix(data, common.ListReschedule):
		patient.HandleRescheduleStart(ctx, b, callback, h)
	case strings.HasPrefix(data, common.ListAgenda):
		patient.HandleAgenda(ctx, b, callback, h)

	default:
		h.Logger.Warn("Unknown callback", zap.String("data", data))
		common.AnswerCallback(ctx, b, callback.ID, "❓ Неизвестная команда")
	}
}
