package patient

import (
	"context"
	"strconv"
	"strings"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/medbooking_bot/internal/service/booking"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// withWorkflow загружает сессию и открытый мастер записи пользователя
func withWorkflow(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	handler func(*common.HandlerContext, *booking.Workflow),
) {
	common.WithSession(ctx, b, callback, h, func(hc *common.HandlerContext) {
		w, ok := h.Booking.Get(hc.TelegramID)
		if !ok {
			hc.AnswerAlert(common.ErrorMessage(common.ErrWizardClosed))
			return
		}
		handler(hc, w)
	})
}

// RenderBookingStep показывает экран текущего шага мастера
func RenderBookingStep(hc *common.HandlerContext, st booking.State) error {
	var text string
	var kb *models.InlineKeyboardMarkup

	switch st.Step {
	case booking.StepDoctor:
		text, kb = common.BuildDoctorScreen(st)
	case booking.StepSlot:
		text, kb = common.BuildSlotScreen(st, hc.Handler.Now())
	default:
		text, kb = common.BuildSpecialtyScreen(st)
	}
	return hc.EditMessage(text, kb)
}

func render(hc *common.HandlerContext, w *booking.Workflow) {
	if err := RenderBookingStep(hc, w.Snapshot()); err != nil {
		hc.Handler.Logger.Warn("Failed to render booking step",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.Error(err))
	}
}

// HandleSelectSpecialty шаг 1 → 2: выбрана специальность
func HandleSelectSpecialty(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withWorkflow(ctx, b, callback, h, func(hc *common.HandlerContext, w *booking.Workflow) {
		specialtyID, err := common.ParseIDFromCallback(callback.Data)
		if err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "select_specialty")
			return
		}

		if err := w.SelectSpecialty(hc.Ctx, specialtyID); err != nil {
			common.HandleServiceError(hc, err, "select_specialty")
			return
		}

		render(hc, w)
		hc.Answer("")
	})
}

// HandleSelectDoctor шаг 2 → 3: выбран врач, загружаем слоты на сегодня
func HandleSelectDoctor(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withWorkflow(ctx, b, callback, h, func(hc *common.HandlerContext, w *booking.Workflow) {
		doctorID, err := common.ParseIDFromCallback(callback.Data)
		if err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "select_doctor")
			return
		}

		if err := w.SelectDoctor(hc.Ctx, doctorID); err != nil {
			// Шаг уже переключён, показываем его даже если слоты не загрузились
			if common.ReportedByService(err) {
				render(hc, w)
			}
			common.HandleServiceError(hc, err, "select_doctor")
			return
		}

		render(hc, w)
		hc.Answer("")
	})
}

// HandleSelectDate выбрана дата, время сбрасывается
func HandleSelectDate(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withWorkflow(ctx, b, callback, h, func(hc *common.HandlerContext, w *booking.Workflow) {
		date := strings.TrimPrefix(callback.Data, common.BookDate)

		if err := w.SelectDate(hc.Ctx, date); err != nil {
			if common.ReportedByService(err) {
				render(hc, w)
			}
			common.HandleServiceError(hc, err, "select_date")
			return
		}

		render(hc, w)
		hc.Answer("")
	})
}

// HandleSelectTime выбрано время из предложенных слотов
func HandleSelectTime(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withWorkflow(ctx, b, callback, h, func(hc *common.HandlerContext, w *booking.Workflow) {
		slot, err := common.DecodeSlot(strings.TrimPrefix(callback.Data, common.BookTime))
		if err != nil {
			common.HandleError(hc, err, "select_time")
			return
		}

		if err := w.SelectTime(slot); err != nil {
			common.HandleServiceError(hc, err, "select_time")
			return
		}

		render(hc, w)
		hc.Answer("🕐 " + slot)
	})
}

// HandleBack возвращает на предыдущий шаг, выбор следующих шагов сбрасывается
func HandleBack(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withWorkflow(ctx, b, callback, h, func(hc *common.HandlerContext, w *booking.Workflow) {
		step := w.Back()
		h.Logger.Debug("Booking step back",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.Stringer("step", step))

		render(hc, w)
		hc.Answer("")
	})
}

// HandleAskReason просит ввести причину визита текстом
func HandleAskReason(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withWorkflow(ctx, b, callback, h, func(hc *common.HandlerContext, w *booking.Workflow) {
		hc.SetState(state.StateBookingReason)

		err := hc.SendMessage(
			"📝 Опишите причину визита одним сообщением.\n\n"+
				"Если причина не указана, будет \""+booking.DefaultReason+"\".\n"+
				"/cancel - отменить ввод", nil)
		if err != nil {
			common.HandleError(hc, err, "ask_reason")
			return
		}
		hc.Answer("")
	})
}

// HandleConfirm создаёт запись
func HandleConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withWorkflow(ctx, b, callback, h, func(hc *common.HandlerContext, w *booking.Workflow) {
		selection := w.Snapshot()

		appointment, err := w.Confirm(hc.Ctx)
		if err != nil {
			common.HandleServiceError(hc, err, "confirm_booking")
			return
		}

		h.Booking.Finish(hc.TelegramID)
		if hc.Handler.StateManager.GetState(hc.Ctx, hc.TelegramID) == state.StateBookingReason {
			hc.Handler.StateManager.SetState(hc.Ctx, hc.TelegramID, state.StateNone)
		}

		// Список записей пересобирается при следующем открытии
		h.Appointments.Drop(hc.TelegramID)

		h.Logger.Info("Booking confirmed",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.Int64("appointment_id", appointment.ID))

		text, kb := common.BuildBookingDoneScreen(appointment, selection)
		if err := hc.EditMessage(text, kb); err != nil {
			h.Logger.Warn("Failed to show booking result", zap.Error(err))
		}
		hc.Answer("✅ Запись создана")
	})
}

// HandleCancelBooking закрывает мастер без записи
func HandleCancelBooking(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	hc := common.NewHandlerContext(ctx, b, callback, h)

	h.Booking.Finish(hc.TelegramID)
	if h.StateManager.GetState(ctx, hc.TelegramID) == state.StateBookingReason {
		h.StateManager.SetState(ctx, hc.TelegramID, state.StateNone)
	}

	if err := hc.EditMessage("❌ Запись отменена.\n\nНачать заново: /book", nil); err != nil {
		h.Logger.Warn("Failed to edit message", zap.Error(err))
	}
	hc.Answer("")
}

// parseInt64 разбирает число из части callback data
func parseInt64(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, common.ErrInvalidFormat
	}
	return id, nil
}
