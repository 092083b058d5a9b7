package patient

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/service/appointments"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// OpenViewModel возвращает список записей пользователя. Если список ещё не
// открыт (например, после перезапуска бота), он создаётся и загружается.
func OpenViewModel(hc *common.HandlerContext) (*appointments.ViewModel, error) {
	if vm, ok := hc.Handler.Appointments.Get(hc.TelegramID); ok && vm.Loaded() {
		return vm, nil
	}

	vm := hc.Handler.Appointments.Open(
		hc.TelegramID,
		hc.Handler.SessionService.Client(hc.Session),
		hc.Session,
		hc.Notifier(),
	)
	if err := vm.Load(hc.Ctx); err != nil {
		return nil, err
	}
	return vm, nil
}

// withViewModel загружает сессию и список записей пользователя
func withViewModel(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	operation string,
	handler func(*common.HandlerContext, *appointments.ViewModel),
) {
	common.WithSession(ctx, b, callback, h, func(hc *common.HandlerContext) {
		vm, err := OpenViewModel(hc)
		if err != nil {
			common.HandleServiceError(hc, err, operation)
			return
		}
		handler(hc, vm)
	})
}

// showList перерисовывает текущую страницу списка
func showList(hc *common.HandlerContext, vm *appointments.ViewModel, view common.ListView) {
	page := vm.Page(view.Filter, view.Term, view.Page)
	// Страница могла сдвинуться, если записей стало меньше
	view.Page = page.Number
	common.SaveListView(hc.Ctx, hc.Handler.StateManager, hc.TelegramID, view)

	text, kb := common.BuildAppointmentsScreen(page, view)
	if err := hc.EditMessage(text, kb); err != nil {
		hc.Handler.Logger.Warn("Failed to render appointments",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.Error(err))
	}
}

func loadView(hc *common.HandlerContext) common.ListView {
	return common.LoadListView(hc.Ctx, hc.Handler.StateManager, hc.TelegramID)
}

// HandleFilter переключает фильтр по статусу
func HandleFilter(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withViewModel(ctx, b, callback, h, "appointments_filter", func(hc *common.HandlerContext, vm *appointments.ViewModel) {
		view := loadView(hc)
		view.Filter = appointments.ParseFilter(strings.TrimPrefix(callback.Data, common.ListFilter))
		view.Page = 0

		showList(hc, vm, view)
		hc.Answer(common.FilterLabel(view.Filter))
	})
}

// HandlePage переключает страницу списка
func HandlePage(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withViewModel(ctx, b, callback, h, "appointments_page", func(hc *common.HandlerContext, vm *appointments.ViewModel) {
		page, err := strconv.Atoi(strings.TrimPrefix(callback.Data, common.ListPage))
		if err != nil {
			common.HandleError(hc, common.ErrInvalidFormat, "appointments_page")
			return
		}

		view := loadView(hc)
		view.Page = page
		showList(hc, vm, view)
		hc.Answer("")
	})
}

// HandleBackToList возвращает к списку с сохранёнными фильтром и страницей
func HandleBackToList(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withViewModel(ctx, b, callback, h, "appointments_list", func(hc *common.HandlerContext, vm *appointments.ViewModel) {
		showList(hc, vm, loadView(hc))
		hc.Answer("")
	})
}

// HandleRefresh перезагружает список с сервера
func HandleRefresh(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withViewModel(ctx, b, callback, h, "appointments_refresh", func(hc *common.HandlerContext, vm *appointments.ViewModel) {
		if err := vm.Load(hc.Ctx); err != nil {
			common.HandleServiceError(hc, err, "appointments_refresh")
			return
		}
		showList(hc, vm, loadView(hc))
		hc.Answer("🔄 Обновлено")
	})
}

// HandleSearch просит ввести строку поиска
func HandleSearch(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithSession(ctx, b, callback, h, func(hc *common.HandlerContext) {
		hc.SetState(state.StateAppointmentsSearch)
		if err := hc.SendMessage("🔍 Введите имя врача, специальность или статус.\n\n/cancel - отменить поиск", nil); err != nil {
			common.HandleError(hc, err, "appointments_search")
			return
		}
		hc.Answer("")
	})
}

// HandleSearchClear сбрасывает строку поиска
func HandleSearchClear(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withViewModel(ctx, b, callback, h, "appointments_search_clear", func(hc *common.HandlerContext, vm *appointments.ViewModel) {
		view := loadView(hc)
		view.Term = ""
		view.Page = 0
		showList(hc, vm, view)
		hc.Answer("")
	})
}

// HandleView показывает карточку записи
func HandleView(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withAppointment(ctx, b, callback, h, common.ListOpen, func(hc *common.HandlerContext, vm *appointments.ViewModel, a *model.Appointment) {
		text, kb := common.BuildAppointmentDetailScreen(a)
		if err := hc.EditMessage(text, kb); err != nil {
			common.HandleError(hc, err, "appointment_view")
			return
		}
		hc.Answer("")
	})
}

// HandleCancelAsk спрашивает подтверждение отмены
func HandleCancelAsk(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withAppointment(ctx, b, callback, h, common.ListCancel, func(hc *common.HandlerContext, vm *appointments.ViewModel, a *model.Appointment) {
		if !a.IsEditable() {
			hc.AnswerAlert(common.ErrorMessage(model.ErrNotEditable))
			return
		}

		text, kb := common.BuildCancelConfirmScreen(a)
		if err := hc.EditMessage(text, kb); err != nil {
			common.HandleError(hc, err, "appointment_cancel_ask")
			return
		}
		hc.Answer("")
	})
}

// HandleCancelConfirm отменяет запись, список перезагружается целиком
func HandleCancelConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withAppointment(ctx, b, callback, h, common.ListCancelYes, func(hc *common.HandlerContext, vm *appointments.ViewModel, a *model.Appointment) {
		updated, err := vm.Cancel(hc.Ctx, a.ID)
		if err != nil {
			common.HandleServiceError(hc, err, "appointment_cancel")
			return
		}

		text, kb := common.BuildAppointmentDetailScreen(updated)
		if err := hc.EditMessage(text, kb); err != nil {
			h.Logger.Warn("Failed to render cancelled appointment", zap.Error(err))
		}
		hc.Answer("🚫 Запись отменена")
	})
}

// HandleRescheduleStart показывает выбор новой даты
func HandleRescheduleStart(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withAppointment(ctx, b, callback, h, common.ListReschedule, func(hc *common.HandlerContext, vm *appointments.ViewModel, a *model.Appointment) {
		if !a.IsEditable() {
			hc.AnswerAlert(common.ErrorMessage(model.ErrNotEditable))
			return
		}

		text, kb := common.BuildRescheduleDateScreen(a, h.Now())
		if err := hc.EditMessage(text, kb); err != nil {
			common.HandleError(hc, err, "reschedule_start")
			return
		}
		hc.Answer("")
	})
}

// HandleRescheduleDate загружает свободное время врача на выбранную дату
func HandleRescheduleDate(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withViewModel(ctx, b, callback, h, "reschedule_date", func(hc *common.HandlerContext, vm *appointments.ViewModel) {
		args, err := common.ParseCallbackArgs(callback.Data, common.ListRescheduleD, 2)
		if err != nil {
			common.HandleError(hc, err, "reschedule_date")
			return
		}
		id, err := parseInt64(args[0])
		if err != nil {
			common.HandleError(hc, err, "reschedule_date")
			return
		}
		date := args[1]

		slots, err := vm.SlotsFor(hc.Ctx, id, date)
		if err != nil {
			common.HandleServiceError(hc, err, "reschedule_date")
			return
		}

		a, ok := vm.Get(id)
		if !ok {
			hc.AnswerAlert(common.ErrorMessage(model.ErrAppointmentNotFound))
			return
		}

		text, kb := common.BuildRescheduleTimeScreen(a, date, slots)
		if err := hc.EditMessage(text, kb); err != nil {
			common.HandleError(hc, err, "reschedule_date")
			return
		}
		hc.Answer("")
	})
}

// HandleRescheduleTime переносит запись, список перезагружается целиком
func HandleRescheduleTime(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	withViewModel(ctx, b, callback, h, "reschedule_time", func(hc *common.HandlerContext, vm *appointments.ViewModel) {
		args, err := common.ParseCallbackArgs(callback.Data, common.ListRescheduleT, 3)
		if err != nil {
			common.HandleError(hc, err, "reschedule_time")
			return
		}
		id, err := parseInt64(args[0])
		if err != nil {
			common.HandleError(hc, err, "reschedule_time")
			return
		}
		slot, err := common.DecodeSlot(args[2])
		if err != nil {
			common.HandleError(hc, err, "reschedule_time")
			return
		}

		updated, err := vm.Reschedule(hc.Ctx, id, args[1], slot)
		if err != nil {
			common.HandleServiceError(hc, err, "reschedule_time")
			return
		}

		text, kb := common.BuildAppointmentDetailScreen(updated)
		if err := hc.EditMessage(text, kb); err != nil {
			h.Logger.Warn("Failed to render rescheduled appointment", zap.Error(err))
		}
		hc.Answer(fmt.Sprintf("🔁 Перенесено на %s", slot))
	})
}

// withAppointment находит запись из callback "prefix:id" в загруженном списке
func withAppointment(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *callbacktypes.Handler,
	prefix string,
	handler func(*common.HandlerContext, *appointments.ViewModel, *model.Appointment),
) {
	operation := strings.TrimSuffix(prefix, ":")
	withViewModel(ctx, b, callback, h, operation, func(hc *common.HandlerContext, vm *appointments.ViewModel) {
		id, err := parseInt64(strings.TrimPrefix(callback.Data, prefix))
		if err != nil {
			common.HandleError(hc, err, operation)
			return
		}

		a, ok := vm.Get(id)
		if !ok {
			hc.AnswerAlert(common.ErrorMessage(model.ErrAppointmentNotFound))
			return
		}
		handler(hc, vm, a)
	})
}
