package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
	"github.com/Freeeeeet/medbooking_bot/internal/service/appointments"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	user := update.Message.From

	// Регистрируем пользователя
	registeredUser, err := h.userService.RegisterUser(
		ctx,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
	)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Здравствуйте, %s!\n\n"+
			"Это бот записи к врачам клиники. Здесь можно выбрать специальность и врача, "+
			"записаться на свободное время, перенести или отменить запись.\n\n",
		html.EscapeString(registeredUser.FirstName),
	)

	session, err := h.sessionService.Resolve(ctx, user.ID)
	if err != nil && !errors.Is(err, service.ErrNotLoggedIn) {
		h.logger.Error("Failed to resolve session", zap.Int64("telegram_id", user.ID), zap.Error(err))
	}
	if session == nil {
		welcomeText += "Для начала войдите в кабинет пациента: /login"
		h.sendScreen(ctx, b, update.Message.Chat.ID, welcomeText, nil)
		return
	}

	menuText, kb := common.BuildMainMenuScreen(session)
	h.sendScreen(ctx, b, update.Message.Chat.ID, welcomeText+menuText, kb)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := "📚 Справка по командам:\n\n" +
		"/start - Начать работу с ботом\n" +
		"/login - Войти в кабинет пациента\n" +
		"/logout - Выйти из кабинета\n" +
		"/book - Записаться к врачу\n" +
		"/myappointments - Мои записи: фильтры, поиск, перенос и отмена\n" +
		"/agenda - Записи на неделю картинкой\n" +
		"/cancel - Отменить текущее действие\n" +
		"/help - Показать эту справку\n\n" +
		"Запись к врачу: специальность → врач → дата и время → подтверждение. " +
		"Приём длится 30 минут."

	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleLogin начинает вход: email, затем пароль
func (h *Handlers) HandleLogin(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	session, err := h.sessionService.Resolve(ctx, telegramID)
	if err != nil && !errors.Is(err, service.ErrNotLoggedIn) {
		h.logger.Error("Failed to resolve session", zap.Int64("telegram_id", telegramID), zap.Error(err))
	}
	if session != nil {
		h.sendMessage(ctx, b, update.Message.Chat.ID,
			fmt.Sprintf("ℹ️ Вы уже вошли как %s.\n\nСменить пользователя: /logout, затем /login", session.DisplayName))
		return
	}

	h.stateManager.ClearState(ctx, telegramID)
	h.stateManager.SetState(ctx, telegramID, state.StateLoginEmail)

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"🔐 Вход в кабинет пациента\n\nВведите email, указанный в клинике:\n\n/cancel - отменить вход")
}

// HandleLogout обрабатывает команду /logout
func (h *Handlers) HandleLogout(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	err := h.sessionService.Logout(ctx, telegramID)
	if errors.Is(err, service.ErrNotLoggedIn) {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "ℹ️ Вы не входили в кабинет. Войти: /login")
		return
	}
	if err != nil {
		h.logger.Error("Failed to logout", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не удалось выйти. Попробуйте позже.")
		return
	}

	h.forgetUser(ctx, telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "👋 Вы вышли из кабинета.\n\nВойти снова: /login")
}

// HandleBook запускает мастер записи к врачу
func (h *Handlers) HandleBook(ctx context.Context, b *bot.Bot, update *models.Update) {
	session, ok := h.requireSession(ctx, b, update)
	if !ok {
		return
	}

	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	if h.stateManager.GetState(ctx, telegramID) == state.StateBookingReason {
		h.stateManager.SetState(ctx, telegramID, state.StateNone)
	}

	w := h.booking.Begin(telegramID, h.sessionService.Client(session), session, h.notifier(b, chatID))
	if err := w.Start(ctx); err != nil {
		h.logger.Warn("Failed to start booking", zap.Int64("telegram_id", telegramID), zap.Error(err))
		if !common.ReportedByService(err) {
			h.sendError(ctx, b, chatID, common.ErrorMessage(err))
		}
		return
	}

	text, kb := common.BuildSpecialtyScreen(w.Snapshot())
	h.sendScreen(ctx, b, chatID, text, kb)
}

// HandleMyAppointments открывает список записей пациента
func (h *Handlers) HandleMyAppointments(ctx context.Context, b *bot.Bot, update *models.Update) {
	session, ok := h.requireSession(ctx, b, update)
	if !ok {
		return
	}

	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	vm, err := h.openAppointments(ctx, b, chatID, session, true)
	if err != nil {
		return
	}

	common.ResetListView(ctx, h.stateManager, telegramID)
	view := common.ListView{Filter: appointments.FilterAll}
	text, kb := common.BuildAppointmentsScreen(vm.Page(view.Filter, view.Term, 0), view)
	h.sendScreen(ctx, b, chatID, text, kb)
}

// HandleAgenda показывает текущую неделю записей картинкой
func (h *Handlers) HandleAgenda(ctx context.Context, b *bot.Bot, update *models.Update) {
	session, ok := h.requireSession(ctx, b, update)
	if !ok {
		return
	}

	chatID := update.Message.Chat.ID
	vm, err := h.openAppointments(ctx, b, chatID, session, false)
	if err != nil {
		return
	}

	agenda, err := common.BuildAgenda(vm.Items(), h.now(), 0)
	if err != nil {
		h.logger.Error("Failed to build agenda", zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Не удалось нарисовать неделю")
		return
	}
	h.sendPhoto(ctx, b, chatID, agenda.Image, agenda.Caption, agenda.Keyboard)
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(ctx, telegramID)
	_, wizardOpen := h.booking.Get(telegramID)

	if currentState == state.StateNone && !wizardOpen {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.")
		return
	}

	// Ввод причины возвращает к мастеру, остальное отменяется целиком
	if currentState == state.StateBookingReason {
		h.stateManager.SetState(ctx, telegramID, state.StateNone)
		h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Ввод причины отменён. Продолжите запись кнопками выше.")
		return
	}

	if currentState == state.StateNone || currentState == state.StateAppointmentsSearch {
		h.stateManager.SetState(ctx, telegramID, state.StateNone)
	} else {
		h.stateManager.ClearState(ctx, telegramID)
	}
	h.booking.Finish(telegramID)

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"✅ Операция отменена.\n\nИспользуйте /help для просмотра доступных команд.")
}

// openAppointments возвращает список записей, при reload загружает его заново
func (h *Handlers) openAppointments(ctx context.Context, b *bot.Bot, chatID int64, session *model.Session, reload bool) (*appointments.ViewModel, error) {
	if !reload {
		if vm, ok := h.appointments.Get(session.TelegramID); ok && vm.Loaded() {
			return vm, nil
		}
	}

	vm := h.appointments.Open(session.TelegramID, h.sessionService.Client(session), session, h.notifier(b, chatID))
	if err := vm.Load(ctx); err != nil {
		h.logger.Warn("Failed to load appointments", zap.Int64("telegram_id", session.TelegramID), zap.Error(err))
		return nil, err
	}
	return vm, nil
}

// forgetUser закрывает мастер, список и диалоги пользователя
func (h *Handlers) forgetUser(ctx context.Context, telegramID int64) {
	h.booking.Finish(telegramID)
	h.appointments.Drop(telegramID)
	h.stateManager.ClearState(ctx, telegramID)
}
