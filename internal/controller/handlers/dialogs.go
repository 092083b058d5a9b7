package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/medbooking_bot/internal/apiclient"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Ограничения текстового ввода
const (
	ReasonMaxLength     = 250
	SearchTermMaxLength = 100
)

// HandleTextMessage обрабатывает текстовые сообщения в зависимости от состояния пользователя
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	// Игнорируем команды (они обрабатываются другими handlers)
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(ctx, telegramID)

	// Текст не логируем: в диалоге входа это пароль
	h.logger.Debug("HandleTextMessage called",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(currentState)))

	switch currentState {
	case state.StateNone:
		return
	case state.StateLoginEmail:
		h.handleLoginEmail(ctx, b, update)
	case state.StateLoginPassword:
		h.handleLoginPassword(ctx, b, update)
	case state.StateBookingReason:
		h.handleBookingReason(ctx, b, update)
	case state.StateAppointmentsSearch:
		h.handleAppointmentsSearch(ctx, b, update)
	default:
		h.logger.Warn("Unknown state", zap.String("state", string(currentState)))
	}
}

// handleLoginEmail шаг 1 входа: email
func (h *Handlers) handleLoginEmail(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	email := strings.TrimSpace(update.Message.Text)

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Это не похоже на email. Попробуйте ещё раз или /cancel")
		return
	}

	h.stateManager.SetData(ctx, telegramID, state.KeyLoginEmail, email)
	h.stateManager.SetState(ctx, telegramID, state.StateLoginPassword)

	h.sendMessage(ctx, b, update.Message.Chat.ID, "🔑 Введите пароль.\n\nСообщение с паролем будет удалено из чата.")
}

// handleLoginPassword шаг 2 входа: пароль и открытие сессии
func (h *Handlers) handleLoginPassword(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	password := update.Message.Text

	// Пароль не должен оставаться в истории чата
	if _, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: update.Message.ID,
	}); err != nil {
		h.logger.Warn("Failed to delete password message", zap.Int64("telegram_id", telegramID), zap.Error(err))
	}

	email, ok := h.stateManager.GetData(ctx, telegramID, state.KeyLoginEmail)
	if !ok {
		h.stateManager.ClearState(ctx, telegramID)
		h.sendError(ctx, b, chatID, "❌ Сессия входа устарела. Начните заново: /login")
		return
	}

	session, err := h.sessionService.Login(ctx, telegramID, email, password)
	if err != nil {
		h.logger.Warn("Login failed", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.stateManager.ClearState(ctx, telegramID)
		h.sendError(ctx, b, chatID, loginErrorMessage(err))
		return
	}

	h.forgetUser(ctx, telegramID)

	text := fmt.Sprintf("✅ Вы вошли как %s.\n\n", html.EscapeString(session.DisplayName))
	if !session.HasPatient() {
		text += "⚠️ Учётная запись не привязана к пациенту: записываться к врачу нельзя.\n\n"
	}
	menuText, kb := common.BuildMainMenuScreen(session)
	h.sendScreen(ctx, b, chatID, text+menuText, kb)
}

func loginErrorMessage(err error) string {
	var transport *apiclient.TransportError
	if errors.As(err, &transport) && transport.StatusCode >= 400 && transport.StatusCode < 500 {
		return "❌ Неверный email или пароль.\n\nПопробовать снова: /login"
	}
	return common.ErrorMessage(err) + "\n\nПопробовать снова: /login"
}

// handleBookingReason причина визита для мастера записи
func (h *Handlers) handleBookingReason(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	reason := strings.TrimSpace(update.Message.Text)

	if utf8.RuneCountInString(reason) > ReasonMaxLength {
		h.sendError(ctx, b, chatID, fmt.Sprintf("❌ Слишком длинно. Максимум %d символов.", ReasonMaxLength))
		return
	}

	h.stateManager.SetState(ctx, telegramID, state.StateNone)

	w, ok := h.booking.Get(telegramID)
	if !ok {
		h.sendError(ctx, b, chatID, common.ErrorMessage(common.ErrWizardClosed))
		return
	}

	w.SetReason(reason)
	text, kb := common.BuildSlotScreen(w.Snapshot(), h.now())
	h.sendScreen(ctx, b, chatID, text, kb)
}

// handleAppointmentsSearch строка поиска по списку записей
func (h *Handlers) handleAppointmentsSearch(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	term := strings.TrimSpace(update.Message.Text)

	if utf8.RuneCountInString(term) > SearchTermMaxLength {
		h.sendError(ctx, b, chatID, fmt.Sprintf("❌ Слишком длинный запрос. Максимум %d символов.", SearchTermMaxLength))
		return
	}

	h.stateManager.SetState(ctx, telegramID, state.StateNone)

	session, ok := h.requireSession(ctx, b, update)
	if !ok {
		return
	}
	vm, err := h.openAppointments(ctx, b, chatID, session, false)
	if err != nil {
		return
	}

	view := common.LoadListView(ctx, h.stateManager, telegramID)
	view.Term = term
	view.Page = 0
	common.SaveListView(ctx, h.stateManager, telegramID, view)

	text, kb := common.BuildAppointmentsScreen(vm.Page(view.Filter, view.Term, view.Page), view)
	h.sendScreen(ctx, b, chatID, text, kb)
}
