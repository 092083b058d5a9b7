package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Freeeeeet/medbooking_bot/internal/apiclient"
	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
	"github.com/Freeeeeet/medbooking_bot/internal/service/booking"
)

// Общие ошибки для обработчиков
var (
	ErrNoMessage     = errors.New("no message in callback")
	ErrInvalidFormat = errors.New("invalid callback format")
	ErrWizardClosed  = errors.New("booking wizard is not open")
)

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	var validation *model.ValidationError
	var transport *apiclient.TransportError

	switch {
	case errors.Is(err, ErrNoMessage):
		return "❌ Ошибка обработки сообщения"
	case errors.Is(err, ErrInvalidFormat):
		return "❌ Неверный формат данных"
	case errors.Is(err, ErrWizardClosed):
		return "ℹ️ Запись не начата или уже завершена. Начните заново: /book"
	case errors.Is(err, service.ErrNotLoggedIn):
		return "🔐 Вы не вошли в кабинет клиники. Используйте /login"
	case errors.Is(err, apiclient.ErrUnauthorized):
		return "🔐 Сессия истекла. Войдите снова: /login"
	case errors.Is(err, model.ErrIdentity):
		return "❌ Учётная запись не привязана к пациенту. Записываться к врачу может только пациент."
	case errors.Is(err, model.ErrStaleResponse):
		return "⌛ Данные устарели, выберите ещё раз"
	case errors.Is(err, model.ErrNotEditable):
		return "❌ Эту запись уже нельзя изменить"
	case errors.Is(err, model.ErrAppointmentNotFound):
		return "❌ Запись не найдена. Обновите список"
	case errors.Is(err, booking.ErrConfirmInProgress):
		return "⏳ Запись уже создаётся, подождите"
	case errors.Is(err, booking.ErrFinished):
		return "ℹ️ Эта запись уже оформлена. Новая запись: /book"
	case errors.As(err, &validation):
		return validationMessage(validation)
	case errors.As(err, &transport):
		return transportMessage(transport)
	default:
		return "❌ Произошла ошибка"
	}
}

func validationMessage(err *model.ValidationError) string {
	switch err.Field {
	case "doctor":
		return "⚠️ Выберите врача"
	case "date":
		return "⚠️ Выберите корректную дату"
	case "time":
		return "⚠️ Выберите время приёма"
	default:
		return "⚠️ Проверьте введённые данные"
	}
}

func transportMessage(err *apiclient.TransportError) string {
	switch {
	case err.StatusCode == 0:
		return "📡 Сервер клиники недоступен. Попробуйте позже"
	case err.StatusCode >= http.StatusInternalServerError:
		return "❌ Ошибка на стороне клиники. Попробуйте позже"
	case err.Message != "":
		return fmt.Sprintf("❌ Клиника отклонила запрос: %s", err.Message)
	default:
		return "❌ Клиника отклонила запрос"
	}
}

// ReportedByService проверяет, что сервис уже сообщил об ошибке в чат.
// Устаревшие ответы и ошибки валидации сервисы не показывают.
func ReportedByService(err error) bool {
	return !errors.Is(err, model.ErrStaleResponse) &&
		!model.IsValidation(err) &&
		!errors.Is(err, booking.ErrConfirmInProgress) &&
		!errors.Is(err, booking.ErrFinished)
}
