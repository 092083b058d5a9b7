package model

import (
	"errors"
	"fmt"
)

var (
	// ErrIdentity сессия не привязана к пациенту
	ErrIdentity = errors.New("session has no patient id")
	// ErrStaleResponse ответ пришёл для выбора, который уже не актуален
	ErrStaleResponse = errors.New("stale response")
	// ErrNotEditable запись в конечном статусе нельзя переносить или отменять
	ErrNotEditable = errors.New("appointment is not editable")
	// ErrAppointmentNotFound записи нет в загруженном списке
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// ValidationError не заполнено или неверно поле, запрос не отправлялся
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError создаёт ошибку валидации поля
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation проверяет, что ошибка клиентской валидации
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
