package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized бэкенд отклонил токен сессии (HTTP 401)
var ErrUnauthorized = errors.New("unauthorized")

// TransportError сетевая ошибка или ответ бэкенда с кодом не 2xx
type TransportError struct {
	Op         string
	StatusCode int // 0 - ответ не получен
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать 401 через errors.Is(err, ErrUnauthorized)
func (e *TransportError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// retryable ошибки сети и 5xx можно повторить для идемпотентных запросов
func (e *TransportError) retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= http.StatusInternalServerError
}
