package state

import "context"

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Вход в кабинет клиники
	StateLoginEmail    UserState = "login_email"
	StateLoginPassword UserState = "login_password"

	// Ввод причины визита в мастере записи
	StateBookingReason UserState = "booking_reason"

	// Поиск по списку записей
	StateAppointmentsSearch UserState = "appointments_search"
)

// Ключи временных данных
const (
	KeyLoginEmail         = "login_email"
	KeyAppointmentsFilter = "appointments_filter"
	KeyAppointmentsTerm   = "appointments_term"
	KeyAppointmentsPage   = "appointments_page"
)

// Store хранилище состояний диалогов. Данные хранятся строками,
// чтобы их можно было положить во внешнее хранилище.
type Store interface {
	GetState(ctx context.Context, telegramID int64) UserState
	SetState(ctx context.Context, telegramID int64, state UserState)
	GetData(ctx context.Context, telegramID int64, key string) (string, bool)
	SetData(ctx context.Context, telegramID int64, key string, value string)
	DeleteData(ctx context.Context, telegramID int64, key string)
	ClearState(ctx context.Context, telegramID int64)
	GetAllData(ctx context.Context, telegramID int64) map[string]string
}

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State UserState
	Data  map[string]string // Временные данные для текущего диалога
}
