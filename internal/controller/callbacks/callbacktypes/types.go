package callbacktypes

import (
	"context"
	"time"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
	"github.com/Freeeeeet/medbooking_bot/internal/service/appointments"
	"github.com/Freeeeeet/medbooking_bot/internal/service/booking"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Handler содержит общие зависимости для всех callback handlers
type Handler struct {
	UserService    *service.UserService
	SessionService *service.SessionService
	Booking        *booking.Manager
	Appointments   *appointments.Manager
	StateManager   state.Store
	Location       *time.Location
	Logger         *zap.Logger

	// Функции-хэндлеры из основного контроллера
	HandleBook           func(ctx context.Context, b *bot.Bot, update *models.Update)
	HandleMyAppointments func(ctx context.Context, b *bot.Bot, update *models.Update)
}

// Now текущее время в часовом поясе клиники
func (h *Handler) Now() time.Time {
	if h.Location == nil {
		return time.Now()
	}
	return time.Now().In(h.Location)
}
