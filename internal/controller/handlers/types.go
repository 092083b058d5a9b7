package handlers

import (
	"time"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
	"github.com/Freeeeeet/medbooking_bot/internal/service/appointments"
	"github.com/Freeeeeet/medbooking_bot/internal/service/booking"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService    *service.UserService
	sessionService *service.SessionService
	booking        *booking.Manager
	appointments   *appointments.Manager
	stateManager   state.Store
	location       *time.Location
	logger         *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	userService *service.UserService,
	sessionService *service.SessionService,
	bookingManager *booking.Manager,
	appointmentsManager *appointments.Manager,
	stateManager state.Store,
	location *time.Location,
	logger *zap.Logger,
) *Handlers {
	if location == nil {
		location = time.Local
	}
	return &Handlers{
		userService:    userService,
		sessionService: sessionService,
		booking:        bookingManager,
		appointments:   appointmentsManager,
		stateManager:   stateManager,
		location:       location,
		logger:         logger,
	}
}

func (h *Handlers) now() time.Time {
	return time.Now().In(h.location)
}
