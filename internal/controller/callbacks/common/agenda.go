package common

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/go-telegram/bot/models"
)

// Agenda картинка недели с подписью и навигацией
type Agenda struct {
	Image    []byte
	Caption  string
	Keyboard *models.InlineKeyboardMarkup
}

// BuildAgenda рисует неделю со сдвигом weekOffset от текущей
func BuildAgenda(items []*model.Appointment, now time.Time, weekOffset int) (*Agenda, error) {
	weekStart := WeekStart(now, weekOffset)

	image, err := GenerateAgendaImage(weekStart, items, now)
	if err != nil {
		return nil, fmt.Errorf("generate agenda image: %w", err)
	}

	return &Agenda{
		Image:    image,
		Caption:  BuildAgendaCaption(weekStart, len(AppointmentsInWeek(items, weekStart))),
		Keyboard: BuildAgendaKeyboard(weekOffset),
	}, nil
}
