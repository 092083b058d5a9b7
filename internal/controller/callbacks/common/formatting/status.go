package formatting

import "github.com/Freeeeeet/medbooking_bot/internal/model"

// AppointmentStatusDisplay представляет отображение статуса записи
type AppointmentStatusDisplay struct {
	Emoji string
	Text  string
}

// GetAppointmentStatusDisplay возвращает emoji и текст для статуса записи
func GetAppointmentStatusDisplay(status model.AppointmentStatus) AppointmentStatusDisplay {
	emojis := map[model.AppointmentStatus]string{
		model.AppointmentStatusScheduled: "🗓",
		model.AppointmentStatusPending:   "⏳",
		model.AppointmentStatusConfirmed: "✅",
		model.AppointmentStatusCompleted: "✔️",
		model.AppointmentStatusCancelled: "❌",
	}

	if emoji, ok := emojis[status]; ok {
		return AppointmentStatusDisplay{Emoji: emoji, Text: status.Label()}
	}

	return AppointmentStatusDisplay{"❓", status.Label()}
}
