package common

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/service/appointments"
	"github.com/Freeeeeet/medbooking_bot/internal/service/booking"
)

func callbackData(kb *models.InlineKeyboardMarkup) []string {
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			data = append(data, btn.CallbackData)
		}
	}
	return data
}

func TestBuildSlotScreen(t *testing.T) {
	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	st := booking.State{
		Step:      booking.StepSlot,
		Specialty: &model.Specialty{ID: 1, Name: "Cardiología"},
		Doctor:    &model.Doctor{ID: 7, FullName: "Dra. Ana López"},
		Date:      "2026-03-10",
		Slots:     []string{"09:00", "09:30", "10:00"},
	}

	text, kb := BuildSlotScreen(st, today)
	data := callbackData(kb)

	assert.Contains(t, text, "Dra. Ana López")
	assert.Contains(t, text, booking.DefaultReason)
	assert.Contains(t, data, BookDate+"2026-03-10")
	assert.Contains(t, data, BookDate+"2026-03-17")
	assert.Contains(t, data, BookTime+"0930")
	assert.NotContains(t, data, BookConfirm)

	st.Time = "09:30"
	_, kb = BuildSlotScreen(st, today)
	assert.Contains(t, callbackData(kb), BookConfirm)
}

func TestBuildSlotScreen_Loading(t *testing.T) {
	st := booking.State{
		Step:         booking.StepSlot,
		Doctor:       &model.Doctor{ID: 7, FullName: "Dr. Ruiz"},
		Date:         "2026-03-11",
		SlotsLoading: true,
	}

	text, kb := BuildSlotScreen(st, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, text, "Загружаем")
	for _, d := range callbackData(kb) {
		assert.NotContains(t, d, BookTime)
	}
}

func TestBuildAppointmentsScreen(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	items := make([]*model.Appointment, 0, appointments.PageSize)
	for i := 0; i < appointments.PageSize; i++ {
		items = append(items, &model.Appointment{
			ID:         int64(100 + i),
			StartTime:  start.Add(time.Duration(i) * time.Hour),
			EndTime:    start.Add(time.Duration(i)*time.Hour + model.AppointmentDuration),
			Status:     model.AppointmentStatusScheduled,
			DoctorName: "Dr. <Ruiz>",
		})
	}
	page := appointments.Page{Items: items, Number: 1, TotalPages: 3, TotalItems: 12}

	text, kb := BuildAppointmentsScreen(page, ListView{Filter: appointments.FilterActive, Term: "ruiz"})
	data := callbackData(kb)

	assert.Contains(t, text, "6. ")
	assert.Contains(t, text, "Dr. &lt;Ruiz&gt;")
	assert.Contains(t, text, "«ruiz»")
	assert.Contains(t, data, fmt.Sprintf("%s%d", ListOpen, 100))
	assert.Contains(t, data, ListPage+"0")
	assert.Contains(t, data, ListPage+"2")
	assert.Contains(t, data, ListSearchClear)
	assert.Contains(t, data, ListFilter+string(appointments.FilterCancelled))
}

func TestBuildAppointmentDetailScreen(t *testing.T) {
	a := &model.Appointment{
		ID:        5,
		StartTime: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		Status:    model.AppointmentStatusConfirmed,
	}

	_, kb := BuildAppointmentDetailScreen(a)
	data := callbackData(kb)
	assert.Contains(t, data, ListReschedule+"5")
	assert.Contains(t, data, ListCancel+"5")

	a.Status = model.AppointmentStatusCancelled
	_, kb = BuildAppointmentDetailScreen(a)
	data = callbackData(kb)
	assert.NotContains(t, data, ListReschedule+"5")
	assert.NotContains(t, data, ListCancel+"5")
	assert.Contains(t, data, ListBack)
}

func TestBuildAppointmentDetailScreen_Missing(t *testing.T) {
	text, kb := BuildAppointmentDetailScreen(nil)
	assert.Contains(t, text, "Запись не найдена")
	assert.Equal(t, []string{ListBack}, callbackData(kb))
}

func TestBuildRescheduleTimeScreen(t *testing.T) {
	a := &model.Appointment{ID: 9, Status: model.AppointmentStatusScheduled}

	_, kb := BuildRescheduleTimeScreen(a, "2026-03-12", []string{"11:00"})
	require.NotNil(t, kb)
	assert.Contains(t, callbackData(kb), ListRescheduleT+"9:2026-03-12:1100")

	text, _ := BuildRescheduleTimeScreen(a, "2026-03-12", nil)
	assert.Contains(t, text, "свободного времени нет")
}
