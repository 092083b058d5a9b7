package common

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, time.UTC)
}

func appointmentAt(id int64, start time.Time, status model.AppointmentStatus) *model.Appointment {
	return &model.Appointment{
		ID:        id,
		StartTime: start,
		EndTime:   start.Add(model.AppointmentDuration),
		Status:    status,
	}
}

func TestWeekStart(t *testing.T) {
	sunday := at(15, 12, 0)
	assert.Equal(t, at(9, 0, 0), WeekStart(sunday, 0))
	assert.Equal(t, at(16, 0, 0), WeekStart(sunday, 1))
	assert.Equal(t, at(2, 0, 0), WeekStart(at(9, 8, 0), -1))
}

func TestAppointmentsInWeek(t *testing.T) {
	items := []*model.Appointment{
		appointmentAt(1, at(8, 23, 30), model.AppointmentStatusScheduled),
		appointmentAt(2, at(9, 0, 0), model.AppointmentStatusScheduled),
		appointmentAt(3, at(15, 23, 30), model.AppointmentStatusCancelled),
		appointmentAt(4, at(16, 0, 0), model.AppointmentStatusScheduled),
	}

	got := AppointmentsInWeek(items, at(9, 0, 0))
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}

func TestCalculateHourRange(t *testing.T) {
	empty := calculateHourRange(nil, time.UTC)
	assert.Equal(t, defaultMinHour-hourPaddingTop, empty.start)
	assert.Equal(t, defaultMaxHour+hourPaddingBot, empty.end)

	early := calculateHourRange([]*model.Appointment{
		appointmentAt(1, at(10, 6, 30), model.AppointmentStatusScheduled),
		appointmentAt(2, at(11, 19, 45), model.AppointmentStatusScheduled),
	}, time.UTC)
	assert.Equal(t, 5, early.start)
	assert.Equal(t, 22, early.end)
	assert.Equal(t, 17, early.total)
}

func TestGenerateAgendaImage_ColorsByStatus(t *testing.T) {
	weekStart := at(9, 0, 0)
	items := []*model.Appointment{
		appointmentAt(1, at(10, 10, 0), model.AppointmentStatusScheduled),
		appointmentAt(2, at(12, 15, 0), model.AppointmentStatusCancelled),
	}

	data, err := GenerateAgendaImage(weekStart, items, at(20, 9, 0))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, imageWidth, img.Bounds().Dx())
	assert.Equal(t, imageHeight, img.Bounds().Dy())

	layout := newAgendaLayout(calculateHourRange(items, time.UTC))
	pixelAt := func(dayIndex int, a *model.Appointment) color.RGBA {
		x, y, _, h := appointmentRect(layout, dayIndex, a, time.UTC)
		r, g, b, alpha := img.At(int(x)+3, int(y+h/2)).RGBA()
		return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(alpha >> 8)}
	}

	assert.Equal(t, scheduledColor, pixelAt(1, items[0]))
	assert.Equal(t, cancelledColor, pixelAt(3, items[1]))
}

func TestGenerateAgendaImage_EmptyWeek(t *testing.T) {
	data, err := GenerateAgendaImage(at(9, 0, 0), nil, at(11, 12, 0))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
