package common

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/medbooking_bot/internal/apiclient"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/service/appointments"
	"github.com/Freeeeeet/medbooking_bot/internal/service/booking"
	"github.com/go-telegram/bot/models"
)

// DatePickerDays сколько дней вперёд предлагается для записи и переноса
const DatePickerDays = 8

const (
	datesPerRow = 4
	slotsPerRow = 4
)

// BuildMainMenuScreen формирует главное меню
func BuildMainMenuScreen(session *model.Session) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("🏥 <b>Главное меню</b>\n\n")

	if session == nil {
		sb.WriteString("Вы не вошли в кабинет клиники.\n/login - Войти\n/help - Справка")
		return sb.String(), nil
	}

	if session.DisplayName != "" {
		sb.WriteString(fmt.Sprintf("👤 %s\n\n", html.EscapeString(session.DisplayName)))
	}
	sb.WriteString("/book - Записаться к врачу\n" +
		"/myappointments - Мои записи\n" +
		"/agenda - Записи на неделю\n" +
		"/logout - Выйти")

	kb := keyboard.NewBuilder().
		Row(
			keyboard.Button("🩺 Записаться", MenuBook),
			keyboard.Button("📋 Мои записи", MenuList),
		).
		Build()

	return sb.String(), kb
}

// ========================
// Мастер записи
// ========================

// BuildSpecialtyScreen шаг 1: выбор специальности
func BuildSpecialtyScreen(st booking.State) (string, *models.InlineKeyboardMarkup) {
	b := keyboard.NewBuilder()

	if len(st.Specialties) == 0 {
		text := "🩺 <b>Запись к врачу</b> (шаг 1/3)\n\nВ клинике пока нет специальностей для записи."
		return text, b.Row(keyboard.CancelButton(BookCancel)).Build()
	}

	for _, s := range st.Specialties {
		b.Row(keyboard.Button("🏥 "+s.Name, fmt.Sprintf("%s%d", BookSpecialty, s.ID)))
	}
	b.Row(keyboard.CancelButton(BookCancel))

	return "🩺 <b>Запись к врачу</b> (шаг 1/3)\n\nВыберите специальность:", b.Build()
}

// BuildDoctorScreen шаг 2: выбор врача
func BuildDoctorScreen(st booking.State) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("🩺 <b>Запись к врачу</b> (шаг 2/3)\n\n")
	if st.Specialty != nil {
		sb.WriteString(fmt.Sprintf("🏥 Специальность: %s\n\n", html.EscapeString(st.Specialty.Name)))
	}

	b := keyboard.NewBuilder()
	if len(st.Doctors) == 0 {
		sb.WriteString("По этой специальности пока нет врачей. Выберите другую.")
	} else {
		sb.WriteString("Выберите врача:")
		for _, d := range st.Doctors {
			b.Row(keyboard.Button("👨‍⚕️ "+d.FullName, fmt.Sprintf("%s%d", BookDoctor, d.ID)))
		}
	}
	b.Row(keyboard.BackButton(BookBack), keyboard.CancelButton(BookCancel))

	return sb.String(), b.Build()
}

// BuildSlotScreen шаг 3: дата, время, причина и подтверждение
func BuildSlotScreen(st booking.State, today time.Time) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("🩺 <b>Запись к врачу</b> (шаг 3/3)\n\n")
	if st.Specialty != nil {
		sb.WriteString(fmt.Sprintf("🏥 Специальность: %s\n", html.EscapeString(st.Specialty.Name)))
	}
	if st.Doctor != nil {
		sb.WriteString(fmt.Sprintf("👨‍⚕️ Врач: %s\n", html.EscapeString(st.Doctor.FullName)))
	}
	sb.WriteString(fmt.Sprintf("📅 Дата: %s\n", displayDate(st.Date)))
	if st.Time != "" {
		sb.WriteString(fmt.Sprintf("🕐 Время: %s\n", st.Time))
	} else {
		sb.WriteString("🕐 Время: не выбрано\n")
	}
	if st.Reason != "" {
		sb.WriteString(fmt.Sprintf("📝 Причина: %s\n", html.EscapeString(st.Reason)))
	} else {
		sb.WriteString(fmt.Sprintf("📝 Причина: %s (по умолчанию)\n", booking.DefaultReason))
	}
	sb.WriteString("\n")

	switch {
	case st.SlotsLoading:
		sb.WriteString("⏳ Загружаем свободное время...")
	case len(st.Slots) == 0:
		sb.WriteString("На эту дату свободного времени нет. Выберите другой день.")
	case st.Time == "":
		sb.WriteString(fmt.Sprintf("%d %s. Выберите время:", len(st.Slots), formatting.PluralizeSlots(len(st.Slots))))
	default:
		sb.WriteString("Проверьте данные и подтвердите запись.")
	}

	b := keyboard.NewBuilder()
	b.Grid(datesPerRow, dateButtons(today, st.Date, func(date string) string {
		return BookDate + date
	})...)

	if !st.SlotsLoading {
		slots := make([]models.InlineKeyboardButton, 0, len(st.Slots))
		for _, slot := range st.Slots {
			label := slot
			if slot == st.Time {
				label = "✅ " + slot
			}
			slots = append(slots, keyboard.Button(label, BookTime+EncodeSlot(slot)))
		}
		b.Grid(slotsPerRow, slots...)
	}

	b.Row(keyboard.Button("📝 Причина визита", BookReason))
	if st.CanConfirm() {
		b.Row(keyboard.ConfirmButton(BookConfirm))
	}
	b.Row(keyboard.BackButton(BookBack), keyboard.CancelButton(BookCancel))

	return sb.String(), b.Build()
}

// BuildBookingDoneScreen итог успешной записи. st - выбор до подтверждения.
func BuildBookingDoneScreen(a *model.Appointment, st booking.State) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("✅ <b>Вы записаны!</b>\n\n")
	if st.Doctor != nil {
		sb.WriteString(fmt.Sprintf("👨‍⚕️ Врач: %s\n", html.EscapeString(st.Doctor.FullName)))
	}
	sb.WriteString(fmt.Sprintf("📅 %s, %s\n",
		formatting.FormatDateWithWeekday(a.StartTime),
		formatting.FormatTimeRange(a.StartTime, a.EndTime)))
	if a.Reason != "" {
		sb.WriteString(fmt.Sprintf("📝 Причина: %s\n", html.EscapeString(a.Reason)))
	}
	display := formatting.GetAppointmentStatusDisplay(a.Status)
	sb.WriteString(fmt.Sprintf("📊 Статус: %s %s", display.Emoji, display.Text))

	kb := keyboard.NewBuilder().
		Row(
			keyboard.Button("📋 Мои записи", MenuList),
			keyboard.Button("🩺 Записаться ещё", MenuBook),
		).
		Build()

	return sb.String(), kb
}

// ========================
// Список записей
// ========================

// ListView параметры отображения списка
type ListView struct {
	Filter appointments.Filter
	Term   string
	Page   int
}

// FilterLabel название фильтра для кнопок
func FilterLabel(f appointments.Filter) string {
	switch f {
	case appointments.FilterActive:
		return "Активные"
	case appointments.FilterPending:
		return "Ожидают"
	case appointments.FilterCompleted:
		return "Завершённые"
	case appointments.FilterCancelled:
		return "Отменённые"
	default:
		return "Все"
	}
}

// BuildAppointmentsScreen формирует страницу списка записей
func BuildAppointmentsScreen(page appointments.Page, view ListView) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("📋 <b>Мои записи</b>\n\n")
	sb.WriteString(fmt.Sprintf("Фильтр: %s", FilterLabel(view.Filter)))
	if view.Term != "" {
		sb.WriteString(fmt.Sprintf(" · Поиск: «%s»", html.EscapeString(view.Term)))
	}
	sb.WriteString("\n")

	if page.TotalItems == 0 {
		sb.WriteString("\nЗаписей не найдено.")
	} else {
		sb.WriteString(fmt.Sprintf("Найдено: %d %s\n\n", page.TotalItems, formatting.PluralizeAppointments(page.TotalItems)))
		offset := page.Number * appointments.PageSize
		for i, a := range page.Items {
			sb.WriteString(fmt.Sprintf("%d. %s\n", offset+i+1, appointmentLine(a)))
		}
	}

	b := keyboard.NewBuilder()

	filters := make([]models.InlineKeyboardButton, 0, len(appointments.Filters))
	for _, f := range appointments.Filters {
		label := FilterLabel(f)
		if f == view.Filter {
			label = "• " + label
		}
		filters = append(filters, keyboard.Button(label, ListFilter+string(f)))
	}
	b.Grid(3, filters...)

	for _, a := range page.Items {
		display := formatting.GetAppointmentStatusDisplay(a.Status)
		b.Row(keyboard.Button(
			fmt.Sprintf("%s %s", display.Emoji, formatting.FormatDateTime(a.StartTime)),
			fmt.Sprintf("%s%d", ListOpen, a.ID),
		))
	}

	b.AddPagination(ListPage, page.Number, page.TotalPages)

	if view.Term != "" {
		b.Row(keyboard.Button("✖️ Сбросить поиск", ListSearchClear), keyboard.Button("🔄 Обновить", ListRefresh))
	} else {
		b.Row(keyboard.Button("🔍 Поиск", ListSearch), keyboard.Button("🔄 Обновить", ListRefresh))
	}
	b.Row(keyboard.Button("🗓 Неделя картинкой", ListAgenda+"0"))
	b.AddBackToMainButton()

	return sb.String(), b.Build()
}

// BuildAppointmentDetailScreen карточка записи
func BuildAppointmentDetailScreen(a *model.Appointment) (string, *models.InlineKeyboardMarkup) {
	if a == nil {
		kb := keyboard.NewBuilder().AddBackButton(ListBack).Build()
		return "❌ Запись не найдена. Вернитесь к списку и обновите его.", kb
	}

	display := formatting.GetAppointmentStatusDisplay(a.Status)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>Запись #%d</b>\n\n", display.Emoji, a.ID))
	if a.DoctorName != "" {
		sb.WriteString(fmt.Sprintf("👨‍⚕️ Врач: %s\n", html.EscapeString(a.DoctorName)))
	}
	if a.SpecialtyName != "" {
		sb.WriteString(fmt.Sprintf("🏥 Специальность: %s\n", html.EscapeString(a.SpecialtyName)))
	}
	sb.WriteString(fmt.Sprintf("📅 %s, %s\n",
		formatting.FormatDateWithWeekday(a.StartTime),
		formatting.FormatTimeRange(a.StartTime, a.EndTime)))
	if a.Reason != "" {
		sb.WriteString(fmt.Sprintf("📝 Причина: %s\n", html.EscapeString(a.Reason)))
	}
	if a.Notes != "" {
		sb.WriteString(fmt.Sprintf("🗒 Заметки: %s\n", html.EscapeString(a.Notes)))
	}
	sb.WriteString(fmt.Sprintf("📊 Статус: %s", display.Text))

	b := keyboard.NewBuilder()
	if a.IsEditable() {
		b.Row(
			keyboard.Button("🔁 Перенести", fmt.Sprintf("%s%d", ListReschedule, a.ID)),
			keyboard.Button("🚫 Отменить", fmt.Sprintf("%s%d", ListCancel, a.ID)),
		)
	}
	b.AddBackButton(ListBack)

	return sb.String(), b.Build()
}

// BuildCancelConfirmScreen запрос подтверждения отмены
func BuildCancelConfirmScreen(a *model.Appointment) (string, *models.InlineKeyboardMarkup) {
	text := fmt.Sprintf("🚫 <b>Отменить запись?</b>\n\n%s\n\nОтменённую запись нельзя восстановить.", appointmentLine(a))

	kb := keyboard.NewBuilder().
		Row(keyboard.YesNoButtons(
			fmt.Sprintf("%s%d", ListCancelYes, a.ID),
			fmt.Sprintf("%s%d", ListOpen, a.ID),
		)...).
		Build()

	return text, kb
}

// BuildRescheduleDateScreen выбор новой даты для переноса
func BuildRescheduleDateScreen(a *model.Appointment, today time.Time) (string, *models.InlineKeyboardMarkup) {
	text := fmt.Sprintf("🔁 <b>Перенос записи</b>\n\n%s\n\nВыберите новую дату:", appointmentLine(a))

	b := keyboard.NewBuilder()
	b.Grid(datesPerRow, dateButtons(today, "", func(date string) string {
		return fmt.Sprintf("%s%d:%s", ListRescheduleD, a.ID, date)
	})...)
	b.AddBackButton(fmt.Sprintf("%s%d", ListOpen, a.ID))

	return text, b.Build()
}

// BuildRescheduleTimeScreen выбор нового времени для переноса
func BuildRescheduleTimeScreen(a *model.Appointment, date string, slots []string) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔁 <b>Перенос записи</b>\n\n%s\n\n📅 Новая дата: %s\n\n", appointmentLine(a), displayDate(date)))

	b := keyboard.NewBuilder()
	if len(slots) == 0 {
		sb.WriteString("На эту дату свободного времени нет. Выберите другой день.")
	} else {
		sb.WriteString("Выберите время:")
		buttons := make([]models.InlineKeyboardButton, 0, len(slots))
		for _, slot := range slots {
			buttons = append(buttons, keyboard.Button(slot,
				fmt.Sprintf("%s%d:%s:%s", ListRescheduleT, a.ID, date, EncodeSlot(slot))))
		}
		b.Grid(slotsPerRow, buttons...)
	}
	b.AddBackButton(fmt.Sprintf("%s%d", ListReschedule, a.ID))

	return sb.String(), b.Build()
}

// BuildAgendaCaption подпись к картинке недели
func BuildAgendaCaption(weekStart time.Time, count int) string {
	weekEnd := weekStart.AddDate(0, 0, 6)
	return fmt.Sprintf("🗓 <b>Записи на неделю</b> %s - %s\n%d %s",
		weekStart.Format("02.01"), weekEnd.Format("02.01.2006"),
		count, formatting.PluralizeAppointments(count))
}

// BuildAgendaKeyboard навигация по неделям
func BuildAgendaKeyboard(weekOffset int) *models.InlineKeyboardMarkup {
	return keyboard.NewBuilder().
		Row(keyboard.WeekPagination(ListAgenda, weekOffset)...).
		Row(keyboard.Button("📋 К списку", ListBack)).
		Build()
}

func appointmentLine(a *model.Appointment) string {
	display := formatting.GetAppointmentStatusDisplay(a.Status)
	line := fmt.Sprintf("%s %s", display.Emoji, formatting.FormatDateTime(a.StartTime))
	if a.DoctorName != "" {
		line += ", " + html.EscapeString(a.DoctorName)
	}
	if a.SpecialtyName != "" {
		line += fmt.Sprintf(" (%s)", html.EscapeString(a.SpecialtyName))
	}
	return line
}

// dateButtons кнопки ближайших дней начиная с today
func dateButtons(today time.Time, selected string, data func(date string) string) []models.InlineKeyboardButton {
	buttons := make([]models.InlineKeyboardButton, 0, DatePickerDays)
	for i := 0; i < DatePickerDays; i++ {
		day := today.AddDate(0, 0, i)
		date := day.Format(apiclient.DateLayout)
		label := formatting.FormatDayButton(day)
		if date == selected {
			label = "• " + label
		}
		buttons = append(buttons, keyboard.Button(label, data(date)))
	}
	return buttons
}

func displayDate(date string) string {
	if date == "" {
		return "не выбрана"
	}
	t, err := time.Parse(apiclient.DateLayout, date)
	if err != nil {
		return date
	}
	return formatting.FormatDateWithWeekday(t)
}
