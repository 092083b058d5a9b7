package common

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Константы размеров и отступов
const (
	imageWidth       = 1120
	imageHeight      = 760
	headerHeight     = 90
	leftLabelsWidth  = 70
	legendWidth      = 140
	dayPaddingX      = 6
	minSlotHeight    = 14.0
	slotBorderRadius = 6.0
	shadowOffset     = 3.0
	totalDaysInWeek  = 7
	hourPaddingTop   = 1
	hourPaddingBot   = 1
	defaultMinHour   = 8
	defaultMaxHour   = 18
)

// Масштаб встроенного шрифта 7x13
const (
	titleScale     = 2.0
	dayScale       = 1.6
	hourLabelScale = 1.3
	slotTextScale  = 1.2
	legendScale    = 1.1
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{60, 65, 70, 255}
	hourLabelColor   = color.RGBA{110, 115, 120, 255}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 230, 200, 255}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{228, 228, 228, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	scheduledColor  = color.RGBA{120, 170, 235, 255}
	pendingColor    = color.RGBA{250, 205, 100, 255}
	confirmedColor  = color.RGBA{133, 193, 85, 255}
	completedColor  = color.RGBA{175, 160, 220, 255}
	cancelledColor  = color.RGBA{190, 190, 190, 255}
	slotTextColor   = color.RGBA{20, 24, 28, 255}
	slotShadowColor = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 255}
)

// weekBounds содержит границы недели
type weekBounds struct {
	start time.Time
	end   time.Time // начало следующего понедельника
}

// hourRange содержит диапазон часов для отображения
type hourRange struct {
	start int
	end   int
	total int
}

// agendaLayout геометрия сетки
type agendaLayout struct {
	hours      hourRange
	dayWidth   int
	dayHeight  int
	cellHeight float64
}

func newAgendaLayout(hours hourRange) agendaLayout {
	dayHeight := imageHeight - headerHeight
	return agendaLayout{
		hours:      hours,
		dayWidth:   (imageWidth - leftLabelsWidth - legendWidth) / totalDaysInWeek,
		dayHeight:  dayHeight,
		cellHeight: float64(dayHeight) / float64(hours.total),
	}
}

func (l agendaLayout) dayX(dayIndex int) float64 {
	return float64(leftLabelsWidth + dayIndex*l.dayWidth)
}

func (l agendaLayout) hourY(hour float64) float64 {
	return float64(headerHeight) + (hour-float64(l.hours.start))*l.cellHeight
}

// WeekStart понедельник недели со сдвигом offset недель от даты t
func WeekStart(t time.Time, offset int) time.Time {
	return normalizeToWeekBounds(t).start.AddDate(0, 0, 7*offset)
}

// AppointmentsInWeek записи, которые начинаются в неделе weekStart
func AppointmentsInWeek(items []*model.Appointment, weekStart time.Time) []*model.Appointment {
	week := normalizeToWeekBounds(weekStart)
	result := make([]*model.Appointment, 0)
	for _, a := range items {
		start := a.StartTime.In(weekStart.Location())
		if !start.Before(week.start) && start.Before(week.end) {
			result = append(result, a)
		}
	}
	return result
}

// GenerateAgendaImage рисует неделю записей пациента: дни по колонкам,
// часы по строкам, записи раскрашены по статусу
func GenerateAgendaImage(weekStart time.Time, items []*model.Appointment, now time.Time) ([]byte, error) {
	loc := weekStart.Location()
	week := normalizeToWeekBounds(weekStart)
	today := normalizeToDay(now.In(loc))
	shouldHighlightToday := !today.Before(week.start) && today.Before(week.end)

	inWeek := AppointmentsInWeek(items, week.start)
	byDay := groupByDay(inWeek, loc)
	layout := newAgendaLayout(calculateHourRange(inWeek, loc))

	dc := createCanvas()
	drawHeader(dc, week)
	drawHourLabels(dc, layout)

	for dayIndex := 0; dayIndex < totalDaysInWeek; dayIndex++ {
		date := week.start.AddDate(0, 0, dayIndex)
		isToday := shouldHighlightToday && date.Equal(today)

		drawDayBackground(dc, layout, dayIndex, isToday)
		drawDayHeader(dc, layout, dayIndex, date)
		drawHourLines(dc, layout, dayIndex)
		for _, a := range byDay[date.Format("2006-01-02")] {
			drawAppointment(dc, layout, dayIndex, a, loc)
		}
	}

	if shouldHighlightToday {
		drawCurrentTimeLine(dc, layout, now.In(loc))
	}
	drawLegend(dc, layout)

	return encodeImage(dc)
}

// normalizeToWeekBounds нормализует дату к границам недели (Пн-Вс)
func normalizeToWeekBounds(date time.Time) weekBounds {
	normalized := normalizeToDay(date)

	daysSinceMonday := int(normalized.Weekday()) - 1
	if normalized.Weekday() == time.Sunday {
		daysSinceMonday = 6
	}

	start := normalized.AddDate(0, 0, -daysSinceMonday)
	return weekBounds{start: start, end: start.AddDate(0, 0, totalDaysInWeek)}
}

// normalizeToDay нормализует время к началу дня
func normalizeToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func groupByDay(items []*model.Appointment, loc *time.Location) map[string][]*model.Appointment {
	byDay := make(map[string][]*model.Appointment)
	for _, a := range items {
		key := a.StartTime.In(loc).Format("2006-01-02")
		byDay[key] = append(byDay[key], a)
	}
	return byDay
}

// calculateHourRange определяет диапазон часов для отображения
func calculateHourRange(items []*model.Appointment, loc *time.Location) hourRange {
	minHour := defaultMinHour
	maxHour := defaultMaxHour

	for _, a := range items {
		start := a.StartTime.In(loc)
		end := a.EndTime.In(loc)
		if end.Before(start) || !sameDay(start, end) {
			end = start.Add(model.AppointmentDuration)
		}

		endH := end.Hour()
		if end.Minute() > 0 {
			endH++
		}
		if start.Hour() < minHour {
			minHour = start.Hour()
		}
		if endH > maxHour {
			maxHour = endH
		}
	}

	startHour := minHour - hourPaddingTop
	endHour := maxHour + hourPaddingBot
	if startHour < 0 {
		startHour = 0
	}
	if endHour > 24 {
		endHour = 24
	}

	return hourRange{
		start: startHour,
		end:   endHour,
		total: endHour - startHour,
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// createCanvas создает новый контекст рисования с фоном
func createCanvas() *gg.Context {
	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)
	return dc
}

// drawLabel пишет текст встроенным шрифтом в заданном масштабе
func drawLabel(dc *gg.Context, text string, x, y, ax, ay, scale float64) {
	dc.Push()
	dc.Translate(x, y)
	dc.Scale(scale, scale)
	dc.DrawStringAnchored(text, 0, 0, ax, ay)
	dc.Pop()
}

// drawHeader рисует заголовок с диапазоном дат
func drawHeader(dc *gg.Context, week weekBounds) {
	last := week.end.AddDate(0, 0, -1)
	title := fmt.Sprintf("%s - %s", week.start.Format("02.01"), last.Format("02.01.2006"))

	dc.SetColor(textColor)
	drawLabel(dc, title, float64(leftLabelsWidth), float64(headerHeight)/4, 0, 0.5, titleScale)
}

// drawHourLabels рисует колонку с часами слева
func drawHourLabels(dc *gg.Context, l agendaLayout) {
	dc.SetColor(hourLabelColor)
	for h := l.hours.start; h <= l.hours.end; h++ {
		drawLabel(dc, fmt.Sprintf("%02d:00", h), float64(leftLabelsWidth)-8, l.hourY(float64(h)), 1, 0.35, hourLabelScale)
	}
}

// drawDayBackground рисует фон дня
func drawDayBackground(dc *gg.Context, l agendaLayout, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(l.dayX(dayIndex), float64(headerHeight), float64(l.dayWidth), float64(l.dayHeight))
	dc.Fill()
}

// drawDayHeader рисует день недели и дату
func drawDayHeader(dc *gg.Context, l agendaLayout, dayIndex int, date time.Time) {
	centerX := l.dayX(dayIndex) + float64(l.dayWidth)/2
	label := fmt.Sprintf("%s %s", date.Weekday().String()[:3], date.Format("02.01"))

	dc.SetColor(textColor)
	drawLabel(dc, label, centerX, float64(headerHeight)-14, 0.5, 0, dayScale)
}

// drawHourLines рисует горизонтальные линии часов
func drawHourLines(dc *gg.Context, l agendaLayout, dayIndex int) {
	x := l.dayX(dayIndex)
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for h := l.hours.start; h <= l.hours.end; h++ {
		y := l.hourY(float64(h))
		dc.DrawLine(x, y, x+float64(l.dayWidth), y)
		dc.Stroke()
	}
}

// appointmentRect прямоугольник записи в колонке дня
func appointmentRect(l agendaLayout, dayIndex int, a *model.Appointment, loc *time.Location) (x, y, w, h float64) {
	start := a.StartTime.In(loc)
	end := a.EndTime.In(loc)
	if !end.After(start) || !sameDay(start, end) {
		end = start.Add(model.AppointmentDuration)
	}

	startHour := float64(start.Hour()) + float64(start.Minute())/60.0
	endHour := float64(end.Hour()) + float64(end.Minute())/60.0

	x = l.dayX(dayIndex) + dayPaddingX
	y = l.hourY(startHour) + 2
	w = float64(l.dayWidth) - dayPaddingX*2
	h = (endHour-startHour)*l.cellHeight - 4
	if h < minSlotHeight {
		h = minSlotHeight
	}
	return x, y, w, h
}

// drawAppointment рисует одну запись
func drawAppointment(dc *gg.Context, l agendaLayout, dayIndex int, a *model.Appointment, loc *time.Location) {
	x, y, w, h := appointmentRect(l, dayIndex, a, loc)
	fillColor := statusColor(a.Status)

	// Тень
	dc.SetColor(slotShadowColor)
	dc.DrawRoundedRectangle(x+shadowOffset, y+shadowOffset, w, h, slotBorderRadius)
	dc.Fill()

	dc.SetColor(fillColor)
	dc.DrawRoundedRectangle(x, y, w, h, slotBorderRadius)
	dc.Fill()

	dc.SetColor(darkenColor(fillColor, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, y, w, h, slotBorderRadius)
	dc.Stroke()

	dc.SetColor(slotTextColor)
	drawLabel(dc, a.StartTime.In(loc).Format("15:04"), x+8, y+4, 0, 1, slotTextScale)
}

// statusColor возвращает цвет записи по её статусу
func statusColor(status model.AppointmentStatus) color.RGBA {
	switch status {
	case model.AppointmentStatusPending:
		return pendingColor
	case model.AppointmentStatusConfirmed:
		return confirmedColor
	case model.AppointmentStatusCompleted:
		return completedColor
	case model.AppointmentStatusCancelled:
		return cancelledColor
	default:
		return scheduledColor
	}
}

// darkenColor затемняет цвет на указанный множитель
func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// drawCurrentTimeLine рисует красную линию текущего времени
func drawCurrentTimeLine(dc *gg.Context, l agendaLayout, now time.Time) {
	currentHour := float64(now.Hour()) + float64(now.Minute())/60.0
	if currentHour < float64(l.hours.start) || currentHour > float64(l.hours.end) {
		return
	}

	y := l.hourY(currentHour)
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), y, l.dayX(totalDaysInWeek), y)
	dc.Stroke()
}

// drawLegend рисует легенду справа
func drawLegend(dc *gg.Context, l agendaLayout) {
	legendItems := []struct {
		Label string
		Clr   color.Color
	}{
		{"scheduled", scheduledColor},
		{"pending", pendingColor},
		{"confirmed", confirmedColor},
		{"completed", completedColor},
		{"cancelled", cancelledColor},
	}

	boxW := 20.0
	boxH := 14.0
	liX := l.dayX(totalDaysInWeek) + 12
	liY := float64(imageHeight) - float64(len(legendItems))*(boxH+12) - 20

	for _, item := range legendItems {
		dc.SetColor(item.Clr)
		dc.DrawRoundedRectangle(liX, liY, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(legendItemColor)
		drawLabel(dc, item.Label, liX+boxW+8, liY+boxH/2, 0, 0.35, legendScale)
		liY += boxH + 12
	}
}

// encodeImage кодирует изображение в PNG
func encodeImage(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
