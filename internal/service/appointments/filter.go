package appointments

import (
	"strings"

	"github.com/Freeeeeet/medbooking_bot/internal/model"
)

// Filter фильтр списка записей по статусу
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
	FilterCancelled Filter = "cancelled"
)

// Filters все фильтры в порядке отображения
var Filters = []Filter{FilterAll, FilterActive, FilterPending, FilterCompleted, FilterCancelled}

// ParseFilter разбирает фильтр, неизвестное значение означает "все"
func ParseFilter(s string) Filter {
	for _, f := range Filters {
		if string(f) == s {
			return f
		}
	}
	return FilterAll
}

// Matches проверяет, попадает ли статус под фильтр
func (f Filter) Matches(status model.AppointmentStatus) bool {
	switch f {
	case FilterActive:
		return status == model.AppointmentStatusScheduled ||
			status == model.AppointmentStatusConfirmed ||
			status == model.AppointmentStatusPending
	case FilterPending:
		return status == model.AppointmentStatusScheduled ||
			status == model.AppointmentStatusPending
	case FilterCompleted:
		return status == model.AppointmentStatusCompleted
	case FilterCancelled:
		return status == model.AppointmentStatusCancelled
	}
	return true
}

// Apply отбирает записи по фильтру и строке поиска. Поиск без учёта регистра
// по имени врача, специальности и статусу. Исходный срез не меняется.
func Apply(items []*model.Appointment, filter Filter, term string) []*model.Appointment {
	term = strings.ToLower(strings.TrimSpace(term))

	result := make([]*model.Appointment, 0, len(items))
	for _, a := range items {
		if !filter.Matches(a.Status) {
			continue
		}
		if term != "" && !matchesTerm(a, term) {
			continue
		}
		result = append(result, a)
	}
	return result
}

// backendStatusNames названия статусов, в которых их присылает бэкенд
var backendStatusNames = map[model.AppointmentStatus]string{
	model.AppointmentStatusScheduled: "programada",
	model.AppointmentStatusPending:   "pendiente",
	model.AppointmentStatusConfirmed: "confirmada",
	model.AppointmentStatusCompleted: "completada",
	model.AppointmentStatusCancelled: "cancelada",
}

func matchesTerm(a *model.Appointment, term string) bool {
	return strings.Contains(strings.ToLower(a.DoctorName), term) ||
		strings.Contains(strings.ToLower(a.SpecialtyName), term) ||
		matchesStatus(a.Status, term)
}

// matchesStatus ищет по коду статуса, его названию для пользователя
// и названию на стороне бэкенда
func matchesStatus(status model.AppointmentStatus, term string) bool {
	return strings.Contains(string(status), term) ||
		strings.Contains(strings.ToLower(status.Label()), term) ||
		strings.Contains(backendStatusNames[status], term)
}

// Page страница отфильтрованного списка
type Page struct {
	Items      []*model.Appointment
	Number     int // с нуля
	TotalPages int
	TotalItems int
}

// HasPrev есть ли предыдущая страница
func (p Page) HasPrev() bool {
	return p.Number > 0
}

// HasNext есть ли следующая страница
func (p Page) HasNext() bool {
	return p.Number+1 < p.TotalPages
}

// Paginate режет список на страницы размера size. Номер вне диапазона
// прижимается к ближайшей странице.
func Paginate(items []*model.Appointment, page, size int) Page {
	if size <= 0 {
		size = PageSize
	}

	total := (len(items) + size - 1) / size
	if total == 0 {
		total = 1
	}
	if page >= total {
		page = total - 1
	}
	if page < 0 {
		page = 0
	}

	from := page * size
	to := from + size
	if from > len(items) {
		from = len(items)
	}
	if to > len(items) {
		to = len(items)
	}

	return Page{
		Items:      items[from:to],
		Number:     page,
		TotalPages: total,
		TotalItems: len(items),
	}
}
