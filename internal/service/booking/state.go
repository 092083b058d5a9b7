package booking

import "github.com/Freeeeeet/medbooking_bot/internal/model"

// Step шаг мастера записи
type Step int

const (
	StepSpecialty Step = iota // Выбор специальности
	StepDoctor                // Выбор врача
	StepSlot                  // Дата, время и подтверждение
)

func (s Step) String() string {
	switch s {
	case StepSpecialty:
		return "specialty"
	case StepDoctor:
		return "doctor"
	case StepSlot:
		return "slot"
	}
	return "unknown"
}

// DefaultReason причина визита, если пациент её не указал
const DefaultReason = "Consulta general"

// State выбор пользователя в мастере записи. Живёт только пока открыт мастер.
type State struct {
	Step Step

	Specialties []*model.Specialty
	Specialty   *model.Specialty

	Doctors []*model.Doctor
	Doctor  *model.Doctor

	Date   string // YYYY-MM-DD
	Time   string // HH:MM
	Reason string

	Slots        []string
	SlotsLoading bool
}

// CanConfirm проверяет, что выбраны врач, дата и время
func (s *State) CanConfirm() bool {
	return s.Doctor != nil && s.Date != "" && s.Time != ""
}

// HasSlot проверяет, что время есть в текущем списке слотов
func (s *State) HasSlot(slot string) bool {
	for _, v := range s.Slots {
		if v == slot {
			return true
		}
	}
	return false
}

// resetDoctorStep сбрасывает всё, что выбрано на шаге врача и дальше
func (s *State) resetDoctorStep() {
	s.Doctor = nil
	s.Doctors = nil
	s.resetSlotStep()
}

// resetSlotStep сбрасывает дату, время, причину и слоты
func (s *State) resetSlotStep() {
	s.Date = ""
	s.Time = ""
	s.Reason = ""
	s.Slots = nil
	s.SlotsLoading = false
}

// clone копия для чтения вне блокировки. Элементы справочников не меняются,
// поэтому копируются только срезы.
func (s *State) clone() State {
	cp := *s
	cp.Specialties = append([]*model.Specialty(nil), s.Specialties...)
	cp.Doctors = append([]*model.Doctor(nil), s.Doctors...)
	cp.Slots = append([]string(nil), s.Slots...)
	return cp
}

func findSpecialty(list []*model.Specialty, id int64) *model.Specialty {
	for _, s := range list {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func findDoctor(list []*model.Doctor, id int64) *model.Doctor {
	for _, d := range list {
		if d.ID == id {
			return d
		}
	}
	return nil
}
