package model

import "time"

// AppointmentDuration фиксированная длительность приёма
const AppointmentDuration = 30 * time.Minute

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled" // Запланирована
	AppointmentStatusPending   AppointmentStatus = "pending"   // Ожидает подтверждения клиники
	AppointmentStatusConfirmed AppointmentStatus = "confirmed" // Подтверждена
	AppointmentStatusCompleted AppointmentStatus = "completed" // Завершена
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // Отменена
)

var statusLabels = map[AppointmentStatus]string{
	AppointmentStatusScheduled: "Запланирована",
	AppointmentStatusPending:   "Ожидает подтверждения",
	AppointmentStatusConfirmed: "Подтверждена",
	AppointmentStatusCompleted: "Завершена",
	AppointmentStatusCancelled: "Отменена",
}

// Label название статуса, которое видит пользователь
func (s AppointmentStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "Неизвестно"
}

// Appointment запись пациента к врачу (cita)
type Appointment struct {
	ID        int64             `json:"id"`
	PatientID int64             `json:"patient_id"`
	DoctorID  int64             `json:"doctor_id"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Status    AppointmentStatus `json:"status"`
	Reason    string            `json:"reason"`
	Notes     string            `json:"notes,omitempty"`

	// Сводка по врачу, которую бэкенд встраивает в список записей
	DoctorName    string `json:"doctor_name,omitempty"`
	SpecialtyName string `json:"specialty_name,omitempty"`
}

// IsEditable проверяет, можно ли перенести или отменить запись
func (a *Appointment) IsEditable() bool {
	switch a.Status {
	case AppointmentStatusScheduled, AppointmentStatusPending, AppointmentStatusConfirmed:
		return true
	}
	return false
}

// IsTerminal проверяет, что статус больше не меняется
func (a *Appointment) IsTerminal() bool {
	return a.Status == AppointmentStatusCancelled || a.Status == AppointmentStatusCompleted
}
