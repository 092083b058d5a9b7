package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Freeeeeet/medbooking_bot/internal/model"
)

// DefaultPageSize подсказка размера страницы для справочников
const DefaultPageSize = 100

// SessionClient выполняет запросы от имени конкретной сессии
type SessionClient struct {
	client  *Client
	session *model.Session
}

// Session сессия, к которой привязан клиент
func (s *SessionClient) Session() *model.Session {
	return s.session
}

// ListSpecialties получает справочник специальностей
func (s *SessionClient) ListSpecialties(ctx context.Context, limit int) ([]*model.Specialty, error) {
	raw, err := s.client.do(ctx, s.session, request{
		op:         "list_specialties",
		method:     http.MethodGet,
		path:       "/especialidades",
		query:      url.Values{"limit": {strconv.Itoa(pageSize(limit))}},
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}

	records, err := decodeList[specialtyRecord](raw)
	if err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}

	specialties := make([]*model.Specialty, 0, len(records))
	for i := range records {
		specialties = append(specialties, records[i].toModel())
	}
	return specialties, nil
}

// ListDoctors получает врачей выбранной специальности
func (s *SessionClient) ListDoctors(ctx context.Context, specialtyID int64, limit int) ([]*model.Doctor, error) {
	raw, err := s.client.do(ctx, s.session, request{
		op:     "list_doctors",
		method: http.MethodGet,
		path:   "/medicos",
		query: url.Values{
			"especialidad_id": {strconv.FormatInt(specialtyID, 10)},
			"limit":           {strconv.Itoa(pageSize(limit))},
		},
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}

	records, err := decodeList[doctorRecord](raw)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}

	doctors := make([]*model.Doctor, 0, len(records))
	for i := range records {
		doctor := records[i].toModel()
		if doctor.SpecialtyID == 0 {
			doctor.SpecialtyID = specialtyID
		}
		doctors = append(doctors, doctor)
	}
	return doctors, nil
}

// AvailableSlots получает свободное время врача на дату (YYYY-MM-DD).
// Пустой список означает, что в этот день записи нет.
func (s *SessionClient) AvailableSlots(ctx context.Context, doctorID int64, date string) ([]string, error) {
	raw, err := s.client.do(ctx, s.session, request{
		op:     "available_slots",
		method: http.MethodGet,
		path:   "/citas/disponibles",
		query: url.Values{
			"medico_id": {strconv.FormatInt(doctorID, 10)},
			"fecha":     {date},
		},
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}

	records, err := decodeList[slotRecord](raw)
	if err != nil {
		return nil, fmt.Errorf("available slots: %w", err)
	}

	seen := make(map[string]struct{}, len(records))
	slots := make([]string, 0, len(records))
	for _, rec := range records {
		slot := normalizeSlotTime(rec.Time)
		if slot == "" {
			continue
		}
		if _, dup := seen[slot]; dup {
			continue
		}
		seen[slot] = struct{}{}
		slots = append(slots, slot)
	}
	return slots, nil
}

// CreateAppointmentInput данные новой записи
type CreateAppointmentInput struct {
	DoctorID  int64
	PatientID int64
	Start     time.Time
	End       time.Time
	Reason    string
	Status    model.AppointmentStatus
}

type createAppointmentBody struct {
	MedicoID    int64  `json:"medico_id"`
	PacienteID  int64  `json:"paciente_id"`
	FechaInicio string `json:"fecha_inicio"`
	FechaFin    string `json:"fecha_fin"`
	Motivo      string `json:"motivo"`
	Estado      string `json:"estado"`
}

// CreateAppointment создаёт запись
func (s *SessionClient) CreateAppointment(ctx context.Context, in CreateAppointmentInput) (*model.Appointment, error) {
	raw, err := s.client.do(ctx, s.session, request{
		op:     "create_appointment",
		method: http.MethodPost,
		path:   "/citas",
		body: createAppointmentBody{
			MedicoID:    in.DoctorID,
			PacienteID:  in.PatientID,
			FechaInicio: in.Start.Format(WireTimeLayout),
			FechaFin:    in.End.Format(WireTimeLayout),
			Motivo:      in.Reason,
			Estado:      string(in.Status),
		},
	})
	if err != nil {
		return nil, err
	}
	return s.decodeAppointment("create appointment", raw)
}

type rescheduleBody struct {
	FechaInicio string `json:"fecha_inicio"`
	FechaFin    string `json:"fecha_fin"`
}

// RescheduleAppointment переносит запись на новое время
func (s *SessionClient) RescheduleAppointment(ctx context.Context, id int64, start, end time.Time) (*model.Appointment, error) {
	raw, err := s.client.do(ctx, s.session, request{
		op:     "reschedule_appointment",
		method: http.MethodPut,
		path:   fmt.Sprintf("/citas/%d", id),
		body: rescheduleBody{
			FechaInicio: start.Format(WireTimeLayout),
			FechaFin:    end.Format(WireTimeLayout),
		},
	})
	if err != nil {
		return nil, err
	}
	return s.decodeAppointment("reschedule appointment", raw)
}

// CancelAppointment отменяет запись
func (s *SessionClient) CancelAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	raw, err := s.client.do(ctx, s.session, request{
		op:     "cancel_appointment",
		method: http.MethodPatch,
		path:   fmt.Sprintf("/citas/%d/cancelar", id),
	})
	if err != nil {
		return nil, err
	}
	return s.decodeAppointment("cancel appointment", raw)
}

// ListPatientAppointments получает все записи пациента
func (s *SessionClient) ListPatientAppointments(ctx context.Context, patientID int64) ([]*model.Appointment, error) {
	raw, err := s.client.do(ctx, s.session, request{
		op:         "list_appointments",
		method:     http.MethodGet,
		path:       fmt.Sprintf("/citas/paciente/%d", patientID),
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}

	records, err := decodeList[appointmentRecord](raw)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	appointments := make([]*model.Appointment, 0, len(records))
	for i := range records {
		appointments = append(appointments, records[i].toModel(s.client.location))
	}
	return appointments, nil
}

// decodeAppointment разбирает запись из ответа. Пустой ответ (204) даёт nil без ошибки.
func (s *SessionClient) decodeAppointment(op string, raw []byte) (*model.Appointment, error) {
	rec, err := decodeOne[appointmentRecord](raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rec == nil {
		return nil, nil
	}
	return rec.toModel(s.client.location), nil
}

func pageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return limit
}
