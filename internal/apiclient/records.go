package apiclient

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/medbooking_bot/internal/model"
)

// Записи бэкенда приходят с разными именами полей (испанские и английские,
// плоские и вложенные). Здесь они один раз сводятся к моделям из internal/model.

// flexID принимает идентификатор числом или строкой
type flexID int64

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isEmptyPayload(data) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexID(v)
	return nil
}

func firstID(ids ...flexID) int64 {
	for _, id := range ids {
		if id > 0 {
			return int64(id)
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// personRecord вложенный профиль пользователя (usuario)
type personRecord struct {
	NombreCompleto string `json:"nombre_completo"`
	FullName       string `json:"full_name"`
	Nombre         string `json:"nombre"`
	Apellido       string `json:"apellido"`
	Name           string `json:"name"`
}

func (p *personRecord) displayName() string {
	if p == nil {
		return ""
	}
	return firstNonEmpty(p.NombreCompleto, p.FullName, joinName(p.Nombre, p.Apellido), p.Name)
}

type specialtyRecord struct {
	ID             flexID `json:"id"`
	IDEspecialidad flexID `json:"id_especialidad"`
	Nombre         string `json:"nombre"`
	Name           string `json:"name"`
	Descripcion    string `json:"descripcion"`
	Description    string `json:"description"`
}

func (r *specialtyRecord) toModel() *model.Specialty {
	return &model.Specialty{
		ID:          firstID(r.IDEspecialidad, r.ID),
		Name:        firstNonEmpty(r.Nombre, r.Name),
		Description: firstNonEmpty(r.Descripcion, r.Description),
	}
}

// specialtyRef специальность приходит строкой или объектом
type specialtyRef struct {
	ID   int64
	Name string
}

func (s *specialtyRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isEmptyPayload(data) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &s.Name)
	}
	var rec specialtyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	spec := rec.toModel()
	s.ID = spec.ID
	s.Name = spec.Name
	return nil
}

type doctorRecord struct {
	ID                flexID        `json:"id"`
	IDMedico          flexID        `json:"id_medico"`
	MedicoID          flexID        `json:"medico_id"`
	NombreCompleto    string        `json:"nombre_completo"`
	FullName          string        `json:"full_name"`
	Nombre            string        `json:"nombre"`
	Apellido          string        `json:"apellido"`
	Name              string        `json:"name"`
	Usuario           *personRecord `json:"usuario"`
	User              *personRecord `json:"user"`
	EspecialidadID    flexID        `json:"especialidad_id"`
	IDEspecialidad    flexID        `json:"id_especialidad"`
	Especialidad      specialtyRef  `json:"especialidad"`
	Specialty         specialtyRef  `json:"specialty"`
	Telefono          string        `json:"telefono"`
	Phone             string        `json:"phone"`
	CedulaProfesional string        `json:"cedula_profesional"`
	NumeroLicencia    string        `json:"numero_licencia"`
	License           string        `json:"license"`
}

func (r *doctorRecord) toModel() *model.Doctor {
	name := firstNonEmpty(
		r.NombreCompleto,
		r.FullName,
		joinName(r.Nombre, r.Apellido),
		r.Name,
		r.Usuario.displayName(),
		r.User.displayName(),
	)

	return &model.Doctor{
		ID:            firstID(r.IDMedico, r.MedicoID, r.ID),
		FullName:      name,
		SpecialtyID:   firstID(r.EspecialidadID, r.IDEspecialidad, flexID(r.Especialidad.ID), flexID(r.Specialty.ID)),
		SpecialtyName: firstNonEmpty(r.Especialidad.Name, r.Specialty.Name),
		Phone:         firstNonEmpty(r.Telefono, r.Phone),
		License:       firstNonEmpty(r.CedulaProfesional, r.NumeroLicencia, r.License),
	}
}

type appointmentRecord struct {
	ID            flexID        `json:"id"`
	IDCita        flexID        `json:"id_cita"`
	PacienteID    flexID        `json:"paciente_id"`
	IDPaciente    flexID        `json:"id_paciente"`
	MedicoID      flexID        `json:"medico_id"`
	IDMedico      flexID        `json:"id_medico"`
	FechaInicio   string        `json:"fecha_inicio"`
	FechaHora     string        `json:"fecha_hora"`
	StartTime     string        `json:"start_time"`
	FechaFin      string        `json:"fecha_fin"`
	EndTime       string        `json:"end_time"`
	Estado        string        `json:"estado"`
	Status        string        `json:"status"`
	Motivo        string        `json:"motivo"`
	Reason        string        `json:"reason"`
	Notas         string        `json:"notas"`
	Observaciones string        `json:"observaciones"`
	Medico        *doctorRecord `json:"medico"`
	Doctor        *doctorRecord `json:"doctor"`
	Especialidad  specialtyRef  `json:"especialidad"`
}

func (r *appointmentRecord) toModel(loc *time.Location) *model.Appointment {
	appt := &model.Appointment{
		ID:        firstID(r.IDCita, r.ID),
		PatientID: firstID(r.IDPaciente, r.PacienteID),
		DoctorID:  firstID(r.IDMedico, r.MedicoID),
		Status:    normalizeStatus(firstNonEmpty(r.Estado, r.Status)),
		Reason:    firstNonEmpty(r.Motivo, r.Reason),
		Notes:     firstNonEmpty(r.Notas, r.Observaciones),
	}

	if start, ok := parseTimestamp(firstNonEmpty(r.FechaInicio, r.FechaHora, r.StartTime), loc); ok {
		appt.StartTime = start
	}
	if end, ok := parseTimestamp(firstNonEmpty(r.FechaFin, r.EndTime), loc); ok {
		appt.EndTime = end
	} else if !appt.StartTime.IsZero() {
		appt.EndTime = appt.StartTime.Add(model.AppointmentDuration)
	}

	doctor := r.Medico
	if doctor == nil {
		doctor = r.Doctor
	}
	if doctor != nil {
		d := doctor.toModel()
		appt.DoctorName = d.FullName
		appt.SpecialtyName = d.SpecialtyName
		if appt.DoctorID == 0 {
			appt.DoctorID = d.ID
		}
	}
	if appt.SpecialtyName == "" {
		appt.SpecialtyName = r.Especialidad.Name
	}

	return appt
}

var statusAliases = map[string]model.AppointmentStatus{
	"scheduled":  model.AppointmentStatusScheduled,
	"programada": model.AppointmentStatusScheduled,
	"agendada":   model.AppointmentStatusScheduled,
	"pending":    model.AppointmentStatusPending,
	"pendiente":  model.AppointmentStatusPending,
	"confirmed":  model.AppointmentStatusConfirmed,
	"confirmada": model.AppointmentStatusConfirmed,
	"en_curso":   model.AppointmentStatusConfirmed,
	"completed":  model.AppointmentStatusCompleted,
	"completada": model.AppointmentStatusCompleted,
	"cancelled":  model.AppointmentStatusCancelled,
	"canceled":   model.AppointmentStatusCancelled,
	"cancelada":  model.AppointmentStatusCancelled,
}

// normalizeStatus приводит статус к каноническому значению, неизвестные оставляет как есть
func normalizeStatus(raw string) model.AppointmentStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	if status, ok := statusAliases[key]; ok {
		return status
	}
	return model.AppointmentStatus(key)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// slotRecord слот приходит строкой "09:00" или объектом
type slotRecord struct {
	Time string
}

func (s *slotRecord) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isEmptyPayload(data) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &s.Time)
	}
	var obj struct {
		Hora       string `json:"hora"`
		HoraInicio string `json:"hora_inicio"`
		Time       string `json:"time"`
		Start      string `json:"start"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Time = firstNonEmpty(obj.Hora, obj.HoraInicio, obj.Time, obj.Start)
	return nil
}

// normalizeSlotTime обрезает "09:00:00" до "09:00"
func normalizeSlotTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.LastIndex(raw, "T"); idx >= 0 {
		raw = raw[idx+1:]
	}
	if len(raw) >= 5 && raw[2] == ':' {
		return raw[:5]
	}
	return raw
}

type userRecord struct {
	IDUsuario      flexID `json:"id_usuario"`
	ID             flexID `json:"id"`
	IDPaciente     flexID `json:"id_paciente"`
	PacienteID     flexID `json:"paciente_id"`
	Nombre         string `json:"nombre"`
	Apellido       string `json:"apellido"`
	NombreCompleto string `json:"nombre_completo"`
	Email          string `json:"email"`
	Tipo           string `json:"tipo"`
	Rol            string `json:"rol"`
	Role           string `json:"role"`
}

type loginRecord struct {
	AccessToken  string      `json:"access_token"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	Usuario      *userRecord `json:"usuario"`
	User         *userRecord `json:"user"`
}
