package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/medbooking_bot/internal/apiclient"
	"github.com/Freeeeeet/medbooking_bot/internal/metrics"
	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
)

// ErrConfirmInProgress запись уже отправляется
var ErrConfirmInProgress = errors.New("confirmation already in progress")

// ErrFinished мастер уже завершён
var ErrFinished = errors.New("booking wizard finished")

// Gateway операции бэкенда, которые нужны мастеру записи
type Gateway interface {
	ListSpecialties(ctx context.Context, limit int) ([]*model.Specialty, error)
	ListDoctors(ctx context.Context, specialtyID int64, limit int) ([]*model.Doctor, error)
	AvailableSlots(ctx context.Context, doctorID int64, date string) ([]string, error)
	CreateAppointment(ctx context.Context, in apiclient.CreateAppointmentInput) (*model.Appointment, error)
}

// Deps зависимости мастера
type Deps struct {
	Location *time.Location
	Notifier service.Notifier
	Metrics  *metrics.BookingMetrics
	Logger   *zap.Logger
	Now      func() time.Time
}

// Workflow мастер записи: специальность → врач → дата/время → подтверждение.
// Методы безопасны для конкурентного вызова, сетевые запросы идут без блокировки.
type Workflow struct {
	gateway   Gateway
	patientID int64

	location *time.Location
	notifier service.Notifier
	metrics  *metrics.BookingMetrics
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	state      State
	slots      service.SlotTracker
	doctorsSeq uint64
	submitting bool
	finished   bool
}

// NewWorkflow создаёт мастер для пациента сессии
func NewWorkflow(gateway Gateway, session *model.Session, deps Deps) *Workflow {
	w := &Workflow{
		gateway:  gateway,
		location: deps.Location,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      deps.Now,
	}
	if session.HasPatient() {
		w.patientID = session.PatientID
	}
	if w.location == nil {
		w.location = time.Local
	}
	if w.notifier == nil {
		w.notifier = service.NopNotifier{}
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// Snapshot копия текущего состояния для отображения
func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// Finished проверяет, что запись уже создана
func (w *Workflow) Finished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finished
}

// Start открывает шаг выбора специальности. Справочник загружается один раз.
func (w *Workflow) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return ErrFinished
	}
	w.state.Step = StepSpecialty
	loaded := w.state.Specialties != nil
	w.mu.Unlock()

	w.metrics.ObserveStep(StepSpecialty.String())
	if loaded {
		return nil
	}

	specialties, err := w.gateway.ListSpecialties(ctx, apiclient.DefaultPageSize)
	if err != nil {
		return w.fail(ctx, fmt.Errorf("list specialties: %w", err))
	}
	if specialties == nil {
		specialties = []*model.Specialty{}
	}

	w.mu.Lock()
	w.state.Specialties = specialties
	w.mu.Unlock()
	return nil
}

// SelectSpecialty выбирает специальность и загружает её врачей
func (w *Workflow) SelectSpecialty(ctx context.Context, specialtyID int64) error {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return ErrFinished
	}
	specialty := findSpecialty(w.state.Specialties, specialtyID)
	if specialty == nil {
		w.mu.Unlock()
		return model.NewValidationError("specialty", "unknown specialty")
	}

	w.state.Specialty = specialty
	w.state.resetDoctorStep()
	w.state.Step = StepDoctor
	w.slots.Invalidate()
	w.doctorsSeq++
	seq := w.doctorsSeq
	w.mu.Unlock()

	w.metrics.ObserveStep(StepDoctor.String())

	doctors, err := w.gateway.ListDoctors(ctx, specialtyID, apiclient.DefaultPageSize)

	w.mu.Lock()
	stale := seq != w.doctorsSeq || w.state.Specialty == nil || w.state.Specialty.ID != specialtyID
	if !stale && err == nil {
		if doctors == nil {
			doctors = []*model.Doctor{}
		}
		w.state.Doctors = doctors
	}
	w.mu.Unlock()

	if stale {
		return model.ErrStaleResponse
	}
	if err != nil {
		return w.fail(ctx, fmt.Errorf("list doctors: %w", err))
	}
	return nil
}

// SelectDoctor выбирает врача, ставит дату на сегодня и загружает слоты
func (w *Workflow) SelectDoctor(ctx context.Context, doctorID int64) error {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return ErrFinished
	}
	doctor := findDoctor(w.state.Doctors, doctorID)
	if doctor == nil {
		w.mu.Unlock()
		return model.NewValidationError("doctor", "unknown doctor")
	}

	w.state.Doctor = doctor
	w.state.resetSlotStep()
	w.state.Step = StepSlot
	ticket := w.changeDateLocked(w.today())
	w.mu.Unlock()

	w.metrics.ObserveStep(StepSlot.String())
	return w.fetchSlots(ctx, ticket)
}

// SelectDate меняет дату (YYYY-MM-DD). Выбранное время сбрасывается сразу,
// до ответа со слотами новой даты.
func (w *Workflow) SelectDate(ctx context.Context, date string) error {
	date = strings.TrimSpace(date)
	if _, err := time.ParseInLocation(apiclient.DateLayout, date, w.location); err != nil {
		return model.NewValidationError("date", "expected YYYY-MM-DD")
	}

	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return ErrFinished
	}
	if w.state.Doctor == nil {
		w.mu.Unlock()
		return model.NewValidationError("doctor", "doctor is not selected")
	}
	ticket := w.changeDateLocked(date)
	w.mu.Unlock()

	return w.fetchSlots(ctx, ticket)
}

// SelectTime выбирает время из списка слотов текущей даты
func (w *Workflow) SelectTime(slot string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finished {
		return ErrFinished
	}
	if w.state.Doctor == nil || w.state.Date == "" {
		return model.NewValidationError("date", "date is not selected")
	}
	if !w.state.HasSlot(slot) {
		return model.NewValidationError("time", "slot is not available")
	}
	w.state.Time = slot
	return nil
}

// SetReason задаёт причину визита
func (w *Workflow) SetReason(reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Reason = strings.TrimSpace(reason)
}

// Back возвращает на предыдущий шаг, сбрасывая выбор следующих шагов.
// Запросы, отправленные до возврата, больше не применяются.
func (w *Workflow) Back() Step {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state.Step {
	case StepSlot:
		w.state.resetSlotStep()
		w.slots.Invalidate()
		w.state.Step = StepDoctor
	case StepDoctor:
		w.state.resetDoctorStep()
		w.slots.Invalidate()
		w.doctorsSeq++
		w.state.Step = StepSpecialty
	}
	return w.state.Step
}

// Confirm создаёт запись по текущему выбору. При ошибке состояние мастера
// не меняется и подтверждение можно повторить.
func (w *Workflow) Confirm(ctx context.Context) (*model.Appointment, error) {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return nil, ErrFinished
	}
	if w.patientID == 0 {
		w.mu.Unlock()
		return nil, w.fail(ctx, model.ErrIdentity)
	}
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrConfirmInProgress
	}
	if err := w.validateLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", w.state.Date+" "+w.state.Time, w.location)
	if err != nil {
		w.mu.Unlock()
		return nil, model.NewValidationError("time", "invalid date or time")
	}

	reason := w.state.Reason
	if reason == "" {
		reason = DefaultReason
	}

	input := apiclient.CreateAppointmentInput{
		DoctorID:  w.state.Doctor.ID,
		PatientID: w.patientID,
		Start:     start,
		End:       start.Add(model.AppointmentDuration),
		Reason:    reason,
		Status:    model.AppointmentStatusScheduled,
	}
	w.submitting = true
	w.mu.Unlock()

	appointment, err := w.gateway.CreateAppointment(ctx, input)
	w.metrics.ObserveMutation("create", err)

	w.mu.Lock()
	w.submitting = false
	if err == nil {
		w.finished = true
		w.state = State{}
		w.slots.Invalidate()
	}
	w.mu.Unlock()

	if err != nil {
		return nil, w.fail(ctx, fmt.Errorf("create appointment: %w", err))
	}

	w.logger.Info("Appointment created",
		zap.Int64("patient_id", input.PatientID),
		zap.Int64("doctor_id", input.DoctorID),
		zap.Time("start", input.Start),
	)

	if appointment == nil {
		// Бэкенд мог ответить без тела, показываем то, что отправили
		appointment = &model.Appointment{
			PatientID: input.PatientID,
			DoctorID:  input.DoctorID,
			StartTime: input.Start,
			EndTime:   input.End,
			Status:    input.Status,
			Reason:    input.Reason,
		}
	}
	return appointment, nil
}

func (w *Workflow) validateLocked() error {
	switch {
	case w.state.Doctor == nil:
		return model.NewValidationError("doctor", "doctor is not selected")
	case w.state.Date == "":
		return model.NewValidationError("date", "date is not selected")
	case w.state.Time == "":
		return model.NewValidationError("time", "time is not selected")
	}
	return nil
}

// changeDateLocked ставит новую дату, сбрасывает время и слоты и выдаёт билет запроса
func (w *Workflow) changeDateLocked(date string) service.SlotTicket {
	w.state.Date = date
	w.state.Time = ""
	w.state.Slots = nil
	w.state.SlotsLoading = true
	return w.slots.Issue(w.state.Doctor.ID, date)
}

// fetchSlots загружает слоты и применяет ответ, только если выбор не изменился
func (w *Workflow) fetchSlots(ctx context.Context, ticket service.SlotTicket) error {
	slots, err := w.gateway.AvailableSlots(ctx, ticket.DoctorID, ticket.Date)

	w.mu.Lock()
	if !w.slots.Current(ticket) {
		w.mu.Unlock()
		w.metrics.ObserveStaleSlots()
		w.logger.Debug("Discarding stale slots",
			zap.Int64("doctor_id", ticket.DoctorID),
			zap.String("date", ticket.Date))
		return model.ErrStaleResponse
	}

	w.state.SlotsLoading = false
	if err != nil {
		w.state.Slots = nil
	} else {
		w.state.Slots = append([]string{}, slots...)
	}
	w.mu.Unlock()

	if err != nil {
		return w.fail(ctx, fmt.Errorf("available slots: %w", err))
	}
	return nil
}

func (w *Workflow) today() string {
	return w.now().In(w.location).Format(apiclient.DateLayout)
}

// fail сообщает пользователю об ошибке и возвращает её
func (w *Workflow) fail(ctx context.Context, err error) error {
	w.logger.Warn("Booking step failed", zap.Error(err))
	w.notifier.Notify(ctx, err)
	return err
}
