package appointments

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/medbooking_bot/internal/apiclient"
	"github.com/Freeeeeet/medbooking_bot/internal/metrics"
	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
)

// PageSize размер страницы списка записей
const PageSize = 5

// Gateway операции бэкенда для списка записей пациента
type Gateway interface {
	ListPatientAppointments(ctx context.Context, patientID int64) ([]*model.Appointment, error)
	RescheduleAppointment(ctx context.Context, id int64, start, end time.Time) (*model.Appointment, error)
	CancelAppointment(ctx context.Context, id int64) (*model.Appointment, error)
	AvailableSlots(ctx context.Context, doctorID int64, date string) ([]string, error)
}

// Deps зависимости списка записей
type Deps struct {
	Location *time.Location
	Notifier service.Notifier
	Metrics  *metrics.BookingMetrics
	Logger   *zap.Logger
}

// ViewModel список записей пациента, загруженный с сервера. Фильтрация и
// страницы считаются по загруженному списку. После переноса или отмены список
// всегда перезагружается целиком, локально записи не правятся.
type ViewModel struct {
	gateway   Gateway
	patientID int64

	location *time.Location
	notifier service.Notifier
	metrics  *metrics.BookingMetrics
	logger   *zap.Logger

	mu       sync.RWMutex
	items    []*model.Appointment
	loaded   bool
	loadedAt time.Time
	loadSeq  uint64
	applied  uint64
	slots    service.SlotTracker
}

// NewViewModel создаёт список записей пациента сессии
func NewViewModel(gateway Gateway, session *model.Session, deps Deps) *ViewModel {
	vm := &ViewModel{
		gateway:  gateway,
		location: deps.Location,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
	if session.HasPatient() {
		vm.patientID = session.PatientID
	}
	if vm.location == nil {
		vm.location = time.Local
	}
	if vm.notifier == nil {
		vm.notifier = service.NopNotifier{}
	}
	if vm.logger == nil {
		vm.logger = zap.NewNop()
	}
	return vm
}

// Load загружает все записи пациента, новые сверху.
// При ошибке остаётся предыдущий список.
func (vm *ViewModel) Load(ctx context.Context) error {
	if vm.patientID == 0 {
		return vm.fail(ctx, model.ErrIdentity)
	}

	vm.mu.Lock()
	vm.loadSeq++
	seq := vm.loadSeq
	vm.mu.Unlock()

	items, err := vm.gateway.ListPatientAppointments(ctx, vm.patientID)
	if err != nil {
		return vm.fail(ctx, fmt.Errorf("list appointments: %w", err))
	}

	sorted := make([]*model.Appointment, 0, len(items))
	for _, a := range items {
		if a != nil {
			sorted = append(sorted, a)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.After(sorted[j].StartTime)
	})

	vm.mu.Lock()
	defer vm.mu.Unlock()

	// Более поздняя перезагрузка уже применена
	if seq < vm.applied {
		return nil
	}
	vm.applied = seq
	vm.items = sorted
	vm.loaded = true
	vm.loadedAt = time.Now()
	return nil
}

// Loaded проверяет, был ли список загружен хотя бы раз
func (vm *ViewModel) Loaded() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.loaded
}

// LoadedAt время последней успешной загрузки
func (vm *ViewModel) LoadedAt() time.Time {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.loadedAt
}

// Items все загруженные записи
func (vm *ViewModel) Items() []*model.Appointment {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return append([]*model.Appointment(nil), vm.items...)
}

// Get ищет запись в загруженном списке
func (vm *ViewModel) Get(id int64) (*model.Appointment, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.findLocked(id)
}

// Filter отбирает записи по статусу и строке поиска без запросов к серверу
func (vm *ViewModel) Filter(filter Filter, term string) []*model.Appointment {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return Apply(vm.items, filter, term)
}

// Page страница отфильтрованного списка
func (vm *ViewModel) Page(filter Filter, term string, page int) Page {
	return Paginate(vm.Filter(filter, term), page, PageSize)
}

// Reschedule переносит запись на новую дату и время и перезагружает список
func (vm *ViewModel) Reschedule(ctx context.Context, id int64, date, slot string) (*model.Appointment, error) {
	date = strings.TrimSpace(date)
	slot = strings.TrimSpace(slot)
	if date == "" {
		return nil, model.NewValidationError("date", "date is required")
	}
	if slot == "" {
		return nil, model.NewValidationError("time", "time is required")
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+slot, vm.location)
	if err != nil {
		return nil, model.NewValidationError("time", "invalid date or time")
	}

	current, err := vm.editable(id)
	if err != nil {
		return nil, vm.fail(ctx, err)
	}

	end := start.Add(model.AppointmentDuration)
	updated, err := vm.gateway.RescheduleAppointment(ctx, id, start, end)
	vm.metrics.ObserveMutation("reschedule", err)
	if err != nil {
		return nil, vm.fail(ctx, fmt.Errorf("reschedule appointment %d: %w", id, err))
	}

	vm.logger.Info("Appointment rescheduled",
		zap.Int64("appointment_id", id),
		zap.Time("start", start))

	vm.slots.Invalidate()
	reloaded := vm.reload(ctx)
	return vm.resolveUpdated(id, updated, reloaded, current, func(a *model.Appointment) {
		a.StartTime = start
		a.EndTime = end
	}), nil
}

// Cancel отменяет запись и перезагружает список
func (vm *ViewModel) Cancel(ctx context.Context, id int64) (*model.Appointment, error) {
	current, err := vm.editable(id)
	if err != nil {
		return nil, vm.fail(ctx, err)
	}

	updated, err := vm.gateway.CancelAppointment(ctx, id)
	vm.metrics.ObserveMutation("cancel", err)
	if err != nil {
		return nil, vm.fail(ctx, fmt.Errorf("cancel appointment %d: %w", id, err))
	}

	vm.logger.Info("Appointment cancelled", zap.Int64("appointment_id", id))

	reloaded := vm.reload(ctx)
	return vm.resolveUpdated(id, updated, reloaded, current, func(a *model.Appointment) {
		a.Status = model.AppointmentStatusCancelled
	}), nil
}

// SlotsFor свободное время врача записи на дату для переноса.
// Применяется только ответ на последний запрос.
func (vm *ViewModel) SlotsFor(ctx context.Context, id int64, date string) ([]string, error) {
	if _, err := time.ParseInLocation(apiclient.DateLayout, date, vm.location); err != nil {
		return nil, model.NewValidationError("date", "expected YYYY-MM-DD")
	}

	appointment, err := vm.editable(id)
	if err != nil {
		return nil, vm.fail(ctx, err)
	}

	ticket := vm.slots.Issue(appointment.DoctorID, date)
	slots, err := vm.gateway.AvailableSlots(ctx, appointment.DoctorID, date)
	if !vm.slots.Current(ticket) {
		vm.metrics.ObserveStaleSlots()
		return nil, model.ErrStaleResponse
	}
	if err != nil {
		return nil, vm.fail(ctx, fmt.Errorf("available slots: %w", err))
	}
	return slots, nil
}

// editable находит запись и проверяет, что её можно менять.
// По устаревшему списку менять нельзя: сначала его нужно перезагрузить.
// Возвращает копию записи.
func (vm *ViewModel) editable(id int64) (*model.Appointment, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	if !vm.loaded {
		return nil, model.ErrAppointmentNotFound
	}
	found, ok := vm.findLocked(id)
	if !ok {
		return nil, model.ErrAppointmentNotFound
	}
	if !found.IsEditable() {
		return nil, model.ErrNotEditable
	}
	appointment := *found
	return &appointment, nil
}

func (vm *ViewModel) findLocked(id int64) (*model.Appointment, bool) {
	for _, a := range vm.items {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// reload перезагружает список после изменения. Ошибку показывает Load,
// изменение при этом уже выполнено. Если загрузить не удалось, список
// помечается незагруженным, и следующее обращение загрузит его заново.
func (vm *ViewModel) reload(ctx context.Context) bool {
	if err := vm.Load(ctx); err != nil {
		vm.logger.Warn("Reload after mutation failed", zap.Error(err))

		vm.mu.Lock()
		vm.loaded = false
		vm.mu.Unlock()
		return false
	}
	return true
}

// resolveUpdated выбирает запись, которую вернуть после изменения:
// из свежего списка, если он загрузился; иначе ответ сервера; если сервер
// ответил без тела, то запись до изменения с применённым изменением.
func (vm *ViewModel) resolveUpdated(
	id int64,
	fromServer *model.Appointment,
	reloaded bool,
	before *model.Appointment,
	apply func(*model.Appointment),
) *model.Appointment {
	if reloaded {
		if a, ok := vm.Get(id); ok {
			return a
		}
	}
	if fromServer != nil {
		if fromServer.ID == 0 {
			fromServer.ID = id
		}
		return fromServer
	}

	result := *before
	apply(&result)
	return &result
}

func (vm *ViewModel) fail(ctx context.Context, err error) error {
	vm.logger.Warn("Appointments operation failed", zap.Error(err))
	vm.notifier.Notify(ctx, err)
	return err
}
