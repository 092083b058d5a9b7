package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbooking_bot/internal/apiclient"
	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
)

type fakeGateway struct {
	mu sync.Mutex

	specialties []*model.Specialty
	doctors     map[int64][]*model.Doctor
	slots       map[string][]string
	slotsErr    error
	createErr   error

	// gates задерживают ответ слотов для ключа doctor|date
	gates   map[string]chan struct{}
	entered chan string

	specialtyCalls int
	doctorCalls    []int64
	slotCalls      []string
	created        []apiclient.CreateAppointmentInput
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		specialties: []*model.Specialty{{ID: 1, Name: "Cardiology"}},
		doctors: map[int64][]*model.Doctor{
			1: {{ID: 7, FullName: "Dr. House", SpecialtyID: 1}},
		},
		slots:   map[string][]string{},
		gates:   map[string]chan struct{}{},
		entered: make(chan string, 16),
	}
}

func slotKey(doctorID int64, date string) string {
	return fmt.Sprintf("%d|%s", doctorID, date)
}

func (g *fakeGateway) ListSpecialties(context.Context, int) ([]*model.Specialty, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.specialtyCalls++
	return g.specialties, nil
}

func (g *fakeGateway) ListDoctors(_ context.Context, specialtyID int64, _ int) ([]*model.Doctor, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.doctorCalls = append(g.doctorCalls, specialtyID)
	return g.doctors[specialtyID], nil
}

func (g *fakeGateway) AvailableSlots(_ context.Context, doctorID int64, date string) ([]string, error) {
	key := slotKey(doctorID, date)

	g.mu.Lock()
	g.slotCalls = append(g.slotCalls, key)
	gate := g.gates[key]
	g.mu.Unlock()

	g.entered <- key
	if gate != nil {
		<-gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.slotsErr != nil {
		return nil, g.slotsErr
	}
	return g.slots[key], nil
}

func (g *fakeGateway) CreateAppointment(_ context.Context, in apiclient.CreateAppointmentInput) (*model.Appointment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, in)
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &model.Appointment{
		ID:        99,
		PatientID: in.PatientID,
		DoctorID:  in.DoctorID,
		StartTime: in.Start,
		EndTime:   in.End,
		Status:    in.Status,
		Reason:    in.Reason,
	}, nil
}

func (g *fakeGateway) gate(doctorID int64, date string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.gates[slotKey(doctorID, date)] = ch
	return ch
}

type recordingNotifier struct {
	mu   sync.Mutex
	errs []error
}

func (n *recordingNotifier) Notify(_ context.Context, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errs)
}

var testNow = time.Date(2026, 3, 10, 8, 15, 0, 0, time.UTC)

const today = "2026-03-10"

func newTestWorkflow(g *fakeGateway, n service.Notifier, patientID int64) *Workflow {
	return NewWorkflow(g, &model.Session{TelegramID: 1, PatientID: patientID}, Deps{
		Location: time.UTC,
		Notifier: n,
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return testNow },
	})
}

// toSlotStep проводит мастер до шага выбора времени с врачом 7
func toSlotStep(t *testing.T, w *Workflow, g *fakeGateway) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.SelectSpecialty(ctx, 1))
	require.NoError(t, w.SelectDoctor(ctx, 7))
	<-g.entered
}

func TestWorkflow_FullScenario(t *testing.T) {
	g := newFakeGateway()
	g.slots[slotKey(7, today)] = []string{"09:00", "09:30"}
	n := &recordingNotifier{}
	w := newTestWorkflow(g, n, 42)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	assert.Equal(t, StepSpecialty, w.Snapshot().Step)
	require.Len(t, w.Snapshot().Specialties, 1)

	require.NoError(t, w.SelectSpecialty(ctx, 1))
	assert.Equal(t, []int64{1}, g.doctorCalls)
	assert.Equal(t, StepDoctor, w.Snapshot().Step)

	require.NoError(t, w.SelectDoctor(ctx, 7))
	<-g.entered
	state := w.Snapshot()
	assert.Equal(t, StepSlot, state.Step)
	assert.Equal(t, today, state.Date)
	assert.Equal(t, []string{"09:00", "09:30"}, state.Slots)
	assert.Equal(t, []string{slotKey(7, today)}, g.slotCalls)

	require.NoError(t, w.SelectTime("09:00"))
	w.SetReason("checkup")

	appt, err := w.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(99), appt.ID)

	require.Len(t, g.created, 1)
	in := g.created[0]
	assert.Equal(t, int64(7), in.DoctorID)
	assert.Equal(t, int64(42), in.PatientID)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), in.Start)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC), in.End)
	assert.Equal(t, "checkup", in.Reason)
	assert.Equal(t, model.AppointmentStatusScheduled, in.Status)

	assert.True(t, w.Finished())
	assert.Equal(t, 0, n.count())
}

func TestWorkflow_SpecialtiesFetchedOnce(t *testing.T) {
	g := newFakeGateway()
	w := newTestWorkflow(g, nil, 42)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.SelectSpecialty(ctx, 1))
	w.Back()
	require.NoError(t, w.Start(ctx))

	assert.Equal(t, 1, g.specialtyCalls)
}

func TestWorkflow_StaleSlotResponseDiscarded(t *testing.T) {
	g := newFakeGateway()
	g.slots[slotKey(7, "2026-03-11")] = []string{"10:00"}
	g.slots[slotKey(7, "2026-03-12")] = []string{"11:00", "11:30"}
	w := newTestWorkflow(g, nil, 42)
	toSlotStep(t, w, g)

	release := g.gate(7, "2026-03-11")
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- w.SelectDate(context.Background(), "2026-03-11")
	}()
	require.Equal(t, slotKey(7, "2026-03-11"), <-g.entered)

	require.NoError(t, w.SelectDate(context.Background(), "2026-03-12"))
	<-g.entered

	// Медленный ответ на первую дату приходит последним
	close(release)
	assert.ErrorIs(t, <-firstDone, model.ErrStaleResponse)

	state := w.Snapshot()
	assert.Equal(t, "2026-03-12", state.Date)
	assert.Equal(t, []string{"11:00", "11:30"}, state.Slots)
	assert.False(t, state.SlotsLoading)
}

func TestWorkflow_StaleFailureNotNotified(t *testing.T) {
	g := newFakeGateway()
	n := &recordingNotifier{}
	w := newTestWorkflow(g, n, 42)
	toSlotStep(t, w, g)

	release := g.gate(7, "2026-03-11")
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- w.SelectDate(context.Background(), "2026-03-11")
	}()
	<-g.entered

	w.Back()

	g.mu.Lock()
	g.slotsErr = errors.New("boom")
	g.mu.Unlock()
	close(release)

	assert.ErrorIs(t, <-firstDone, model.ErrStaleResponse)
	assert.Equal(t, 0, n.count())
	assert.Nil(t, w.Snapshot().Slots)
}

func TestWorkflow_DateChangeClearsTimeBeforeFetch(t *testing.T) {
	g := newFakeGateway()
	g.slots[slotKey(7, today)] = []string{"09:00"}
	w := newTestWorkflow(g, nil, 42)
	toSlotStep(t, w, g)
	require.NoError(t, w.SelectTime("09:00"))

	release := g.gate(7, "2026-03-11")
	done := make(chan error, 1)
	go func() {
		done <- w.SelectDate(context.Background(), "2026-03-11")
	}()
	<-g.entered

	state := w.Snapshot()
	assert.Empty(t, state.Time)
	assert.Empty(t, state.Slots)
	assert.True(t, state.SlotsLoading)
	assert.False(t, state.CanConfirm())

	close(release)
	require.NoError(t, <-done)
}

func TestWorkflow_BackResetsForwardState(t *testing.T) {
	g := newFakeGateway()
	g.slots[slotKey(7, today)] = []string{"09:00"}
	w := newTestWorkflow(g, nil, 42)
	toSlotStep(t, w, g)
	require.NoError(t, w.SelectTime("09:00"))
	w.SetReason("dolor")

	assert.Equal(t, StepDoctor, w.Back())
	state := w.Snapshot()
	assert.Empty(t, state.Date)
	assert.Empty(t, state.Time)
	assert.Empty(t, state.Reason)
	assert.Empty(t, state.Slots)
	assert.NotEmpty(t, state.Doctors)

	assert.Equal(t, StepSpecialty, w.Back())
	state = w.Snapshot()
	assert.Nil(t, state.Doctor)
	assert.Empty(t, state.Doctors)
	assert.NotEmpty(t, state.Specialties)
}

func TestWorkflow_SlotsFailureLeavesListEmpty(t *testing.T) {
	g := newFakeGateway()
	g.slotsErr = &apiclient.TransportError{Op: "available_slots", StatusCode: 500}
	n := &recordingNotifier{}
	w := newTestWorkflow(g, n, 42)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.SelectSpecialty(ctx, 1))
	err := w.SelectDoctor(ctx, 7)
	<-g.entered

	var te *apiclient.TransportError
	require.ErrorAs(t, err, &te)
	assert.Empty(t, w.Snapshot().Slots)
	assert.False(t, w.Snapshot().SlotsLoading)
	assert.Equal(t, 1, n.count())
}

func TestWorkflow_EmptySlotsIsNotAnError(t *testing.T) {
	g := newFakeGateway()
	n := &recordingNotifier{}
	w := newTestWorkflow(g, n, 42)
	toSlotStep(t, w, g)

	assert.Empty(t, w.Snapshot().Slots)
	assert.Equal(t, 0, n.count())
}

func TestWorkflow_ConfirmWithoutPatient(t *testing.T) {
	g := newFakeGateway()
	g.slots[slotKey(7, today)] = []string{"09:00"}
	n := &recordingNotifier{}
	w := newTestWorkflow(g, n, 0)
	toSlotStep(t, w, g)
	require.NoError(t, w.SelectTime("09:00"))

	_, err := w.Confirm(context.Background())
	require.ErrorIs(t, err, model.ErrIdentity)
	assert.Empty(t, g.created)
	assert.Equal(t, 1, n.count())
}

func TestWorkflow_ConfirmRequiresTime(t *testing.T) {
	g := newFakeGateway()
	n := &recordingNotifier{}
	w := newTestWorkflow(g, n, 42)
	toSlotStep(t, w, g)

	_, err := w.Confirm(context.Background())
	assert.True(t, model.IsValidation(err))
	assert.Empty(t, g.created)
	assert.Equal(t, 0, n.count())
}

func TestWorkflow_SelectTimeMustBeOffered(t *testing.T) {
	g := newFakeGateway()
	g.slots[slotKey(7, today)] = []string{"09:00"}
	w := newTestWorkflow(g, nil, 42)
	toSlotStep(t, w, g)

	assert.True(t, model.IsValidation(w.SelectTime("13:00")))
	assert.Empty(t, w.Snapshot().Time)
}

func TestWorkflow_ConfirmFailureKeepsState(t *testing.T) {
	g := newFakeGateway()
	g.slots[slotKey(7, today)] = []string{"09:00"}
	g.createErr = &apiclient.TransportError{Op: "create_appointment", StatusCode: 409, Message: "slot taken"}
	n := &recordingNotifier{}
	w := newTestWorkflow(g, n, 42)
	toSlotStep(t, w, g)
	require.NoError(t, w.SelectTime("09:00"))

	_, err := w.Confirm(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n.count())

	state := w.Snapshot()
	assert.Equal(t, StepSlot, state.Step)
	assert.Equal(t, "09:00", state.Time)
	assert.Equal(t, today, state.Date)
	assert.False(t, w.Finished())

	g.mu.Lock()
	g.createErr = nil
	g.mu.Unlock()

	_, err = w.Confirm(context.Background())
	require.NoError(t, err)
	assert.Len(t, g.created, 2)
}

func TestWorkflow_DefaultReason(t *testing.T) {
	g := newFakeGateway()
	g.slots[slotKey(7, today)] = []string{"09:00"}
	w := newTestWorkflow(g, nil, 42)
	toSlotStep(t, w, g)
	require.NoError(t, w.SelectTime("09:00"))
	w.SetReason("   ")

	_, err := w.Confirm(context.Background())
	require.NoError(t, err)
	require.Len(t, g.created, 1)
	assert.Equal(t, DefaultReason, g.created[0].Reason)
}

func TestWorkflow_SelectDateValidation(t *testing.T) {
	g := newFakeGateway()
	w := newTestWorkflow(g, nil, 42)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	assert.True(t, model.IsValidation(w.SelectDate(ctx, "2026-03-11")), "врач не выбран")

	require.NoError(t, w.SelectSpecialty(ctx, 1))
	require.NoError(t, w.SelectDoctor(ctx, 7))
	<-g.entered
	assert.True(t, model.IsValidation(w.SelectDate(ctx, "11/03/2026")))
	assert.Equal(t, today, w.Snapshot().Date)
}

func TestManager_BeginReplacesWizard(t *testing.T) {
	m := NewManager(Deps{Logger: zap.NewNop()})
	session := &model.Session{TelegramID: 1, PatientID: 42}

	first := m.Begin(1, newFakeGateway(), session, nil)
	second := m.Begin(1, newFakeGateway(), session, nil)
	require.NotSame(t, first, second)

	got, ok := m.Get(1)
	require.True(t, ok)
	assert.Same(t, second, got)

	m.Finish(1)
	_, ok = m.Get(1)
	assert.False(t, ok)
}
