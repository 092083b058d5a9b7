package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c := NewClient(Config{BaseURL: ts.URL + "/", Location: time.UTC}, nil, nil)
	c.retryBase = time.Millisecond
	return c
}

func testSession() *model.Session {
	return &model.Session{TelegramID: 42, UserID: 5, PatientID: 5, AccessToken: "tok-1"}
}

func TestListSpecialties_AcceptsBareAndWrappedArrays(t *testing.T) {
	payloads := []string{
		`[{"id":1,"nombre":"Cardiología","descripcion":"Corazón"}]`,
		`{"data":[{"id_especialidad":1,"name":"Cardiología","description":"Corazón"}]}`,
		`{"data":{"items":[{"id":"1","nombre":"Cardiología","descripcion":"Corazón"}]}}`,
	}

	for _, payload := range payloads {
		payload := payload
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/especialidades", r.URL.Path)
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
			_, _ = w.Write([]byte(payload))
		})

		specialties, err := c.For(testSession()).ListSpecialties(context.Background(), 0)
		require.NoError(t, err, payload)
		require.Len(t, specialties, 1, payload)
		assert.Equal(t, int64(1), specialties[0].ID)
		assert.Equal(t, "Cardiología", specialties[0].Name)
		assert.Equal(t, "Corazón", specialties[0].Description)
	}
}

func TestListDoctors_NormalizesNameVariants(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/medicos", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("especialidad_id"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id_medico": 7, "nombre_completo": "Dra. Ana Ruiz", "telefono": "555", "cedula_profesional": "C-1"},
				{"id": 8, "nombre": "Luis", "apellido": "Pérez", "especialidad": "Cardiología"},
				{"id": 9, "usuario": map[string]any{"nombre": "Eva", "apellido": "Soto"}, "especialidad": map[string]any{"id": 3, "nombre": "Cardiología"}},
			},
		})
	})

	doctors, err := c.For(testSession()).ListDoctors(context.Background(), 3, 50)
	require.NoError(t, err)
	require.Len(t, doctors, 3)

	assert.Equal(t, int64(7), doctors[0].ID)
	assert.Equal(t, "Dra. Ana Ruiz", doctors[0].FullName)
	assert.Equal(t, "555", doctors[0].Phone)
	assert.Equal(t, "C-1", doctors[0].License)
	assert.Equal(t, int64(3), doctors[0].SpecialtyID)

	assert.Equal(t, "Luis Pérez", doctors[1].FullName)
	assert.Equal(t, "Cardiología", doctors[1].SpecialtyName)

	assert.Equal(t, "Eva Soto", doctors[2].FullName)
	assert.Equal(t, int64(3), doctors[2].SpecialtyID)
}

func TestAvailableSlots_NormalizesTimes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/citas/disponibles", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("medico_id"))
		assert.Equal(t, "2026-10-15", r.URL.Query().Get("fecha"))
		_, _ = w.Write([]byte(`{"data":["09:00:00",{"hora":"09:30"},"09:00","2026-10-15T10:00:00"]}`))
	})

	slots, err := c.For(testSession()).AvailableSlots(context.Background(), 7, "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, slots)
}

func TestAvailableSlots_EmptyIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	})

	slots, err := c.For(testSession()).AvailableSlots(context.Background(), 7, "2026-10-15")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestCreateAppointment_SendsTimestampsAndStatus(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/citas", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id_cita":11,"id_paciente":5,"id_medico":7,"fecha_inicio":"2026-10-15T09:00:00","estado":"programada","motivo":"checkup"}}`))
	})

	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	appt, err := c.For(testSession()).CreateAppointment(context.Background(), CreateAppointmentInput{
		DoctorID:  7,
		PatientID: 5,
		Start:     start,
		End:       start.Add(model.AppointmentDuration),
		Reason:    "checkup",
		Status:    model.AppointmentStatusScheduled,
	})
	require.NoError(t, err)

	assert.Equal(t, float64(7), body["medico_id"])
	assert.Equal(t, float64(5), body["paciente_id"])
	assert.Equal(t, "2026-10-15T09:00:00", body["fecha_inicio"])
	assert.Equal(t, "2026-10-15T09:30:00", body["fecha_fin"])
	assert.Equal(t, "checkup", body["motivo"])
	assert.Equal(t, "scheduled", body["estado"])

	require.NotNil(t, appt)
	assert.Equal(t, int64(11), appt.ID)
	assert.Equal(t, model.AppointmentStatusScheduled, appt.Status)
	assert.Equal(t, start.Add(model.AppointmentDuration), appt.EndTime)
}

func TestListPatientAppointments_NormalizesRecords(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/citas/paciente/5", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id":1,"fecha_inicio":"2026-10-01 10:00:00","fecha_fin":"2026-10-01 10:30:00","estado":"cancelada",
			 "medico":{"id_medico":7,"nombre":"Ana","apellido":"Ruiz","especialidad":{"nombre":"Cardiología"}}},
			{"id_cita":2,"fecha_hora":"2026-10-20T09:00:00Z","status":"Confirmed","doctor":{"full_name":"Luis Pérez"},"especialidad":"Dermatología"}
		]`))
	})

	appts, err := c.For(testSession()).ListPatientAppointments(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, appts, 2)

	assert.Equal(t, model.AppointmentStatusCancelled, appts[0].Status)
	assert.Equal(t, "Ana Ruiz", appts[0].DoctorName)
	assert.Equal(t, "Cardiología", appts[0].SpecialtyName)
	assert.Equal(t, int64(7), appts[0].DoctorID)

	assert.Equal(t, int64(2), appts[1].ID)
	assert.Equal(t, model.AppointmentStatusConfirmed, appts[1].Status)
	assert.Equal(t, "Luis Pérez", appts[1].DoctorName)
	assert.Equal(t, "Dermatología", appts[1].SpecialtyName)
	assert.Equal(t, appts[1].StartTime.Add(30*time.Minute), appts[1].EndTime)
}

func TestUnauthorized_InvokesHandlerWithSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Token inválido"}`))
	})

	var invalidated *model.Session
	c.OnUnauthorized(func(ctx context.Context, session *model.Session) {
		invalidated = session
	})

	sess := testSession()
	_, err := c.For(sess).ListSpecialties(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "Token inválido", te.Message)
	assert.Same(t, sess, invalidated)
}

func TestGetRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`["09:00"]`))
	})

	slots, err := c.For(testSession()).AvailableSlots(context.Background(), 7, "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, slots)
	assert.Equal(t, int32(3), calls.Load())
}

func TestMutationsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.For(testSession()).CancelAppointment(context.Background(), 3)
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLogin_ReadsTokensAndUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"access_token":"abc","refresh_token":"def","expires_in":3600,
			"usuario":{"id_usuario":5,"nombre":"María","apellido":"López","tipo":"paciente","email":"m@example.com"}}`))
	})

	res, err := c.Login(context.Background(), "m@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "abc", res.AccessToken)
	assert.Equal(t, "def", res.RefreshToken)
	assert.Equal(t, time.Hour, res.ExpiresIn)
	assert.Equal(t, int64(5), res.UserID)
	assert.Equal(t, "paciente", res.Role)
	assert.Equal(t, "María López", res.DisplayName)
}

func TestCancelAppointment_NoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/citas/9/cancelar", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	// Без тела возвращать нечего: запись после отмены берёт список записей
	a, err := c.For(testSession()).CancelAppointment(context.Background(), 9)
	require.NoError(t, err)
	assert.Nil(t, a)
}

type recordingTracerProvider struct {
	embedded.TracerProvider
	tracer *recordingTracer
}

func (p *recordingTracerProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

type recordingTracer struct {
	embedded.Tracer
	mu    sync.Mutex
	spans []string
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.mu.Lock()
	t.spans = append(t.spans, name)
	t.mu.Unlock()
	return noop.NewTracerProvider().Tracer("").Start(ctx, name, opts...)
}

func TestClient_UsesConfiguredTracerProvider(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":["09:00"]}`))
	}))
	t.Cleanup(ts.Close)

	tracer := &recordingTracer{}
	c := NewClient(Config{
		BaseURL:        ts.URL,
		Location:       time.UTC,
		TracerProvider: &recordingTracerProvider{tracer: tracer},
	}, nil, nil)

	_, err := c.For(testSession()).AvailableSlots(context.Background(), 7, "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, []string{"apiclient.available_slots"}, tracer.spans)
}
