package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbooking_bot/internal/apiclient"
	"github.com/Freeeeeet/medbooking_bot/internal/model"
)

type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*model.Session
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[int64]*model.Session)}
}

func (m *memorySessionStore) Save(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.TelegramID] = &cp
	return nil
}

func (m *memorySessionStore) GetByTelegramID(_ context.Context, telegramID int64) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[telegramID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memorySessionStore) Delete(_ context.Context, telegramID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, telegramID)
	return nil
}

func (m *memorySessionStore) DeleteIfToken(_ context.Context, telegramID int64, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[telegramID]
	if !ok || s.AccessToken != token {
		return false, nil
	}
	delete(m.sessions, telegramID)
	return true, nil
}

func (m *memorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.IsExpired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func signToken(t *testing.T, userID int, userType string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   userID,
		"user_type": userType,
		"exp":       exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func newLoginBackend(t *testing.T, body any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(body))
		case "/auth/logout":
			w.WriteHeader(http.StatusNoContent)
		case "/especialidades":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newSessionService(t *testing.T, srv *httptest.Server, store SessionStore) *SessionService {
	t.Helper()
	api := apiclient.NewClient(apiclient.Config{BaseURL: srv.URL, Timeout: 2 * time.Second, Location: time.UTC}, zap.NewNop(), nil)
	svc := NewSessionService(store, api, zap.NewNop())
	api.OnUnauthorized(svc.Invalidate)
	return svc
}

func TestSessionService_LoginUsesBodyAndClaims(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	token := signToken(t, 17, "paciente", exp)
	srv := newLoginBackend(t, map[string]any{
		"access_token":  token,
		"refresh_token": "refresh",
		"usuario": map[string]any{
			"id_usuario": 17,
			"nombre":     "Ana",
			"apellido":   "Lopez",
			"tipo":       "paciente",
		},
	})
	store := newMemorySessionStore()
	svc := newSessionService(t, srv, store)

	session, err := svc.Login(context.Background(), 42, " ana@example.com ", "secret")
	require.NoError(t, err)

	assert.Equal(t, int64(17), session.UserID)
	assert.Equal(t, int64(17), session.PatientID)
	assert.Equal(t, "paciente", session.Role)
	assert.Equal(t, "Ana Lopez", session.DisplayName)
	assert.True(t, session.ExpiresAt.Equal(exp))

	stored, err := store.GetByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, token, stored.AccessToken)
}

func TestSessionService_LoginFallsBackToClaims(t *testing.T) {
	token := signToken(t, 23, "paciente", time.Now().Add(time.Hour))
	srv := newLoginBackend(t, map[string]any{"access_token": token})
	svc := newSessionService(t, srv, newMemorySessionStore())

	session, err := svc.Login(context.Background(), 42, "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(23), session.UserID)
	assert.Equal(t, int64(23), session.PatientID)
}

func TestSessionService_LoginDoctorHasNoPatient(t *testing.T) {
	token := signToken(t, 5, "medico", time.Now().Add(time.Hour))
	srv := newLoginBackend(t, map[string]any{"access_token": token})
	svc := newSessionService(t, srv, newMemorySessionStore())

	session, err := svc.Login(context.Background(), 42, "doc@b.c", "pw")
	require.NoError(t, err)
	assert.False(t, session.HasPatient())
}

func TestSessionService_ResolveExpired(t *testing.T) {
	store := newMemorySessionStore()
	require.NoError(t, store.Save(context.Background(), &model.Session{
		TelegramID:  42,
		AccessToken: "old",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}))
	srv := newLoginBackend(t, nil)
	svc := newSessionService(t, srv, store)

	_, err := svc.Resolve(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotLoggedIn)

	left, _ := store.GetByTelegramID(context.Background(), 42)
	assert.Nil(t, left)
}

func TestSessionService_UnauthorizedDoesNotWipeNewSession(t *testing.T) {
	store := newMemorySessionStore()
	srv := newLoginBackend(t, nil)
	svc := newSessionService(t, srv, store)

	old := &model.Session{TelegramID: 42, AccessToken: "old"}
	require.NoError(t, store.Save(context.Background(), &model.Session{TelegramID: 42, AccessToken: "new"}))

	// Запрос со старым токеном получает 401 уже после повторного входа
	_, err := svc.Client(old).ListSpecialties(context.Background(), 0)
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)

	current, err := svc.Resolve(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "new", current.AccessToken)
}

func TestSessionService_UnauthorizedDeletesCurrentSession(t *testing.T) {
	store := newMemorySessionStore()
	srv := newLoginBackend(t, nil)
	svc := newSessionService(t, srv, store)

	current := &model.Session{TelegramID: 42, AccessToken: "tok"}
	require.NoError(t, store.Save(context.Background(), current))

	_, err := svc.Client(current).ListSpecialties(context.Background(), 0)
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)

	_, err = svc.Resolve(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestSessionService_Logout(t *testing.T) {
	store := newMemorySessionStore()
	srv := newLoginBackend(t, nil)
	svc := newSessionService(t, srv, store)

	require.ErrorIs(t, svc.Logout(context.Background(), 42), ErrNotLoggedIn)

	require.NoError(t, store.Save(context.Background(), &model.Session{TelegramID: 42, AccessToken: "tok"}))
	require.NoError(t, svc.Logout(context.Background(), 42))

	_, err := svc.Resolve(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestSessionService_PurgeExpired(t *testing.T) {
	store := newMemorySessionStore()
	srv := newLoginBackend(t, nil)
	svc := newSessionService(t, srv, store)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &model.Session{TelegramID: 1, AccessToken: "a", ExpiresAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, store.Save(ctx, &model.Session{TelegramID: 2, AccessToken: "b", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, store.Save(ctx, &model.Session{TelegramID: 3, AccessToken: "c"}))

	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
