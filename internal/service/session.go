package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbooking_bot/internal/apiclient"
	"github.com/Freeeeeet/medbooking_bot/internal/model"
)

// ErrNotLoggedIn у пользователя нет действующей сессии
var ErrNotLoggedIn = errors.New("not logged in")

// SessionStore хранилище сессий (PostgreSQL в продакшене)
type SessionStore interface {
	Save(ctx context.Context, s *model.Session) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.Session, error)
	Delete(ctx context.Context, telegramID int64) error
	DeleteIfToken(ctx context.Context, telegramID int64, accessToken string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// tokenClaims клеймы токена доступа бэкенда
type tokenClaims struct {
	UserID   any    `json:"user_id"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

// SessionService управляет жизненным циклом сессий пользователей бота
type SessionService struct {
	store  SessionStore
	api    *apiclient.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewSessionService(store SessionStore, api *apiclient.Client, logger *zap.Logger) *SessionService {
	return &SessionService{
		store:  store,
		api:    api,
		logger: logger,
		now:    time.Now,
	}
}

// Login входит в бэкенд и сохраняет сессию. Предыдущая сессия заменяется.
func (s *SessionService) Login(ctx context.Context, telegramID int64, email, password string) (*model.Session, error) {
	result, err := s.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	session := &model.Session{
		TelegramID:   telegramID,
		UserID:       result.UserID,
		PatientID:    result.PatientID,
		Role:         result.Role,
		DisplayName:  result.DisplayName,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}

	if result.ExpiresIn > 0 {
		session.ExpiresAt = s.now().Add(result.ExpiresIn)
	}

	claims, err := parseClaims(result.AccessToken)
	if err != nil {
		// Непрозрачный токен допустим: всё нужное уже есть в теле ответа
		s.logger.Debug("Access token is not a JWT", zap.Error(err))
	} else {
		if session.UserID == 0 {
			session.UserID = claimID(claims.UserID)
		}
		if session.Role == "" {
			session.Role = claims.UserType
		}
		if claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time
		}
	}

	if session.PatientID == 0 && isPatientRole(session.Role) {
		session.PatientID = session.UserID
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("User logged in",
		zap.Int64("telegram_id", telegramID),
		zap.Int64("user_id", session.UserID),
		zap.Int64("patient_id", session.PatientID),
		zap.String("role", session.Role),
	)

	return session, nil
}

// Resolve возвращает действующую сессию пользователя или ErrNotLoggedIn
func (s *SessionService) Resolve(ctx context.Context, telegramID int64) (*model.Session, error) {
	session, err := s.store.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, ErrNotLoggedIn
	}

	if session.IsExpired(s.now()) {
		if _, err := s.store.DeleteIfToken(ctx, telegramID, session.AccessToken); err != nil {
			s.logger.Warn("Failed to delete expired session", zap.Int64("telegram_id", telegramID), zap.Error(err))
		}
		return nil, ErrNotLoggedIn
	}

	return session, nil
}

// Logout закрывает сессию в бэкенде и удаляет её локально.
// Ошибка бэкенда не мешает локальному выходу.
func (s *SessionService) Logout(ctx context.Context, telegramID int64) error {
	session, err := s.store.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return ErrNotLoggedIn
	}

	if err := s.api.For(session).Logout(ctx); err != nil {
		s.logger.Warn("Backend logout failed", zap.Int64("telegram_id", telegramID), zap.Error(err))
	}

	if err := s.store.Delete(ctx, telegramID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.logger.Info("User logged out", zap.Int64("telegram_id", telegramID))
	return nil
}

// Invalidate удаляет сессию, отклонённую бэкендом. Удаляется только сессия
// с тем же токеном: новая сессия после повторного входа остаётся.
func (s *SessionService) Invalidate(ctx context.Context, session *model.Session) {
	if session == nil {
		return
	}

	deleted, err := s.store.DeleteIfToken(ctx, session.TelegramID, session.AccessToken)
	if err != nil {
		s.logger.Error("Failed to invalidate session",
			zap.Int64("telegram_id", session.TelegramID),
			zap.Error(err))
		return
	}

	s.logger.Info("Session rejected by backend",
		zap.Int64("telegram_id", session.TelegramID),
		zap.Bool("deleted", deleted))
}

// PurgeExpired удаляет все просроченные сессии
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	return n, nil
}

// Client возвращает API клиент, привязанный к сессии
func (s *SessionService) Client(session *model.Session) *apiclient.SessionClient {
	return s.api.For(session)
}

// parseClaims читает клеймы без проверки подписи: секрет знает только бэкенд
func parseClaims(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

func claimID(v any) int64 {
	switch id := v.(type) {
	case float64:
		return int64(id)
	case string:
		var n int64
		if _, err := fmt.Sscan(id, &n); err == nil {
			return n
		}
	}
	return 0
}

func isPatientRole(role string) bool {
	switch strings.ToLower(role) {
	case "paciente", "patient":
		return true
	}
	return false
}
