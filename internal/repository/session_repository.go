package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/repository/base"
)

// SessionRepository хранит сессии пользователей в бэкенде клиники
type SessionRepository struct {
	*base.Repository
}

func NewSessionRepository(db base.DB) *SessionRepository {
	return &SessionRepository{Repository: base.NewRepository(db)}
}

// Save создаёт или заменяет сессию пользователя
func (r *SessionRepository) Save(ctx context.Context, s *model.Session) error {
	query := `
		INSERT INTO sessions (telegram_id, user_id, patient_id, role, display_name, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (telegram_id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    patient_id = EXCLUDED.patient_id,
		    role = EXCLUDED.role,
		    display_name = EXCLUDED.display_name,
		    access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
		RETURNING created_at
	`

	var expiresAt *time.Time
	if !s.ExpiresAt.IsZero() {
		expiresAt = &s.ExpiresAt
	}

	err := r.DB().QueryRow(
		ctx, query,
		s.TelegramID,
		s.UserID,
		s.PatientID,
		s.Role,
		s.DisplayName,
		s.AccessToken,
		s.RefreshToken,
		expiresAt,
	).Scan(&s.CreatedAt)

	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// GetByTelegramID получает сессию пользователя
func (r *SessionRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.Session, error) {
	query := `
		SELECT telegram_id, user_id, patient_id, role, display_name, access_token, refresh_token, expires_at, created_at
		FROM sessions
		WHERE telegram_id = $1
	`

	var s model.Session
	var expiresAt *time.Time
	err := r.DB().QueryRow(ctx, query, telegramID).Scan(
		&s.TelegramID,
		&s.UserID,
		&s.PatientID,
		&s.Role,
		&s.DisplayName,
		&s.AccessToken,
		&s.RefreshToken,
		&expiresAt,
		&s.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if expiresAt != nil {
		s.ExpiresAt = *expiresAt
	}

	return &s, nil
}

// Delete удаляет сессию пользователя
func (r *SessionRepository) Delete(ctx context.Context, telegramID int64) error {
	_, err := r.ExecAffected(ctx, `DELETE FROM sessions WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteIfToken удаляет сессию, только если в ней всё ещё тот же токен.
// Возвращает false, если сессия уже заменена новой.
func (r *SessionRepository) DeleteIfToken(ctx context.Context, telegramID int64, accessToken string) (bool, error) {
	affected, err := r.ExecAffected(ctx,
		`DELETE FROM sessions WHERE telegram_id = $1 AND access_token = $2`,
		telegramID, accessToken,
	)
	if err != nil {
		return false, fmt.Errorf("delete session by token: %w", err)
	}
	return affected > 0, nil
}

// DeleteExpired удаляет сессии с истёкшим токеном
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	affected, err := r.ExecAffected(ctx,
		`DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return affected, nil
}
