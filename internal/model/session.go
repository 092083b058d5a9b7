package model

import "time"

// Session сессия пользователя бота в бэкенде клиники
type Session struct {
	TelegramID   int64     `json:"telegram_id"`
	UserID       int64     `json:"user_id"`
	PatientID    int64     `json:"patient_id"` // 0 - пользователь не пациент
	Role         string    `json:"role"`
	DisplayName  string    `json:"display_name"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsExpired проверяет, истёк ли токен доступа
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// HasPatient проверяет, что сессия привязана к пациенту
func (s *Session) HasPatient() bool {
	return s != nil && s.PatientID > 0
}
