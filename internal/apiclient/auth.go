package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// LoginResult результат входа в бэкенд
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	UserID       int64
	PatientID    int64
	Role         string
	DisplayName  string
	Email        string
}

// Login открывает сессию по email и паролю
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	raw, err := c.do(ctx, nil, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/auth/login",
		body: map[string]string{
			"email":    email,
			"password": password,
		},
	})
	if err != nil {
		return nil, err
	}

	rec, err := decodeOne[loginRecord](raw)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if rec == nil || firstNonEmpty(rec.AccessToken, rec.Token) == "" {
		return nil, fmt.Errorf("login: response has no access token")
	}

	result := &LoginResult{
		AccessToken:  firstNonEmpty(rec.AccessToken, rec.Token),
		RefreshToken: rec.RefreshToken,
		ExpiresIn:    time.Duration(rec.ExpiresIn) * time.Second,
	}

	user := rec.Usuario
	if user == nil {
		user = rec.User
	}
	if user != nil {
		result.UserID = firstID(user.IDUsuario, user.ID)
		result.PatientID = firstID(user.IDPaciente, user.PacienteID)
		result.Role = firstNonEmpty(user.Tipo, user.Rol, user.Role)
		result.DisplayName = firstNonEmpty(user.NombreCompleto, joinName(user.Nombre, user.Apellido))
		result.Email = user.Email
	}

	return result, nil
}

// Logout закрывает сессию в бэкенде
func (s *SessionClient) Logout(ctx context.Context) error {
	_, err := s.client.do(ctx, s.session, request{
		op:     "logout",
		method: http.MethodPost,
		path:   "/auth/logout",
	})
	return err
}
