package dto

import (
	"strings"

	"github.com/quaykit/identity-service/internal/domain"
)

// -------- Core auth --------

type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	Name            string `json:"name" validate:"required,max=128"`
}

func (r *RegisterRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	r.Name = strings.TrimSpace(r.Name)

	if err := validateStruct(r); err != nil {
		return err
	}
	if r.Password != r.ConfirmPassword {
		return domain.ErrPasswordMismatch()
	}
	return nil
}

type LoginRequest struct {
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	return validateStruct(r)
}

type LogoutRequest struct{}

// -------- Password reset --------

// Step A: request reset. The server always answers 200 to avoid
// revealing whether the email is registered.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (r *PasswordResetRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	return validateStruct(r)
}

// Step B: confirm reset with the emailed token.
type PasswordResetConfirmRequest struct {
	Token              string `json:"token" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required"`
	ConfirmNewPassword string `json:"confirm_new_password" validate:"required"`
}

func (r *PasswordResetConfirmRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if r.NewPassword != r.ConfirmNewPassword {
		return domain.ErrPasswordMismatch()
	}
	return nil
}

// Validate reset token without consuming it (GET /password/reset/validate?token=...).
type PasswordResetValidateQuery struct {
	Token string `json:"-"` // filled from query param, not JSON
}

func (q *PasswordResetValidateQuery) Validate() error {
	if q.Token == "" {
		return domain.ErrMissingField("token")
	}
	return nil
}
