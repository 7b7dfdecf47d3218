package dto

import "github.com/quaykit/identity-service/internal/domain"

// AccountView is the standard account payload for identity responses.
type AccountView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func NewAccountView(a domain.Account) AccountView {
	return AccountView{ID: a.ID, Email: a.Email, Name: a.Name}
}

// SessionView is the standard session payload.
// The session handle also travels in an HttpOnly cookie; it is echoed in
// JSON for non-browser clients.
type SessionView struct {
	Token      string `json:"token"`
	TokenType  string `json:"token_type"` // "Bearer"
	ExpiresIn  int64  `json:"expires_in"` // seconds
	Persistent bool   `json:"persistent"`
}

// AuthData is returned by register/login.
type AuthData struct {
	Account AccountView `json:"account"`
	Session SessionView `json:"session"`
}

// MeData is returned by /me.
type MeData struct {
	Account AccountView `json:"account"`
}

// -------- Password reset --------

type PasswordResetRequestResponse struct {
	Status string `json:"status"` // "ok"
}

type PasswordResetConfirmResponse struct {
	Status string `json:"status"` // "ok"
}

type PasswordResetValidateResponse struct {
	Valid bool `json:"valid"`
}
