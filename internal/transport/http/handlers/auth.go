package http_handlers

import (
	"net/http"

	"github.com/quaykit/identity-service/internal/application/auth"
	"github.com/quaykit/identity-service/internal/domain"
	"github.com/quaykit/identity-service/internal/infrastructure/security"
	"github.com/quaykit/identity-service/internal/logger"
	"github.com/quaykit/identity-service/internal/transport/http/dto"
	"github.com/quaykit/identity-service/internal/transport/http/middleware"
	"github.com/quaykit/identity-service/internal/transport/http/response"
)

type AuthHandler struct {
	svc           *auth.Service
	secureCookies bool
}

func NewAuthHandler(svc *auth.Service, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("account_id", res.Account.ID).
		Str("email", res.Account.Email).
		Msg("account_registered")

	security.SetSessionCookie(w, res.Session.Handle, res.Session.ExpiresIn, res.Session.Persistent, h.secureCookies)

	response.Created(w, dto.AuthData{
		Account: dto.NewAccountView(res.Account),
		Session: sessionView(res.Session),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("account_id", res.Account.ID).
		Msg("account_logged_in")

	security.SetSessionCookie(w, res.Session.Handle, res.Session.ExpiresIn, res.Session.Persistent, h.secureCookies)

	response.OK(w, dto.AuthData{
		Account: dto.NewAccountView(res.Account),
		Session: sessionView(res.Session),
	})
}

// Logout revokes the current session. Missing or tampered handles still get
// 204 so repeated logouts are harmless.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	handle, _ := security.ReadSessionCookie(r)

	if err := h.svc.Logout(r.Context(), handle); err != nil {
		response.WriteError(w, r, err)
		return
	}

	security.ClearSessionCookie(w, h.secureCookies)
	response.NoContent(w)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrSessionMissing())
		return
	}

	a, err := h.svc.GetAccount(r.Context(), accountID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.MeData{Account: dto.NewAccountView(a)})
}

// PasswordResetRequest always answers 200 with the same body so callers
// cannot probe which emails are registered.
func (h *AuthHandler) PasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.PasswordResetRequest(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.PasswordResetRequestResponse{Status: "ok"})
}

func (h *AuthHandler) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetConfirmRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.PasswordResetConfirm(r.Context(), req.Token, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().Msg("password_reset_confirmed")

	response.OK(w, dto.PasswordResetConfirmResponse{Status: "ok"})
}

func (h *AuthHandler) PasswordResetValidate(w http.ResponseWriter, r *http.Request) {
	q := dto.PasswordResetValidateQuery{Token: r.URL.Query().Get("token")}
	if err := q.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.PasswordResetValidate(r.Context(), q.Token); err != nil {
		if domain.Is(err, "reset_token_invalid") {
			response.OK(w, dto.PasswordResetValidateResponse{Valid: false})
			return
		}
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.PasswordResetValidateResponse{Valid: true})
}

func sessionView(s auth.Session) dto.SessionView {
	return dto.SessionView{
		Token:      s.Handle,
		TokenType:  "Bearer",
		ExpiresIn:  int64(s.ExpiresIn.Seconds()),
		Persistent: s.Persistent,
	}
}
