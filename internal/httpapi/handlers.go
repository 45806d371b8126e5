// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetIssueRequest struct {
	Email string `json:"email"`
}

type resetRedeemRequest struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

type accountResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	account, err := s.service.Register(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrDuplicateRegistration):
		s.recordRegistration("duplicate")
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email already registered"})
		return
	case err != nil:
		s.recordRegistration("error")
		errutil.LogError(s.logger, "registration failed", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	s.recordRegistration("success")
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"email":   account.Email,
		"message": "user created",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	token, err := s.service.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.recordLogin("failure")
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	case err != nil:
		s.recordLogin("failure")
		errutil.LogError(s.logger, "login failed", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if s.sessions != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     s.sessions.CookieName(),
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	s.recordLogin("success")
	s.writeJSON(w, http.StatusOK, map[string]string{"email": auth.NormalizeEmail(req.Email)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// The gate already resolved this session, so a destroy miss means it
	// vanished between the gate check and now (or sessions are disabled).
	if s.sessions == nil || !s.sessions.DestroySession(r.Context(), r) {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
		return
	}

	// Expire the cookie client-side as well.
	http.SetCookie(w, &http.Cookie{
		Name:     s.sessions.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.writeJSON(w, http.StatusOK, map[string]string{})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	s.writeJSON(w, http.StatusOK, accountResponse{
		ID:        account.ID.String(),
		Email:     account.Email,
		CreatedAt: account.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleResetIssue(w http.ResponseWriter, r *http.Request) {
	var req resetIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	token, err := s.resets.Issue(r.Context(), req.Email)
	switch {
	case errors.Is(err, auth.ErrUnknownAccount):
		s.recordReset("issue", "failure")
		s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
		return
	case err != nil:
		s.recordReset("issue", "failure")
		errutil.LogError(s.logger, "reset token issue failed", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	s.recordReset("issue", "success")
	s.writeJSON(w, http.StatusOK, map[string]string{
		"email":       auth.NormalizeEmail(req.Email),
		"reset_token": token,
	})
}

func (s *Server) handleResetRedeem(w http.ResponseWriter, r *http.Request) {
	var req resetRedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	err := s.resets.Redeem(r.Context(), req.ResetToken, req.NewPassword)
	switch {
	case errors.Is(err, auth.ErrInvalidResetToken):
		s.recordReset("redeem", "failure")
		s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
		return
	case err != nil:
		s.recordReset("redeem", "failure")
		errutil.LogError(s.logger, "reset token redeem failed", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	s.recordReset("redeem", "success")
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (s *Server) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) recordRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) recordReset(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.PasswordResetsTotal.WithLabelValues(operation, outcome).Inc()
	}
}
