package server

import (
	"errors"
	"net/http"

	"svnglobal/pkg/domain"
	"svnglobal/services/api/internal/app"
)

type authHandler func(http.ResponseWriter, *http.Request, domain.Session)

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authenticated resolves the bearer token to a session before calling next.
func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.authorize(w, r, "auth.authorize")
		if !ok {
			return
		}
		next(w, r, sess)
	})
}

// adminOnly additionally requires the admin role.
func (s *Server) adminOnly(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.authorize(w, r, "admin.authorize")
		if !ok {
			return
		}
		if !sess.IsAdmin {
			s.audit(r, "admin.authorize", "fail", "user_id", sess.User.ID, "reason", "forbidden")
			s.writeAppError(w, r, app.ErrForbidden)
			return
		}
		next(w, r, sess)
	})
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request, event string) (domain.Session, bool) {
	if !s.app.StoreConfigured() {
		s.writeAppError(w, r, app.ErrStoreUnavailable)
		return domain.Session{}, false
	}
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, event, "fail", "reason", "missing_token")
		s.writeAppError(w, r, app.ErrUnauthorized)
		return domain.Session{}, false
	}
	sess, err := s.app.SessionFromToken(r.Context(), token)
	if err != nil {
		reason := "invalid_token"
		if !errors.Is(err, app.ErrUnauthorized) {
			reason = "session_lookup_failed"
		}
		s.audit(r, event, "fail", "reason", reason)
		s.writeAppError(w, r, err)
		return domain.Session{}, false
	}
	s.audit(r, event, "success", "user_id", sess.User.ID)
	return sess, true
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts") {
		s.audit(r, "auth.signup", "rate_limited")
		return
	}
	var req authRequest
	if !decodeJSON(w, r, &req) {
		s.audit(r, "auth.signup", "fail", "reason", "invalid_json")
		return
	}
	sess, err := s.app.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.audit(r, "auth.signup", "fail", "reason", err.Error())
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "auth.signup", "success", "user_id", sess.User.ID, "is_admin", sess.IsAdmin)
	msg := ""
	if sess.AccessToken == "" {
		msg = "Check your email to confirm the account"
	}
	writeMessage(w, http.StatusCreated, sess, msg)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "auth.login", "rate_limited")
		return
	}
	var req authRequest
	if !decodeJSON(w, r, &req) {
		s.audit(r, "auth.login", "fail", "reason", "invalid_json")
		return
	}
	sess, err := s.app.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.audit(r, "auth.login", "fail", "reason", err.Error())
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "auth.login", "success", "user_id", sess.User.ID, "is_admin", sess.IsAdmin)
	writeData(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.app.SignOut(r.Context(), sess.AccessToken); err != nil {
		s.audit(r, "auth.logout", "fail", "user_id", sess.User.ID, "reason", err.Error())
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "auth.logout", "success", "user_id", sess.User.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	// The caller already holds the token.
	sess.AccessToken = ""
	writeData(w, http.StatusOK, sess)
}

func (s *Server) handleClaimAdmin(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	updated, granted, err := s.app.ClaimFirstAdmin(r.Context(), sess)
	if err != nil {
		s.audit(r, "auth.claim_admin", "fail", "user_id", sess.User.ID, "reason", err.Error())
		s.writeAppError(w, r, err)
		return
	}
	if !granted && !updated.IsAdmin {
		s.audit(r, "auth.claim_admin", "fail", "user_id", sess.User.ID, "reason", "admin_exists")
		writeError(w, http.StatusForbidden, "An admin account already exists")
		return
	}
	s.audit(r, "auth.claim_admin", "success", "user_id", sess.User.ID, "granted", granted)
	updated.AccessToken = ""
	writeData(w, http.StatusOK, updated)
}
