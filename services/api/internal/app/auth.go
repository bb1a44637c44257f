package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"svnglobal/internal/util"
	"svnglobal/pkg/domain"
	"svnglobal/services/api/internal/authclient"
)

// SignUp registers an account with the hosted auth service and records its
// user role. While no admin exists the new account becomes the admin.
func (a *App) SignUp(ctx context.Context, email, password string) (domain.Session, error) {
	email, err := credentials(email, password)
	if err != nil {
		return domain.Session{}, err
	}
	if err := a.requireStore(); err != nil {
		return domain.Session{}, err
	}
	if a.auth == nil {
		return domain.Session{}, ErrAuthUnavailable
	}
	res, err := a.auth.SignUp(ctx, email, password)
	if err != nil {
		return domain.Session{}, err
	}
	if res.User.ID == "" {
		// Some projects hide whether the email is already registered.
		return sessionFrom(res, nil), nil
	}
	if err := a.store.SaveRole(ctx, domain.UserRole{
		ID:        util.NewID(),
		UserID:    res.User.ID,
		Role:      domain.RoleUser,
		CreatedAt: a.now(),
	}); err != nil {
		return domain.Session{}, fmt.Errorf("save user role: %w", err)
	}
	granted, err := a.store.AssignFirstAdmin(ctx, res.User.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("assign first admin: %w", err)
	}
	if granted {
		slog.InfoContext(ctx, "first admin assigned", "user_id", res.User.ID)
	}
	roles, err := a.store.ListRoles(ctx, res.User.ID)
	if err != nil {
		return domain.Session{}, err
	}
	return sessionFrom(res, roles), nil
}

// SignIn exchanges credentials for a session carrying the account's roles.
func (a *App) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	email, err := credentials(email, password)
	if err != nil {
		return domain.Session{}, err
	}
	if err := a.requireStore(); err != nil {
		return domain.Session{}, err
	}
	if a.auth == nil {
		return domain.Session{}, ErrAuthUnavailable
	}
	res, err := a.auth.SignIn(ctx, email, password)
	if err != nil {
		return domain.Session{}, err
	}
	roles, err := a.store.ListRoles(ctx, res.User.ID)
	if err != nil {
		return domain.Session{}, err
	}
	return sessionFrom(res, roles), nil
}

// SignOut records token as revoked, then ends the hosted session.
func (a *App) SignOut(ctx context.Context, token string) error {
	if a.auth == nil {
		return ErrAuthUnavailable
	}
	if a.revoker != nil {
		if err := a.revoker.Revoke(ctx, token, a.revocationTTL(ctx, token)); err != nil {
			return fmt.Errorf("%w: revoke token: %v", ErrAuthUnavailable, err)
		}
	}
	return a.auth.SignOut(ctx, token)
}

func (a *App) revocationTTL(ctx context.Context, token string) time.Duration {
	if a.tokens == nil {
		return defaultRevocationTTL
	}
	claims, err := a.tokens.Verify(ctx, token)
	if err != nil || claims.ExpiresAt == nil {
		return defaultRevocationTTL
	}
	return claims.ExpiresAt.Sub(a.now())
}

// SessionFromToken resolves a bearer token to a session. The signature is
// checked locally when a verifier is configured; the account itself is
// always confirmed with the auth service.
func (a *App) SessionFromToken(ctx context.Context, token string) (domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Session{}, ErrUnauthorized
	}
	if err := a.requireStore(); err != nil {
		return domain.Session{}, err
	}
	if a.auth == nil {
		return domain.Session{}, ErrAuthUnavailable
	}
	sess := domain.Session{AccessToken: token}
	if a.tokens != nil {
		claims, err := a.tokens.Verify(ctx, token)
		if err != nil {
			return domain.Session{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		if claims.ExpiresAt != nil {
			sess.ExpiresAt = claims.ExpiresAt.UTC()
		}
	}
	if sess.Expired(a.now()) {
		return domain.Session{}, ErrUnauthorized
	}
	if a.revoker != nil {
		revoked, err := a.revoker.IsRevoked(ctx, token)
		if err != nil {
			return domain.Session{}, fmt.Errorf("%w: revocation lookup: %v", ErrAuthUnavailable, err)
		}
		if revoked {
			return domain.Session{}, fmt.Errorf("%w: token revoked", ErrUnauthorized)
		}
	}
	user, err := a.auth.User(ctx, token)
	if err != nil {
		var apiErr *authclient.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			return domain.Session{}, fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		}
		return domain.Session{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	if user.ID == "" {
		return domain.Session{}, ErrUnauthorized
	}
	roles, err := a.store.ListRoles(ctx, user.ID)
	if err != nil {
		return domain.Session{}, err
	}
	if roles == nil {
		roles = []domain.Role{}
	}
	sess.User = user
	sess.Roles = roles
	sess.IsAdmin = slices.Contains(roles, domain.RoleAdmin)
	return sess, nil
}

// ClaimFirstAdmin lets an existing account take the admin role while none
// is assigned. It reports whether the grant happened.
func (a *App) ClaimFirstAdmin(ctx context.Context, sess domain.Session) (domain.Session, bool, error) {
	if err := a.requireStore(); err != nil {
		return domain.Session{}, false, err
	}
	if sess.IsAdmin {
		return sess, false, nil
	}
	granted, err := a.store.AssignFirstAdmin(ctx, sess.User.ID)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("assign first admin: %w", err)
	}
	if !granted {
		return sess, false, nil
	}
	slog.InfoContext(ctx, "first admin assigned", "user_id", sess.User.ID)
	roles, err := a.store.ListRoles(ctx, sess.User.ID)
	if err != nil {
		return domain.Session{}, false, err
	}
	sess.Roles = roles
	sess.IsAdmin = slices.Contains(roles, domain.RoleAdmin)
	return sess, true, nil
}

func credentials(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", invalid("email and password required")
	}
	return email, nil
}

func sessionFrom(res authclient.Session, roles []domain.Role) domain.Session {
	if roles == nil {
		roles = []domain.Role{}
	}
	return domain.Session{
		User:         res.User,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		Roles:        roles,
		IsAdmin:      slices.Contains(roles, domain.RoleAdmin),
	}
}
