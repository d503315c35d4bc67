// Package services contains server-side business logic. This file implements
// UserService: registration, login with per-device session supersession,
// logout, token-based identity resolution and permission checks.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/apperr"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/authkeeper/internal/server/validation"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// LoginRequest carries the credentials and the device the session is bound to.
// A nil RememberMe counts as true.
type LoginRequest struct {
	LoginOrEmail string
	Password     string
	RememberMe   *bool
	UserAgent    string
	ClientIP     string
}

type RegisterRequest struct {
	Email    string
	Login    string
	Password string
}

// UpdateEmailOrLoginRequest changes the email and/or login of user ID.
// Blank fields are left unchanged.
type UpdateEmailOrLoginRequest struct {
	ID    string
	Email string
	Login string
}

// TokenCodec mints and verifies session tokens.
type TokenCodec interface {
	Mint(subject, userAgent, clientIP string, expiresAt *time.Time) (string, error)
	Verify(token string) (*auth.Claims, error)
}

// UserService implements the authentication flows. Client-facing failures are
// *apperr.Error values; anything else is an infrastructure failure already
// logged by the service.
type UserService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	tokens          TokenCodec
	passwords       auth.PasswordHasher
	sessionValidity time.Duration
	logger          logging.Logger
	now             func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens TokenCodec,
	passwords auth.PasswordHasher, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:              db,
		repomanager:     m,
		tokens:          tokens,
		passwords:       passwords,
		sessionValidity: cfg.SessionValidityDuration,
		logger:          logger,
		now:             time.Now,
	}
}

// Login authenticates the user and opens a session for the requesting device.
// Sessions of the same device (same user agent, same client IP ignoring case)
// and expired sessions are revoked in the same transaction that stores the
// new one.
func (s *UserService) Login(ctx context.Context, req LoginRequest) (string, error) {
	if validation.IsBlank(req.UserAgent) {
		return "", apperr.UserAgentHeaderNull
	}
	if validation.IsBlank(req.ClientIP) {
		return "", apperr.ClientIPHeaderNull
	}

	user, err := s.repomanager.Users(s.db).GetByLoginOrEmail(ctx, strings.ToLower(req.LoginOrEmail))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", apperr.InvalidCredentials
		}
		return "", s.internal(ctx, "LOGIN_FAILED", "lookup user", err)
	}
	if !s.passwords.Verify(user.Password, req.Password) {
		return "", apperr.InvalidCredentials
	}
	if !user.Activated {
		return "", apperr.AccountDeactivated
	}

	now := s.now()
	var expiresAt *time.Time
	if req.RememberMe != nil && !*req.RememberMe {
		exp := now.Add(s.sessionValidity)
		expiresAt = &exp
	}

	var token string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, user.ID); err != nil {
			return err
		}

		sessions := s.repomanager.Sessions(tx)
		active, err := sessions.ListActiveByUserID(ctx, user.ID)
		if err != nil {
			return err
		}
		for _, session := range active {
			if !s.superseded(session, req.UserAgent, req.ClientIP, now) {
				continue
			}
			if err := sessions.MarkDeleted(ctx, session.ID); err != nil {
				return err
			}
		}

		token, err = s.tokens.Mint(user.ID, req.UserAgent, req.ClientIP, expiresAt)
		if err != nil {
			return err
		}
		return sessions.Create(ctx, &models.Session{UserID: user.ID, Token: token, CreatedAt: now})
	})
	if err != nil {
		return "", s.internal(ctx, "LOGIN_FAILED", "open session", err, "user_id", user.ID)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID, "remember_me", expiresAt == nil)
	return token, nil
}

// superseded reports whether an active session must be revoked when the
// device identified by userAgent and clientIP logs in again. Tokens that no
// longer verify are revoked too.
func (s *UserService) superseded(session models.Session, userAgent, clientIP string, now time.Time) bool {
	claims, err := s.tokens.Verify(session.Token)
	if err != nil {
		return true
	}
	if claims.Expired(now) {
		return true
	}
	return claims.UserAgent == auth.NormalizeClaim(userAgent) &&
		strings.EqualFold(claims.ClientIP, auth.NormalizeClaim(clientIP))
}

// Register validates and stores a new, not yet activated user.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := validation.Check(req.Email, validation.ValidEmail, apperr.EmailNull, apperr.EmailInvalid); err != nil {
		return nil, err
	}
	if err := validation.Check(req.Login, validation.ValidLogin, apperr.LoginNull, apperr.LoginInvalid); err != nil {
		return nil, err
	}
	if err := validation.Check(req.Password, validation.ValidPassword, apperr.PasswordNull, apperr.PasswordInvalid); err != nil {
		return nil, err
	}

	email := strings.ToLower(req.Email)
	login := strings.ToLower(req.Login)
	repo := s.repomanager.Users(s.db)

	taken, err := exists(repo.GetByEmail(ctx, email))
	if err != nil {
		return nil, s.internal(ctx, "REGISTER_FAILED", "check email", err)
	}
	if taken {
		return nil, apperr.EmailAlreadyExists
	}
	taken, err = exists(repo.GetByLogin(ctx, login))
	if err != nil {
		return nil, s.internal(ctx, "REGISTER_FAILED", "check login", err)
	}
	if taken {
		return nil, apperr.LoginAlreadyExists
	}

	encoded, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, s.internal(ctx, "REGISTER_FAILED", "hash password", err)
	}

	user, err := repo.Create(ctx, &models.User{
		Email:     email,
		Login:     login,
		Password:  encoded,
		CreatedAt: s.now(),
	})
	switch {
	case errors.Is(err, users.ErrEmailExists):
		return nil, apperr.EmailAlreadyExists
	case errors.Is(err, users.ErrLoginExists):
		return nil, apperr.LoginAlreadyExists
	case err != nil:
		return nil, s.internal(ctx, "REGISTER_FAILED", "create user", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Logout revokes the session holding the bearer token. Expired sessions can
// still be logged out.
func (s *UserService) Logout(ctx context.Context, authorization string) error {
	session, err := s.ResolveSession(ctx, authorization)
	if err != nil {
		return err
	}
	if err := s.repomanager.Sessions(s.db).MarkDeleted(ctx, session.ID); err != nil {
		return s.internal(ctx, "LOGOUT_FAILED", "revoke session", err, "session_id", session.ID)
	}
	return nil
}

// ResolveSession returns the active session for an Authorization header value.
func (s *UserService) ResolveSession(ctx context.Context, authorization string) (*models.Session, error) {
	if validation.IsBlank(authorization) {
		return nil, apperr.AuthorizationHeaderNull
	}
	token, ok := validation.BearerToken(authorization)
	if !ok {
		return nil, apperr.AuthorizationHeaderInvalid
	}

	session, err := s.repomanager.Sessions(s.db).FindActiveByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.TokenNotFound
		}
		return nil, s.internal(ctx, "SESSION_LOOKUP_FAILED", "find session", err)
	}
	return session, nil
}

// ResolveUser returns the activated user owning an unexpired active session.
func (s *UserService) ResolveUser(ctx context.Context, authorization string) (*models.User, error) {
	session, err := s.ResolveSession(ctx, authorization)
	if err != nil {
		return nil, err
	}

	claims, err := s.tokens.Verify(session.Token)
	if err != nil || claims.Expired(s.now()) {
		return nil, apperr.TokenNotFound
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.UserNotFound
		}
		return nil, s.internal(ctx, "USER_LOOKUP_FAILED", "find user", err, "user_id", claims.Subject)
	}
	if !user.Activated {
		return nil, apperr.UserNotActivated
	}
	return user, nil
}

// AssertHasPermission succeeds when the user behind authorization holds
// every named permission through at least one of their groups. Names are
// compared case-insensitively; an empty list only requires a valid session.
func (s *UserService) AssertHasPermission(ctx context.Context, authorization string, names ...string) error {
	user, err := s.ResolveUser(ctx, authorization)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}

	groups, err := s.repomanager.Groups(s.db).ListByUserID(ctx, user.ID)
	if err != nil {
		return s.internal(ctx, "PERMISSION_LOOKUP_FAILED", "list groups", err, "user_id", user.ID)
	}

	granted := map[string]struct{}{}
	for _, g := range groups {
		for _, p := range g.Permissions {
			granted[strings.ToLower(p.Name)] = struct{}{}
		}
	}
	for _, name := range names {
		if _, ok := granted[strings.ToLower(name)]; !ok {
			return apperr.NotAuthorized
		}
	}
	return nil
}

// UpdateEmailOrLogin lets an authenticated user change their own email
// and/or login.
func (s *UserService) UpdateEmailOrLogin(ctx context.Context, authorization string, req UpdateEmailOrLoginRequest) (*models.User, error) {
	current, err := s.ResolveUser(ctx, authorization)
	if err != nil {
		return nil, err
	}
	if validation.IsBlank(req.ID) {
		return nil, apperr.UpdateIDNull
	}

	repo := s.repomanager.Users(s.db)

	if _, err := uuid.Parse(req.ID); err != nil {
		return nil, apperr.UserNotFound
	}
	target, err := repo.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.UserNotFound
		}
		return nil, s.internal(ctx, "UPDATE_FAILED", "find user", err, "user_id", req.ID)
	}
	if target.ID != current.ID {
		return nil, apperr.NotAuthorized
	}

	hasEmail := !validation.IsBlank(req.Email)
	hasLogin := !validation.IsBlank(req.Login)
	if hasEmail && !validation.ValidEmail(req.Email) {
		return nil, apperr.UpdateEmailInvalid
	}
	if hasLogin && !validation.ValidLogin(req.Login) {
		return nil, apperr.UpdateLoginInvalid
	}
	if !hasEmail && !hasLogin {
		return nil, apperr.UpdateEmailAndLoginNull
	}

	if hasEmail {
		email := strings.ToLower(req.Email)
		other, err := repo.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, s.internal(ctx, "UPDATE_FAILED", "check email", err)
		}
		if other != nil && other.ID != target.ID {
			return nil, apperr.UpdateEmailAlreadyExists
		}
		target.Email = email
	}
	if hasLogin {
		login := strings.ToLower(req.Login)
		other, err := repo.GetByLogin(ctx, login)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, s.internal(ctx, "UPDATE_FAILED", "check login", err)
		}
		if other != nil && other.ID != target.ID {
			return nil, apperr.UpdateLoginAlreadyExists
		}
		target.Login = login
	}

	err = repo.Update(ctx, target)
	switch {
	case errors.Is(err, users.ErrEmailExists):
		return nil, apperr.UpdateEmailAlreadyExists
	case errors.Is(err, users.ErrLoginExists):
		return nil, apperr.UpdateLoginAlreadyExists
	case err != nil:
		return nil, s.internal(ctx, "UPDATE_FAILED", "update user", err, "user_id", target.ID)
	}
	return target, nil
}

// internal wraps an infrastructure failure with a code and context, logs it
// and returns it. The REST layer renders it as the generic server error.
func (s *UserService) internal(ctx context.Context, code, operation string, err error, kv ...any) error {
	wrapped := oops.Code(code).With("operation", operation).With(kv...).Wrap(err)
	logging.LogError(ctx, s.logger, operation+" failed", wrapped)
	return wrapped
}

func exists(_ *models.User, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrorNotFound):
		return false, nil
	default:
		return false, err
	}
}
