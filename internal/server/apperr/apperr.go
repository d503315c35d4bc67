// Package apperr defines the typed failures returned by the auth service.
// Each failure is an immutable (HTTP status, message key) pair rendered by
// the REST layer as {"key": "<dotted.key>"}.
package apperr

import (
	"errors"
	"net/http"
)

// Error is a client-facing failure.
type Error struct {
	Status int
	Key    string
}

func (e *Error) Error() string {
	return e.Key
}

func newError(status int, key string) *Error {
	return &Error{Status: status, Key: key}
}

var (
	UserAgentHeaderNull = newError(http.StatusBadRequest, "error.login.header.user_agent.null")
	ClientIPHeaderNull  = newError(http.StatusBadRequest, "error.login.header.x_forwarded_for.null")
	InvalidCredentials  = newError(http.StatusUnauthorized, "error.login.invalidCredentials")
	AccountDeactivated  = newError(http.StatusUnauthorized, "error.login.desactivatedUser")

	EmailNull          = newError(http.StatusBadRequest, "error.register.email.null")
	EmailInvalid       = newError(http.StatusBadRequest, "error.register.email.invalid")
	EmailAlreadyExists = newError(http.StatusBadRequest, "error.register.email.alreadyExists")
	LoginNull          = newError(http.StatusBadRequest, "error.register.login.null")
	LoginInvalid       = newError(http.StatusBadRequest, "error.register.login.invalid")
	LoginAlreadyExists = newError(http.StatusBadRequest, "error.register.login.alreadyExists")
	PasswordNull       = newError(http.StatusBadRequest, "error.register.password.null")
	PasswordInvalid    = newError(http.StatusBadRequest, "error.register.password.invalid")

	AuthorizationHeaderNull    = newError(http.StatusBadRequest, "error.authorization.header.null")
	AuthorizationHeaderInvalid = newError(http.StatusBadRequest, "error.authorization.header.invalid")
	TokenNotFound              = newError(http.StatusBadRequest, "error.authorization.token.not_exists")
	NotAuthorized              = newError(http.StatusUnauthorized, "error.authorization.not_authorized")

	UserNotFound     = newError(http.StatusNotFound, "error.user.not_exists")
	UserNotActivated = newError(http.StatusUnauthorized, "error.user.not_activated")

	UpdateIDNull             = newError(http.StatusBadRequest, "error.update.id.null")
	UpdateEmailInvalid       = newError(http.StatusBadRequest, "error.update.email.invalid")
	UpdateLoginInvalid       = newError(http.StatusBadRequest, "error.update.login.invalid")
	UpdateEmailAndLoginNull  = newError(http.StatusBadRequest, "error.update.email_and_login.null")
	UpdateEmailAlreadyExists = newError(http.StatusBadRequest, "error.update.email.alreadyExists")
	UpdateLoginAlreadyExists = newError(http.StatusBadRequest, "error.update.login.alreadyExists")

	RequestBodyInvalid = newError(http.StatusBadRequest, "error.request.body.invalid")

	Unknown = newError(http.StatusInternalServerError, "error.server.unknow")
)

// From returns the *Error carried by err, or Unknown when err is not a
// client-facing failure.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Unknown
}
