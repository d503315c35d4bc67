package rest

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/apperr"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

type loginRequest struct {
	LoginOrEmail string `json:"loginOrEmail"`
	Password     string `json:"password"`
	RememberMe   *bool  `json:"rememberMe"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

type updateEmailOrLoginRequest struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Login string `json:"login"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Login     string `json:"login"`
	CreatedAt string `json:"createdAt"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Login:     u.Login,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := s.users.Login(r.Context(), services.LoginRequest{
		LoginOrEmail: req.LoginOrEmail,
		Password:     req.Password,
		RememberMe:   req.RememberMe,
		UserAgent:    r.Header.Get(common.UserAgentHeaderName),
		ClientIP:     r.Header.Get(common.ClientIPHeaderName),
	})
	s.metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func loginResult(err error) string {
	if err == nil {
		return "success"
	}
	return apperr.From(err).Key
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.users.Register(r.Context(), services.RegisterRequest{
		Email:    req.Email,
		Login:    req.Login,
		Password: req.Password,
	}); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Logout(r.Context(), r.Header.Get(common.AuthorizationHeaderName)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.ResolveUser(r.Context(), r.Header.Get(common.AuthorizationHeaderName))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (s *Server) updateEmailOrLogin(w http.ResponseWriter, r *http.Request) {
	var req updateEmailOrLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := s.users.UpdateEmailOrLogin(r.Context(), r.Header.Get(common.AuthorizationHeaderName),
		services.UpdateEmailOrLoginRequest{ID: req.ID, Email: req.Email, Login: req.Login})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}
