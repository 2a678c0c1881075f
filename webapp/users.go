package webapp

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tailored-agentic-units/studyplan/auth"
	"github.com/tailored-agentic-units/studyplan/internal/httpapi"
	"github.com/tailored-agentic-units/studyplan/store"
)

// UserView is the public form of a user.
type UserView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	HasAPIKey bool      `json:"has_api_key"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenView answers register and login.
type TokenView struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        UserView `json:"user"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type apiKeyRequest struct {
	APIKey string `json:"api_key"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

const (
	minUsername  = 3
	maxUsername  = 50
	minPassword  = 8
	minAPIKeyLen = 10
)

func viewOfUser(u store.User) UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		HasAPIKey: u.HasAPIKey(),
		CreatedAt: u.CreatedAt,
	}
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func message(w http.ResponseWriter, text string) {
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"message": text})
}

func (s *Server) issue(w http.ResponseWriter, status int, u store.User) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpapi.WriteJSON(w, status, TokenView{AccessToken: token, TokenType: "bearer", User: viewOfUser(u)})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpapi.Decode(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	switch n := utf8.RuneCountInString(req.Username); {
	case !validEmail(req.Email):
		httpapi.WriteError(w, http.StatusUnprocessableEntity, "email: value is not a valid email address")
		return
	case n < minUsername || n > maxUsername:
		httpapi.WriteErrorf(w, http.StatusUnprocessableEntity, "username: must be %d to %d characters", minUsername, maxUsername)
		return
	case utf8.RuneCountInString(req.Password) < minPassword:
		httpapi.WriteErrorf(w, http.StatusUnprocessableEntity, "password: must be at least %d characters", minPassword)
		return
	}

	ctx := r.Context()
	if taken, err := s.store.EmailExists(ctx, req.Email); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	} else if taken {
		httpapi.WriteError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if taken, err := s.store.UsernameExists(ctx, req.Username); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	} else if taken {
		httpapi.WriteError(w, http.StatusBadRequest, "Username already taken")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httpapi.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	u, err := s.store.CreateUser(ctx, req.Email, req.Username, hash)
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		httpapi.WriteError(w, http.StatusBadRequest, "Email already registered")
		return
	case errors.Is(err, store.ErrUsernameTaken):
		httpapi.WriteError(w, http.StatusBadRequest, "Username already taken")
		return
	case err != nil:
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.issue(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpapi.Decode(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.store.UserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err != nil || !auth.CheckPassword(u.HashedPassword, req.Password) {
		httpapi.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	s.issue(w, http.StatusOK, u)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, viewOfUser(userFrom(r.Context())))
}

func (s *Server) setAPIKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyRequest
	if err := httpapi.Decode(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if utf8.RuneCountInString(key) < minAPIKeyLen {
		httpapi.WriteErrorf(w, http.StatusUnprocessableEntity, "api_key: must be at least %d characters", minAPIKeyLen)
		return
	}

	sealed, err := s.cipher.Seal(key)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "Failed to encrypt API key")
		return
	}
	if err := s.store.SetAPIKey(r.Context(), userFrom(r.Context()).ID, sealed); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	message(w, "API key updated successfully")
}

func (s *Server) deleteAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAPIKey(r.Context(), userFrom(r.Context()).ID); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	message(w, "API key deleted successfully")
}

func (s *Server) setPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := httpapi.Decode(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if utf8.RuneCountInString(req.NewPassword) < minPassword {
		httpapi.WriteErrorf(w, http.StatusUnprocessableEntity, "new_password: must be at least %d characters", minPassword)
		return
	}

	u := userFrom(r.Context())
	if !auth.CheckPassword(u.HashedPassword, req.CurrentPassword) {
		httpapi.WriteError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		httpapi.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.store.SetPassword(r.Context(), u.ID, hash); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	message(w, "Password updated successfully")
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteUser(r.Context(), userFrom(r.Context()).ID); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	message(w, "Account deleted successfully")
}
