package runtime

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tailored-agentic-units/studyplan/core/response"
	"github.com/tailored-agentic-units/studyplan/internal/httpapi"
	"github.com/tailored-agentic-units/studyplan/session"
)

// SessionView is the JSON form of a remote session.
type SessionView struct {
	ID             string           `json:"id"`
	AppName        string           `json:"appName"`
	UserID         string           `json:"userId"`
	LastUpdateTime float64          `json:"lastUpdateTime"`
	Events         []response.Event `json:"events"`
}

func viewOf(rs *session.Remote, withEvents bool) SessionView {
	v := SessionView{
		ID:             rs.ID,
		AppName:        rs.AppName,
		UserID:         rs.UserID,
		LastUpdateTime: float64(rs.LastUpdate().UnixMicro()) / 1e6,
		Events:         []response.Event{},
	}
	if withEvents {
		v.Events = rs.Events()
	}
	return v
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	rs, err := s.sessions.Create(s.app, chi.URLParam(r, "user"), chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, viewOf(rs, false))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	list := s.sessions.List(s.app, chi.URLParam(r, "user"))
	out := make([]SessionView, 0, len(list))
	for _, rs := range list {
		out = append(out, viewOf(rs, false))
	}
	httpapi.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	rs, err := s.sessions.Get(s.app, chi.URLParam(r, "user"), chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, viewOf(rs, true))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(s.app, chi.URLParam(r, "user"), chi.URLParam(r, "id")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
