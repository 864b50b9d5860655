package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/titanlift/internal/history"
	"github.com/meltforce/titanlift/internal/plates"
)

// maxImportBody bounds an uploaded export.
const maxImportBody = 32 << 20

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.svc.Sessions().All(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n >= 0 && n < len(sessions) {
			sessions = sessions[:n]
		}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.Sessions().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	removed, err := s.svc.Sessions().Remove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !removed {
		s.fail(w, r, history.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.svc.Sessions().All(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history.PersonalRecords(sessions))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.svc.Sessions().All(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history.Summarize(sessions, s.svc.Now()))
}

func (s *Server) handlePlates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	total, err := strconv.ParseFloat(q.Get("weight"), 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "weight parameter must be a number")
		return
	}
	bar := plates.DefaultBar
	if b := q.Get("bar"); b != "" {
		if bar, err = strconv.ParseFloat(b, 64); err != nil {
			writeErr(w, http.StatusBadRequest, "bar parameter must be a number")
			return
		}
	}
	if err := plates.Check(total, bar); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, plates.Calculate(total, bar, plates.DefaultDenominations))
}

// handleAlphaImport logs the sessions of an Alpha Progression CSV export.
func (s *Server) handleAlphaImport(w http.ResponseWriter, r *http.Request) {
	stats, err := s.importer.Import(r.Context(), http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		s.log.Error("alpha import error", "error", err)
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
