package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/workout"
)

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Exercises(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var e models.Exercise
	if !decodeJSON(w, r, &e) {
		return
	}
	added, err := s.svc.AddExercise(r.Context(), e)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleSaveExercises(w http.ResponseWriter, r *http.Request) {
	var list []models.Exercise
	if !decodeJSON(w, r, &list) {
		return
	}
	if list == nil {
		list = []models.Exercise{}
	}
	if err := s.svc.SaveExercises(r.Context(), list); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Templates(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Template(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleCreateTemplate adds an empty plan; an optional body names it.
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var patch workout.TemplatePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	t, err := s.svc.CreateTemplate(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if patch.Name != nil || patch.Description != nil {
		if t, err = s.svc.UpdateTemplate(r.Context(), t.ID, patch); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var patch workout.TemplatePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	t, err := s.svc.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddTemplateExercise(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ExerciseID string `json:"exerciseId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.ExerciseID == "" {
		writeErr(w, http.StatusBadRequest, "exerciseId required")
		return
	}
	t, err := s.svc.AddTemplateExercise(r.Context(), chi.URLParam(r, "id"), body.ExerciseID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleRemoveTemplateExercise(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.RemoveTemplateExercise(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "exerciseId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
