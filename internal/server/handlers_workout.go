package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/timer"
	"github.com/meltforce/titanlift/internal/workout"
)

func (s *Server) handleStartWorkout(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.Start(r.Context(), chi.URLParam(r, "templateId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleActiveWorkout(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.Active(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.Session(r.Context(), chi.URLParam(r, "templateId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Exercises []models.ActiveExercise `json:"exercises"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	session, err := s.svc.Update(r.Context(), chi.URLParam(r, "templateId"), body.Exercises)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	exIdx, setIdx, ok := setParams(w, r)
	if !ok {
		return
	}
	var patch workout.SetPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	session, err := s.svc.UpdateSet(r.Context(), chi.URLParam(r, "templateId"), exIdx, setIdx, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	exIdx, err := intParam(r, "ex")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.svc.AddSet(r.Context(), chi.URLParam(r, "templateId"), exIdx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleRemoveSet(w http.ResponseWriter, r *http.Request) {
	exIdx, setIdx, ok := setParams(w, r)
	if !ok {
		return
	}
	session, err := s.svc.RemoveSet(r.Context(), chi.URLParam(r, "templateId"), exIdx, setIdx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSetNotes(w http.ResponseWriter, r *http.Request) {
	exIdx, err := intParam(r, "ex")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	session, err := s.svc.SetNotes(r.Context(), chi.URLParam(r, "templateId"), exIdx, body.Notes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleRenameExercise(w http.ResponseWriter, r *http.Request) {
	exIdx, err := intParam(r, "ex")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	session, err := s.svc.RenameExercise(r.Context(), chi.URLParam(r, "templateId"), exIdx, body.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleFinishWorkout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GeneralNotes string `json:"generalNotes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	session, err := s.svc.Finish(r.Context(), chi.URLParam(r, "templateId"), body.GeneralNotes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleAbandonWorkout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Abandon(r.Context(), chi.URLParam(r, "templateId")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func setParams(w http.ResponseWriter, r *http.Request) (exIdx, setIdx int, ok bool) {
	exIdx, err := intParam(r, "ex")
	if err == nil {
		setIdx, err = intParam(r, "set")
	}
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return exIdx, setIdx, true
}

type timerResponse struct {
	ElapsedMs int64  `json:"elapsedMs"`
	Elapsed   string `json:"elapsed"`
	Running   bool   `json:"running"`
}

func (s *Server) writeTimer(w http.ResponseWriter, r *http.Request) {
	tr := s.svc.Tracker()
	elapsed, err := tr.Elapsed(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	running, err := tr.Running(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, timerResponse{
		ElapsedMs: elapsed.Milliseconds(),
		Elapsed:   timer.FormatDuration(elapsed),
		Running:   running,
	})
}

func (s *Server) handleTimer(w http.ResponseWriter, r *http.Request) {
	s.writeTimer(w, r)
}

func (s *Server) handleTimerStart(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Tracker().Start(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeTimer(w, r)
}

func (s *Server) handleTimerPause(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Tracker().Pause(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeTimer(w, r)
}

func (s *Server) handleTimerReset(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Tracker().Reset(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeTimer(w, r)
}

func (s *Server) handleRestStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Rest().Remaining(r.Context(), chi.URLParam(r, "exerciseId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleRestStart starts a countdown of the body's seconds, or of the
// exercise's preferred rest when the body is empty.
func (s *Server) handleRestStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Seconds *int `json:"seconds"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	id := chi.URLParam(r, "exerciseId")
	var (
		st  timer.RestStatus
		err error
	)
	if body.Seconds != nil {
		st, err = s.svc.Rest().Start(r.Context(), id, time.Duration(*body.Seconds)*time.Second)
	} else {
		st, err = s.svc.Rest().StartPreferred(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRestCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Rest().Cancel(r.Context(), chi.URLParam(r, "exerciseId")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestPreference(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Rest().Preference(r.Context(), chi.URLParam(r, "exerciseId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSetRestPreference(w http.ResponseWriter, r *http.Request) {
	var p timer.Preference
	if !decodeJSON(w, r, &p) {
		return
	}
	p, err := s.svc.Rest().SetPreference(r.Context(), chi.URLParam(r, "exerciseId"), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
