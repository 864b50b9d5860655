package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/meltforce/titanlift/internal/coach"
	"github.com/meltforce/titanlift/internal/models"
)

// maxScanBody bounds a scan upload; base64 bodies are a third larger than the image.
const maxScanBody = 14 << 20

var errBadImage = errors.New(`expected an image body or JSON {"image": "data:image/...;base64,..."}`)

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"quote": s.coach.MotivationalQuote(r.Context())})
}

// handleTip answers with a tip for ?exercise=. Clients sending X-Client-ID
// get 409 when a newer tip request from the same client overtook this one.
func (s *Server) handleTip(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("exercise"))
	if name == "" {
		writeErr(w, http.StatusBadRequest, "exercise parameter required")
		return
	}

	client := r.Header.Get("X-Client-ID")
	var ticket coach.Ticket
	if client != "" {
		ticket = s.tips.Begin(client)
	}
	tip := s.coach.ExerciseTip(r.Context(), name)
	if client != "" && !ticket.Release() {
		writeErr(w, http.StatusConflict, "superseded by a newer tip request")
		return
	}
	writeJSON(w, http.StatusOK, tip)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	image, mimeType, err := readImage(w, r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	scan, err := s.coach.ScanWorkout(r.Context(), image, mimeType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

// handleScanTemplate saves a (possibly user-edited) scan result as a template.
func (s *Server) handleScanTemplate(w http.ResponseWriter, r *http.Request) {
	var scan models.ScannedWorkout
	if !decodeJSON(w, r, &scan) {
		return
	}
	if len(scan.Exercises) == 0 {
		writeErr(w, http.StatusBadRequest, "exercises required")
		return
	}
	t, err := s.svc.AddScannedTemplate(r.Context(), scan)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// readImage accepts a raw image/* body or a JSON body carrying a data URL.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	body := http.MaxBytesReader(w, r.Body, maxScanBody)

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, "", err
		}
		return data, mediaType, nil
	case mediaType == "application/json":
		var req struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return nil, "", errBadImage
		}
		return parseDataURL(req.Image)
	}
	return nil, "", errBadImage
}

// parseDataURL decodes "data:image/png;base64,....".
func parseDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", errBadImage
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errBadImage
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok || !strings.HasPrefix(mimeType, "image/") {
		return nil, "", errBadImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", errBadImage
	}
	return data, mimeType, nil
}
