package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/MikeSquared-Agency/callhour/internal/bucket"
	"github.com/MikeSquared-Agency/callhour/internal/calllog"
	"github.com/MikeSquared-Agency/callhour/internal/processor"
	"github.com/MikeSquared-Agency/callhour/internal/store"
)

const (
	maxListLimit = 200
	maxJSONBody  = 64 << 10
)

var validate = validator.New()

// AnalyzeRequest is the body of POST /api/v1/sessions/{sessionID}/analyze.
type AnalyzeRequest struct {
	Phone string `json:"phone" validate:"required,max=64"`
}

// uploadCalls handles POST /api/v1/sessions/{sessionID}/calls (multipart field "file").
func (s *Server) uploadCalls(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if s.opts.MaxUploadBytes > 0 {
		// Leave room for the multipart envelope; the processor enforces the file limit.
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1<<20)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	sum, err := s.svc.Upload(r.Context(), sessionID, header.Filename, file)
	if err != nil {
		var missing *calllog.MissingColumnError
		switch {
		case errors.As(err, &missing):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":          err.Error(),
				"missing_column": string(missing.Field),
			})
		case isTooLarge(err):
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, calllog.ErrUnsupportedFormat), errors.Is(err, calllog.ErrEmptyFile):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("upload failed", "session", sessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "upload failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// analyze handles POST /api/v1/sessions/{sessionID}/analyze.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	a, err := s.svc.Analyze(r.Context(), sessionID, req.Phone)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, a)
	case errors.Is(err, bucket.ErrNoDataForNumber):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, processor.ErrLLMDisabled):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error(), "analysis": a})
	default:
		// The local part of the analysis is still useful to the caller.
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "analysis": a})
	}
}

// deleteSession handles DELETE /api/v1/sessions/{sessionID}.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !s.svc.Reset(sessionID) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listAnalyses handles GET /api/v1/analyses?phone=&limit=.
func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis history is not configured")
		return
	}

	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	rows, err := s.history.RecentAnalyses(r.Context(), strings.TrimSpace(r.URL.Query().Get("phone")), limit)
	if err != nil {
		s.logger.Error("list analyses failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list analyses failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": rows, "count": len(rows)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
