package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/quiz"
	"github.com/fpang/noksha/internal/studio"
	"github.com/fpang/noksha/internal/wizard"
)

// maxBodyBytes bounds request bodies; inspiration images arrive as data URIs.
const maxBodyBytes = 32 << 20

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondImage(w http.ResponseWriter, img design.Image, downloadName string) {
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	if downloadName != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	}
	w.Write(img.Data)
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, wizard.ErrWrongStep),
		errors.Is(err, studio.ErrEditInFlight),
		errors.Is(err, studio.ErrNotEditing),
		design.IsKind(err, design.KindEmptyMask):
		return http.StatusConflict
	case errors.Is(err, wizard.ErrInvalidGender),
		errors.Is(err, wizard.ErrUnknownStyle),
		errors.Is(err, wizard.ErrInvalidInspiration),
		errors.Is(err, studio.ErrUnknownColor),
		errors.Is(err, quiz.ErrInvalidOption),
		errors.Is(err, quiz.ErrDone),
		design.IsKind(err, design.KindMissingSelection):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrClosed),
		errors.Is(err, studio.ErrClosed),
		errors.Is(err, studio.ErrDiscarded):
		return http.StatusGone
	case errors.Is(err, studio.ErrNoHistory):
		return http.StatusNotImplemented
	case errors.Is(err, ErrTooManySessions):
		return http.StatusServiceUnavailable
	case design.IsKind(err, design.KindGeneration),
		design.IsKind(err, design.KindEdit):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Provider failures get a
// user-facing message; the cause is logged only.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	switch {
	case design.IsKind(err, design.KindGeneration):
		msg = wizard.GenerationFailureMessage
	case design.IsKind(err, design.KindEdit):
		msg = "We couldn't recolor that region. Please try again."
	case status == http.StatusInternalServerError:
		msg = "internal error"
	}
	if status >= 500 {
		log.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")
	}
	httpError(w, status, msg)
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
