// Package api exposes wizard sessions and their design studios as a JSON
// HTTP API. The same handler serves the local web binary and the Lambda.
package api

import (
	"net/http"

	"github.com/fpang/noksha/internal/catalog"
	"github.com/fpang/noksha/internal/history"
	"github.com/fpang/noksha/internal/wizard"
)

// Server routes API requests to sessions in a Registry.
type Server struct {
	sessions *Registry
	history  *history.History
	mux      *http.ServeMux
}

// NewServer builds the API. h may be nil, which disables the history
// routes.
func NewServer(sessions *Registry, h *history.History) *Server {
	s := &Server{sessions: sessions, history: h, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	m := s.mux
	m.HandleFunc("GET /api/health", s.handleHealth)
	m.HandleFunc("GET /api/catalog", s.handleCatalog)

	m.HandleFunc("POST /api/sessions", s.handleCreateSession)
	m.HandleFunc("GET /api/sessions/{id}", s.withSession(s.handleGetSession))
	m.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)

	// Wizard steps.
	m.HandleFunc("POST /api/sessions/{id}/start", s.withSession(s.handleStart))
	m.HandleFunc("POST /api/sessions/{id}/gender", s.withSession(s.handleGender))
	m.HandleFunc("POST /api/sessions/{id}/back", s.withSession(s.handleBack))
	m.HandleFunc("POST /api/sessions/{id}/style", s.withSession(s.handleStyle))
	m.HandleFunc("PUT /api/sessions/{id}/inspiration", s.withSession(s.handleSetInspiration))
	m.HandleFunc("DELETE /api/sessions/{id}/inspiration", s.withSession(s.handleClearInspiration))
	m.HandleFunc("POST /api/sessions/{id}/answer", s.withSession(s.handleAnswer))
	m.HandleFunc("POST /api/sessions/{id}/restart", s.withSession(s.handleRestart))
	m.HandleFunc("GET /api/sessions/{id}/history", s.withSession(s.handleShowHistory))
	m.HandleFunc("POST /api/sessions/{id}/history/close", s.withSession(s.handleCloseHistory))

	// Result studio.
	m.HandleFunc("GET /api/sessions/{id}/design", s.withStudio(s.handleDesign))
	m.HandleFunc("GET /api/sessions/{id}/design/image", s.withStudio(s.handleDesignImage))
	m.HandleFunc("POST /api/sessions/{id}/edit", s.withStudio(s.handleEnterEdit))
	m.HandleFunc("DELETE /api/sessions/{id}/edit", s.withStudio(s.handleCancelEdit))
	m.HandleFunc("POST /api/sessions/{id}/pointer", s.withStudio(s.handlePointer))
	m.HandleFunc("POST /api/sessions/{id}/strokes", s.withStudio(s.handleStrokes))
	m.HandleFunc("DELETE /api/sessions/{id}/strokes", s.withStudio(s.handleClearStrokes))
	m.HandleFunc("POST /api/sessions/{id}/color", s.withStudio(s.handleColor))
	m.HandleFunc("GET /api/sessions/{id}/mask", s.withStudio(s.handleMask))
	m.HandleFunc("POST /api/sessions/{id}/apply", s.withStudio(s.handleApply))
	m.HandleFunc("POST /api/sessions/{id}/save", s.withStudio(s.handleSave))
	m.HandleFunc("POST /api/sessions/{id}/share", s.withStudio(s.handleShare))

	// Saved designs.
	m.HandleFunc("GET /api/history", s.handleHistoryList)
	m.HandleFunc("GET /api/history/{designID}/image", s.handleHistoryImage)
	m.HandleFunc("GET /api/history/{designID}/thumbnail", s.handleHistoryThumbnail)
}

// Handler returns the API with logging and CORS middleware.
func (s *Server) Handler() http.Handler {
	return withLogging(withCORS(s.mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"styles":    catalog.PresetStyles,
		"questions": catalog.PsychQuestions,
		"palette":   catalog.Palette,
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *wizard.Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessions.Get(r.PathValue("id"))
		if sess == nil {
			httpError(w, http.StatusNotFound, "session not found")
			return
		}
		h(w, r, sess)
	}
}
