package api

import (
	"net/http"

	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/history"
	"github.com/fpang/noksha/internal/imageutil"
	"github.com/fpang/noksha/internal/wizard"
)

// POST /api/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, viewOf(sess))
}

// GET /api/sessions/{id}[?wait=1]
//
// With wait set, the response is held until a running generation finishes
// or the request is cancelled.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sess *wizard.Session) {
	if r.URL.Query().Get("wait") != "" {
		if err := sess.Wait(r.Context()); err != nil {
			httpError(w, http.StatusRequestTimeout, "generation still running")
			return
		}
	}
	respondJSON(w, http.StatusOK, viewOf(sess))
}

// DELETE /api/sessions/{id}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(r.PathValue("id")) {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// step runs a wizard transition and answers with the new state.
func step(w http.ResponseWriter, r *http.Request, sess *wizard.Session, fn func() error) {
	if err := fn(); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, sess *wizard.Session) {
	step(w, r, sess, sess.Start)
}

func (s *Server) handleGender(w http.ResponseWriter, r *http.Request, sess *wizard.Session) {
	var req struct {
		Gender design.Gender `json:"gender"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	step(w, r, sess, func() error { return sess.SelectGender(req.Gender) })
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request, sess *wizard.Session) {
	step(w, r, sess, sess.BackToGender)
}

func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request, sess *wizard.Session) {
	var req struct {
		StyleID string `json:"styleId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	step(w, r, sess, func() error { return sess.SelectStyle(req.StyleID) })
}

// PUT /api/sessions/{id}/inspiration  {"image": "data:image/png;base64,..."}
func (s *Server) handleSetInspiration(w http.ResponseWriter, r *http.Request, sess *wizard.Session) {
	var req struct {
		Image string `json:"image"`
		Name  string `json:"name,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	img, err := design.ParseImage(req.Image)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !imageutil.IsSupported(img.MIMEType) {
		img.MIMEType = imageutil.DetectMIME(img.Data, req.Name)
	}
	step(w, r, sess, func() error { return sess.SetInspiration(&img) })
}

func (s *Server) handleClearInspiration(w http.ResponseWriter, r *http.Request, sess *wizard.Session) {
	step(w, r, sess, func() error { return sess.SetInspiration(nil) })
}

// POST /api/sessions/{id}/answer[?wait=1]  {"option": 2}
//
// The final answer starts generation and returns 202 unless wait is set.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request, sess *wizard.Session) {
	var req struct {
		Option *int `json:"option"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Option == nil {
		httpError(w, http.StatusBadRequest, "option is required")
		return
	}
	if err := sess.Answer(*req.Option); err != nil {
		respondError(w, r, err)
		return
	}
	if sess.Step() != wizard.StepGenerating {
		respondJSON(w, http.StatusOK, viewOf(sess))
		return
	}
	if r.URL.Query().Get("wait") == "" {
		respondJSON(w, http.StatusAccepted, viewOf(sess))
		return
	}
	if err := sess.Wait(r.Context()); err != nil {
		respondJSON(w, http.StatusAccepted, viewOf(sess))
		return
	}
	if err := sess.Failure(); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request, sess *wizard.Session) {
	step(w, r, sess, sess.Restart)
}

func (s *Server) handleShowHistory(w http.ResponseWriter, r *http.Request, sess *wizard.Session) {
	entries, err := sess.ShowHistory()
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session": viewOf(sess),
		"designs": historyViewOf(entries, history.DownloadName),
	})
}

func (s *Server) handleCloseHistory(w http.ResponseWriter, r *http.Request, sess *wizard.Session) {
	step(w, r, sess, sess.CloseHistory)
}
