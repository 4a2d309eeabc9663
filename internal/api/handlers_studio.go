package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/history"
	"github.com/fpang/noksha/internal/imageutil"
	"github.com/fpang/noksha/internal/overlay"
	"github.com/fpang/noksha/internal/studio"
	"github.com/fpang/noksha/internal/wizard"
)

type studioHandler func(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio)

// withStudio resolves the session's result studio. Sessions that have not
// reached the result step answer 409.
func (s *Server) withStudio(h studioHandler) http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, sess *wizard.Session) {
		st := sess.Studio()
		if st == nil {
			httpError(w, http.StatusConflict, "no design yet")
			return
		}
		h(w, r, sess, st)
	})
}

func (s *Server) handleDesign(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio) {
	respondJSON(w, http.StatusOK, viewOf(sess).Result)
}

func (s *Server) handleDesignImage(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio) {
	d := st.Design()
	name := ""
	if r.URL.Query().Get("download") != "" {
		name = "noksha-design" + imageutil.Extension(d.Image.MIMEType)
	}
	respondImage(w, d.Image, name)
}

// POST /api/sessions/{id}/edit  {"width": 500, "height": 600, "originX": 0, "originY": 0}
func (s *Server) handleEnterEdit(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio) {
	var req struct {
		Width   int     `json:"width"`
		Height  int     `json:"height"`
		OriginX float64 `json:"originX"`
		OriginY float64 `json:"originY"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		httpError(w, http.StatusBadRequest, "width and height must be positive")
		return
	}
	if err := st.EnterEdit(req.Width, req.Height); err != nil {
		respondError(w, r, err)
		return
	}
	st.SetOrigin(req.OriginX, req.OriginY)
	respondJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio) {
	st.CancelEdit()
	respondJSON(w, http.StatusOK, viewOf(sess))
}

type pointerEvent struct {
	Type string  `json:"type"` // down, move, up, leave
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// POST /api/sessions/{id}/pointer  {"events": [{"type": "down", "x": 1, "y": 2}, ...]}
//
// Events are in client coordinates. They are applied in order and ignored
// outside edit mode or while an edit is processing.
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio) {
	var req struct {
		Events []pointerEvent `json:"events"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	for _, ev := range req.Events {
		switch ev.Type {
		case "down":
			st.PointerDown(ev.X, ev.Y)
		case "move":
			st.PointerMove(ev.X, ev.Y)
		case "up":
			st.PointerUp()
		case "leave":
			st.PointerLeave()
		default:
			httpError(w, http.StatusBadRequest, "unknown pointer event "+ev.Type)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"strokes":  st.Strokes(),
		"canApply": st.CanApply(),
	})
}

// POST /api/sessions/{id}/strokes  {"paths": [[{"x":1,"y":2}, ...], ...]}
//
// Paths are in overlay-local coordinates.
func (s *Server) handleStrokes(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio) {
	var req struct {
		Paths []overlay.Path `json:"paths"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := st.ReplayStrokes(req.Paths); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"strokes":  st.Strokes(),
		"canApply": st.CanApply(),
	})
}

func (s *Server) handleClearStrokes(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio) {
	st.ClearStrokes()
	respondJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleColor(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio) {
	var req struct {
		Label string `json:"label"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := st.SelectColor(req.Label); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(sess))
}

// GET /api/sessions/{id}/mask returns the binary mask at overlay size.
func (s *Server) handleMask(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio) {
	m, err := st.MaskPreview()
	if err != nil {
		respondError(w, r, err)
		return
	}
	img, err := m.Image()
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondImage(w, img, "")
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio) {
	if _, err := st.Apply(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio) {
	saved, created, err := st.Save(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	entries := historyViewOf([]design.SavedDesign{saved}, history.DownloadName)
	respondJSON(w, status, map[string]any{
		"created": created,
		"design":  entries[0],
	})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request, sess *wizard.Session, st *studio.Studio) {
	res, err := st.Share(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// --- Saved designs ---

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, r, studio.ErrNoHistory)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"designs": historyViewOf(s.history.Recent(), history.DownloadName),
	})
}

func (s *Server) savedDesign(w http.ResponseWriter, r *http.Request) (design.SavedDesign, bool) {
	if s.history == nil {
		respondError(w, r, studio.ErrNoHistory)
		return design.SavedDesign{}, false
	}
	saved, ok := s.history.Get(r.PathValue("designID"))
	if !ok {
		httpError(w, http.StatusNotFound, "design not found")
		return design.SavedDesign{}, false
	}
	return saved, true
}

func (s *Server) handleHistoryImage(w http.ResponseWriter, r *http.Request) {
	saved, ok := s.savedDesign(w, r)
	if !ok {
		return
	}
	respondImage(w, saved.Image, history.DownloadName(saved))
}

func (s *Server) handleHistoryThumbnail(w http.ResponseWriter, r *http.Request) {
	saved, ok := s.savedDesign(w, r)
	if !ok {
		return
	}
	thumb, err := imageutil.Thumbnail(saved.Image, imageutil.DefaultThumbnailMaxDimension)
	if err != nil {
		log.Warn().Err(err).Str("id", saved.ID).Msg("Thumbnail failed, serving original")
		respondImage(w, saved.Image, "")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Type", thumb.MIMEType)
	w.Write(thumb.Data)
}
