package api

import (
	"net/http"

	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/models"
	"jobsnap/services/capture/internal/page"
	"jobsnap/services/capture/internal/pipeline"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type openTabRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

type openTabResponse struct {
	TabID string `json:"tabId"`
	URL   string `json:"url"`
}

type submittedResponse struct {
	Success   bool   `json:"success"`
	CaptureID string `json:"captureId"`
	Message   string `json:"message"`
}

func (s *Server) handleOpenTab(w http.ResponseWriter, r *http.Request) {
	var req openTabRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := s.openTab(r, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, openTabResponse{TabID: p.ID, URL: p.URL})
}

func (s *Server) openTab(r *http.Request, req openTabRequest) (*page.Page, error) {
	p, err := s.deps.Pages.Open(r.Context(), req.URL, req.HTML)
	if err != nil {
		return nil, err
	}
	if s.deps.Preload {
		if err := s.deps.Agents.Inject(r.Context(), p.ID); err != nil {
			s.logger.Warn("failed to preload extractor", zap.String("tab_id", p.ID), zap.Error(err))
		}
	}
	return p, nil
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	tabID := chi.URLParam(r, "tabID")
	s.closeTab(tabID)
	if !s.deps.Pages.Close(tabID) {
		writeError(w, errors.NotFound("no such tab: "+tabID, nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) closeTab(tabID string) {
	if err := s.deps.Agents.Unload(tabID); err != nil {
		s.logger.Warn("failed to unload extractor", zap.String("tab_id", tabID), zap.Error(err))
	}
}

// handleCaptureTab captures an open tab. With ?async=true the capture is
// queued and only its ID is returned.
func (s *Server) handleCaptureTab(w http.ResponseWriter, r *http.Request) {
	tabID := chi.URLParam(r, "tabID")

	if r.URL.Query().Get("async") == "true" {
		captureID, err := s.deps.Runner.Submit(tabID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, submittedResponse{
			Success:   true,
			CaptureID: captureID,
			Message:   "Sent! Processing in background...",
		})
		return
	}

	writeResult(w, s.deps.Pipeline.Capture(r.Context(), tabID))
}

// handleCapture opens the page in a throwaway tab, captures it and closes
// the tab again. Missing settings fail before the page is fetched.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req openTabRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	settings, err := s.deps.Settings.Load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := pipeline.CheckSettings(settings); err != nil {
		writeError(w, err)
		return
	}

	p, err := s.openTab(r, req)
	if err != nil {
		writeError(w, err)
		return
	}
	tabID := p.ID
	defer func() {
		s.closeTab(tabID)
		s.deps.Pages.Close(tabID)
	}()

	writeResult(w, s.deps.Pipeline.Capture(r.Context(), tabID))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessJobRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Action != models.ActionProcessJob {
		writeError(w, errors.InvalidInput("unsupported action: "+req.Action, nil))
		return
	}

	writeResult(w, s.deps.Pipeline.Process(r.Context(), req.PageData))
}
