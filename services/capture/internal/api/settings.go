package api

import (
	"net/http"

	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/models"
)

type settingsResponse struct {
	APIKey     string `json:"apiKey"`
	WebhookURL string `json:"webhookUrl"`
	Configured bool   `json:"configured"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.Load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		APIKey:     settings.MaskedAPIKey(),
		WebhookURL: settings.WebhookURL,
		Configured: settings.MissingField() == "",
	})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req models.Settings
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	req = req.Normalize()
	if req.MissingField() != "" {
		writeError(w, errors.InvalidInput("Please fill in all fields.", nil))
		return
	}

	if err := s.deps.Settings.Save(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Settings saved successfully!"})
}

// handleTestSettings checks the values in the body, falling back to the
// stored settings when the body is empty.
func (s *Server) handleTestSettings(w http.ResponseWriter, r *http.Request) {
	var req models.Settings
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	} else {
		stored, err := s.deps.Settings.Load(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		req = stored
	}

	req = req.Normalize()
	if req.MissingField() != "" {
		writeError(w, errors.InvalidInput("Please fill in all fields first.", nil))
		return
	}

	if err := s.deps.Pinger.Ping(r.Context(), req.APIKey); err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.Prober.Probe(r.Context(), req.WebhookURL); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "All connections working!"})
}
