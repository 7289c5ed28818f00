package models

import (
	"encoding/json"
	"strings"
)

const (
	SettingsKeyAPIKey     = "apiKey"
	SettingsKeyWebhookURL = "webhookUrl"
)

// Settings is the user-editable configuration, snapshotted once per capture.
type Settings struct {
	APIKey     string `json:"apiKey"`
	WebhookURL string `json:"webhookUrl"`
}

// Normalize trims surrounding whitespace from both fields.
func (s Settings) Normalize() Settings {
	return Settings{
		APIKey:     strings.TrimSpace(s.APIKey),
		WebhookURL: strings.TrimSpace(s.WebhookURL),
	}
}

// MissingField names the first unset key, or "" when both are present.
func (s Settings) MissingField() string {
	switch {
	case s.APIKey == "":
		return SettingsKeyAPIKey
	case s.WebhookURL == "":
		return SettingsKeyWebhookURL
	}
	return ""
}

// MaskedAPIKey hides all but the last four characters of the key.
func (s Settings) MaskedAPIKey() string {
	if len(s.APIKey) <= 4 {
		return strings.Repeat("*", len(s.APIKey))
	}
	return strings.Repeat("*", len(s.APIKey)-4) + s.APIKey[len(s.APIKey)-4:]
}

// MarshalBinary stores settings as one JSON value in the cache.
func (s Settings) MarshalBinary() ([]byte, error) {
	return json.Marshal(s)
}

func (s *Settings) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, s)
}
