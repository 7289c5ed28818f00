package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var captureTime = time.Date(2024, 3, 7, 15, 4, 5, 0, time.UTC)

func TestNewSheetRowAppliesSentinels(t *testing.T) {
	rec := &JobRecord{
		Company:         Str("Acme Co"),
		JobTitle:        Str("Cashier"),
		PositionType:    Str("Part-time"),
		Location:        Str("Unknown"),
		Salary:          Str("$15/hr"),
		Schedule:        Str("Evenings"),
		ExperienceLevel: nil,
		Description:     Str("Part-time cashier role"),
		URL:             "https://x/y",
	}

	row, err := NewSheetRow(rec, captureTime)
	if err != nil {
		t.Fatalf("NewSheetRow: %v", err)
	}

	want := SheetRow{
		DateApplied:     "3/7/2024",
		Company:         "Acme Co",
		JobTitle:        "Cashier",
		PositionType:    "Part-time",
		Location:        "Unknown",
		Salary:          "$15/hr",
		Schedule:        "Evenings",
		ExperienceLevel: "Not Listed",
		URL:             "https://x/y",
		Status:          "Applied",
		Description:     "Part-time cashier role",
	}
	if row != want {
		t.Errorf("row = %+v\nwant %+v", row, want)
	}
}

func TestNewSheetRowEmptyRecord(t *testing.T) {
	row, err := NewSheetRow(&JobRecord{URL: "https://x/y", Salary: Str("")}, captureTime)
	if err != nil {
		t.Fatal(err)
	}

	for name, v := range map[string]string{
		"company": row.Company, "jobTitle": row.JobTitle,
		"positionType": row.PositionType, "location": row.Location,
	} {
		if v != SentinelUnknown {
			t.Errorf("%s = %q, want %q", name, v, SentinelUnknown)
		}
	}
	for name, v := range map[string]string{
		"salary": row.Salary, "schedule": row.Schedule,
		"experienceLevel": row.ExperienceLevel, "description": row.Description,
	} {
		if v != SentinelNotListed {
			t.Errorf("%s = %q, want %q", name, v, SentinelNotListed)
		}
	}
}

func TestNewSheetRowRequiresURL(t *testing.T) {
	if _, err := NewSheetRow(&JobRecord{Company: Str("Acme")}, captureTime); !errors.Is(err, ErrMissingURL) {
		t.Errorf("err = %v, want ErrMissingURL", err)
	}
	if _, err := NewSheetRow(nil, captureTime); !errors.Is(err, ErrEmptyRecord) {
		t.Errorf("err = %v, want ErrEmptyRecord", err)
	}
}

func TestFallbackRecord(t *testing.T) {
	rec := FallbackRecord("Cashier - Acme Co")
	if *rec.JobTitle != "Cashier - Acme Co" {
		t.Errorf("JobTitle = %q", *rec.JobTitle)
	}
	if *rec.Company != SentinelUnknown || *rec.PositionType != SentinelUnknown || *rec.Location != SentinelUnknown {
		t.Error("company, positionType and location should be Unknown")
	}
	if rec.Salary != nil || rec.Schedule != nil || rec.ExperienceLevel != nil {
		t.Error("salary, schedule and experienceLevel should be null")
	}
	if *rec.Description != FallbackDescription {
		t.Errorf("Description = %q", *rec.Description)
	}

	if got := *FallbackRecord("").JobTitle; got != SentinelUnknown {
		t.Errorf("untitled page JobTitle = %q, want Unknown", got)
	}
}

func TestJobRecordJSONKeepsNulls(t *testing.T) {
	data, err := json.Marshal(FallbackRecord("T"))
	if err != nil {
		t.Fatal(err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if v, ok := m["salary"]; !ok || v != nil {
		t.Errorf("salary should be present and null, got %v (present=%v)", v, ok)
	}
}

func TestSettings(t *testing.T) {
	s := Settings{APIKey: "  key-1234 ", WebhookURL: "\thttps://hook\n"}.Normalize()
	if s.APIKey != "key-1234" || s.WebhookURL != "https://hook" {
		t.Errorf("Normalize = %+v", s)
	}
	if s.MissingField() != "" {
		t.Errorf("MissingField = %q, want none", s.MissingField())
	}
	if got := s.MaskedAPIKey(); got != "****1234" {
		t.Errorf("MaskedAPIKey = %q", got)
	}

	if got := (Settings{WebhookURL: "x"}).MissingField(); got != SettingsKeyAPIKey {
		t.Errorf("MissingField = %q, want apiKey", got)
	}
	if got := (Settings{APIKey: "x"}).MissingField(); got != SettingsKeyWebhookURL {
		t.Errorf("MissingField = %q, want webhookUrl", got)
	}
}
