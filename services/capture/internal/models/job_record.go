package models

import "time"

const (
	SentinelUnknown   = "Unknown"
	SentinelNotListed = "Not Listed"

	StatusApplied = "Applied"

	FallbackDescription = "Could not extract details automatically"

	// DateLayout renders the capture date the way a US-locale browser shows it.
	DateLayout = "1/2/2006"
)

// JobRecord holds the classifier's fields. A nil field was absent or null in
// the classifier reply; defaults are applied only when building a SheetRow.
type JobRecord struct {
	Company         *string `json:"company"`
	JobTitle        *string `json:"jobTitle"`
	PositionType    *string `json:"positionType"`
	Location        *string `json:"location"`
	Salary          *string `json:"salary"`
	Schedule        *string `json:"schedule"`
	ExperienceLevel *string `json:"experienceLevel"`
	Description     *string `json:"description"`
	URL             string  `json:"url"`
}

// Str returns a pointer to s, for building records in code.
func Str(s string) *string {
	return &s
}

// FallbackRecord is the degraded record used when the classifier reply is
// not parseable.
func FallbackRecord(pageTitle string) *JobRecord {
	title := pageTitle
	if title == "" {
		title = SentinelUnknown
	}
	return &JobRecord{
		Company:         Str(SentinelUnknown),
		JobTitle:        Str(title),
		PositionType:    Str(SentinelUnknown),
		Location:        Str(SentinelUnknown),
		Salary:          nil,
		Schedule:        nil,
		ExperienceLevel: nil,
		Description:     Str(FallbackDescription),
	}
}

// SheetRow is the payload appended to the spreadsheet. Every field is set.
type SheetRow struct {
	DateApplied     string `json:"dateApplied"`
	Company         string `json:"company"`
	JobTitle        string `json:"jobTitle"`
	PositionType    string `json:"positionType"`
	Location        string `json:"location"`
	Salary          string `json:"salary"`
	Schedule        string `json:"schedule"`
	ExperienceLevel string `json:"experienceLevel"`
	URL             string `json:"url"`
	Status          string `json:"status"`
	Description     string `json:"description"`
}

// NewSheetRow applies the sentinel defaults to rec. A record without a URL is
// rejected.
func NewSheetRow(rec *JobRecord, capturedAt time.Time) (SheetRow, error) {
	if rec == nil {
		return SheetRow{}, ErrEmptyRecord
	}
	if rec.URL == "" {
		return SheetRow{}, ErrMissingURL
	}

	return SheetRow{
		DateApplied:     capturedAt.Format(DateLayout),
		Company:         orDefault(rec.Company, SentinelUnknown),
		JobTitle:        orDefault(rec.JobTitle, SentinelUnknown),
		PositionType:    orDefault(rec.PositionType, SentinelUnknown),
		Location:        orDefault(rec.Location, SentinelUnknown),
		Salary:          orDefault(rec.Salary, SentinelNotListed),
		Schedule:        orDefault(rec.Schedule, SentinelNotListed),
		ExperienceLevel: orDefault(rec.ExperienceLevel, SentinelNotListed),
		URL:             rec.URL,
		Status:          StatusApplied,
		Description:     orDefault(rec.Description, SentinelNotListed),
	}, nil
}

func orDefault(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}
