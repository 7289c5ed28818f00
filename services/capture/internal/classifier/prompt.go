package classifier

import (
	"strings"
	"text/template"

	"jobsnap/services/capture/internal/models"
)

const pingPrompt = `Say "OK" if you can read this.`

var extractionPrompt = template.Must(template.New("extraction").Parse(`Analyze this job posting and extract information in JSON format. Return ONLY valid JSON, no markdown, no code blocks, no other text.

Required JSON structure:
{
  "company": "Company/Organization name",
  "jobTitle": "Job title/position",
  "positionType": "Full-time, Part-time, Contract, Per Diem, or Unknown",
  "location": "City, State or Remote",
  "salary": "Salary/pay range if mentioned, otherwise null",
  "schedule": "Work schedule (e.g., Day shift, Night shift, Weekends, Rotating, 9-5, Flexible, etc.) or null if not mentioned",
  "experienceLevel": "Required experience level (e.g., Entry Level, 1-2 years, 3-5 years, Senior, etc.) or null if not mentioned",
  "description": "SUPER Brief ONLY 10 word summary of the role"
}

Page Title: {{.Title}}
Page URL: {{.URL}}
Meta Description: {{.MetaDescription}}

Page Content:
{{.BodyText}}

Remember: Return ONLY the JSON object, nothing else.`))

// BuildPrompt embeds the page into the fixed extraction instruction.
func BuildPrompt(doc *models.PageDocument) string {
	data := *doc
	if data.MetaDescription == "" {
		data.MetaDescription = "N/A"
	}

	var b strings.Builder
	// Executing a parsed template into a strings.Builder with plain string
	// fields cannot fail.
	_ = extractionPrompt.Execute(&b, data)
	return b.String()
}
