package classifier

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"jobsnap/services/capture/internal/models"
)

// codeFence matches opening fences with an optional language tag as well as
// bare closing fences.
var codeFence = regexp.MustCompile("```[A-Za-z0-9_+-]*\\n?")

// StripCodeFences removes markdown code-fence markup and trims the result.
func StripCodeFences(text string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(strings.TrimSpace(text), ""))
}

// ParseReply turns the model's text into a JobRecord. It reports false and
// returns the fallback record when the text is not a JSON object.
func ParseReply(text string, pageTitle string) (*models.JobRecord, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(StripCodeFences(text))))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return models.FallbackRecord(pageTitle), false
	}
	// Anything after the object, such as trailing prose, makes the reply invalid.
	if _, err := dec.Token(); err != io.EOF {
		return models.FallbackRecord(pageTitle), false
	}

	return &models.JobRecord{
		Company:         field(fields, "company"),
		JobTitle:        field(fields, "jobTitle"),
		PositionType:    field(fields, "positionType"),
		Location:        field(fields, "location"),
		Salary:          field(fields, "salary"),
		Schedule:        field(fields, "schedule"),
		ExperienceLevel: field(fields, "experienceLevel"),
		Description:     field(fields, "description"),
	}, true
}

func field(fields map[string]any, key string) *string {
	switch v := fields[key].(type) {
	case nil:
		return nil
	case string:
		return &v
	case json.Number:
		s := v.String()
		return &s
	case bool:
		if v {
			return models.Str("true")
		}
		return models.Str("false")
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		s := string(data)
		return &s
	}
}
