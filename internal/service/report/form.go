package report

import (
	"fmt"
	"strings"
)

// Field names users can refer to with "change <field>".
const (
	FieldIssueType   = "issue type"
	FieldDescription = "description"
	FieldLocation    = "location"
)

// fieldOrder is the collection sequence for a fresh form.
var fieldOrder = []string{FieldIssueType, FieldDescription, FieldLocation}

var fieldQuestions = map[string]string{
	FieldIssueType:   "What type of issue would you like to report? (e.g. cleanliness, roads, noise, pests)",
	FieldDescription: "Could you describe the issue in detail?",
	FieldLocation:    "Where is the issue located? A block number or street address works best.",
}

// Form holds the answers collected so far for one session's report.
type Form struct {
	UserID        string   `json:"user_id"`
	IssueType     string   `json:"issue_type"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	Attachments   []string `json:"attachments,omitempty"`
	PendingChange string   `json:"pending_change,omitempty"`
}

func (f *Form) value(field string) string {
	switch field {
	case FieldIssueType:
		return f.IssueType
	case FieldDescription:
		return f.Description
	case FieldLocation:
		return f.Location
	}
	return ""
}

func (f *Form) setValue(field, value string) {
	switch field {
	case FieldIssueType:
		f.IssueType = value
	case FieldDescription:
		f.Description = value
	case FieldLocation:
		f.Location = value
	}
}

// IsComplete reports whether every field has an answer.
func (f *Form) IsComplete() bool {
	for _, field := range fieldOrder {
		if strings.TrimSpace(f.value(field)) == "" {
			return false
		}
	}
	return true
}

// NextQuestion returns the prompt for the first unanswered field.
func (f *Form) NextQuestion() string {
	for _, field := range fieldOrder {
		if strings.TrimSpace(f.value(field)) == "" {
			return fieldQuestions[field]
		}
	}
	return ""
}

// StartChange marks field for re-collection. It reports whether the field
// name is recognized.
func (f *Form) StartChange(field string) bool {
	if _, ok := fieldQuestions[field]; !ok {
		return false
	}
	f.PendingChange = field
	return true
}

// ApplyInput records one user answer. A pending change consumes the input
// for its field and reports updated=true; otherwise the input fills the
// first unanswered field. Attachments accumulate regardless of field.
func (f *Form) ApplyInput(text string, attachments []string) (updated bool) {
	f.Attachments = append(f.Attachments, attachments...)

	if f.PendingChange != "" {
		f.setValue(f.PendingChange, text)
		f.PendingChange = ""
		return true
	}

	for _, field := range fieldOrder {
		if strings.TrimSpace(f.value(field)) == "" {
			f.setValue(field, text)
			return false
		}
	}
	return false
}

// Summary renders the collected answers for user confirmation.
func (f *Form) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Issue Type: %s\n", f.IssueType)
	fmt.Fprintf(&b, "Description: %s\n", f.Description)
	fmt.Fprintf(&b, "Location: %s", f.Location)
	if len(f.Attachments) > 0 {
		fmt.Fprintf(&b, "\nAttachments: %d file(s)", len(f.Attachments))
	}
	return b.String()
}
