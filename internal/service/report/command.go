// Package report runs the guided issue-report sub-dialogue: a small
// field-filling state machine that takes over a session until the report is
// submitted or abandoned.
package report

import "strings"

// CommandKind tags what a sub-dialogue input means.
type CommandKind int

const (
	// FreeText is any input that is not a control token; it feeds the
	// current form field.
	FreeText CommandKind = iota
	// Cancel aborts the sub-dialogue.
	Cancel
	// Manual aborts and points the user at the manual form.
	Manual
	// Submit finalizes and persists the report.
	Submit
	// Change re-opens a named field for editing.
	Change
)

// Command is one parsed sub-dialogue input.
type Command struct {
	Kind  CommandKind
	Field string // set for Change
	Text  string // set for FreeText
}

// ParseCommand classifies text. Control tokens match the whole trimmed
// input case-insensitively; "change <field>" captures the field name.
// Everything else is free text, passed through untrimmed of its inner
// content.
func ParseCommand(text string) Command {
	trimmed := strings.TrimSpace(text)
	lowered := strings.ToLower(trimmed)

	switch lowered {
	case "cancel":
		return Command{Kind: Cancel}
	case "manual":
		return Command{Kind: Manual}
	case "submit":
		return Command{Kind: Submit}
	}

	if lowered == "change" {
		return Command{Kind: Change}
	}
	if strings.HasPrefix(lowered, "change ") {
		field := strings.TrimSpace(lowered[len("change "):])
		return Command{Kind: Change, Field: field}
	}

	return Command{Kind: FreeText, Text: trimmed}
}
