package report

import (
	"context"
	"fmt"
	"log"
)

// Fixed sub-dialogue replies. These are user-facing and must stay stable.
const (
	StartMessage = "You can report any municipal issues in Singapore here. I will start the report submission process now. Would you like me to guide you through the process, or would you rather fill out the form yourself?"

	cancelledMessage     = "Okay, I have cancelled your report submission."
	manualMessage        = "Sure, you can fill out the form manually at your convenience, by clicking the button below."
	submittedMessage     = "Thanks for the submission! Please wait patiently as we review your issue report."
	submitFailedMessage  = "Sorry, I could not submit your report at the moment. Please try again."
	changeUnknownMessage = "Sorry, I did not understand what you want to change."

	updatedTemplate = "Got it! Here is the updated information:\n\n%s\n\nYou can 'Change' a field, 'Submit' to submit, or 'Cancel' to abort."
	gatheredTemplate = "Thanks for the information! Here is what I have gathered:\n\n%s\n\nWould you like to change anything? You can 'Change' a field, 'Submit' to submit, or 'Cancel' to abort."
)

// Manager drives the sub-dialogue per session. State lives in the StateStore
// so nothing is shared across sessions.
type Manager struct {
	state     StateStore
	submitter Submitter
}

// NewManager wires the state store and the report sink.
func NewManager(state StateStore, submitter Submitter) *Manager {
	return &Manager{state: state, submitter: submitter}
}

// Active reports whether a sub-dialogue is running for the session. Store
// errors count as inactive so a broken state backend cannot capture every
// turn of the session.
func (m *Manager) Active(ctx context.Context, sessionID string) bool {
	form, err := m.state.Get(ctx, sessionID)
	if err != nil {
		log.Printf("[report] state lookup failed, treating session as inactive: %v", err)
		return false
	}
	return form != nil
}

// Start opens a fresh form for the session and returns the opening message.
func (m *Manager) Start(ctx context.Context, sessionID, userID string) (string, error) {
	if err := m.state.Put(ctx, sessionID, &Form{UserID: userID}); err != nil {
		return "", err
	}
	log.Printf("[report] sub-dialogue started, session=%s", sessionID)
	return StartMessage, nil
}

// HandleTurn consumes one user input while the sub-dialogue is active and
// returns the bot reply. Calling it without an active form is a programming
// error.
func (m *Manager) HandleTurn(ctx context.Context, sessionID, text string, attachments []string) (string, error) {
	form, err := m.state.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if form == nil {
		return "", fmt.Errorf("no active report sub-dialogue for session %s", sessionID)
	}

	cmd := ParseCommand(text)
	switch cmd.Kind {
	case Cancel:
		if err := m.state.Delete(ctx, sessionID); err != nil {
			return "", err
		}
		log.Printf("[report] sub-dialogue cancelled, session=%s", sessionID)
		return cancelledMessage, nil

	case Manual:
		if err := m.state.Delete(ctx, sessionID); err != nil {
			return "", err
		}
		return manualMessage, nil

	case Submit:
		if err := m.submitter.Submit(ctx, sessionID, form); err != nil {
			log.Printf("[report] submission failed, session=%s: %v", sessionID, err)
			return submitFailedMessage, nil
		}
		if err := m.state.Delete(ctx, sessionID); err != nil {
			return "", err
		}
		return submittedMessage, nil

	case Change:
		if cmd.Field == "" || !form.StartChange(cmd.Field) {
			return changeUnknownMessage, nil
		}
		if err := m.state.Put(ctx, sessionID, form); err != nil {
			return "", err
		}
		return fmt.Sprintf("Sure! Please provide the new %s.", cmd.Field), nil

	case FreeText:
		updated := form.ApplyInput(cmd.Text, attachments)
		if err := m.state.Put(ctx, sessionID, form); err != nil {
			return "", err
		}
		if updated {
			return fmt.Sprintf(updatedTemplate, form.Summary()), nil
		}
		if form.IsComplete() {
			return fmt.Sprintf(gatheredTemplate, form.Summary()), nil
		}
		return form.NextQuestion(), nil
	}

	return "", fmt.Errorf("unhandled report command kind %d", cmd.Kind)
}
