package chat

// TurnInput carries one inbound user utterance into the pipeline. Exactly one
// of Text or Audio is expected; when both are present the audio transcript
// wins, matching the mobile client behaviour.
type TurnInput struct {
	SessionID   string
	UserID      string
	Text        string
	Audio       []byte
	AudioFormat string
	Attachments []string
}

// TurnResult is the outcome of one pipeline run.
type TurnResult struct {
	SessionID string `json:"sessionId"`
	Response  string `json:"response"`
	Language  string `json:"language"`
}
