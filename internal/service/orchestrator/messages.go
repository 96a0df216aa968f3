package orchestrator

// Fixed user-facing replies. Terminal gating and failure paths always
// answer with one of these; the user never sees a raw error.
const (
	noInputMessage     = "No input provided."
	audioFailedMessage = "Sorry, I could not process the audio input."
	gibberishMessage   = "Sorry, I could not understand that input."
	outOfScopeMessage  = "This question seems unrelated to municipal services."
	retrievalApology   = "Sorry, I could not retrieve related information at the moment."
	generationApology  = "Sorry, I could not generate a response at the moment."
	reportStartApology = "Sorry, I could not start the report submission process at the moment."
)
