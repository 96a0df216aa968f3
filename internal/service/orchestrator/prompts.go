package orchestrator

import "strings"

const basePrompt = `You are a municipal assistant in Singapore. Answer the user's questions clearly and concisely.
When prior conversation history is available, use it to inform your answers, otherwise just answer to the best of your knowledge.`

const followUpNote = " The user is continuing from a previous question. Use prior turns to improve your response."

const statusNote = " The user is asking about the status of an issue report they previously submitted. Use the context to report the latest known status of the matching issue."

const contextPrefix = "\n\nUse the following context to help answer the user's query:\n"

// buildSystemPrompt assembles the generation system prompt. ragContext, when
// present, is appended verbatim after the context instruction.
func buildSystemPrompt(followUp, statusQuery bool, ragContext string) string {
	prompt := basePrompt
	if followUp {
		prompt += followUpNote
	}
	if statusQuery {
		prompt += statusNote
	}
	if ragContext != "" {
		prompt += contextPrefix + strings.TrimSpace(ragContext)
	}
	return prompt
}
