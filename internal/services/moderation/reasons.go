package moderation

// Reason codes stored on content_violations rows.
const (
	ReasonBlockedKeyword = "blocked_keyword"
	ReasonAIFlagged      = "ai_flagged"
)

const rejectMessage = "Prompt contains inappropriate content"

func rejectMessageFor(reason string) string {
	switch reason {
	case ReasonAIFlagged:
		return "Prompt was flagged by content moderation"
	default:
		return rejectMessage
	}
}
