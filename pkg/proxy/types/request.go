package types

// Field names of an InboundRequest, in the order they are validated and
// reported.
const (
	FieldUserID    = "user_id"
	FieldSessionID = "session_id"
	FieldPrompt    = "prompt"
)

// RequiredFields lists the fields a caller must supply, in report order.
var RequiredFields = []string{FieldUserID, FieldSessionID, FieldPrompt}

// InboundRequest is the validated payload of POST /api/gemini.
// Each field held a non-blank string when it was validated; the original
// values, including surrounding whitespace, are preserved and forwarded.
type InboundRequest struct {
	// UserID identifies the end user of the calling application.
	UserID string `json:"user_id"`

	// SessionID identifies the conversation the prompt belongs to.
	SessionID string `json:"session_id"`

	// Prompt is the text to generate a response for.
	Prompt string `json:"prompt"`
}
