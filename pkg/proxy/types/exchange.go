package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode/utf8"
)

// Exchange summarizes one forwarded request for out-of-band sinks such as
// the audit log and the event stream. It never carries the prompt text.
type Exchange struct {
	RequestID string
	UserID    string
	SessionID string

	// PromptSHA256 is the hex SHA-256 of the prompt.
	PromptSHA256 string

	// PromptChars is the prompt length in characters.
	PromptChars int

	// Outcome is the outcome kind, e.g. "success" or "timeout".
	Outcome string

	// StatusCode is the status returned to the caller.
	StatusCode int

	UpstreamLatency time.Duration

	// Error describes a failed exchange. Empty on success.
	Error string

	Timestamp time.Time
}

// PromptFingerprint returns the hex SHA-256 and character count of prompt.
func PromptFingerprint(prompt string) (string, int) {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:]), utf8.RuneCountInString(prompt)
}
