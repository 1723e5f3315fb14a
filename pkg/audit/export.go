package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Export formats supported by Export.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var csvHeader = []string{
	"id", "request_id", "user_id", "session_id", "prompt_sha256", "prompt_chars",
	"outcome", "status_code", "upstream_latency_ms", "error", "created_at",
}

// Export writes records to w as JSON lines or CSV.
func Export(w io.Writer, format string, records []*Record) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("failed to encode record %s: %w", r.ID, err)
			}
		}
		return nil

	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		for _, r := range records {
			row := []string{
				r.ID, r.RequestID, r.UserID, r.SessionID, r.PromptSHA256,
				strconv.Itoa(r.PromptChars), r.Outcome, strconv.Itoa(r.StatusCode),
				strconv.FormatInt(r.UpstreamLatencyMS, 10), r.Error,
				r.CreatedAt.Format(time.RFC3339Nano),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
