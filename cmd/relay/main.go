// Relay is an HTTP gateway in front of an AI inference service.
//
// It accepts generation requests from client applications, checks that
// user_id, session_id and prompt are present, forwards each request once to
// the inference service and relays the reply. Upstream failures are
// translated into stable JSON errors: timeouts become 504, unreachable
// upstreams 500, and application errors keep their status.
//
// Usage:
//
//	# Start with defaults (port 3000, upstream http://localhost:8000)
//	relay run
//
//	# Configure through the environment
//	PORT=8080 FASTAPI_URL=http://inference:8000 AI_REQUEST_TIMEOUT=30000 relay run
//
//	# Print the effective configuration
//	relay validate --config /etc/relay/config.yaml
//
//	# Inspect the audit log
//	relay audit query --user u-123 --limit 20
package main

func main() {
	Execute()
}
