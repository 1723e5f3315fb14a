package handlers

import (
	"io"
	"net/http"

	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/types"
)

// RootMessage is the plain-text body of GET /.
const RootMessage = "Gemini Proxy Server is running!"

// RootHandler answers GET / with RootMessage. It is mounted on the
// catch-all pattern, so every other unmatched path gets a JSON 404.
func RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			_ = proxy.WriteError(w, http.StatusNotFound, types.MessageNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead:
		default:
			w.Header().Set("Allow", "GET, HEAD")
			_ = proxy.WriteError(w, http.StatusMethodNotAllowed, types.MessageMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, RootMessage)
		}
	}
}
