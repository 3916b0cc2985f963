package apiclient

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one backend call.
type Request struct {
	Method  string
	Path    string
	Token   string
	Query   url.Values
	Body    any
	Headers map[string]string

	// NoCache skips both the cache lookup and the cache write.
	NoCache bool
	// Untracked keeps the call out of the loading counter.
	Untracked bool
	// Idempotent attaches an Idempotency-Key header. Intent, when set, supplies
	// the key; otherwise a fresh one is generated for this call.
	Idempotent bool
	Intent     *Intent
}

// Response is a successful (2xx) backend answer.
type Response struct {
	Status         int
	Header         http.Header
	Body           []byte
	FromCache      bool
	IdempotencyKey string
}

// BuildURL joins base and path and appends the non-empty query values.
// An empty base yields a relative URL.
func BuildURL(base, path string, query url.Values) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteByte('/')
	b.WriteString(strings.TrimLeft(path, "/"))

	if q := compactQuery(query); len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(q.Encode())
	}
	return b.String()
}

func compactQuery(query url.Values) url.Values {
	if len(query) == 0 {
		return nil
	}
	out := make(url.Values, len(query))
	for k, vs := range query {
		for _, v := range vs {
			if v != "" {
				out.Add(k, v)
			}
		}
	}
	return out
}

type errorEnvelope struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
	Error     string `json:"error"`
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// newHTTPError shapes a non-2xx response into an *HTTPError.
func newHTTPError(status int, contentType string, body []byte) *HTTPError {
	httpErr := &HTTPError{Status: status, Body: body}

	if isJSON(contentType) {
		var env errorEnvelope
		if err := json.Unmarshal(body, &env); err == nil {
			httpErr.Message = env.Message
			if httpErr.Message == "" {
				httpErr.Message = env.Error
			}
			httpErr.ErrorCode = env.ErrorCode
		}
	} else {
		httpErr.Message = strings.TrimSpace(string(body))
	}

	if httpErr.Message == "" {
		httpErr.Message = http.StatusText(status)
	}
	return httpErr
}
