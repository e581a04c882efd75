// Package taskdomain is the mutation layer the automation pipeline invokes.
// Mutations return a {statusCode, body} envelope whose body may be a JSON
// string or an object; Normalize converts it into one typed result at the
// boundary before any other component touches it.
package taskdomain

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Envelope is the raw mutation response shape.
type Envelope struct {
	StatusCode int
	Body       any
}

// Result is the normalized form: Ok(payload) or Err(code, message).
type Result struct {
	OK      bool
	Code    int
	Message string
	// Payload is the success body as canonical JSON.
	Payload string
}

// Normalize flattens an envelope. A status >= 400 is a failure whose message
// is extracted from the body's "error" field when present.
func Normalize(env *Envelope) *Result {
	if env == nil {
		return &Result{OK: false, Code: 500, Message: "empty response"}
	}

	bodyJSON := bodyToJSON(env.Body)

	if env.StatusCode >= 400 {
		message := gjson.Get(bodyJSON, "error").String()
		if message == "" {
			message = "operation failed"
		}
		return &Result{OK: false, Code: env.StatusCode, Message: message}
	}

	return &Result{OK: true, Code: env.StatusCode, Payload: bodyJSON}
}

// bodyToJSON renders the duck-typed body as a JSON document. Strings are
// passed through when already valid JSON, otherwise wrapped.
func bodyToJSON(body any) string {
	switch v := body.(type) {
	case nil:
		return "{}"
	case string:
		if gjson.Valid(v) {
			return v
		}
		encoded, _ := json.Marshal(map[string]string{"message": v})
		return string(encoded)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "{}"
		}
		return string(encoded)
	}
}

func errorEnvelope(code int, message string) *Envelope {
	return &Envelope{StatusCode: code, Body: map[string]string{"error": message}}
}
