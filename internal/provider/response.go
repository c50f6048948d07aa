package provider

import (
	"github.com/dusk-indust/ideaengine/internal/idea"
)

// maxErrorBody caps how much of a failed response body is kept in APIError.
const maxErrorBody = 2048

// statusError wraps a non-success SDK response, truncating its body.
func statusError(providerID string, status int, body string, err error) *APIError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &APIError{Provider: providerID, StatusCode: status, Body: body, Err: err}
}

// toBundle parses provider text into a bundle, wrapping parse failures.
func toBundle(providerID, model, text string) (idea.Bundle, error) {
	resp, err := idea.ParseResponse(text)
	if err != nil {
		return idea.Bundle{}, parseFailure(providerID, err)
	}
	return idea.NewBundle(providerID, model, resp, text), nil
}
