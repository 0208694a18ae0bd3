// Package domain defines the natural-language query proxy contract.
package domain

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotConfigured is returned when no NL-to-SQL service base URL is set.
var ErrNotConfigured = errors.New("chat: nl-to-sql service not configured")

// GenerateSQLRequest is the prompt forwarded to the NL-to-SQL service.
type GenerateSQLRequest struct {
	Prompt string `json:"prompt"`
}

// Service forwards prompts to the external NL-to-SQL service and relays the
// response body untouched.
type Service interface {
	GenerateSQL(ctx context.Context, req GenerateSQLRequest) (json.RawMessage, error)
}
