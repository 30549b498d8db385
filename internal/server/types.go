package server

import (
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/vaults"
	"github.com/aman-zulfiqar/drift-toolkit/internal/yields"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK         bool              `json:"ok"`                   // Overall health status
	Components map[string]string `json:"components,omitempty"` // Per-backend status ("ok" or error)
}

// YieldsResponse wraps a yield snapshot with its fetch time
type YieldsResponse struct {
	Yields    yields.Snapshot `json:"yields"`     // Ordered symbol → percent entries
	FetchedAt time.Time       `json:"fetched_at"` // When the providers were queried
}

// VaultsResponse wraps vault APY reports with their fetch time
type VaultsResponse struct {
	Items     []vaults.Report `json:"items"`      // One entry per vault with data
	FetchedAt time.Time       `json:"fetched_at"` // When the feeds were queried
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`            // Flag key (must match regex pattern)
	Value bool   `json:"value"`          // Flag value (true/false)
	Note  string `json:"note,omitempty"` // Optional operator note
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value bool   `json:"value"`          // New flag value
	Note  string `json:"note,omitempty"` // Optional operator note
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question string `json:"question"` // Natural language question about trade data
	Model    string `json:"model"`    // Optional AI model override
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL    string `json:"sql"`     // Generated SQL query
	Answer string `json:"answer"`  // Natural language answer
	Rows   int    `json:"rows"`    // Rows returned by the query
	TookMs int64  `json:"took_ms"` // Execution time in milliseconds
}
