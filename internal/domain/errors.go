package domain

import "time"

type ErrorCode string

const (
	ErrValidation          ErrorCode = "validation"
	ErrRateLimited         ErrorCode = "rate_limited"
	ErrNotFound            ErrorCode = "not_found"
	ErrUpstreamAuth        ErrorCode = "upstream_auth"
	ErrUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrUpstreamTimeout     ErrorCode = "upstream_timeout"
	ErrUpstreamNetwork     ErrorCode = "upstream_network"
	ErrReferenceData       ErrorCode = "reference_data_unavailable"
)

// Validation reasons, carried so callers can tell bad dates apart without
// parsing messages.
const (
	ReasonInvalidDateFormat = "invalid_date_format"
	ReasonDateOrder         = "date_order"
	ReasonPastDate          = "past_date"
	ReasonDateRange         = "date_range"
	ReasonParameter         = "parameter"
)

// SearchError is the tagged failure value returned from every component
// boundary. It marshals directly into the tool-call error payload; raw
// provider errors never cross this boundary.
type SearchError struct {
	Code        ErrorCode `json:"-"`
	Reason      string    `json:"-"`
	Message     string    `json:"error"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Timestamp   string    `json:"timestamp"`
}

func (e *SearchError) Error() string { return e.Message }

func NewError(code ErrorCode, msg string, suggestions ...string) *SearchError {
	return &SearchError{
		Code:        code,
		Message:     msg,
		Suggestions: suggestions,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func NewValidationError(reason, msg string, suggestions ...string) *SearchError {
	e := NewError(ErrValidation, msg, suggestions...)
	e.Reason = reason
	return e
}
