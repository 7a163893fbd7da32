package dto

import "time"

// ErrorResponse is the JSON body returned for every failed API request.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Message      string    `json:"message" example:"invalid 'from' date"`
	ErrorDetails string    `json:"error,omitempty" example:"parsing time \"2024-13-01\": month out of range"`
	Timestamp    time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}

// NewErrorResponse builds an ErrorResponse stamped with the current time.
func NewErrorResponse(msg string, err error) ErrorResponse {
	resp := ErrorResponse{Message: msg, Timestamp: time.Now().UTC()}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}
