package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/session"
)

// Error is the error answered by the handlers: a stable code, the HTTP
// status and, for engine errors, their category.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
	Category   session.Category
}

// MarshalJSON encodes the error message, the code and the category, if any.
//
// Example output: {"error":"voter already voted: 0x12..","code":40015,"category":"state"}
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Err      string           `json:"error"`
		Code     int              `json:"code"`
		Category session.Category `json:"category,omitempty"`
	}{
		Err:      e.Err.Error(),
		Code:     e.Code,
		Category: e.Category,
	})
}

func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// Write sends the error as the JSON body of the response. Trust errors are
// logged as warnings, they may come from an adversarial client.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	switch {
	case e.Category == session.CategoryTrust:
		log.Warnw("API request rejected as untrusted", "error", e.Error(), "code", e.Code)
	case log.Level() == log.LogLevelDebug:
		log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	}
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

// Withf returns a copy of the error with the formatted detail appended.
func (e Error) Withf(format string, args ...any) Error {
	e.Err = fmt.Errorf("%w: %s", e.Err, fmt.Sprintf(format, args...))
	return e
}

// WithErr returns a copy of the error with err appended as detail.
func (e Error) WithErr(err error) Error {
	e.Err = fmt.Errorf("%w: %v", e.Err, err)
	return e
}

// fromSession returns the API error apiErr carrying the engine error err
// and its category.
func fromSession(apiErr Error, err error) Error {
	return Error{
		Err:        err,
		Code:       apiErr.Code,
		HTTPstatus: apiErr.HTTPstatus,
		Category:   session.Classify(err),
	}
}
