package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/session"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// sessionIDParam parses the session id URL parameter.
func sessionIDParam(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, SessionURLParam), 10, 64)
}

// queryUint parses an optional unsigned query parameter.
func queryUint(r *http.Request, name string) (uint64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

// sessionErrors maps the engine errors to API errors.
var sessionErrors = []struct {
	target error
	apiErr Error
}{
	{session.ErrNotFound, ErrSessionNotFound},
	{session.ErrInvalidOptions, ErrInvalidOptions},
	{session.ErrInvalidDuration, ErrInvalidDuration},
	{session.ErrInvalidOption, ErrInvalidOption},
	{session.ErrInvalidStartTime, ErrInvalidStartTime},
	{session.ErrInvalidNonce, ErrInvalidNonce},
	{session.ErrSessionNotActive, ErrSessionNotActive},
	{session.ErrSessionNotEnded, ErrSessionNotEnded},
	{session.ErrAlreadyFinalized, ErrAlreadyFinalized},
	{session.ErrAlreadyVoted, ErrAlreadyVoted},
	{session.ErrNotFinalized, ErrNotFinalized},
	{session.ErrVoteLimitReached, ErrVoteLimitReached},
	{session.ErrInvalidBallotProof, ErrInvalidBallotProof},
	{session.ErrUnauthorized, ErrUnauthorized},
}

// writeSessionError writes the API error matching an engine error.
func writeSessionError(w http.ResponseWriter, err error) {
	for _, e := range sessionErrors {
		if errors.Is(err, e.target) {
			fromSession(e.apiErr, err).Write(w)
			return
		}
	}
	log.Errorw(err, "session engine failure")
	ErrGenericInternalServerError.WithErr(err).Write(w)
}
