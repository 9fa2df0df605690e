package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/ciphervote/crypto/ethereum"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/session"
)

// newSession creates a new vote session owned by the signer of the request
// POST /sessions
func (a *API) newSession(w http.ResponseWriter, r *http.Request) {
	req := &NewSession{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	msg, err := req.SessionRequest.SignatureMessage()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	creator, err := ethereum.AddrFromSignature(msg, req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	id, err := a.engine.CreateSession(r.Context(), creator, &req.SessionRequest)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httpWriteJSON(w, &NewSessionResponse{SessionID: id})
}

// creatorNonce returns the nonce the next session request signed by the
// address must carry
// GET /creators/{address}/nonce
func (a *API) creatorNonce(w http.ResponseWriter, r *http.Request) {
	param := chi.URLParam(r, CreatorURLParam)
	if !common.IsHexAddress(param) {
		ErrMalformedAddress.Withf("%q", param).Write(w)
		return
	}
	creator := common.HexToAddress(param)
	nonce, err := a.engine.CreatorNonce(creator)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httpWriteJSON(w, &CreatorNonce{Address: creator, Nonce: nonce})
}

// sessions lists the sessions, paged by the offset and limit query params
// GET /sessions
func (a *API) sessions(w http.ResponseWriter, r *http.Request) {
	offset, err := queryUint(r, "offset")
	if err != nil {
		ErrMalformedURLParameter.Withf("offset: %v", err).Write(w)
		return
	}
	limit, err := queryUint(r, "limit")
	if err != nil {
		ErrMalformedURLParameter.Withf("limit: %v", err).Write(w)
		return
	}
	list, err := a.engine.ListSessions(int(min(offset, uint64(maxInt))), int(min(limit, session.MaxListLimit)))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httpWriteJSON(w, &SessionList{Sessions: list})
}

// session returns the session info with its current state
// GET /sessions/{sessionId}
func (a *API) session(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		ErrMalformedSessionID.WithErr(err).Write(w)
		return
	}
	info, err := a.engine.GetSession(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httpWriteJSON(w, info)
}

// finalize publishes the results of an ended session, anyone can call it
// POST /sessions/{sessionId}/finalize
func (a *API) finalize(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		ErrMalformedSessionID.WithErr(err).Write(w)
		return
	}
	res, err := a.engine.Finalize(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	log.Debugw("session finalized through the API", "sessionId", id)
	httpWriteJSON(w, res)
}

// results returns the published results of a session
// GET /sessions/{sessionId}/results
func (a *API) results(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		ErrMalformedSessionID.WithErr(err).Write(w)
		return
	}
	res, err := a.engine.GetResults(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httpWriteJSON(w, res)
}

const maxInt = int(^uint(0) >> 1)
