package api

import (
	"encoding/json"
	"net/http"

	"github.com/vocdoni/ciphervote/crypto/ethereum"
	"github.com/vocdoni/ciphervote/types"
)

// castBallot casts the encrypted ballot of the signer
// POST /sessions/{sessionId}/ballots
func (a *API) castBallot(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		ErrMalformedSessionID.WithErr(err).Write(w)
		return
	}
	ballot := &Ballot{}
	if err := json.NewDecoder(r.Body).Decode(ballot); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	msg, err := types.BallotSignatureMessage(id, ballot.OptionIndex, ballot.Ciphertext, ballot.Proof)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	voter, err := ethereum.AddrFromSignature(msg, ballot.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := a.engine.CastBallot(r.Context(), id, voter, ballot.OptionIndex, ballot.Ciphertext, ballot.Proof); err != nil {
		writeSessionError(w, err)
		return
	}
	httpWriteJSON(w, &BallotResponse{SessionID: id, Voter: voter})
}
