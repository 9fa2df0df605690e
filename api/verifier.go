package api

import "net/http"

// verifierInfo returns the trusted verifier address and the public key
// ballots must be encrypted to
// GET /verifier
func (a *API) verifierInfo(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, &VerifierInfo{
		Address:   a.verifier.Address(),
		CurveType: a.curveType,
		PublicKey: a.verifier.PublicKey().Marshal(),
	})
}
