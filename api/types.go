package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ciphervote/types"
)

// NewSession is the request to create a vote session. The creator is the
// signer of the request.
type NewSession struct {
	types.SessionRequest
	Signature types.HexBytes `json:"signature"`
}

// NewSessionResponse is returned after creating a session.
type NewSessionResponse struct {
	SessionID uint64 `json:"sessionId"`
}

// CreatorNonce is the nonce the next session request of Address must carry.
type CreatorNonce struct {
	Address common.Address `json:"address"`
	Nonce   uint64         `json:"nonce"`
}

// SessionList is a page of sessions.
type SessionList struct {
	Sessions []*types.SessionInfo `json:"sessions"`
}

// Ballot is an encrypted ballot as submitted by a voter. The voter is the
// signer of the ballot.
type Ballot struct {
	OptionIndex int            `json:"optionIndex"`
	Ciphertext  types.HexBytes `json:"ciphertext"`
	Proof       types.HexBytes `json:"proof"`
	Signature   types.HexBytes `json:"signature"`
}

// BallotResponse is returned once a ballot is accepted.
type BallotResponse struct {
	SessionID uint64         `json:"sessionId"`
	Voter     common.Address `json:"voter"`
}

// VerifierInfo describes the trusted verifier ballots are encrypted to.
type VerifierInfo struct {
	Address   common.Address `json:"address"`
	CurveType string         `json:"curveType"`
	PublicKey types.HexBytes `json:"publicKey"`
}

// EventList is a page of the event log. Last is the sequence number of the
// last appended event.
type EventList struct {
	Events []*types.Event `json:"events"`
	Last   uint64         `json:"last"`
}
