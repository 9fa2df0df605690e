package types

import "github.com/ethereum/go-ethereum/common"

// Decryption is the verifier attestation over the decrypted accumulators of
// a session. The signature covers the session id, the accumulators digest and
// the counts; Proofs holds one decryption proof per option.
type Decryption struct {
	SessionID          uint64     `json:"sessionId"          cbor:"0,keyasint"`
	AccumulatorsDigest HexBytes   `json:"accumulatorsDigest" cbor:"1,keyasint"`
	Counts             []uint64   `json:"counts"             cbor:"2,keyasint"`
	Proofs             []HexBytes `json:"proofs"             cbor:"3,keyasint"`
	Signature          HexBytes   `json:"signature"          cbor:"4,keyasint"`
}

// SignatureMessage returns the bytes signed by the verifier.
func (d *Decryption) SignatureMessage() ([]byte, error) {
	return deterministicCBOR(struct {
		SessionID uint64   `cbor:"0,keyasint"`
		Digest    []byte   `cbor:"1,keyasint"`
		Counts    []uint64 `cbor:"2,keyasint"`
	}{d.SessionID, d.AccumulatorsDigest, d.Counts})
}

// Results are the published, immutable plaintext counts of a session.
type Results struct {
	SessionID   uint64         `json:"sessionId"   cbor:"0,keyasint"`
	Counts      []uint64       `json:"counts"      cbor:"1,keyasint"`
	PublishedAt int64          `json:"publishedAt" cbor:"2,keyasint"`
	Verifier    common.Address `json:"verifier"    cbor:"3,keyasint"`
	Decryption  *Decryption    `json:"decryption"  cbor:"4,keyasint"`
}

// EventType identifies the kind of an Event.
type EventType string

const (
	EventSessionCreated   EventType = "session-created"
	EventBallotAccepted   EventType = "ballot-accepted"
	EventResultsPublished EventType = "results-published"
)

// Event is an entry of the append-only log observed by external consumers.
// Only the fields relevant to each type are set; no event carries a choice.
type Event struct {
	Seq       uint64          `json:"seq"               cbor:"0,keyasint"`
	Type      EventType       `json:"type"              cbor:"1,keyasint"`
	SessionID uint64          `json:"sessionId"         cbor:"2,keyasint"`
	Time      int64           `json:"time"              cbor:"3,keyasint"`
	Creator   *common.Address `json:"creator,omitempty" cbor:"4,keyasint,omitempty"`
	Title     string          `json:"title,omitempty"   cbor:"5,keyasint,omitempty"`
	Voter     *common.Address `json:"voter,omitempty"   cbor:"6,keyasint,omitempty"`
	Counts    []uint64        `json:"counts,omitempty"  cbor:"7,keyasint,omitempty"`
}
