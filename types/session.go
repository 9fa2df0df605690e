package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
)

// State is the lifecycle state of a vote session. It is always derived from
// the clock and the finalized flag, never stored.
type State uint8

const (
	StatePending State = iota
	StateActive
	StateEnded
	StateFinalized
)

var stateNames = map[State]string{
	StatePending:   "pending",
	StateActive:    "active",
	StateEnded:     "ended",
	StateFinalized: "finalized",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(data []byte) error {
	for st, name := range stateNames {
		if name == string(data) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", data)
}

// Option is one of the choices of a vote session.
type Option struct {
	Name        string `json:"name"                  cbor:"0,keyasint,omitempty"`
	Description string `json:"description,omitempty" cbor:"1,keyasint,omitempty"`
}

// Session is the persisted record of a vote session. Times are unix seconds.
type Session struct {
	ID          uint64         `json:"id"          cbor:"0,keyasint"`
	Title       string         `json:"title"       cbor:"1,keyasint,omitempty"`
	Description string         `json:"description" cbor:"2,keyasint,omitempty"`
	Creator     common.Address `json:"creator"     cbor:"3,keyasint"`
	Options     []Option       `json:"options"     cbor:"4,keyasint"`
	StartTime   int64          `json:"startTime"   cbor:"5,keyasint"`
	EndTime     int64          `json:"endTime"     cbor:"6,keyasint"`
	TotalVotes  uint64         `json:"totalVotes"  cbor:"7,keyasint"`
	Finalized   bool           `json:"finalized"   cbor:"8,keyasint"`
}

// Start returns the start time of the session.
func (s *Session) Start() time.Time {
	return time.Unix(s.StartTime, 0).UTC()
}

// End returns the end time of the session.
func (s *Session) End() time.Time {
	return time.Unix(s.EndTime, 0).UTC()
}

func (s *Session) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}

// Info builds the public view of the session for the given derived state.
func (s *Session) Info(state State) *SessionInfo {
	return &SessionInfo{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Creator:     s.Creator,
		Options:     append([]Option(nil), s.Options...),
		OptionCount: len(s.Options),
		TotalVotes:  s.TotalVotes,
		State:       state,
		IsActive:    state == StateActive,
		IsEnded:     state == StateEnded || state == StateFinalized,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
	}
}

// SessionInfo is the read model returned to external callers.
type SessionInfo struct {
	ID          uint64         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Creator     common.Address `json:"creator"`
	Options     []Option       `json:"options"`
	OptionCount int            `json:"optionCount"`
	TotalVotes  uint64         `json:"totalVotes"`
	State       State          `json:"state"`
	IsActive    bool           `json:"isActive"`
	IsEnded     bool           `json:"isEnded"`
	StartTime   int64          `json:"startTime"`
	EndTime     int64          `json:"endTime"`
}

// SessionRequest holds the parameters to create a new vote session.
// Duration is in seconds. A zero StartTime means the session starts as soon
// as it is created. Nonce must match the number of sessions the creator
// already created, so a signed request is only accepted once.
type SessionRequest struct {
	Title       string   `json:"title"               cbor:"0,keyasint"`
	Description string   `json:"description"         cbor:"1,keyasint"`
	Options     []Option `json:"options"             cbor:"2,keyasint"`
	Duration    uint64   `json:"duration"            cbor:"3,keyasint"`
	StartTime   int64    `json:"startTime,omitempty" cbor:"4,keyasint,omitempty"`
	Nonce       uint64   `json:"nonce"               cbor:"5,keyasint"`
}

// SignatureMessage returns the deterministic encoding of the request that
// the creator signs.
func (r *SessionRequest) SignatureMessage() ([]byte, error) {
	return deterministicCBOR(r)
}

// Ballot is an encrypted ballot as handed to the verifier. It never contains
// the plaintext choice, only the option slot the ciphertext is added to.
type Ballot struct {
	SessionID   uint64         `json:"sessionId"   cbor:"0,keyasint"`
	Voter       common.Address `json:"voter"       cbor:"1,keyasint"`
	OptionIndex int            `json:"optionIndex" cbor:"2,keyasint"`
	OptionCount int            `json:"optionCount" cbor:"3,keyasint"`
	Ciphertext  HexBytes       `json:"ciphertext"  cbor:"4,keyasint"`
	Proof       HexBytes       `json:"proof"       cbor:"5,keyasint"`
}

// BallotSignatureMessage returns the message a voter signs to cast a ballot.
func BallotSignatureMessage(sessionID uint64, optionIndex int, ciphertext, proof []byte) ([]byte, error) {
	return deterministicCBOR(struct {
		SessionID   uint64 `cbor:"0,keyasint"`
		OptionIndex int    `cbor:"1,keyasint"`
		Ciphertext  []byte `cbor:"2,keyasint"`
		Proof       []byte `cbor:"3,keyasint"`
	}{sessionID, optionIndex, ciphertext, proof})
}

func deterministicCBOR(v any) ([]byte, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	return em.Marshal(v)
}
