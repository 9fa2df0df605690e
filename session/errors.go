package session

import "errors"

var (
	// ErrNotFound is returned when the session id was never assigned.
	ErrNotFound = errors.New("session not found")

	// Validation errors, rejected before any state change.
	ErrInvalidOptions   = errors.New("invalid options")
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrInvalidOption    = errors.New("invalid option index")
	ErrInvalidStartTime = errors.New("invalid start time")
	ErrInvalidNonce     = errors.New("invalid creator nonce")

	// State errors, a precondition violated by timing or a prior action.
	ErrSessionNotActive = errors.New("session is not active")
	ErrSessionNotEnded  = errors.New("session has not ended")
	ErrAlreadyFinalized = errors.New("session already finalized")
	ErrAlreadyVoted     = errors.New("voter already voted")
	ErrNotFinalized     = errors.New("session not finalized")
	ErrVoteLimitReached = errors.New("session vote limit reached")

	// Trust errors, cryptographic or authorization failures.
	ErrInvalidBallotProof = errors.New("invalid ballot proof")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Category groups the errors returned by the engine.
type Category string

const (
	CategoryNone       Category = ""
	CategoryValidation Category = "validation"
	CategoryState      Category = "state"
	CategoryTrust      Category = "trust"
	CategoryNotFound   Category = "notfound"
	CategoryInternal   Category = "internal"
)

var categories = []struct {
	category Category
	errs     []error
}{
	{CategoryNotFound, []error{ErrNotFound}},
	{CategoryValidation, []error{ErrInvalidOptions, ErrInvalidDuration, ErrInvalidOption, ErrInvalidStartTime, ErrInvalidNonce}},
	{CategoryState, []error{
		ErrSessionNotActive, ErrSessionNotEnded, ErrAlreadyFinalized,
		ErrAlreadyVoted, ErrNotFinalized, ErrVoteLimitReached,
	}},
	{CategoryTrust, []error{ErrInvalidBallotProof, ErrUnauthorized}},
}

// Classify returns the category of err. Errors not produced by this package
// are internal; a nil error has no category.
func Classify(err error) Category {
	if err == nil {
		return CategoryNone
	}
	for _, c := range categories {
		for _, target := range c.errs {
			if errors.Is(err, target) {
				return c.category
			}
		}
	}
	return CategoryInternal
}
