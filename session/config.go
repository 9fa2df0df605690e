package session

import "time"

// Config holds the limits enforced by the engine.
type Config struct {
	// MaxDuration is the longest allowed voting window.
	MaxDuration time.Duration
	// MaxOptions is the maximum number of options of a session.
	MaxOptions int
	// MaxVotesPerSession bounds the accepted ballots of a session, and so
	// the plaintext range searched when decrypting an accumulator.
	MaxVotesPerSession uint64
	// MaxStartDelay is how far in the future a scheduled start may be.
	MaxStartDelay time.Duration
}

// DefaultConfig returns the default engine limits.
func DefaultConfig() Config {
	return Config{
		MaxDuration:        365 * 24 * time.Hour,
		MaxOptions:         255,
		MaxVotesPerSession: 255,
		MaxStartDelay:      30 * 24 * time.Hour,
	}
}
