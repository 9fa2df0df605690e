// storage package persists the vote sessions, their encrypted accumulators,
// the voter flags, the published results and the event log. It is a prefixed
// key-value store on top of a dvote db.Database. The following prefixes are
// used:
//   - 's/' for sessions, by id
//   - 'a/' for the per-option accumulators, by id and option index
//   - 'v/' for the voter flags, by id and voter address
//   - 'r/' for the published results, by id
//   - 'e/' for the event log, by sequence number
//   - 'n/' for the id and sequence counters
//   - 'c/' for the session creation nonces, by creator address
//
// Every mutation is applied as a single write transaction spanning all the
// prefixes it touches, so a failure never leaves partial state behind.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vocdoni/ciphervote/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	sessionPrefix     = []byte("s/")
	accumulatorPrefix = []byte("a/")
	voterPrefix       = []byte("v/")
	resultsPrefix     = []byte("r/")
	eventPrefix       = []byte("e/")
	counterPrefix     = []byte("n/")
	noncePrefix       = []byte("c/")

	sessionCounterKey = []byte("session")
	eventCounterKey   = []byte("event")
)

// resultsCacheSize is the number of published results kept in memory.
const resultsCacheSize = 256

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an artifact that can only be written
	// once is written again.
	ErrAlreadyExists = errors.New("already exists")
)

// Storage wraps the database with the typed operations of the sequencer.
// Writes are serialized by globalLock; reads see the last committed write.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
	results    *lru.Cache[uint64, *types.Results]
}

// New creates a new Storage instance.
func New(database db.Database) *Storage {
	cache, err := lru.New[uint64, *types.Results](resultsCacheSize)
	if err != nil {
		panic(err) // only fails for a non positive size
	}
	return &Storage{db: database, results: cache}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		panic(err)
	}
}

// getArtifact reads and decodes the value stored under prefix/key into out.
// It returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(r db.Reader, prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(r, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(data, out)
}

// setArtifact encodes the artifact and writes it under prefix/key as part of
// the given transaction.
func setArtifact(wTx db.WriteTx, prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(wTx, prefix).Set(key, data)
}

// counter returns the current value of a counter, zero if never set.
func (s *Storage) counter(r db.Reader, key []byte) (uint64, error) {
	data, err := prefixeddb.NewPrefixedReader(r, counterPrefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupted counter %s", key)
	}
	return binary.BigEndian.Uint64(data), nil
}

func setCounter(wTx db.WriteTx, key []byte, value uint64) error {
	return prefixeddb.NewPrefixedWriteTx(wTx, counterPrefix).Set(key, uint64Key(value))
}

// commit commits the transaction or discards it if err is not nil.
func commit(wTx db.WriteTx, err error) error {
	if err != nil {
		wTx.Discard()
		return err
	}
	if err := wTx.Commit(); err != nil {
		wTx.Discard()
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
