// Package cache stores parsed documents in SQLite, keyed by a hash of the
// source bytes, so unchanged files skip the parser.
package cache

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"
	"github.com/zeebo/xxh3"
	_ "modernc.org/sqlite"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/parser"
)

var log = commonlog.GetLogger("chirp.cache")

// ErrMiss is returned by Get when no usable entry exists.
var ErrMiss = errors.New("cache miss")

// LayoutVersion identifies the block layout. Entries written with another
// version are ignored.
const LayoutVersion = 1

type entry struct {
	Version int         `cbor:"1,keyasint"`
	Blocks  []ast.Block `cbor:"2,keyasint"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Store is a parsed-document cache backed by a SQLite database. It is safe
// for concurrent use.
type Store struct {
	db     *sql.DB
	hits   atomic.Int64
	misses atomic.Int64
}

// Open opens or creates the cache database at path. The special path
// ":memory:" opens a private in-memory cache.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	// One connection: an in-memory database exists per connection, and
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS asts (
		key     TEXT PRIMARY KEY,
		size    INTEGER NOT NULL,
		blocks  BLOB NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key returns the cache key of input.
func Key(input []byte) string {
	sum := xxh3.Hash128(input).Bytes()
	return hex.EncodeToString(sum[:])
}

// Get returns the cached parse of input. Entries that fail validation
// against input are deleted and reported as a miss.
func (s *Store) Get(input []byte) (*ast.Ast, error) {
	key := Key(input)

	var size int
	var data []byte
	err := s.db.QueryRow("SELECT size, blocks FROM asts WHERE key = ?", key).Scan(&size, &data)
	if err != nil {
		s.misses.Add(1)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("querying cache: %w", err)
	}

	var e entry
	if err := cbor.Unmarshal(data, &e); err != nil || e.Version != LayoutVersion || size != len(input) {
		log.Debugf("discarding stale entry %s", key)
		s.misses.Add(1)
		return nil, s.discard(key)
	}
	if err := ast.Validate(input, e.Blocks); err != nil {
		log.Warningf("discarding invalid entry %s: %s", key, err)
		s.misses.Add(1)
		return nil, s.discard(key)
	}

	s.hits.Add(1)
	return &ast.Ast{Input: input, Blocks: e.Blocks}, nil
}

func (s *Store) discard(key string) error {
	if _, err := s.db.Exec("DELETE FROM asts WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return ErrMiss
}

// Put stores a parsed document.
func (s *Store) Put(a *ast.Ast) error {
	data, err := encMode.Marshal(entry{Version: LayoutVersion, Blocks: a.Blocks})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO asts (key, size, blocks, created) VALUES (?, ?, ?, ?)",
		Key(a.Input), len(a.Input), data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	return nil
}

// Parse returns the cached parse of input, parsing and storing it on a
// miss. Parse errors are not cached. Cache failures are logged and fall
// back to parsing.
func (s *Store) Parse(input []byte) (*ast.Ast, error) {
	a, err := s.Get(input)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrMiss) {
		log.Warningf("%s", err)
	}

	a, err = parser.Parse(input)
	if err != nil {
		return nil, err
	}
	if err := s.Put(a); err != nil {
		log.Warningf("%s", err)
	}
	return a, nil
}

// Stats returns the number of hits and misses since Open.
func (s *Store) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

// Len returns the number of cached documents.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM asts").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}

// Prune deletes entries created before cutoff and returns how many were
// removed.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM asts WHERE created < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return res.RowsAffected()
}
