// Package storage keeps named document collections in a pebble database.
//
// Layout:
//
//	m/<name>                 collection marker: next seq, count, revision
//	c/<name>\x00<seq>        one CBOR-encoded document, seq big-endian
//
// Sequence numbers are allocated per collection and never reused, so a
// collection always iterates in insertion order. The revision is the ksuid
// of the last write that touched the collection.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/docport/pkg/codec"
	"github.com/ssargent/docport/pkg/collection"
)

var (
	// ErrNotFound is returned for a collection that does not exist.
	ErrNotFound = errors.New("collection not found")
	// ErrInvalidName is returned for an empty name or one containing NUL.
	ErrInvalidName = errors.New("invalid collection name")
)

const (
	markerPrefix = "m/"
	docPrefix    = "c/"
	nameSep      = 0x00

	revisionSize = 20
	markerSize   = 8 + 8 + revisionSize
)

// Info describes one stored collection.
type Info struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Revision string `json:"revision,omitempty"`
}

// marker is the value stored under m/<name>.
type marker struct {
	next     uint64
	count    uint64
	revision ksuid.KSUID
}

func (m marker) encode() []byte {
	buf := make([]byte, markerSize)
	binary.BigEndian.PutUint64(buf[0:8], m.next)
	binary.BigEndian.PutUint64(buf[8:16], m.count)
	copy(buf[16:], m.revision.Bytes())
	return buf
}

func decodeMarker(data []byte) (marker, error) {
	if len(data) != markerSize {
		return marker{}, fmt.Errorf("marker has %d bytes, want %d", len(data), markerSize)
	}
	rev, err := ksuid.FromBytes(data[16:])
	if err != nil {
		return marker{}, fmt.Errorf("marker revision: %w", err)
	}
	return marker{
		next:     binary.BigEndian.Uint64(data[0:8]),
		count:    binary.BigEndian.Uint64(data[8:16]),
		revision: rev,
	}, nil
}

func (m marker) info(name string) Info {
	info := Info{Name: name, Count: int(m.count)}
	if !m.revision.IsNil() {
		info.Revision = m.revision.String()
	}
	return info
}

// Store is a collection store backed by pebble. It is safe for concurrent use.
type Store struct {
	db *pebble.DB

	// mu serializes writers. Markers are read, updated and written back
	// inside one batch.
	mu sync.Mutex
}

// Open opens or creates a store in dir. opts may be nil.
func Open(dir string, opts *pebble.Options) (*Store, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping performs a single point read to confirm the database answers.
func (s *Store) Ping() error {
	_, closer, err := s.db.Get([]byte(markerPrefix))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store unavailable: %w", err)
	}
	return closer.Close()
}

func validateName(name string) error {
	if name == "" || strings.IndexByte(name, nameSep) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func markerKey(name string) []byte {
	return []byte(markerPrefix + name)
}

// docBounds returns the key range holding every document of name.
func docBounds(name string) (lower, upper []byte) {
	lower = append([]byte(docPrefix+name), nameSep)
	upper = append([]byte(docPrefix+name), nameSep+1)
	return lower, upper
}

func docKey(name string, seq uint64) []byte {
	key := make([]byte, 0, len(docPrefix)+len(name)+1+8)
	key = append(key, docPrefix...)
	key = append(key, name...)
	key = append(key, nameSep)
	return binary.BigEndian.AppendUint64(key, seq)
}

func (s *Store) readMarker(name string) (marker, bool, error) {
	value, closer, err := s.db.Get(markerKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return marker{}, false, nil
	}
	if err != nil {
		return marker{}, false, fmt.Errorf("failed to look up %s: %w", name, err)
	}
	defer closer.Close()

	m, err := decodeMarker(value)
	if err != nil {
		return marker{}, false, fmt.Errorf("collection %s: %w", name, err)
	}
	return m, true, nil
}

// Insert appends docs to the named collection, creating it if needed. The
// write is atomic.
func (s *Store) Insert(name string, docs collection.Collection) error {
	if err := validateName(name); err != nil {
		return err
	}
	_, err := s.InsertSet(collection.Set{name: docs}, false)
	return err
}

// Replace swaps the contents of the named collection for docs in one
// atomic write.
func (s *Store) Replace(name string, docs collection.Collection) error {
	if err := validateName(name); err != nil {
		return err
	}
	_, err := s.InsertSet(collection.Set{name: docs}, true)
	return err
}

// InsertSet writes every collection of set in a single batch. With replace,
// existing documents of each named collection are removed first. Either
// every collection is written or none is. The returned infos are sorted by
// name.
func (s *Store) InsertSet(set collection.Set, replace bool) ([]Info, error) {
	names := set.Names()
	for _, name := range names {
		if err := validateName(name); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	revision := ksuid.New()
	infos := make([]Info, 0, len(names))
	for _, name := range names {
		m, _, err := s.readMarker(name)
		if err != nil {
			return nil, err
		}
		if replace {
			lower, upper := docBounds(name)
			if err := batch.DeleteRange(lower, upper, nil); err != nil {
				return nil, fmt.Errorf("failed to stage replace of %s: %w", name, err)
			}
			m.count = 0
		}

		for i, doc := range set[name] {
			value, err := codec.MarshalDocument(doc)
			if err != nil {
				return nil, fmt.Errorf("failed to encode document %d of %s: %w", i, name, err)
			}
			if err := batch.Set(docKey(name, m.next), value, nil); err != nil {
				return nil, fmt.Errorf("failed to stage document %d of %s: %w", i, name, err)
			}
			m.next++
			m.count++
		}

		m.revision = revision
		if err := batch.Set(markerKey(name), m.encode(), nil); err != nil {
			return nil, fmt.Errorf("failed to write marker for %s: %w", name, err)
		}
		infos = append(infos, m.info(name))
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("failed to commit %s: %w", strings.Join(names, ", "), err)
	}
	return infos, nil
}

// Load returns every document of the named collection in insertion order.
func (s *Store) Load(name string) (collection.Collection, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	snap := s.db.NewSnapshot()
	defer snap.Close()

	_, closer, err := snap.Get(markerKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", name, err)
	}
	_ = closer.Close()

	lower, upper := docBounds(name)
	iter, err := snap.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", name, err)
	}
	defer iter.Close()

	docs := collection.Collection{}
	for iter.First(); iter.Valid(); iter.Next() {
		doc, err := codec.UnmarshalDocument(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("failed to decode document in %s: %w", name, err)
		}
		docs = append(docs, doc)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", name, err)
	}
	return docs, nil
}

// LoadSet loads the named collections, or every collection when names is
// empty.
func (s *Store) LoadSet(names ...string) (collection.Set, error) {
	if len(names) == 0 {
		infos, err := s.Collections()
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			names = append(names, info.Name)
		}
	}

	set := make(collection.Set, len(names))
	for _, name := range names {
		docs, err := s.Load(name)
		if err != nil {
			return nil, err
		}
		set[name] = docs
	}
	return set, nil
}

// Collections lists every collection with its document count, sorted by
// name. Only marker keys are read.
func (s *Store) Collections() ([]Info, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(markerPrefix),
		UpperBound: []byte("m0"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer iter.Close()

	var infos []Info
	for iter.First(); iter.Valid(); iter.Next() {
		name := strings.TrimPrefix(string(iter.Key()), markerPrefix)
		m, err := decodeMarker(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", name, err)
		}
		infos = append(infos, m.info(name))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return infos, nil
}

// Drop removes the named collection and all of its documents.
func (s *Store) Drop(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.readMarker(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	lower, upper := docBounds(name)
	if err := batch.DeleteRange(lower, upper, nil); err != nil {
		return fmt.Errorf("failed to stage drop of %s: %w", name, err)
	}
	if err := batch.Delete(markerKey(name), nil); err != nil {
		return fmt.Errorf("failed to stage drop of %s: %w", name, err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to drop %s: %w", name, err)
	}
	return nil
}
