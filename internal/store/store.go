// Package store keeps the authoritative record of every torrent in the session.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/btree"
)

var (
	// ErrNotFound is returned when there is no record with the given id.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned from CompareAndUpdate when the record has changed since it was read.
	ErrConflict = errors.New("record has been modified")
	// ErrExists is returned from Insert when a record with the same id is already present.
	ErrExists = errors.New("record already exists")
)

type entry struct {
	record  Record
	torrent []byte
}

type seqItem struct {
	seq uint64
	id  string
}

func lessSeq(a, b seqItem) bool {
	return a.seq < b.seq
}

// Store is a thread-safe collection of records ordered by insertion.
// Every returned record is a copy.
type Store struct {
	m       sync.RWMutex
	entries map[string]*entry
	order   *btree.BTreeG[seqItem]
	lastSeq uint64
	dirty   map[string]struct{}

	// serializes writes to db so that the file reflects the order of changes in memory
	mPersist sync.Mutex
	db       *DB
}

// New returns a Store. If db is not nil, records saved in it are loaded
// and subsequent changes are written to it.
// Records that could not be decoded are skipped and returned in skipped.
func New(db *DB) (s *Store, skipped []error, err error) {
	s = &Store{
		entries: make(map[string]*entry),
		order:   btree.NewG(2, lessSeq),
		dirty:   make(map[string]struct{}),
		db:      db,
	}
	if db == nil {
		return s, nil, nil
	}
	loaded, skipped, err := db.load()
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Record.Seq < loaded[j].Record.Seq })
	for _, l := range loaded {
		r := l.Record
		s.entries[r.ID] = &entry{record: r, torrent: l.Torrent}
		s.order.ReplaceOrInsert(seqItem{seq: r.Seq, id: r.ID})
		if r.Seq > s.lastSeq {
			s.lastSeq = r.Seq
		}
	}
	return s, skipped, nil
}

// Insert adds a new record with its raw torrent file.
// Seq and Version are assigned by the store and the stored copy is returned.
func (s *Store) Insert(r Record, torrent []byte) (Record, error) {
	r = r.Clone()
	s.mPersist.Lock()
	defer s.mPersist.Unlock()

	s.m.Lock()
	if _, ok := s.entries[r.ID]; ok {
		s.m.Unlock()
		return Record{}, ErrExists
	}
	s.lastSeq++
	r.Seq = s.lastSeq
	r.Version = 1
	s.entries[r.ID] = &entry{record: r, torrent: torrent}
	s.order.ReplaceOrInsert(seqItem{seq: r.Seq, id: r.ID})
	s.m.Unlock()

	if s.db != nil {
		if err := s.db.insert(&r, torrent); err != nil {
			s.m.Lock()
			s.remove(r.ID)
			s.m.Unlock()
			return Record{}, err
		}
	}
	return r.Clone(), nil
}

// Get returns a copy of the record.
func (s *Store) Get(id string) (Record, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return e.record.Clone(), nil
}

// Torrent returns the raw torrent file of the record.
func (s *Store) Torrent(id string) ([]byte, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.torrent...), nil
}

// List returns copies of all records in insertion order.
func (s *Store) List() []Record {
	s.m.RLock()
	defer s.m.RUnlock()
	ret := make([]Record, 0, len(s.entries))
	s.order.Ascend(func(item seqItem) bool {
		ret = append(ret, s.entries[item.id].record.Clone())
		return true
	})
	return ret
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.m.RLock()
	defer s.m.RUnlock()
	return len(s.entries)
}

// Update calls fn with a copy of the record and stores the result if fn returns nil.
// The change is atomic with respect to every other operation on the store.
func (s *Store) Update(id string, fn func(r *Record) error) (Record, error) {
	return s.update(id, 0, false, fn)
}

// CompareAndUpdate is like Update but fails with ErrConflict
// if the record's version is not equal to version.
func (s *Store) CompareAndUpdate(id string, version uint64, fn func(r *Record) error) (Record, error) {
	return s.update(id, version, true, fn)
}

func (s *Store) update(id string, version uint64, compare bool, fn func(r *Record) error) (Record, error) {
	s.m.Lock()
	defer s.m.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if compare && e.record.Version != version {
		return Record{}, ErrConflict
	}
	r := e.record.Clone()
	if err := fn(&r); err != nil {
		return Record{}, err
	}
	r.ID = e.record.ID
	r.Seq = e.record.Seq
	r.Version = e.record.Version + 1
	e.record = r
	if s.db != nil {
		s.dirty[id] = struct{}{}
	}
	return r.Clone(), nil
}

// Delete removes the record and returns its last state.
func (s *Store) Delete(id string) (Record, error) {
	s.mPersist.Lock()
	defer s.mPersist.Unlock()

	s.m.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.m.Unlock()
		return Record{}, ErrNotFound
	}
	s.remove(id)
	s.m.Unlock()

	if s.db != nil {
		if err := s.db.delete(id); err != nil {
			return e.record.Clone(), err
		}
	}
	return e.record.Clone(), nil
}

func (s *Store) remove(id string) {
	e := s.entries[id]
	s.order.Delete(seqItem{seq: e.record.Seq, id: id})
	delete(s.entries, id)
	delete(s.dirty, id)
}

// Flush writes records changed since the last flush to the database.
func (s *Store) Flush() error {
	if s.db == nil {
		return nil
	}
	s.mPersist.Lock()
	defer s.mPersist.Unlock()

	s.m.Lock()
	if len(s.dirty) == 0 {
		s.m.Unlock()
		return nil
	}
	records := make([]Record, 0, len(s.dirty))
	for id := range s.dirty {
		records = append(records, s.entries[id].record.Clone())
	}
	s.dirty = make(map[string]struct{})
	s.m.Unlock()

	err := s.db.write(records)
	if err != nil {
		s.m.Lock()
		for _, r := range records {
			if _, ok := s.entries[r.ID]; ok {
				s.dirty[r.ID] = struct{}{}
			}
		}
		s.m.Unlock()
	}
	return err
}

// Dirty returns the number of records waiting to be flushed.
func (s *Store) Dirty() int {
	s.m.RLock()
	defer s.m.RUnlock()
	return len(s.dirty)
}
