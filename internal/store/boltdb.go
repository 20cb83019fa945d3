package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	torrentsBucket = []byte("torrents")
	metainfoBucket = []byte("metainfo")
	sessionBucket  = []byte("session")
)

// ErrDatabaseLocked is returned from Open when another process holds the database file.
var ErrDatabaseLocked = errors.New("database is locked by another process")

// DB persists records, their torrent files and session settings in a Bolt database file.
type DB struct {
	db *bolt.DB
}

// Open the database at path, creating the file and its buckets if needed.
func Open(path string) (*DB, error) {
	err := os.MkdirAll(filepath.Dir(path), 0750)
	if err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0640, &bolt.Options{Timeout: time.Second})
	if err == bolt.ErrTimeout {
		return nil, ErrDatabaseLocked
	} else if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{torrentsBucket, metainfoBucket, sessionBucket} {
			if _, err2 := tx.CreateBucketIfNotExists(name); err2 != nil {
				return err2
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close the database file.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.db.Path()
}

// PutSetting saves a session level value.
func (d *DB) PutSetting(key string, value []byte) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put([]byte(key), value)
	})
}

// GetSetting returns a session level value or nil if it is not set.
func (d *DB) GetSetting(key string) ([]byte, error) {
	var ret []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(sessionBucket).Get([]byte(key))
		if value != nil {
			ret = append([]byte(nil), value...)
		}
		return nil
	})
	return ret, err
}

func (d *DB) insert(r *Record, torrent []byte) error {
	value, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		err2 := tx.Bucket(torrentsBucket).Put([]byte(r.ID), value)
		if err2 != nil {
			return err2
		}
		return tx.Bucket(metainfoBucket).Put([]byte(r.ID), torrent)
	})
}

func (d *DB) write(records []Record) error {
	values := make([][]byte, len(records))
	for i := range records {
		value, err := json.Marshal(&records[i])
		if err != nil {
			return err
		}
		values[i] = value
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(torrentsBucket)
		for i := range records {
			if err := b.Put([]byte(records[i].ID), values[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DB) delete(id string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket(torrentsBucket).Delete([]byte(id))
		if err != nil {
			return err
		}
		return tx.Bucket(metainfoBucket).Delete([]byte(id))
	})
}

type loadedRecord struct {
	Record  Record
	Torrent []byte
}

// load returns every stored record with its torrent file.
// Records that cannot be decoded are reported in errs and skipped.
func (d *DB) load() (ret []loadedRecord, errs []error, err error) {
	err = d.db.View(func(tx *bolt.Tx) error {
		files := tx.Bucket(metainfoBucket)
		return tx.Bucket(torrentsBucket).ForEach(func(k, v []byte) error {
			var r Record
			if err2 := json.Unmarshal(v, &r); err2 != nil {
				errs = append(errs, &CorruptRecordError{ID: string(k), Err: err2})
				return nil
			}
			r.ID = string(k)
			torrent := append([]byte(nil), files.Get(k)...)
			ret = append(ret, loadedRecord{Record: r, Torrent: torrent})
			return nil
		})
	})
	return
}

// CorruptRecordError is reported for records that cannot be loaded from the database.
type CorruptRecordError struct {
	ID  string
	Err error
}

func (e *CorruptRecordError) Error() string {
	return "cannot load torrent " + e.ID + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *CorruptRecordError) Unwrap() error {
	return e.Err
}
