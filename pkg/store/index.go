package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/EchoTools/tagcache/pkg/tag"
)

// Bucket names
var (
	entriesBucketName = []byte("entries") // <index>=<entry>
	namesBucketName   = []byte("names")   // <name>=<index>
)

var (
	// ErrNotFound errors when the queried entry does not exist
	ErrNotFound = errors.New("entry not found")
	// ErrAlreadyExists errors when an entry with the same index or name exists
	ErrAlreadyExists = errors.New("entry already exists")
	ErrInvalidEntry  = errors.New("invalid entry")
)

// Entry describes one tagged entity.
type Entry struct {
	Index   int32   `json:"index"`
	Group   tag.Tag `json:"group"`
	Name    string  `json:"name"`
	Address uint64  `json:"address"`
	Size    uint32  `json:"size"`
}

// Index is a persistent map of tag indices to entries.
type Index struct {
	db *bolt.DB
}

// OpenIndex creates or opens the index file at path.
func OpenIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrapf(err, "create index directory")
	}
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open index %s", path)
	}
	idx := &Index{db: db}
	if err := idx.init(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize index")
	}
	return idx, nil
}

func (i *Index) init() error {
	return i.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(entriesBucketName); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(namesBucketName); err != nil {
			return err
		}
		return nil
	})
}

// Close releases the index file.
func (i *Index) Close() error {
	return i.db.Close()
}

func indexKey(index int32) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], uint32(index))
	return k[:]
}

// Add inserts a new entry.
func (i *Index) Add(ctx context.Context, e Entry) error {
	if e.Index < 0 {
		return errors.Wrapf(ErrInvalidEntry, "index %d", e.Index)
	}
	return i.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(entriesBucketName)
		names := tx.Bucket(namesBucketName)

		if entries.Get(indexKey(e.Index)) != nil {
			return errors.Wrapf(ErrAlreadyExists, "index %d", e.Index)
		}
		if e.Name != "" && names.Get([]byte(e.Name)) != nil {
			return errors.Wrapf(ErrAlreadyExists, "name %q", e.Name)
		}
		return putEntry(entries, names, e)
	})
}

// Update replaces the entry with the same index.
func (i *Index) Update(ctx context.Context, e Entry) error {
	return i.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(entriesBucketName)
		names := tx.Bucket(namesBucketName)

		var old Entry
		if err := getEntry(entries, e.Index, &old); err != nil {
			return err
		}
		if old.Name != e.Name {
			if e.Name != "" && names.Get([]byte(e.Name)) != nil {
				return errors.Wrapf(ErrAlreadyExists, "name %q", e.Name)
			}
			if old.Name != "" {
				if err := names.Delete([]byte(old.Name)); err != nil {
					return err
				}
			}
		}
		return putEntry(entries, names, e)
	})
}

// Delete removes an entry.
func (i *Index) Delete(ctx context.Context, index int32) error {
	return i.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(entriesBucketName)

		var old Entry
		if err := getEntry(entries, index, &old); err != nil {
			return err
		}
		if old.Name != "" {
			if err := tx.Bucket(namesBucketName).Delete([]byte(old.Name)); err != nil {
				return errors.Wrapf(err, "failed to delete name %q", old.Name)
			}
		}
		return entries.Delete(indexKey(index))
	})
}

// Get returns the entry for index.
func (i *Index) Get(index int32) (Entry, error) {
	var e Entry
	err := i.db.View(func(tx *bolt.Tx) error {
		return getEntry(tx.Bucket(entriesBucketName), index, &e)
	})
	return e, err
}

// Lookup returns the entry with the given name.
func (i *Index) Lookup(name string) (Entry, error) {
	var e Entry
	err := i.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(namesBucketName).Get([]byte(name))
		if v == nil {
			return errors.Wrapf(ErrNotFound, "name %q", name)
		}
		return getEntry(tx.Bucket(entriesBucketName), int32(binary.BigEndian.Uint32(v)), &e)
	})
	return e, err
}

// HasTag reports whether an entry exists for index.
func (i *Index) HasTag(index int32) (bool, error) {
	if index < 0 {
		return false, nil
	}
	var found bool
	err := i.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(entriesBucketName).Get(indexKey(index)) != nil
		return nil
	})
	return found, err
}

// Len returns the number of entries.
func (i *Index) Len() (int, error) {
	var n int
	err := i.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(entriesBucketName).Stats().KeyN
		return nil
	})
	return n, err
}

// Walk calls cb for every entry in index order.
func (i *Index) Walk(ctx context.Context, cb func(e Entry) error) error {
	return i.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucketName).ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return errors.Wrapf(err, "failed to unmarshal entry %x", k)
			}
			return cb(e)
		})
	})
}

func putEntry(entries, names *bolt.Bucket, e Entry) error {
	value, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal entry %d", e.Index)
	}
	key := indexKey(e.Index)
	if err := entries.Put(key, value); err != nil {
		return errors.Wrapf(err, "failed to insert entry %d", e.Index)
	}
	if e.Name != "" {
		if err := names.Put([]byte(e.Name), key); err != nil {
			return errors.Wrapf(err, "failed to insert name %q", e.Name)
		}
	}
	return nil
}

func getEntry(entries *bolt.Bucket, index int32, e *Entry) error {
	if index < 0 {
		return errors.Wrapf(ErrNotFound, "index %d", index)
	}
	value := entries.Get(indexKey(index))
	if value == nil {
		return errors.Wrapf(ErrNotFound, "index %d", index)
	}
	if err := json.Unmarshal(value, e); err != nil {
		return errors.Wrapf(err, "failed to unmarshal entry %d", index)
	}
	return nil
}
