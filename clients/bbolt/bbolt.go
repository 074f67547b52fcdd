// Package bbolt provides a BBolt-backed client registry.
package bbolt

import (
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/tokencert/clients"
)

var bucketClients = []byte("clients")

// Registry implements clients.Registry backed by a BBolt database.
type Registry struct {
	db *bbolt.DB
}

var _ clients.Registry = (*Registry)(nil)

// NewRegistry returns a Registry backed by the given BBolt database.
func NewRegistry(db *bbolt.DB) (*Registry, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketClients)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating clients bucket: %w", err)
	}
	return &Registry{db: db}, nil
}

// NewRegistryFromFile opens a BBolt database at the given path and returns a
// new Registry.
func NewRegistryFromFile(path string, options *bbolt.Options) (*Registry, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewRegistry(db)
}

// Close closes the underlying BBolt database.
func (r *Registry) Close() error {
	return r.db.Close()
}

func (r *Registry) Add(id clients.ID) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketClients).Put([]byte(id.String()), []byte{1})
	})
}

func (r *Registry) Exists(id clients.ID, includeSubsystems bool) (bool, error) {
	var found bool
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketClients)
		if b.Get([]byte(id.String())) != nil {
			found = true
			return nil
		}
		if !includeSubsystems || id.IsSubsystem() {
			return nil
		}
		// Member ids are a prefix of their subsystems' encoded form, so a
		// cursor scan over "instance/class/code/" finds any subsystem.
		c := b.Cursor()
		prefix := []byte(id.String() + "/")
		k, _ := c.Seek(prefix)
		if k != nil && len(k) > len(prefix) && string(k[:len(prefix)]) == string(prefix) {
			found = true
		}
		return nil
	})
	return found, err
}

func (r *Registry) IsLocalMember(id clients.ID) (bool, error) {
	return r.Exists(id.Member(), true)
}

func (r *Registry) List() ([]clients.ID, error) {
	var out []clients.ID
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketClients).ForEach(func(k, _ []byte) error {
			id, err := clients.ParseID(string(k))
			if err != nil {
				return err
			}
			out = append(out, id)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
