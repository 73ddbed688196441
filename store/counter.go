// Package store keeps node state that has to survive a restart in a local
// BoltDB file.
package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	proto "github.com/ystepanoff/lorahome/protocol"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("lorahome")

// Counter is a transport.CounterSource that persists the last issued
// counter, so a rebooted node does not repeat counters the gateway has seen.
type Counter struct {
	db  *bolt.DB
	key []byte
}

// Open opens or creates the database at path and returns the counter of
// nodeID on networkID.
func Open(path string, networkID uint16, nodeID proto.NodeID) (*Counter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open counter db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Counter{
		db:  db,
		key: []byte(fmt.Sprintf("counter/%04x/%02x", networkID, uint8(nodeID))),
	}, nil
}

// Next increments and returns the stored counter, wrapping at 16 bits.
// The new value is on disk before it is returned.
func (c *Counter) Next() (uint16, error) {
	var v uint16
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		v = decode(b.Get(c.key)) + 1
		return b.Put(c.key, encode(v))
	})
	return v, err
}

// Last returns the most recently issued counter, 0 if none.
func (c *Counter) Last() (uint16, error) {
	var v uint16
	err := c.db.View(func(tx *bolt.Tx) error {
		v = decode(tx.Bucket(bucketName).Get(c.key))
		return nil
	})
	return v, err
}

// Set stores v as the last issued counter.
func (c *Counter) Set(v uint16) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(c.key, encode(v))
	})
}

func (c *Counter) Close() error {
	return c.db.Close()
}

func encode(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func decode(b []byte) uint16 {
	if len(b) != 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}
