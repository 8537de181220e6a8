// Package peercache implements a LevelDB-backed cache of previously seen
// peer addresses. The cache only stores dial hints used to enrich re-seeding
// after a restart; the live peer registry is never persisted.
package peercache

import (
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	log "github.com/sirupsen/logrus"
)

const keyPrefixPeer = "PER" // Dial hint indexed by "address:port"

// Hint is one cached peer address.
type Hint struct {
	Address  string    `cbor:"1,keyasint,omitempty"`
	Port     int       `cbor:"2,keyasint,omitempty"`
	LastSeen time.Time `cbor:"3,keyasint,omitempty"`
}

type Cache struct {
	path string
	mu   sync.Mutex
	db   *leveldb.DB
}

func keyFromHint(h *Hint) []byte {
	return append([]byte(keyPrefixPeer), []byte(fmt.Sprintf("%s:%d", h.Address, h.Port))...)
}

// Open opens or creates the cache at the given path.
func Open(path string) (*Cache, error) {
	opts := &opt.Options{
		Compression: opt.NoCompression,
	}

	db, err := leveldb.OpenFile(path, opts)
	if errors.IsCorrupted(err) {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, err
	}

	log.Infof("Opened peer cache at %s", path)

	return &Cache{path: path, db: db}, nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

// Put stores or refreshes a dial hint.
func (c *Cache) Put(h *Hint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := cbor.Marshal(h)
	if err != nil {
		return err
	}
	return c.db.Put(keyFromHint(h), raw, nil)
}

// All returns every cached hint.
func (c *Cache) All() ([]*Hint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var results []*Hint

	iter := c.db.NewIterator(util.BytesPrefix([]byte(keyPrefixPeer)), nil)
	defer iter.Release()

	for iter.Next() {
		h := &Hint{}
		if err := cbor.Unmarshal(iter.Value(), h); err != nil {
			return nil, err
		}
		results = append(results, h)
	}

	return results, iter.Error()
}

// Delete removes a hint for the given address and port.
func (c *Cache) Delete(address string, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Delete(keyFromHint(&Hint{Address: address, Port: port}), nil)
}
