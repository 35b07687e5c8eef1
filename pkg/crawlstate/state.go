// Package crawlstate is the badger-backed store for crawl bookkeeping:
// which event ids were already scanned for relay hints, which relay URLs are
// known and visited, and the per-kind pagination cursors. Keeping this out of
// the relational store lets a restarted crawler resume instead of refetching
// all history.
package crawlstate

import (
	"errors"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/log"
)

// Key prefixes. Values under relayPrefix and cursorPrefix are msgpack.
const (
	scannedPrefix = "scan:"
	relayPrefix   = "relay:"
	cursorPrefix  = "cursor:"
)

// RelayRecord is the discovery state of one relay URL.
type RelayRecord struct {
	URL          string    `msgpack:"u"`
	DiscoveredAt time.Time `msgpack:"d"`
	Visited      bool      `msgpack:"v"`
}

// Cursor is the pagination state of one crawl kind.
type Cursor struct {
	Until int64 `msgpack:"u"`
	Done  bool  `msgpack:"f"`
}

// Store wraps the badger database.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (st *Store, err error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	var db *badger.DB
	if db, err = badger.Open(opts); chk.E(err) {
		return
	}
	log.D.F("crawl state store open at %s", path)
	return &Store{db: db}, nil
}

// Close flushes and closes the store.
func (st *Store) Close() (err error) {
	return st.db.Close()
}

// Scanned reports whether an event id was already scanned for relay hints.
func (st *Store) Scanned(eventID string) (seen bool, err error) {
	err = st.db.View(func(txn *badger.Txn) error {
		_, gerr := txn.Get([]byte(scannedPrefix + eventID))
		if errors.Is(gerr, badger.ErrKeyNotFound) {
			return nil
		}
		if gerr == nil {
			seen = true
		}
		return gerr
	})
	return
}

// MarkScanned records an event id as scanned.
func (st *Store) MarkScanned(eventID string) (err error) {
	return st.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(scannedPrefix+eventID), nil)
	})
}

// Relay returns the stored record for a relay URL.
func (st *Store) Relay(url string) (rec *RelayRecord, err error) {
	err = st.db.View(func(txn *badger.Txn) error {
		item, gerr := txn.Get([]byte(relayPrefix + url))
		if errors.Is(gerr, badger.ErrKeyNotFound) {
			return nil
		}
		if gerr != nil {
			return gerr
		}
		return item.Value(func(val []byte) error {
			rec = &RelayRecord{}
			return msgpack.Unmarshal(val, rec)
		})
	})
	return
}

// SaveRelay upserts a relay record.
func (st *Store) SaveRelay(rec *RelayRecord) (err error) {
	var val []byte
	if val, err = msgpack.Marshal(rec); chk.E(err) {
		return
	}
	return st.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(relayPrefix+rec.URL), val)
	})
}

// Relays returns every stored relay record.
func (st *Store) Relays() (recs []*RelayRecord, err error) {
	err = st.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         []byte(relayPrefix),
			PrefetchValues: true,
			PrefetchSize:   64,
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			rec := &RelayRecord{}
			if verr := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, rec)
			}); verr != nil {
				return verr
			}
			recs = append(recs, rec)
		}
		return nil
	})
	return
}

// Cursor returns the pagination cursor for a kind, if one was saved.
func (st *Store) Cursor(kind int) (c *Cursor, err error) {
	err = st.db.View(func(txn *badger.Txn) error {
		item, gerr := txn.Get(cursorKey(kind))
		if errors.Is(gerr, badger.ErrKeyNotFound) {
			return nil
		}
		if gerr != nil {
			return gerr
		}
		return item.Value(func(val []byte) error {
			c = &Cursor{}
			return msgpack.Unmarshal(val, c)
		})
	})
	return
}

// SaveCursor upserts the pagination cursor for a kind.
func (st *Store) SaveCursor(kind int, c *Cursor) (err error) {
	var val []byte
	if val, err = msgpack.Marshal(c); chk.E(err) {
		return
	}
	return st.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cursorKey(kind), val)
	})
}

func cursorKey(kind int) []byte {
	return []byte(cursorPrefix + strconv.Itoa(kind))
}
