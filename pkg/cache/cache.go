// Package cache is a small TTL-bounded lookup cache backed by Badger,
// used to avoid re-running the layered sponsor/category lookup against
// the rewards API for markets that keep re-qualifying cycle after cycle.
package cache

import (
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/shopspring/decimal"
)

// Store wraps an embedded Badger DB as a string-keyed TTL cache.
type Store struct {
	db *badger.DB
}

type OpenOptions struct {
	Path     string
	ReadOnly bool
}

// Open opens (or creates) the Badger database at opts.Path.
func Open(opts OpenOptions) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errPathRequired
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var errPathRequired = errStr("cache: path is required")

type errStr string

func (e errStr) Error() string { return string(e) }

func (s *Store) getString(key string) (string, bool, error) {
	var out string
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	return out, found, err
}

func (s *Store) setString(key, val string, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), []byte(val))
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// sponsorKey/categoryKey namespace cache entries by condition id so the two
// lookup kinds never collide inside the same Badger instance.
func sponsorKey(conditionID string) string  { return "sponsor/" + conditionID }
func categoryKey(conditionID string) string { return "category/" + conditionID }

// SponsorPoolCache caches the layered sponsor-pool lookup result (§4.2),
// keyed by condition id, for a bounded TTL so repeated cycles for the same
// long-lived market don't re-hit the rewards endpoint.
type SponsorPoolCache struct {
	store *Store
	ttl   time.Duration
}

func NewSponsorPoolCache(store *Store, ttl time.Duration) *SponsorPoolCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SponsorPoolCache{store: store, ttl: ttl}
}

func (c *SponsorPoolCache) Get(conditionID string) (decimal.Decimal, bool) {
	raw, ok, err := c.store.getString(sponsorKey(conditionID))
	if err != nil || !ok {
		return decimal.Zero, false
	}
	amt, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return amt, true
}

func (c *SponsorPoolCache) Set(conditionID string, amount decimal.Decimal) {
	_ = c.store.setString(sponsorKey(conditionID), amount.String(), c.ttl)
}

// CategoryCache caches the keyword-table category classification (§4.2) so
// classification isn't redone every cycle for the same market title.
type CategoryCache struct {
	store *Store
	ttl   time.Duration
}

func NewCategoryCache(store *Store, ttl time.Duration) *CategoryCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CategoryCache{store: store, ttl: ttl}
}

func (c *CategoryCache) Get(conditionID string) (string, bool) {
	val, ok, err := c.store.getString(categoryKey(conditionID))
	if err != nil || !ok {
		return "", false
	}
	return val, true
}

func (c *CategoryCache) Set(conditionID, category string) {
	_ = c.store.setString(categoryKey(conditionID), category, c.ttl)
}
