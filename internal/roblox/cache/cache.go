package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/robalyx/presencewatch/internal/setup/config"
)

// Kind separates cached values that share an ID space.
type Kind int

const (
	KindProfile Kind = iota
	KindAvatar
	KindPresence
)

func (k Kind) String() string {
	switch k {
	case KindProfile:
		return "profile"
	case KindAvatar:
		return "avatar"
	case KindPresence:
		return "presence"
	default:
		return "unknown"
	}
}

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// Options configures a Cache.
type Options struct {
	MaxEntries int
	TTLs       map[Kind]time.Duration
	Clock      Clock
}

// OptionsFromConfig converts the cache config section.
func OptionsFromConfig(cfg *config.Cache) Options {
	return Options{
		MaxEntries: cfg.MaxEntries,
		TTLs: map[Kind]time.Duration{
			KindProfile:  time.Duration(cfg.ProfileTTL) * time.Second,
			KindAvatar:   time.Duration(cfg.AvatarTTL) * time.Second,
			KindPresence: time.Duration(cfg.PresenceTTL) * time.Second,
		},
	}
}

type key struct {
	kind Kind
	id   uint64
}

type entry struct {
	key      key
	value    any
	storedAt time.Time
}

// Cache is a bounded TTL cache shared by the fetchers.
//
// Entries expire per kind and are dropped on the first read at or past
// their TTL. When full, the entry inserted longest ago is evicted, whether
// or not it has been read since.
type Cache struct {
	mu         sync.Mutex
	clock      Clock
	maxEntries int
	ttls       map[Kind]time.Duration
	entries    map[key]*list.Element
	order      *list.List // front is oldest insertion
}

// New creates a Cache. A nil clock uses time.Now.
func New(opts Options) *Cache {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}

	ttls := make(map[Kind]time.Duration, len(opts.TTLs))
	for kind, ttl := range opts.TTLs {
		ttls[kind] = ttl
	}

	return &Cache{
		clock:      clock,
		maxEntries: maxEntries,
		ttls:       ttls,
		entries:    make(map[key]*list.Element),
		order:      list.New(),
	}
}

// Get returns the live value stored for (kind, id).
func (c *Cache) Get(kind Kind, id uint64) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key{kind, id}]
	if !ok {
		return nil, false
	}

	e := elem.Value.(*entry)
	if c.clock().Sub(e.storedAt) >= c.ttls[kind] {
		c.remove(elem)
		return nil, false
	}

	return e.value, true
}

// Set stores value for (kind, id). Storing an existing key counts as a
// fresh insertion for both expiry and eviction order.
func (c *Cache) Set(kind Kind, id uint64, value any) {
	if c.ttls[kind] <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{kind, id}
	now := c.clock()

	if elem, ok := c.entries[k]; ok {
		e := elem.Value.(*entry)
		e.value = value
		e.storedAt = now
		c.order.MoveToBack(elem)

		return
	}

	c.entries[k] = c.order.PushBack(&entry{key: k, value: value, storedAt: now})

	for c.order.Len() > c.maxEntries {
		c.remove(c.order.Front())
	}
}

// Delete evicts a single entry.
func (c *Cache) Delete(kind Kind, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key{kind, id}]; ok {
		c.remove(elem)
	}
}

// Clear evicts every entry of one kind.
func (c *Cache) Clear(kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, elem := range c.entries {
		if k.kind == kind {
			c.remove(elem)
		}
	}
}

// ClearAll empties the cache.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[key]*list.Element)
	c.order.Init()
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

func (c *Cache) remove(elem *list.Element) {
	e := c.order.Remove(elem).(*entry)
	delete(c.entries, e.key)
}

// Lookup is a typed Get.
func Lookup[T any](c *Cache, kind Kind, id uint64) (T, bool) {
	var zero T

	value, ok := c.Get(kind, id)
	if !ok {
		return zero, false
	}

	typed, ok := value.(T)
	if !ok {
		return zero, false
	}

	return typed, true
}
