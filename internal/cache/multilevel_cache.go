package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	defaultL1Items = 1000
	defaultL1TTL   = time.Hour
)

// MultiLevelCache keeps recently used entries of a slower backend in memory.
// L1 is bounded by entry count and evicts the least recently used entry.
type MultiLevelCache struct {
	l2       Cache
	maxItems int
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front is most recently used
}

type l1Entry struct {
	key       string
	data      []byte
	expiresAt time.Time
}

// NewMultiLevelCache wraps l2 with an in-memory L1 holding at most
// l1MaxItems entries for at most an hour
func NewMultiLevelCache(l2 Cache, l1MaxItems int) *MultiLevelCache {
	if l1MaxItems <= 0 {
		l1MaxItems = defaultL1Items
	}
	return &MultiLevelCache{
		l2:       l2,
		maxItems: l1MaxItems,
		ttl:      defaultL1TTL,
		now:      time.Now,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *MultiLevelCache) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := c.getL1(key); ok {
		return data, nil
	}

	data, err := c.l2.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if data != nil {
		c.setL1(key, data, c.ttl)
	}
	return data, nil
}

// Set writes through to L2 before caching in L1
func (c *MultiLevelCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if err := c.l2.Set(ctx, key, value, expiration); err != nil {
		return err
	}

	ttl := expiration
	if ttl <= 0 || ttl > c.ttl {
		ttl = c.ttl
	}
	c.setL1(key, value, ttl)
	return nil
}

func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	c.mu.Unlock()

	return c.l2.Delete(ctx, key)
}

func (c *MultiLevelCache) Exists(ctx context.Context, key string) (bool, error) {
	if _, ok := c.getL1(key); ok {
		return true, nil
	}
	return c.l2.Exists(ctx, key)
}

// Len returns the number of entries held in L1
func (c *MultiLevelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Flush persists L2 writes when L2 buffers them
func (c *MultiLevelCache) Flush(ctx context.Context) error {
	return Flush(ctx, c.l2)
}

func (c *MultiLevelCache) Close() error {
	return c.l2.Close()
}

func (c *MultiLevelCache) Health(ctx context.Context) error {
	return c.l2.Health(ctx)
}

func (c *MultiLevelCache) getL1(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*l1Entry)
	if !c.now().Before(entry.expiresAt) {
		c.removeElement(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return entry.data, true
}

func (c *MultiLevelCache) setL1(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*l1Entry)
		entry.data = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&l1Entry{key: key, data: value, expiresAt: expiresAt})
	for c.order.Len() > c.maxItems {
		c.removeElement(c.order.Back())
	}
}

// removeElement must be called with mu held
func (c *MultiLevelCache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*l1Entry).key)
}
