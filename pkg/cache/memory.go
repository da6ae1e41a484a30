package cache

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryCache implements the RedisCache operations in process. Misses are
// reported with redis.Nil so IsMiss works for both.
type MemoryCache struct {
	mu     sync.Mutex
	prefix string
	values map[string]memoryValue
	zsets  map[string]map[string]float64
	hashes map[string]map[string]int64
	now    func() time.Time
}

type memoryValue struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryCache(prefix string) *MemoryCache {
	return &MemoryCache{
		prefix: prefix,
		values: make(map[string]memoryValue),
		zsets:  make(map[string]map[string]float64),
		hashes: make(map[string]map[string]int64),
		now:    time.Now,
	}
}

func (m *MemoryCache) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryCache) Key(parts ...string) string {
	return joinKey(m.prefix, parts)
}

func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = m.entry(data, expiration)
	return nil
}

func (m *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	v, ok := m.lookup(key)
	m.mu.Unlock()

	if !ok {
		return redis.Nil
	}
	return json.Unmarshal(v.data, dest)
}

func (m *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
		delete(m.zsets, key)
		delete(m.hashes, key)
	}
	return nil
}

func (m *MemoryCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.values[key] = m.entry(data, expiration)
	return true, nil
}

// Increment keeps the key's expiry, as INCR does.
func (m *MemoryCache) Increment(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	v, ok := m.lookup(key)
	if ok {
		if err := json.Unmarshal(v.data, &n); err != nil {
			return 0, err
		}
	} else {
		v = memoryValue{}
	}
	n++
	v.data = []byte(strconv.FormatInt(n, 10))
	m.values[key] = v
	return n, nil
}

func (m *MemoryCache) SetExpire(ctx context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.lookup(key); ok {
		m.values[key] = m.entry(v.data, expiration)
	}
	return nil
}

func (m *MemoryCache) ZAddNX(ctx context.Context, key string, score float64, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.zset(key)
	if _, ok := set[member]; ok {
		return false, nil
	}
	set[member] = score
	return true, nil
}

func (m *MemoryCache) ZAdd(ctx context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zset(key)[member] = score
	return nil
}

func (m *MemoryCache) ZRangeByScore(ctx context.Context, key string, min, max string, limit int64) ([]string, error) {
	lo, err := parseScore(min)
	if err != nil {
		return nil, err
	}
	hi, err := parseScore(max)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	type scored struct {
		member string
		score  float64
	}
	var matched []scored
	for member, score := range m.zsets[key] {
		if score >= lo && score <= hi {
			matched = append(matched, scored{member, score})
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score == matched[j].score {
			return matched[i].member < matched[j].member
		}
		return matched[i].score < matched[j].score
	})

	if limit > 0 && int64(len(matched)) > limit {
		matched = matched[:limit]
	}
	members := make([]string, len(matched))
	for i, s := range matched {
		members[i] = s.member
	}
	return members, nil
}

func (m *MemoryCache) ZRem(ctx context.Context, key string, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.zsets[key]
	if _, ok := set[member]; !ok {
		return false, nil
	}
	delete(set, member)
	return true, nil
}

func (m *MemoryCache) ZCard(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.zsets[key])), nil
}

// ZScore is a test helper with no RedisCache counterpart.
func (m *MemoryCache) ZScore(key, member string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	score, ok := m.zsets[key][member]
	return score, ok
}

func (m *MemoryCache) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.hashes[key]
	if !ok {
		hash = make(map[string]int64)
		m.hashes[key] = hash
	}
	hash[field] += incr
	return hash[field], nil
}

func (m *MemoryCache) HDel(ctx context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, field := range fields {
		delete(m.hashes[key], field)
	}
	return nil
}

// entry and lookup must be called with mu held.
func (m *MemoryCache) entry(data []byte, expiration time.Duration) memoryValue {
	v := memoryValue{data: data}
	if expiration > 0 {
		v.expiresAt = m.now().Add(expiration)
	}
	return v
}

func (m *MemoryCache) lookup(key string) (memoryValue, bool) {
	v, ok := m.values[key]
	if !ok {
		return v, false
	}
	if !v.expiresAt.IsZero() && !m.now().Before(v.expiresAt) {
		delete(m.values, key)
		return v, false
	}
	return v, true
}

func (m *MemoryCache) zset(key string) map[string]float64 {
	set, ok := m.zsets[key]
	if !ok {
		set = make(map[string]float64)
		m.zsets[key] = set
	}
	return set
}

func parseScore(s string) (float64, error) {
	switch s {
	case "-inf":
		return math.Inf(-1), nil
	case "+inf", "inf":
		return math.Inf(1), nil
	}
	return strconv.ParseFloat(s, 64)
}
