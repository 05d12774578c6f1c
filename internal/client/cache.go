package client

import (
	"sync"
	"time"

	"crudkit/internal/keyhash"
	"crudkit/internal/store"
	"crudkit/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// cacheEntry is one cached response body with its write time.
type cacheEntry struct {
	raw       []byte
	timestamp int64 // seconds since epoch at write time
}

// responseCache maps (endpoint hash, parameter-set hash) to cached
// response bodies. It persists itself through the store best-effort: a
// persistence failure degrades the cache to memory-only for the rest of
// the session instead of surfacing to callers.
type responseCache struct {
	mu         sync.Mutex
	entries    map[string]map[string]cacheEntry
	store      store.Store
	storageKey string

	persistBroken bool
}

func newResponseCache(s store.Store, baseURL string) *responseCache {
	return &responseCache{
		entries:    make(map[string]map[string]cacheEntry),
		store:      s,
		storageKey: "crudkit.cache." + keyhash.Short(baseURL),
	}
}

// load replaces the in-memory cache with the persisted snapshot, if any.
func (c *responseCache) load() {
	raw, err := c.store.Get(c.storageKey)
	if err != nil {
		if err != store.ErrNotFound {
			logrus.WithError(err).Warn("Response cache: could not load persisted cache")
		}
		return
	}

	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		logrus.Warn("Response cache: persisted cache is malformed, ignoring")
		return
	}

	entries := make(map[string]map[string]cacheEntry)
	parsed.ForEach(func(endpointHash, bucket gjson.Result) bool {
		inner := make(map[string]cacheEntry)
		bucket.ForEach(func(paramsHash, entry gjson.Result) bool {
			data := entry.Get("data")
			ts := entry.Get("timestamp")
			if data.Exists() && ts.Exists() {
				inner[paramsHash.String()] = cacheEntry{
					raw:       []byte(data.Raw),
					timestamp: ts.Int(),
				}
			}
			return true
		})
		if len(inner) > 0 {
			entries[endpointHash.String()] = inner
		}
		return true
	})

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	logrus.WithField("endpoints", len(entries)).Debug("Response cache loaded")
}

// persist writes the cache snapshot through the store. Callers must hold
// the mutex.
func (c *responseCache) persist() {
	if c.persistBroken {
		return
	}

	// The cached bodies are already JSON; sjson.SetRawBytes splices them
	// into the snapshot without a decode/encode round-trip.
	snapshot := []byte("{}")
	var err error
	for endpointHash, bucket := range c.entries {
		for paramsHash, entry := range bucket {
			prefix := escapePathKey(endpointHash) + "." + escapePathKey(paramsHash)
			snapshot, err = sjson.SetRawBytes(snapshot, prefix+".data", entry.raw)
			if err == nil {
				snapshot, err = sjson.SetBytes(snapshot, prefix+".timestamp", entry.timestamp)
			}
			if err != nil {
				logrus.WithError(err).Warn("Response cache: could not encode snapshot")
				return
			}
		}
	}

	if err := c.store.Set(c.storageKey, snapshot, 0); err != nil {
		logrus.WithError(err).Warn("Response cache: persistence failed, continuing in memory only")
		c.persistBroken = true
	}
}

// escapePathKey escapes a map key for use in a gjson/sjson path. Hashes
// are hex so this is a formality, kept for safety with future key shapes.
func escapePathKey(key string) string {
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '*', '?', '|', '#', '@', '\\':
			out = append(out, '\\')
		}
		out = append(out, key[i])
	}
	return string(out)
}

// get returns the cached entry for (endpoint, params), or ok=false.
func (c *responseCache) get(endpoint string, params Params) (cacheEntry, bool) {
	endpointHash := keyhash.Sum(endpoint)
	paramsHash := keyhash.Params(params)

	c.mu.Lock()
	defer c.mu.Unlock()

	bucket, exists := c.entries[endpointHash]
	if !exists {
		return cacheEntry{}, false
	}
	entry, exists := bucket[paramsHash]
	return entry, exists
}

// put stores a response body for (endpoint, params) and persists.
func (c *responseCache) put(endpoint string, params Params, raw []byte) {
	endpointHash := keyhash.Sum(endpoint)
	paramsHash := keyhash.Params(params)

	c.mu.Lock()
	defer c.mu.Unlock()

	bucket, exists := c.entries[endpointHash]
	if !exists {
		bucket = make(map[string]cacheEntry)
		c.entries[endpointHash] = bucket
	}
	bucket[paramsHash] = cacheEntry{raw: raw, timestamp: utils.Timestamp()}
	c.persist()
}

// invalidate drops the buckets for the given endpoints, or the whole cache
// when none are given, then persists.
func (c *responseCache) invalidate(endpoints ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(endpoints) == 0 {
		c.entries = make(map[string]map[string]cacheEntry)
	} else {
		for _, endpoint := range endpoints {
			delete(c.entries, keyhash.Sum(endpoint))
		}
	}
	c.persist()
}

// age returns how old the entry is.
func (e cacheEntry) age() time.Duration {
	return time.Duration(utils.Timestamp()-e.timestamp) * time.Second
}
